package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stormhead-org/comments/internal/lib"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgForeignKeyViolation  = "23503"
)

type PostgresClient struct {
	database   *gorm.DB
	clock      *lib.Clock
	retries    int
	onConflict func(operation string)
}

type PostgresOption func(*PostgresClient)

// WithConflictRetries bounds how often a transaction that failed to
// serialize is replayed before ErrConflict is returned.
func WithConflictRetries(retries int) PostgresOption {
	return func(c *PostgresClient) {
		c.retries = retries
	}
}

// WithConflictObserver is called once per replayed transaction.
func WithConflictObserver(observer func(operation string)) PostgresOption {
	return func(c *PostgresClient) {
		c.onConflict = observer
	}
}

func WithMaxOpenConns(n int) PostgresOption {
	return func(c *PostgresClient) {
		if raw, err := c.database.DB(); err == nil && n > 0 {
			raw.SetMaxOpenConns(n)
			raw.SetMaxIdleConns(n)
		}
	}
}

func NewPostgresClient(host string, port string, user string, password string, database string, options ...PostgresOption) (*PostgresClient, error) {
	return NewPostgresClientFromDSN(
		fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host,
			port,
			user,
			password,
			database,
		),
		options...,
	)
}

func NewPostgresClientFromDSN(dsn string, options ...PostgresOption) (*PostgresClient, error) {
	database, err := gorm.Open(
		postgres.Open(dsn),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	if err != nil {
		return nil, err
	}

	rawDatabase, err := database.DB()
	if err != nil {
		return nil, err
	}

	rawDatabase.SetMaxOpenConns(10)
	rawDatabase.SetMaxIdleConns(10)
	rawDatabase.SetConnMaxIdleTime(5 * time.Second)

	client := &PostgresClient{
		database: database,
		clock:    lib.NewClock(),
		retries:  3,
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Migrate creates or updates the comment tables and their indexes.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	return c.database.WithContext(ctx).AutoMigrate(
		&User{},
		&Comment{},
		&CommentLike{},
	)
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	raw, err := c.database.DB()
	if err != nil {
		return err
	}
	return raw.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	raw, err := c.database.DB()
	if err != nil {
		return err
	}
	return raw.Close()
}

// transaction runs fn in a transaction and replays it while postgres reports
// a serialization failure or fn returns lib.ErrConflict.
func (c *PostgresClient) transaction(ctx context.Context, operation string, fn func(tx *gorm.DB) error, options ...*sql.TxOptions) error {
	for attempt := 0; ; attempt++ {
		err := c.database.WithContext(ctx).Transaction(fn, options...)
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return err
		}
		if attempt >= c.retries {
			if errors.Is(err, lib.ErrConflict) {
				return err
			}
			return fmt.Errorf("%w: %s: %v", lib.ErrConflict, operation, err)
		}
		if c.onConflict != nil {
			c.onConflict(operation)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func isConflict(err error) bool {
	if errors.Is(err, lib.ErrConflict) {
		return true
	}
	return hasSQLState(err, pgSerializationFailure, pgDeadlockDetected)
}

func hasSQLState(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, code := range codes {
		if pgErr.Code == code {
			return true
		}
	}
	return false
}

func readOnlySnapshot() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}
