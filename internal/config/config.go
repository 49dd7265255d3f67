package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Comments  CommentsConfig  `yaml:"comments"`
	Avatars   AvatarsConfig   `yaml:"avatars"`
	Audit     AuditConfig     `yaml:"audit"`
}

type ServerConfig struct {
	GRPCHost string `yaml:"grpc_host"`
	GRPCPort string `yaml:"grpc_port" validate:"required"`
	HTTPHost string `yaml:"http_host"`
	HTTPPort string `yaml:"http_port" validate:"required"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=postgres memory"`
}

type PostgresConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"max_open_conns" validate:"gte=1"`
	ConflictRetries int    `yaml:"conflict_retries" validate:"gte=0"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     string        `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	UserTTL  time.Duration `yaml:"user_ttl"`
}

type KafkaConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Topic   string `yaml:"topic"`
	Group   string `yaml:"group"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" validate:"required"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"gt=0"`
	Burst int     `yaml:"burst" validate:"gte=1"`
}

type CommentsConfig struct {
	PageSize         int `yaml:"page_size" validate:"gte=1,ltefield=MaxPageSize"`
	MaxPageSize      int `yaml:"max_page_size" validate:"gte=1"`
	PreviewSize      int `yaml:"preview_size" validate:"gte=0"`
	ReplyBatchSize   int `yaml:"reply_batch_size" validate:"gte=1,ltefield=MaxReplyBatch"`
	MaxReplyBatch    int `yaml:"max_reply_batch" validate:"gte=1"`
	MaxDepth         int `yaml:"max_depth" validate:"gte=0"`
	MaxContentLength int `yaml:"max_content_length" validate:"gte=1"`
}

type AvatarsConfig struct {
	Bucket     string        `yaml:"bucket"`
	Region     string        `yaml:"region"`
	Endpoint   string        `yaml:"endpoint"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

type AuditConfig struct {
	Schedule  string `yaml:"schedule"`
	BatchSize int    `yaml:"batch_size" validate:"gte=1"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCHost: "0.0.0.0",
			GRPCPort: "8080",
			HTTPHost: "0.0.0.0",
			HTTPPort: "8081",
		},
		Storage: StorageConfig{
			Backend: "postgres",
		},
		Postgres: PostgresConfig{
			Host:            "127.0.0.1",
			Port:            "5432",
			User:            "postgres",
			Password:        "postgres",
			Database:        "postgres",
			MaxOpenConns:    10,
			ConflictRetries: 3,
		},
		Redis: RedisConfig{
			Host:    "127.0.0.1",
			Port:    "6379",
			UserTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Host:  "127.0.0.1",
			Port:  "9092",
			Topic: "comments",
			Group: "comments",
		},
		Auth: AuthConfig{
			JWTSecret: "123456",
			TokenTTL:  24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 600,
		},
		Comments: CommentsConfig{
			PageSize:         20,
			MaxPageSize:      50,
			PreviewSize:      3,
			ReplyBatchSize:   10,
			MaxReplyBatch:    50,
			MaxDepth:         16,
			MaxContentLength: 1000,
		},
		Avatars: AvatarsConfig{
			PresignTTL: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Schedule:  "@every 10m",
			BatchSize: 500,
		},
	}
}

// Load starts from the defaults, overlays the YAML file at path when it
// exists and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(envBool("DEBUG", &cfg.Debug))

	envString("GRPC_HOST", &cfg.Server.GRPCHost)
	envString("GRPC_PORT", &cfg.Server.GRPCPort)
	envString("HTTP_HOST", &cfg.Server.HTTPHost)
	envString("HTTP_PORT", &cfg.Server.HTTPPort)

	envString("STORAGE_BACKEND", &cfg.Storage.Backend)

	envString("POSTGRES_HOST", &cfg.Postgres.Host)
	envString("POSTGRES_PORT", &cfg.Postgres.Port)
	envString("POSTGRES_USER", &cfg.Postgres.User)
	envString("POSTGRES_PASSWORD", &cfg.Postgres.Password)
	envString("POSTGRES_DB", &cfg.Postgres.Database)
	collect(envInt("POSTGRES_MAX_OPEN_CONNS", &cfg.Postgres.MaxOpenConns))
	collect(envInt("POSTGRES_CONFLICT_RETRIES", &cfg.Postgres.ConflictRetries))

	collect(envBool("REDIS_ENABLED", &cfg.Redis.Enabled))
	envString("REDIS_HOST", &cfg.Redis.Host)
	envString("REDIS_PORT", &cfg.Redis.Port)
	envString("REDIS_PASSWORD", &cfg.Redis.Password)
	collect(envInt("REDIS_DB", &cfg.Redis.DB))
	collect(envDuration("REDIS_USER_TTL", &cfg.Redis.UserTTL))

	collect(envBool("KAFKA_ENABLED", &cfg.Kafka.Enabled))
	envString("KAFKA_HOST", &cfg.Kafka.Host)
	envString("KAFKA_PORT", &cfg.Kafka.Port)
	envString("KAFKA_TOPIC", &cfg.Kafka.Topic)
	envString("KAFKA_GROUP", &cfg.Kafka.Group)

	envString("JWT_SECRET", &cfg.Auth.JWTSecret)
	collect(envDuration("JWT_TOKEN_TTL", &cfg.Auth.TokenTTL))

	collect(envFloat("RATE_LIMIT_RPS", &cfg.RateLimit.RPS))
	collect(envInt("RATE_LIMIT_BURST", &cfg.RateLimit.Burst))

	collect(envInt("COMMENTS_PAGE_SIZE", &cfg.Comments.PageSize))
	collect(envInt("COMMENTS_MAX_PAGE_SIZE", &cfg.Comments.MaxPageSize))
	collect(envInt("COMMENTS_PREVIEW_SIZE", &cfg.Comments.PreviewSize))
	collect(envInt("COMMENTS_REPLY_BATCH_SIZE", &cfg.Comments.ReplyBatchSize))
	collect(envInt("COMMENTS_MAX_REPLY_BATCH", &cfg.Comments.MaxReplyBatch))
	collect(envInt("COMMENTS_MAX_DEPTH", &cfg.Comments.MaxDepth))
	collect(envInt("COMMENTS_MAX_CONTENT_LENGTH", &cfg.Comments.MaxContentLength))

	envString("AVATARS_BUCKET", &cfg.Avatars.Bucket)
	envString("AVATARS_REGION", &cfg.Avatars.Region)
	envString("AVATARS_ENDPOINT", &cfg.Avatars.Endpoint)
	collect(envDuration("AVATARS_PRESIGN_TTL", &cfg.Avatars.PresignTTL))

	envString("AUDIT_SCHEDULE", &cfg.Audit.Schedule)
	collect(envInt("AUDIT_BATCH_SIZE", &cfg.Audit.BatchSize))

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %v", errs)
	}
	return nil
}

func envString(key string, target *string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func envInt(key string, target *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = parsed
	return nil
}

func envFloat(key string, target *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = parsed
	return nil
}

func envBool(key string, target *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = parsed
	return nil
}

func envDuration(key string, target *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = parsed
	return nil
}
