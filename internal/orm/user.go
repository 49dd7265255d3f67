package orm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// User is the public profile rendered as a comment author. Accounts and
// credentials live with the identity provider.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DisplayName string    `gorm:"not null;default:''"`
	AvatarKey   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the name of the table for the User model
func (u *User) TableName() string {
	return "user"
}

func (u *User) GetID() uuid.UUID {
	return u.ID
}

func (c *PostgresClient) SelectUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error) {
	users := make(map[uuid.UUID]*User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var rows []*User
	tx := c.database.WithContext(ctx).
		Select([]string{"id", "display_name", "avatar_key"}).
		Where("id IN ?", ids).
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	for _, user := range rows {
		users[user.ID] = user
	}
	return users, nil
}

// UpsertUser creates the profile or refreshes its display name and avatar.
func (c *PostgresClient) UpsertUser(ctx context.Context, user *User) error {
	return c.database.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "avatar_key", "updated_at"}),
		}).
		Create(user).Error
}
