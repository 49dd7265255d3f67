package orm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stormhead-org/comments/internal/lib"
)

// CommentLike exists while the user likes the comment.
type CommentLike struct {
	CommentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Comment   Comment   `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (l *CommentLike) TableName() string {
	return "comment_like"
}

// ToggleCommentLike deletes the (comment, user) row if it exists and inserts
// it otherwise, adjusting likes_count in the same transaction. A concurrent
// toggle by the same user that wins the insert surfaces as ErrConflict inside
// the transaction and is replayed.
func (c *PostgresClient) ToggleCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) (bool, int64, error) {
	var liked bool
	var likesCount int64

	err := c.transaction(ctx, "toggle_comment_like", func(tx *gorm.DB) error {
		delta := -1

		deleted := tx.
			Where("comment_id = ? AND user_id = ?", commentID, userID).
			Delete(&CommentLike{})
		if deleted.Error != nil {
			return deleted.Error
		}

		if deleted.RowsAffected == 0 {
			inserted := tx.
				Omit("Comment").
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&CommentLike{
					CommentID: commentID,
					UserID:    userID,
					CreatedAt: time.Now().UTC(),
				})
			if hasSQLState(inserted.Error, pgForeignKeyViolation) {
				return fmt.Errorf("%w: comment %s", lib.ErrNotFound, commentID)
			}
			if inserted.Error != nil {
				return inserted.Error
			}
			if inserted.RowsAffected == 0 {
				return fmt.Errorf("%w: like %s/%s changed concurrently", lib.ErrConflict, commentID, userID)
			}
			delta = 1
		}

		var comment Comment
		updated := tx.Model(&comment).
			Clauses(clause.Returning{Columns: []clause.Column{{Name: "likes_count"}}}).
			Where("id = ?", commentID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta))
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return fmt.Errorf("%w: comment %s", lib.ErrNotFound, commentID)
		}

		liked = delta > 0
		likesCount = comment.LikesCount
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	return liked, likesCount, nil
}

// SelectLikedCommentIDs returns which of ids the user currently likes.
func (c *PostgresClient) SelectLikedCommentIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return liked, nil
	}

	var commentIDs []uuid.UUID
	tx := c.database.WithContext(ctx).
		Model(&CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, ids).
		Pluck("comment_id", &commentIDs)
	if tx.Error != nil {
		return nil, tx.Error
	}

	for _, id := range commentIDs {
		liked[id] = true
	}
	return liked, nil
}

func (c *PostgresClient) CountCommentLikes(ctx context.Context, commentID uuid.UUID) (int64, error) {
	var count int64
	err := c.database.WithContext(ctx).
		Model(&CommentLike{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error
	return count, err
}
