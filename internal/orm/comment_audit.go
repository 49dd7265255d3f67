package orm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stormhead-org/comments/internal/lib"
)

// CounterRepair describes the cached counters of a comment before and after
// they were recomputed from the like and reply rows.
type CounterRepair struct {
	CommentID     uuid.UUID
	LikesBefore   int64
	LikesAfter    int64
	RepliesBefore int64
	RepliesAfter  int64
}

func (r CounterRepair) Drifted() bool {
	return r.LikesBefore != r.LikesAfter || r.RepliesBefore != r.RepliesAfter
}

// RepairCommentCounters recomputes likes_count and replies_count under a row
// lock on the comment and writes them back only when they drifted.
func (c *PostgresClient) RepairCommentCounters(ctx context.Context, commentID uuid.UUID) (CounterRepair, error) {
	repair := CounterRepair{CommentID: commentID}

	err := c.transaction(ctx, "repair_comment_counters", func(tx *gorm.DB) error {
		var comment Comment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select([]string{"id", "likes_count", "replies_count"}).
			Where("id = ?", commentID).
			First(&comment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: comment %s", lib.ErrNotFound, commentID)
		}
		if err != nil {
			return err
		}

		repair.LikesBefore = comment.LikesCount
		repair.RepliesBefore = comment.RepliesCount

		err = tx.Model(&CommentLike{}).Where("comment_id = ?", commentID).Count(&repair.LikesAfter).Error
		if err != nil {
			return err
		}
		err = tx.Model(&Comment{}).Where("parent_id = ?", commentID).Count(&repair.RepliesAfter).Error
		if err != nil {
			return err
		}

		if !repair.Drifted() {
			return nil
		}

		return tx.Model(&Comment{}).
			Where("id = ?", commentID).
			UpdateColumns(map[string]interface{}{
				"likes_count":   repair.LikesAfter,
				"replies_count": repair.RepliesAfter,
			}).Error
	})

	return repair, err
}

// SelectDriftedCommentIDs finds comments whose cached counters disagree with
// the like and reply rows.
func (c *PostgresClient) SelectDriftedCommentIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var rows []struct {
		ID uuid.UUID
	}
	tx := c.database.WithContext(ctx).Raw(`
		SELECT c.id
		FROM comment c
		LEFT JOIN (
			SELECT comment_id, COUNT(*) AS n FROM comment_like GROUP BY comment_id
		) l ON l.comment_id = c.id
		LEFT JOIN (
			SELECT parent_id, COUNT(*) AS n FROM comment WHERE parent_id IS NOT NULL GROUP BY parent_id
		) r ON r.parent_id = c.id
		WHERE c.likes_count <> COALESCE(l.n, 0) OR c.replies_count <> COALESCE(r.n, 0)
		LIMIT ?`, limit).
		Scan(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}
