package orm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stormhead-org/comments/internal/lib"
)

type Comment struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PostID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_comment_children,priority:1"`
	ParentID     *uuid.UUID `gorm:"type:uuid;index:idx_comment_children,priority:2"`
	Parent       *Comment   `gorm:"foreignKey:ParentID"`
	AuthorID     uuid.UUID  `gorm:"type:uuid;not null"`
	Content      string     `gorm:"type:text;not null;check:chk_comment_content,content <> ''"`
	Level        int        `gorm:"not null;default:0;check:chk_comment_level,level >= 0"`
	LikesCount   int64      `gorm:"not null;default:0;check:chk_comment_likes_count,likes_count >= 0"`
	RepliesCount int64      `gorm:"not null;default:0;check:chk_comment_replies_count,replies_count >= 0"`
	CreatedAt    time.Time  `gorm:"not null;index:idx_comment_children,priority:3"`
}

func (c *Comment) TableName() string {
	return "comment"
}

func (c *Comment) BeforeCreate(transaction *gorm.DB) error {
	if c.ID != uuid.Nil {
		return nil
	}
	id, err := NewCommentID()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (c Comment) GetID() uuid.UUID {
	return c.ID
}

func (c Comment) GetCreatedAt() time.Time {
	return c.CreatedAt
}

func (c Comment) GetLikesCount() int64 {
	return c.LikesCount
}

func (c Comment) IsRoot() bool {
	return c.ParentID == nil
}

// NewCommentID returns a time ordered identifier.
func NewCommentID() (uuid.UUID, error) {
	return uuid.NewV7()
}

// ChildrenQuery selects the direct children of ParentID, or the roots of
// PostID when ParentID is nil. After switches from Offset to keyset
// continuation. PreviewSize > 0 also loads that many direct children of every
// returned comment.
type ChildrenQuery struct {
	PostID      uuid.UUID
	ParentID    *uuid.UUID
	Order       lib.Order
	Limit       int
	Offset      int
	After       *uuid.UUID
	PreviewSize int
}

// ChildrenPage is read from a single snapshot, so every preview holds at most
// RepliesCount entries of its parent.
type ChildrenPage struct {
	Comments []*Comment
	Total    int64
	Previews map[uuid.UUID][]*Comment
}

var commentColumns = []string{
	"id",
	"post_id",
	"parent_id",
	"author_id",
	"content",
	"level",
	"likes_count",
	"replies_count",
	"created_at",
}

func (c *PostgresClient) SelectCommentByID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	var comment Comment
	tx := c.database.WithContext(ctx).
		Select(commentColumns).
		Where("id = ?", id).
		First(&comment)

	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: comment %s", lib.ErrNotFound, id)
	}
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &comment, nil
}

// InsertComment stores a new root or reply. For a reply the parent's
// replies_count is bumped in the same transaction; the parent must belong to
// the same post and the reply may not be deeper than maxDepth.
func (c *PostgresClient) InsertComment(ctx context.Context, comment *Comment, maxDepth int) error {
	return c.transaction(ctx, "insert_comment", func(tx *gorm.DB) error {
		comment.Level = 0
		comment.LikesCount = 0
		comment.RepliesCount = 0

		if comment.ParentID != nil {
			var parent Comment
			result := tx.Model(&parent).
				Clauses(clause.Returning{Columns: []clause.Column{{Name: "post_id"}, {Name: "level"}}}).
				Where("id = ?", *comment.ParentID).
				UpdateColumn("replies_count", gorm.Expr("replies_count + 1"))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: parent %s", lib.ErrNotFound, *comment.ParentID)
			}
			if parent.PostID != comment.PostID {
				return fmt.Errorf("%w: parent %s belongs to another post", lib.ErrInvalidParent, *comment.ParentID)
			}
			if maxDepth > 0 && parent.Level+1 > maxDepth {
				return fmt.Errorf("%w: replies are limited to depth %d", lib.ErrValidation, maxDepth)
			}
			comment.Level = parent.Level + 1
		}

		comment.ID = uuid.Nil
		comment.CreatedAt = c.clock.Now()
		return tx.Create(comment).Error
	})
}

func (c *PostgresClient) SelectChildren(ctx context.Context, query ChildrenQuery) (*ChildrenPage, error) {
	page := &ChildrenPage{}

	err := c.transaction(ctx, "select_children", func(tx *gorm.DB) error {
		base := tx.Model(&Comment{}).Where("post_id = ?", query.PostID)
		if query.ParentID == nil {
			base = base.Where("parent_id IS NULL")
		} else {
			base = base.Where("parent_id = ?", *query.ParentID)
		}

		err := base.Session(&gorm.Session{}).Count(&page.Total).Error
		if err != nil {
			return err
		}

		list := base.Session(&gorm.Session{}).Select(commentColumns)
		if query.After != nil {
			list, err = lib.Paginate[Comment](tx, list, query.Order, query.After.String(), query.Limit)
			if err != nil {
				return err
			}
		} else {
			list = list.Order(query.Order.Clause()).Offset(query.Offset).Limit(query.Limit)
		}

		err = list.Find(&page.Comments).Error
		if err != nil {
			return err
		}

		if query.PreviewSize <= 0 || len(page.Comments) == 0 {
			return nil
		}
		page.Previews, err = selectReplyPreviews(tx, idsOf(page.Comments), query.Order, query.PreviewSize)
		return err
	}, readOnlySnapshot())
	if err != nil {
		return nil, err
	}

	return page, nil
}

// selectReplyPreviews loads the first size direct children of every parent
// with one windowed query.
func selectReplyPreviews(tx *gorm.DB, parentIDs []uuid.UUID, order lib.Order, size int) (map[uuid.UUID][]*Comment, error) {
	ranked := tx.Model(&Comment{}).
		Select(strings.Join(commentColumns, ", ") + ", ROW_NUMBER() OVER (PARTITION BY parent_id ORDER BY " + order.Clause() + ") AS preview_rank").
		Where("parent_id IN ?", parentIDs)

	var replies []*Comment
	err := tx.Table("(?) AS ranked", ranked).
		Select(commentColumns).
		Where("preview_rank <= ?", size).
		Order("parent_id, preview_rank").
		Find(&replies).Error
	if err != nil {
		return nil, err
	}

	previews := make(map[uuid.UUID][]*Comment, len(parentIDs))
	for _, reply := range replies {
		previews[*reply.ParentID] = append(previews[*reply.ParentID], reply)
	}
	return previews, nil
}

func idsOf(comments []*Comment) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(comments))
	for _, comment := range comments {
		ids = append(ids, comment.ID)
	}
	return ids
}
