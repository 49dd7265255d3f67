package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/orm"
)

// CommentStore is the authoritative persistence of comments, likes and author
// profiles. orm.PostgresClient and store.MemoryStore implement it.
type CommentStore interface {
	InsertComment(ctx context.Context, comment *orm.Comment, maxDepth int) error
	SelectCommentByID(ctx context.Context, id uuid.UUID) (*orm.Comment, error)
	SelectChildren(ctx context.Context, query orm.ChildrenQuery) (*orm.ChildrenPage, error)
	ToggleCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) (bool, int64, error)
	SelectLikedCommentIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	SelectUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*orm.User, error)
}

// CounterAuditor recomputes cached counters from the rows they summarise.
type CounterAuditor interface {
	RepairCommentCounters(ctx context.Context, commentID uuid.UUID) (orm.CounterRepair, error)
	SelectDriftedCommentIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// EventPublisher receives domain events after the write committed.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{}) error
}

// AvatarResolver turns a stored avatar key into a URL a client can load.
type AvatarResolver interface {
	AvatarURL(ctx context.Context, key string) (string, error)
}

// CommentService is the externally facing comment contract. The caller is
// read from the context; mutating calls fail with lib.ErrUnauthenticated
// without one.
type CommentService interface {
	CreateComment(ctx context.Context, request CreateCommentRequest) (*CommentView, error)
	GetComment(ctx context.Context, commentID uuid.UUID) (*CommentView, error)
	ListComments(ctx context.Context, request ListCommentsRequest) (*CommentPage, error)
	ListReplies(ctx context.Context, request ListRepliesRequest) (*ReplyPage, error)
	ToggleLike(ctx context.Context, commentID uuid.UUID) (*LikeState, error)
}

type CreateCommentRequest struct {
	PostID   uuid.UUID
	ParentID *uuid.UUID
	Content  string
}

type ListCommentsRequest struct {
	PostID   uuid.UUID
	Page     int
	PageSize int
	Order    lib.Order
	// Cursor is the id of the last root already shown. When set, Page is
	// only echoed back and rows are selected after the cursor.
	Cursor *uuid.UUID
}

type ListRepliesRequest struct {
	CommentID uuid.UUID
	AfterID   *uuid.UUID
	Limit     int
	Order     lib.Order
}

type AuthorView struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
}

type CommentView struct {
	ID              uuid.UUID      `json:"id"`
	PostID          uuid.UUID      `json:"postId"`
	ParentID        *uuid.UUID     `json:"parentId,omitempty"`
	Author          AuthorView     `json:"author"`
	Content         string         `json:"content"`
	Level           int            `json:"level"`
	LikesCount      int64          `json:"likesCount"`
	RepliesCount    int64          `json:"repliesCount"`
	IsLikedByCaller bool           `json:"isLikedByCaller"`
	CreatedAt       time.Time      `json:"createdAt"`
	Replies         []*CommentView `json:"replies,omitempty"`
}

type Pagination struct {
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	HasMore    bool       `json:"hasMore"`
	TotalCount int64      `json:"totalCount"`
	NextCursor *uuid.UUID `json:"nextCursor,omitempty"`
}

type CommentPage struct {
	Comments   []*CommentView `json:"comments"`
	Pagination Pagination     `json:"pagination"`
}

type ReplyPage struct {
	Replies    []*CommentView `json:"replies"`
	HasMore    bool           `json:"hasMore"`
	NextCursor *uuid.UUID     `json:"nextCursor,omitempty"`
	TotalCount int64          `json:"totalCount"`
}

type LikeState struct {
	CommentID  uuid.UUID `json:"commentId"`
	Liked      bool      `json:"liked"`
	LikesCount int64     `json:"likesCount"`
}
