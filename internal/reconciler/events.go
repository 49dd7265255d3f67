package reconciler

import (
	"time"

	"github.com/google/uuid"

	"github.com/stormhead-org/comments/internal/services"
)

type Event interface {
	isEvent()
}

// PageLoaded merges a page of root comments with their reply previews.
// Reset drops roots that are not on the page (pending roots are kept).
type PageLoaded struct {
	Page  *services.CommentPage
	Reset bool
}

// RepliesLoaded merges a batch of direct replies of ParentID. Parent, when
// set, refreshes the parent's own counters. Reset replaces the loaded
// replies with this batch, which is how a subtree refetch lands.
type RepliesLoaded struct {
	ParentID uuid.UUID
	Parent   *services.CommentView
	Page     *services.ReplyPage
	Reset    bool
}

// CommentSubmitted renders a new comment under a temporary id before the
// server has seen it.
type CommentSubmitted struct {
	TempID    string
	ParentID  *uuid.UUID
	Content   string
	Author    services.AuthorView
	CreatedAt time.Time
}

// RequestIssued marks the API call for a mutation as sent.
type RequestIssued struct {
	Key MutationKey
}

// CommentCreated swaps the temporary node for the server's comment.
type CommentCreated struct {
	TempID  string
	Comment *services.CommentView
}

// CommentFailed removes the temporary node.
type CommentFailed struct {
	TempID string
	Err    error
}

// LikeTapped flips the caller's like on a comment locally.
type LikeTapped struct {
	CommentID uuid.UUID
}

// LikeToggled carries the server's answer to a toggle request.
type LikeToggled struct {
	CommentID  uuid.UUID
	Liked      bool
	LikesCount int64
}

// LikeFailed reverts the comment to the last like state the server confirmed.
type LikeFailed struct {
	CommentID uuid.UUID
	Err       error
}

func (PageLoaded) isEvent()       {}
func (RepliesLoaded) isEvent()    {}
func (CommentSubmitted) isEvent() {}
func (RequestIssued) isEvent()    {}
func (CommentCreated) isEvent()   {}
func (CommentFailed) isEvent()    {}
func (LikeTapped) isEvent()       {}
func (LikeToggled) isEvent()      {}
func (LikeFailed) isEvent()       {}
