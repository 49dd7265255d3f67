package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/services"
)

// Reconciler owns the thread state of one post for one caller. The API is
// either the in-process service or client.CommentClient.
type Reconciler struct {
	mu       sync.Mutex
	api      services.CommentService
	log      *zap.Logger
	author   services.AuthorView
	state    State
	liking   map[uuid.UUID]bool
	order    lib.Order
	pageSize int
	now      func() time.Time
	onChange func(State)
}

type Option func(*Reconciler)

func WithOrder(order lib.Order) Option {
	return func(r *Reconciler) {
		r.order = order
	}
}

func WithPageSize(pageSize int) Option {
	return func(r *Reconciler) {
		r.pageSize = pageSize
	}
}

// WithOnChange registers a callback invoked with every new state. It runs
// with the reconciler locked and must not call back into it.
func WithOnChange(onChange func(State)) Option {
	return func(r *Reconciler) {
		r.onChange = onChange
	}
}

func New(api services.CommentService, log *zap.Logger, postID uuid.UUID, author services.AuthorView, options ...Option) *Reconciler {
	r := &Reconciler{
		api:    api,
		log:    log,
		author: author,
		state:  NewState(postID),
		liking: map[uuid.UUID]bool{},
		now:    time.Now,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) View() []Row {
	return r.State().View()
}

func (r *Reconciler) apply(events ...Event) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(events...)
}

func (r *Reconciler) applyLocked(events ...Event) State {
	for _, event := range events {
		r.state = Apply(r.state, event)
	}
	if r.onChange != nil {
		r.onChange(r.state)
	}
	return r.state
}

// LoadFirstPage replaces the loaded roots with the first page.
func (r *Reconciler) LoadFirstPage(ctx context.Context) error {
	page, err := r.api.ListComments(ctx, services.ListCommentsRequest{
		PostID:   r.State().PostID,
		Page:     1,
		PageSize: r.pageSize,
		Order:    r.order,
	})
	if err != nil {
		return err
	}
	r.apply(PageLoaded{Page: page, Reset: true})
	return nil
}

// LoadNextPage appends the roots after the last one loaded.
func (r *Reconciler) LoadNextPage(ctx context.Context) error {
	state := r.State()
	if !state.HasMore || state.NextCursor == nil {
		return nil
	}

	page, err := r.api.ListComments(ctx, services.ListCommentsRequest{
		PostID:   state.PostID,
		Page:     state.Page + 1,
		PageSize: r.pageSize,
		Order:    r.order,
		Cursor:   state.NextCursor,
	})
	if err != nil {
		return err
	}
	r.apply(PageLoaded{Page: page})
	return nil
}

// LoadMoreReplies appends the next batch of direct replies of parentID.
func (r *Reconciler) LoadMoreReplies(ctx context.Context, parentID uuid.UUID) error {
	cursor := r.State().Replies[CommittedRef{ID: parentID}.Key()]

	page, err := r.api.ListReplies(ctx, services.ListRepliesRequest{
		CommentID: parentID,
		AfterID:   cursor.NextCursor,
		Order:     r.order,
	})
	if err != nil {
		return err
	}
	r.apply(RepliesLoaded{ParentID: parentID, Page: page})
	return nil
}

// Submit renders the comment immediately under a temporary id, then swaps
// in the server's comment or removes it again when the call fails. A reply
// additionally refetches its parent's first batch of replies.
func (r *Reconciler) Submit(ctx context.Context, parentID *uuid.UUID, content string) (Ref, error) {
	tempID := uuid.NewString()
	key := CreateKey(tempID)

	state := r.apply(CommentSubmitted{
		TempID:    tempID,
		ParentID:  parentID,
		Content:   content,
		Author:    r.author,
		CreatedAt: r.now(),
	})
	if _, ok := state.Mutations[key]; !ok {
		return nil, fmt.Errorf("%w: parent is not loaded", lib.ErrNotFound)
	}
	r.apply(RequestIssued{Key: key})

	comment, err := r.api.CreateComment(ctx, services.CreateCommentRequest{
		PostID:   state.PostID,
		ParentID: parentID,
		Content:  content,
	})
	if err != nil {
		r.log.Debug("rolling back comment", zap.String("temp_id", tempID), zap.Error(err))
		r.apply(CommentFailed{TempID: tempID, Err: err})
		return nil, err
	}
	r.apply(CommentCreated{TempID: tempID, Comment: comment})

	if parentID != nil {
		r.refreshSubtree(ctx, *parentID)
	}
	return CommittedRef{ID: comment.ID}, nil
}

// refreshSubtree reloads a parent and its first batch of replies. Failures
// leave the reconciled state in place.
func (r *Reconciler) refreshSubtree(ctx context.Context, parentID uuid.UUID) {
	parent, err := r.api.GetComment(ctx, parentID)
	if err != nil {
		r.log.Warn("error refreshing parent", zap.String("comment_id", parentID.String()), zap.Error(err))
		return
	}
	replies, err := r.api.ListReplies(ctx, services.ListRepliesRequest{CommentID: parentID, Order: r.order})
	if err != nil {
		r.log.Warn("error refreshing replies", zap.String("comment_id", parentID.String()), zap.Error(err))
		r.apply(RepliesLoaded{ParentID: parentID, Parent: parent})
		return
	}
	r.apply(RepliesLoaded{ParentID: parentID, Parent: parent, Page: replies, Reset: true})
}

// ToggleLike flips the like locally and returns once the server agrees with
// the latest tap. Taps made while a request is in flight are coalesced: the
// caller that owns the request keeps toggling until the server state matches
// what the user last asked for.
func (r *Reconciler) ToggleLike(ctx context.Context, commentID uuid.UUID) error {
	key := LikeKey(commentID)

	r.mu.Lock()
	state := r.applyLocked(LikeTapped{CommentID: commentID})
	if !state.LikePending(commentID) {
		r.mu.Unlock()
		return fmt.Errorf("%w: comment is not loaded", lib.ErrNotFound)
	}
	if r.liking[commentID] {
		r.mu.Unlock()
		return nil
	}
	r.liking[commentID] = true
	r.mu.Unlock()

	for {
		r.apply(RequestIssued{Key: key})
		result, err := r.api.ToggleLike(ctx, commentID)

		r.mu.Lock()
		if err != nil {
			r.log.Debug("rolling back like", zap.String("comment_id", commentID.String()), zap.Error(err))
			r.applyLocked(LikeFailed{CommentID: commentID, Err: err})
			delete(r.liking, commentID)
			r.mu.Unlock()
			return err
		}

		state = r.applyLocked(LikeToggled{CommentID: commentID, Liked: result.Liked, LikesCount: result.LikesCount})
		if !state.LikePending(commentID) {
			delete(r.liking, commentID)
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()
	}
}
