package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/middleware"
	"github.com/stormhead-org/comments/internal/services"
	"github.com/stormhead-org/comments/internal/services/comment"
	"github.com/stormhead-org/comments/internal/store"
)

// gatedAPI wraps a real service and lets a test hold ToggleLike and
// CreateComment calls or fail them.
type gatedAPI struct {
	services.CommentService

	mu          sync.Mutex
	toggleCalls int
	toggleGate  chan struct{}
	toggleErr   error
	createErr   error
	started     chan struct{}
}

func (a *gatedAPI) ToggleLike(ctx context.Context, commentID uuid.UUID) (*services.LikeState, error) {
	a.mu.Lock()
	a.toggleCalls++
	first := a.toggleCalls == 1
	gate := a.toggleGate
	err := a.toggleErr
	a.mu.Unlock()

	if first && gate != nil {
		close(a.started)
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return a.CommentService.ToggleLike(ctx, commentID)
}

func (a *gatedAPI) CreateComment(ctx context.Context, request services.CreateCommentRequest) (*services.CommentView, error) {
	if a.createErr != nil {
		return nil, a.createErr
	}
	return a.CommentService.CreateComment(ctx, request)
}

func (a *gatedAPI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.toggleCalls
}

type harness struct {
	api        *gatedAPI
	service    services.CommentService
	reconciler *Reconciler
	ctx        context.Context
	postID     uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	memory := store.NewMemoryStore()
	service := comment.NewCommentService(memory, zap.NewNop(), comment.DefaultConfig())
	api := &gatedAPI{CommentService: service}
	userID := uuid.New()
	postID := uuid.New()
	return &harness{
		api:        api,
		service:    service,
		reconciler: New(api, zap.NewNop(), postID, services.AuthorView{ID: userID, DisplayName: "Alex"}),
		ctx:        middleware.SetUserID(context.Background(), userID.String()),
		postID:     postID,
	}
}

// seed creates comments as another user, bypassing the reconciler.
func (h *harness) seed(t *testing.T, parentID *uuid.UUID, content string) *services.CommentView {
	t.Helper()
	ctx := middleware.SetUserID(context.Background(), uuid.NewString())
	view, err := h.service.CreateComment(ctx, services.CreateCommentRequest{PostID: h.postID, ParentID: parentID, Content: content})
	require.NoError(t, err)
	return view
}

func TestReconciler_LoadPages(t *testing.T) {
	h := newHarness(t)
	var roots []*services.CommentView
	for i := 0; i < 25; i++ {
		roots = append(roots, h.seed(t, nil, "root"))
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		h.seed(t, &roots[24].ID, "reply")
	}

	require.NoError(t, h.reconciler.LoadFirstPage(h.ctx))
	state := h.reconciler.State()
	assert.Len(t, state.Roots, 20)
	assert.True(t, state.HasMore)
	assert.Equal(t, int64(25), state.TotalCount)

	rows := h.reconciler.View()
	assert.Equal(t, roots[24].ID, rows[0].Comment.ID)
	assert.Equal(t, int64(5), rows[0].Comment.RepliesCount)
	assert.True(t, rows[0].HasMoreReplies)
	assert.Equal(t, 1, rows[1].Depth)

	require.NoError(t, h.reconciler.LoadMoreReplies(h.ctx, roots[24].ID))
	assert.Len(t, h.reconciler.State().Children[roots[24].ID.String()], 5)
	assert.False(t, h.reconciler.View()[0].HasMoreReplies)

	require.NoError(t, h.reconciler.LoadNextPage(h.ctx))
	state = h.reconciler.State()
	assert.Len(t, state.Roots, 25)
	assert.False(t, state.HasMore)

	require.NoError(t, h.reconciler.LoadNextPage(h.ctx))
	assert.Len(t, h.reconciler.State().Roots, 25)
}

func TestReconciler_SubmitRoot(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reconciler.LoadFirstPage(h.ctx))

	ref, err := h.reconciler.Submit(h.ctx, nil, "First!")

	require.NoError(t, err)
	committed, ok := ref.(CommittedRef)
	require.True(t, ok)
	state := h.reconciler.State()
	assert.True(t, state.Settled())
	assert.Equal(t, int64(1), state.TotalCount)
	require.Len(t, state.Roots, 1)
	node, ok := state.Node(committed)
	require.True(t, ok)
	assert.Equal(t, "First!", node.Comment.Content)
	assert.False(t, node.Pending())
}

func TestReconciler_SubmitReplyRefreshesParent(t *testing.T) {
	h := newHarness(t)
	root := h.seed(t, nil, "root")
	for i := 0; i < 4; i++ {
		h.seed(t, &root.ID, "reply")
	}
	require.NoError(t, h.reconciler.LoadFirstPage(h.ctx))

	ref, err := h.reconciler.Submit(h.ctx, &root.ID, "agreed")

	require.NoError(t, err)
	rows := h.reconciler.View()
	assert.Equal(t, int64(5), rows[0].Comment.RepliesCount)
	assert.Equal(t, ref, rows[1].Ref)
	assert.Equal(t, 1, rows[1].Comment.Level)
	for _, row := range rows {
		assert.False(t, row.Pending)
	}
	assert.Len(t, h.reconciler.State().Children[root.ID.String()], 5)
}

func TestReconciler_SubmitRollsBack(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		createErr error
		wantErr   error
	}{
		{"validation", "   ", nil, lib.ErrValidation},
		{"transport", "hello", errors.New("connection reset"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			root := h.seed(t, nil, "root")
			require.NoError(t, h.reconciler.LoadFirstPage(h.ctx))
			h.api.createErr = tt.createErr
			before := h.reconciler.View()

			ref, err := h.reconciler.Submit(h.ctx, &root.ID, tt.content)

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Nil(t, ref)
			state := h.reconciler.State()
			assert.Equal(t, before, state.View())
			assert.True(t, state.Settled())
			assert.Equal(t, err, state.LastError)
		})
	}
}

func TestReconciler_SubmitUnderUnloadedParent(t *testing.T) {
	h := newHarness(t)

	_, err := h.reconciler.Submit(h.ctx, ptr(uuid.New()), "hello")

	assert.ErrorIs(t, err, lib.ErrNotFound)
	assert.Empty(t, h.reconciler.View())
}

func TestReconciler_ToggleLike(t *testing.T) {
	h := newHarness(t)
	root := h.seed(t, nil, "root")
	require.NoError(t, h.reconciler.LoadFirstPage(h.ctx))

	require.NoError(t, h.reconciler.ToggleLike(h.ctx, root.ID))
	rows := h.reconciler.View()
	assert.True(t, rows[0].Comment.IsLikedByCaller)
	assert.Equal(t, int64(1), rows[0].Comment.LikesCount)

	require.NoError(t, h.reconciler.ToggleLike(h.ctx, root.ID))
	rows = h.reconciler.View()
	assert.False(t, rows[0].Comment.IsLikedByCaller)
	assert.Equal(t, int64(0), rows[0].Comment.LikesCount)
	assert.Equal(t, 2, h.api.calls())
}

func TestReconciler_ToggleLikeCoalescesDoubleTap(t *testing.T) {
	h := newHarness(t)
	root := h.seed(t, nil, "root")
	require.NoError(t, h.reconciler.LoadFirstPage(h.ctx))
	h.api.toggleGate = make(chan struct{})
	h.api.started = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- h.reconciler.ToggleLike(h.ctx, root.ID)
	}()
	<-h.api.started

	rows := h.reconciler.View()
	assert.True(t, rows[0].Comment.IsLikedByCaller)
	assert.Equal(t, int64(1), rows[0].Comment.LikesCount)

	require.NoError(t, h.reconciler.ToggleLike(h.ctx, root.ID))
	rows = h.reconciler.View()
	assert.False(t, rows[0].Comment.IsLikedByCaller)
	assert.Equal(t, int64(0), rows[0].Comment.LikesCount)

	close(h.api.toggleGate)
	require.NoError(t, <-done)

	state := h.reconciler.State()
	assert.True(t, state.Settled())
	rows = state.View()
	assert.False(t, rows[0].Comment.IsLikedByCaller)
	assert.Equal(t, int64(0), rows[0].Comment.LikesCount)
	assert.Equal(t, 2, h.api.calls())

	stored, err := h.service.GetComment(h.ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.LikesCount)
	assert.False(t, stored.IsLikedByCaller)
}

func TestReconciler_ToggleLikeReturnsWhenNodeEvicted(t *testing.T) {
	h := newHarness(t)
	root := h.seed(t, nil, "root")
	for i := 0; i < 15; i++ {
		h.seed(t, &root.ID, "reply")
	}
	require.NoError(t, h.reconciler.LoadFirstPage(h.ctx))
	require.NoError(t, h.reconciler.LoadMoreReplies(h.ctx, root.ID))

	children := h.reconciler.State().Children[root.ID.String()]
	require.Len(t, children, 13)
	last := h.reconciler.State().Nodes[children[len(children)-1]]
	target := last.Comment.ID

	h.api.toggleGate = make(chan struct{})
	h.api.started = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- h.reconciler.ToggleLike(h.ctx, target)
	}()
	<-h.api.started

	// Replying refetches the first batch, which no longer holds the target.
	_, err := h.reconciler.Submit(h.ctx, &root.ID, "new")
	require.NoError(t, err)
	_, ok := h.reconciler.State().Node(CommittedRef{ID: target})
	require.False(t, ok)

	close(h.api.toggleGate)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ToggleLike kept toggling an evicted comment")
	}

	state := h.reconciler.State()
	assert.Equal(t, 1, h.api.calls())
	assert.False(t, state.LikePending(target))
	assert.True(t, state.Settled())

	stored, err := h.service.GetComment(h.ctx, target)
	require.NoError(t, err)
	assert.True(t, stored.IsLikedByCaller)
	assert.Equal(t, int64(1), stored.LikesCount)
}

func TestReconciler_ToggleLikeRollsBack(t *testing.T) {
	h := newHarness(t)
	root := h.seed(t, nil, "root")
	require.NoError(t, h.reconciler.LoadFirstPage(h.ctx))
	h.api.toggleErr = errors.New("unavailable")
	before := h.reconciler.View()

	err := h.reconciler.ToggleLike(h.ctx, root.ID)

	require.Error(t, err)
	state := h.reconciler.State()
	assert.Equal(t, before, state.View())
	assert.Equal(t, PhaseRolledBack, state.Mutations[LikeKey(root.ID)].Phase)
	assert.False(t, state.LikePending(root.ID))
}

func TestReconciler_OnChange(t *testing.T) {
	memory := store.NewMemoryStore()
	service := comment.NewCommentService(memory, zap.NewNop(), comment.DefaultConfig())
	userID := uuid.New()
	var phases []Phase
	var seen int
	r := New(service, zap.NewNop(), uuid.New(), services.AuthorView{ID: userID}, WithPageSize(5), WithOrder(lib.OrderMostLiked), WithOnChange(func(state State) {
		seen++
		for _, mutation := range state.Mutations {
			phases = append(phases, mutation.Phase)
		}
	}))
	ctx := middleware.SetUserID(context.Background(), userID.String())

	_, err := r.Submit(ctx, nil, "hello")

	require.NoError(t, err)
	assert.Equal(t, 3, seen)
	assert.Equal(t, []Phase{PhaseOptimistic, PhaseInFlight, PhaseCommitted}, phases)
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}
