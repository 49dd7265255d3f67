package comment

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	eventpkg "github.com/stormhead-org/comments/internal/event"
	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/middleware"
	"github.com/stormhead-org/comments/internal/orm"
	"github.com/stormhead-org/comments/internal/services"
	"github.com/stormhead-org/comments/internal/store"
)

type MockPublisher struct {
	mu        sync.Mutex
	events    []string
	PublishFn func(ctx context.Context, event string, payload interface{}) error
}

func (m *MockPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.PublishFn != nil {
		return m.PublishFn(ctx, event, payload)
	}
	return nil
}

type MockAvatarResolver struct {
	AvatarURLFn func(ctx context.Context, key string) (string, error)
}

func (m *MockAvatarResolver) AvatarURL(ctx context.Context, key string) (string, error) {
	return m.AvatarURLFn(ctx, key)
}

type fixture struct {
	service   *CommentServiceImpl
	store     *store.MemoryStore
	publisher *MockPublisher
	postID    uuid.UUID
	userID    uuid.UUID
	ctx       context.Context
}

func newFixture(t *testing.T, options ...Option) *fixture {
	t.Helper()
	memory := store.NewMemoryStore()
	publisher := &MockPublisher{}
	options = append([]Option{WithPublisher(publisher)}, options...)
	userID := uuid.New()
	return &fixture{
		service:   newCommentService(memory, zap.NewNop(), DefaultConfig(), options...),
		store:     memory,
		publisher: publisher,
		postID:    uuid.New(),
		userID:    userID,
		ctx:       middleware.SetUserID(context.Background(), userID.String()),
	}
}

func (f *fixture) create(t *testing.T, parentID *uuid.UUID, content string) *services.CommentView {
	t.Helper()
	view, err := f.service.CreateComment(f.ctx, services.CreateCommentRequest{PostID: f.postID, ParentID: parentID, Content: content})
	require.NoError(t, err)
	return view
}

func asUser(userID uuid.UUID) context.Context {
	return middleware.SetUserID(context.Background(), userID.String())
}

func TestCreateComment_Root(t *testing.T) {
	f := newFixture(t)

	view := f.create(t, nil, "Great trip!")

	assert.Equal(t, 0, view.Level)
	assert.Zero(t, view.RepliesCount)
	assert.Zero(t, view.LikesCount)
	assert.Equal(t, f.userID, view.Author.ID)
	assert.Nil(t, view.ParentID)

	page, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID, Page: 1})
	require.NoError(t, err)
	require.NotEmpty(t, page.Comments)
	assert.Equal(t, view.ID, page.Comments[0].ID)
	assert.Equal(t, []string{eventpkg.COMMENT_CREATED}, f.publisher.events)
}

func TestCreateComment_Reply(t *testing.T) {
	f := newFixture(t)
	parent := f.create(t, nil, "C1")

	reply := f.create(t, &parent.ID, "agreed")

	assert.Equal(t, parent.Level+1, reply.Level)
	assert.Equal(t, parent.ID, *reply.ParentID)
	refreshed, err := f.service.GetComment(f.ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.RepliesCount+1, refreshed.RepliesCount)
}

func TestCreateComment_ParentOnAnotherPost(t *testing.T) {
	f := newFixture(t)
	parent := f.create(t, nil, "on P1")

	_, err := f.service.CreateComment(f.ctx, services.CreateCommentRequest{PostID: uuid.New(), ParentID: &parent.ID, Content: "wrong post"})

	assert.ErrorIs(t, err, lib.ErrInvalidParent)
	refreshed, err := f.service.GetComment(f.ctx, parent.ID)
	require.NoError(t, err)
	assert.Zero(t, refreshed.RepliesCount)
	page, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.TotalCount)
}

func TestCreateComment_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty", "", lib.ErrValidation},
		{"whitespace", "   \n\t", lib.ErrValidation},
		{"too long", strings.Repeat("a", 1001), lib.ErrValidation},
		{"markup counts toward limit", strings.Repeat("<i></i>", 300) + "hi", lib.ErrValidation},
		{"invalid utf-8", "bad \xff utf8", lib.ErrValidation},
		{"limit counts code points", strings.Repeat("é", 1000), nil},
		{"plain text kept", "a < b & c", nil},
		{"markup-like text kept", "<script>alert(1)</script>", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			view, err := f.service.CreateComment(f.ctx, services.CreateCommentRequest{PostID: f.postID, Content: tt.content})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.content, view.Content)
		})
	}
}

func TestCreateComment_StoresTextVerbatim(t *testing.T) {
	tests := []string{
		"if x <y and y> z then",
		"use &lt;b&gt; for bold",
		"see <https://example.com> ok",
		"<b>bold</b> move",
	}

	for _, content := range tests {
		t.Run(content, func(t *testing.T) {
			f := newFixture(t)

			view := f.create(t, nil, "  "+content+"\n")
			assert.Equal(t, content, view.Content)

			stored, err := f.service.GetComment(f.ctx, view.ID)
			require.NoError(t, err)
			assert.Equal(t, content, stored.Content)
		})
	}
}

type failingUsersStore struct {
	*store.MemoryStore
	err error
}

func (s *failingUsersStore) SelectUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*orm.User, error) {
	return nil, s.err
}

func TestCreateComment_ProfileLookupFailureKeepsComment(t *testing.T) {
	memory := store.NewMemoryStore()
	core, logs := observer.New(zap.WarnLevel)
	service := newCommentService(&failingUsersStore{MemoryStore: memory, err: errors.New("users table unavailable")}, zap.New(core), DefaultConfig())
	userID := uuid.New()
	postID := uuid.New()

	view, err := service.CreateComment(asUser(userID), services.CreateCommentRequest{PostID: postID, Content: "saved anyway"})

	require.NoError(t, err)
	assert.Equal(t, userID, view.Author.ID)
	assert.Empty(t, view.Author.DisplayName)
	assert.Equal(t, "saved anyway", view.Content)
	assert.Equal(t, 1, logs.FilterMessage("error loading author").Len())

	stored, err := memory.SelectCommentByID(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, "saved anyway", stored.Content)
}

func TestCreateComment_RequiresCaller(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateComment(context.Background(), services.CreateCommentRequest{PostID: f.postID, Content: "anon"})

	assert.ErrorIs(t, err, lib.ErrUnauthenticated)
}

func TestCreateComment_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.publisher.PublishFn = func(ctx context.Context, event string, payload interface{}) error {
		return errors.New("broker down")
	}

	_, err := f.service.CreateComment(f.ctx, services.CreateCommentRequest{PostID: f.postID, Content: "still saved"})

	assert.NoError(t, err)
}

func TestToggleLike_DoubleTapRestores(t *testing.T) {
	f := newFixture(t)
	c1 := f.create(t, nil, "C1")

	first, err := f.service.ToggleLike(f.ctx, c1.ID)
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, int64(1), first.LikesCount)

	second, err := f.service.ToggleLike(f.ctx, c1.ID)
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Zero(t, second.LikesCount)
}

func TestToggleLike_ConcurrentUsers(t *testing.T) {
	f := newFixture(t)
	c1 := f.create(t, nil, "C1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.ToggleLike(asUser(uuid.New()), c1.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	refreshed, err := f.service.GetComment(f.ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), refreshed.LikesCount)
}

func TestToggleLike_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ToggleLike(f.ctx, uuid.New())
	assert.ErrorIs(t, err, lib.ErrNotFound)

	c1 := f.create(t, nil, "C1")
	_, err = f.service.ToggleLike(context.Background(), c1.ID)
	assert.ErrorIs(t, err, lib.ErrUnauthenticated)
}

func TestListComments_IsLikedByCaller(t *testing.T) {
	f := newFixture(t)
	c1 := f.create(t, nil, "C1")
	_, err := f.service.ToggleLike(f.ctx, c1.ID)
	require.NoError(t, err)

	mine, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID})
	require.NoError(t, err)
	assert.True(t, mine.Comments[0].IsLikedByCaller)

	anonymous, err := f.service.ListComments(context.Background(), services.ListCommentsRequest{PostID: f.postID})
	require.NoError(t, err)
	assert.False(t, anonymous.Comments[0].IsLikedByCaller)
	assert.Equal(t, int64(1), anonymous.Comments[0].LikesCount)
}

func TestListComments_OffsetPages(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.create(t, nil, "root")
	}

	first, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, first.Comments, 2)
	assert.True(t, first.Pagination.HasMore)
	assert.Equal(t, int64(5), first.Pagination.TotalCount)

	last, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID, Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, last.Comments, 1)
	assert.False(t, last.Pagination.HasMore)
	assert.Nil(t, last.Pagination.NextCursor)
}

func TestListComments_CursorPages(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.create(t, nil, "root")
	}

	first, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID, PageSize: 2})
	require.NoError(t, err)
	require.NotNil(t, first.Pagination.NextCursor)

	f.create(t, nil, "new head")

	seen := map[uuid.UUID]bool{}
	for _, c := range first.Comments {
		seen[c.ID] = true
	}
	cursor := first.Pagination.NextCursor
	total := len(first.Comments)
	for cursor != nil {
		page, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID, PageSize: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, c := range page.Comments {
			assert.False(t, seen[c.ID], "comment %s repeated", c.ID)
			seen[c.ID] = true
		}
		total += len(page.Comments)
		cursor = page.Pagination.NextCursor
	}
	assert.Equal(t, 5, total)
}

func TestListComments_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		request services.ListCommentsRequest
	}{
		{"negative page", services.ListCommentsRequest{PostID: f.postID, Page: -1}},
		{"page overflows offset", services.ListCommentsRequest{PostID: f.postID, Page: math.MaxInt}},
		{"page overflows offset at page size", services.ListCommentsRequest{PostID: f.postID, Page: math.MaxInt/10 + 1, PageSize: 10}},
		{"page size above bound", services.ListCommentsRequest{PostID: f.postID, PageSize: 51}},
		{"negative page size", services.ListCommentsRequest{PostID: f.postID, PageSize: -5}},
		{"unknown order", services.ListCommentsRequest{PostID: f.postID, Order: lib.Order("random")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.ListComments(f.ctx, tt.request)
			assert.ErrorIs(t, err, lib.ErrValidation)
		})
	}
}

func TestListComments_LastAddressablePage(t *testing.T) {
	f := newFixture(t)
	f.create(t, nil, "root")

	page, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID, Page: math.MaxInt / 20, PageSize: 20})

	require.NoError(t, err)
	assert.Empty(t, page.Comments)
	assert.False(t, page.Pagination.HasMore)
	assert.Equal(t, int64(1), page.Pagination.TotalCount)
}

func TestListComments_CursorFromReplyRejected(t *testing.T) {
	f := newFixture(t)
	root := f.create(t, nil, "root")
	reply := f.create(t, &root.ID, "reply")

	_, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID, Cursor: &reply.ID})

	assert.ErrorIs(t, err, lib.ErrValidation)
}

func TestListComments_EmbedsPreview(t *testing.T) {
	f := newFixture(t)
	root := f.create(t, nil, "root")
	for i := 0; i < 5; i++ {
		f.create(t, &root.ID, "reply")
	}

	page, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID})
	require.NoError(t, err)

	view := page.Comments[0]
	assert.Len(t, view.Replies, 3)
	assert.Equal(t, int64(5), view.RepliesCount)
	assert.GreaterOrEqual(t, view.RepliesCount, int64(len(view.Replies)))
}

func TestListReplies_ContinuesAfterPreview(t *testing.T) {
	f := newFixture(t)
	root := f.create(t, nil, "root")
	for i := 0; i < 15; i++ {
		f.create(t, &root.ID, "reply")
	}

	page, err := f.service.ListComments(f.ctx, services.ListCommentsRequest{PostID: f.postID})
	require.NoError(t, err)
	preview := page.Comments[0].Replies
	require.Len(t, preview, 3)

	after := preview[len(preview)-1].ID
	more, err := f.service.ListReplies(f.ctx, services.ListRepliesRequest{CommentID: root.ID, AfterID: &after})
	require.NoError(t, err)
	assert.Len(t, more.Replies, 10)
	assert.True(t, more.HasMore)
	require.NotNil(t, more.NextCursor)

	rest, err := f.service.ListReplies(f.ctx, services.ListRepliesRequest{CommentID: root.ID, AfterID: more.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Replies, 2)
	assert.False(t, rest.HasMore)
	assert.Nil(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, batch := range [][]*services.CommentView{preview, more.Replies, rest.Replies} {
		for _, reply := range batch {
			assert.False(t, seen[reply.ID])
			seen[reply.ID] = true
		}
	}
	assert.Len(t, seen, 15)
}

func TestListReplies_Errors(t *testing.T) {
	f := newFixture(t)
	root := f.create(t, nil, "root")
	other := f.create(t, nil, "other")

	_, err := f.service.ListReplies(f.ctx, services.ListRepliesRequest{CommentID: uuid.New()})
	assert.ErrorIs(t, err, lib.ErrNotFound)

	_, err = f.service.ListReplies(f.ctx, services.ListRepliesRequest{CommentID: root.ID, AfterID: &other.ID})
	assert.ErrorIs(t, err, lib.ErrValidation)

	_, err = f.service.ListReplies(f.ctx, services.ListRepliesRequest{CommentID: root.ID, Limit: 51})
	assert.ErrorIs(t, err, lib.ErrValidation)
}

func TestViews_AuthorProfileAndAvatar(t *testing.T) {
	avatarKey := "avatars/alex.png"
	f := newFixture(t, WithAvatarResolver(&MockAvatarResolver{
		AvatarURLFn: func(ctx context.Context, key string) (string, error) {
			return "https://cdn.example.com/" + key, nil
		},
	}))
	require.NoError(t, f.store.UpsertUser(context.Background(), &orm.User{ID: f.userID, DisplayName: "Alex", AvatarKey: &avatarKey}))

	view := f.create(t, nil, "hello")

	assert.Equal(t, "Alex", view.Author.DisplayName)
	assert.Equal(t, "https://cdn.example.com/avatars/alex.png", view.Author.AvatarURL)
}

func TestViews_AvatarFailureIsIgnored(t *testing.T) {
	avatarKey := "avatars/alex.png"
	f := newFixture(t, WithAvatarResolver(&MockAvatarResolver{
		AvatarURLFn: func(ctx context.Context, key string) (string, error) {
			return "", errors.New("no credentials")
		},
	}))
	require.NoError(t, f.store.UpsertUser(context.Background(), &orm.User{ID: f.userID, DisplayName: "Alex", AvatarKey: &avatarKey}))

	view := f.create(t, nil, "hello")

	assert.Equal(t, "Alex", view.Author.DisplayName)
	assert.Empty(t, view.Author.AvatarURL)
}
