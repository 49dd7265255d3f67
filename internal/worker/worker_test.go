package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	eventpkg "github.com/stormhead-org/comments/internal/event"
	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/metrics"
	"github.com/stormhead-org/comments/internal/orm"
)

type MockAuditor struct {
	mu       sync.Mutex
	repaired []uuid.UUID
	RepairFn func(ctx context.Context, commentID uuid.UUID) (orm.CounterRepair, error)
	DriftFn  func(ctx context.Context, limit int) ([]uuid.UUID, error)
}

func (m *MockAuditor) RepairCommentCounters(ctx context.Context, commentID uuid.UUID) (orm.CounterRepair, error) {
	m.mu.Lock()
	m.repaired = append(m.repaired, commentID)
	m.mu.Unlock()
	if m.RepairFn != nil {
		return m.RepairFn(ctx, commentID)
	}
	return orm.CounterRepair{CommentID: commentID}, nil
}

func (m *MockAuditor) SelectDriftedCommentIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return m.DriftFn(ctx, limit)
}

func (m *MockAuditor) calls() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.repaired...)
}

type message struct {
	event string
	data  []byte
}

type chanReader struct {
	messages chan message
}

func (r *chanReader) ReadMessage(ctx context.Context) (string, []byte, error) {
	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case m := <-r.messages:
		return m.event, m.data, nil
	}
}

func payload(t *testing.T, value interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(value)
	require.NoError(t, err)
	return data
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewWithRegistry(prometheus.NewRegistry(), zap.NewNop())
}

func TestRouter_Handle(t *testing.T) {
	var called []string
	router := NewRouter(
		map[string][]EventHandler{
			eventpkg.COMMENT_LIKE_TOGGLED: {
				func(data []byte) error { called = append(called, "first"); return errors.New("boom") },
				func(data []byte) error { called = append(called, "second"); return nil },
			},
		},
		eventpkg.Schemas,
	)

	assert.NoError(t, router.Handle("post.created", []byte(`{}`)))
	assert.Empty(t, called)

	err := router.Handle(eventpkg.COMMENT_LIKE_TOGGLED, []byte(`{"commentId": "short"}`))
	assert.ErrorIs(t, err, lib.ErrValidation)
	assert.Empty(t, called)

	valid := payload(t, eventpkg.CommentLikeToggledMessage{
		CommentID:  uuid.NewString(),
		UserID:     uuid.NewString(),
		Liked:      true,
		LikesCount: 1,
	})
	err = router.Handle(eventpkg.COMMENT_LIKE_TOGGLED, valid)
	assert.EqualError(t, err, "event comment.like_toggled: boom")
	assert.Equal(t, []string{"first"}, called)
}

func TestWorker_CommentCreatedHandler(t *testing.T) {
	auditor := &MockAuditor{}
	w := NewWorker(zap.NewNop(), &chanReader{}, auditor, newTestMetrics())
	parentID := uuid.New()

	require.NoError(t, w.CommentCreatedHandler(payload(t, eventpkg.CommentCreatedMessage{
		ID: uuid.NewString(), PostID: uuid.NewString(), AuthorID: uuid.NewString(),
	})))
	assert.Empty(t, auditor.calls())

	require.NoError(t, w.CommentCreatedHandler(payload(t, eventpkg.CommentCreatedMessage{
		ID: uuid.NewString(), PostID: uuid.NewString(), ParentID: parentID.String(), AuthorID: uuid.NewString(), Level: 1,
	})))
	assert.Equal(t, []uuid.UUID{parentID}, auditor.calls())
}

func TestWorker_CommentLikeToggledHandlerRecordsDrift(t *testing.T) {
	commentID := uuid.New()
	auditor := &MockAuditor{
		RepairFn: func(ctx context.Context, id uuid.UUID) (orm.CounterRepair, error) {
			return orm.CounterRepair{CommentID: id, LikesBefore: 3, LikesAfter: 2, RepliesBefore: 1, RepliesAfter: 1}, nil
		},
	}
	m := newTestMetrics()
	w := NewWorker(zap.NewNop(), &chanReader{}, auditor, m)

	err := w.CommentLikeToggledHandler(payload(t, eventpkg.CommentLikeToggledMessage{
		CommentID: commentID.String(), UserID: uuid.NewString(), LikesCount: 2,
	}))

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{commentID}, auditor.calls())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterDriftTotal.WithLabelValues("likes")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.CounterDriftTotal.WithLabelValues("replies")))
}

func TestWorker_ConsumesMessages(t *testing.T) {
	repaired := make(chan uuid.UUID, 1)
	auditor := &MockAuditor{
		RepairFn: func(ctx context.Context, id uuid.UUID) (orm.CounterRepair, error) {
			repaired <- id
			return orm.CounterRepair{CommentID: id}, nil
		},
	}
	reader := &chanReader{messages: make(chan message, 2)}
	m := newTestMetrics()
	w := NewWorker(zap.NewNop(), reader, auditor, m)
	require.NoError(t, w.Start())

	commentID := uuid.New()
	reader.messages <- message{event: eventpkg.COMMENT_LIKE_TOGGLED, data: []byte(`{"commentId": 1}`)}
	reader.messages <- message{event: eventpkg.COMMENT_LIKE_TOGGLED, data: payload(t, eventpkg.CommentLikeToggledMessage{
		CommentID: commentID.String(), UserID: uuid.NewString(), Liked: true, LikesCount: 1,
	})}

	select {
	case id := <-repaired:
		assert.Equal(t, commentID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("message was not handled")
	}
	require.NoError(t, w.Stop())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsHandledTotal.WithLabelValues(eventpkg.COMMENT_LIKE_TOGGLED, "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsHandledTotal.WithLabelValues(eventpkg.COMMENT_LIKE_TOGGLED, "ok")))
}
