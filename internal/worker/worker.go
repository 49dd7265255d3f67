package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	eventpkg "github.com/stormhead-org/comments/internal/event"
	"github.com/stormhead-org/comments/internal/metrics"
	"github.com/stormhead-org/comments/internal/orm"
	"github.com/stormhead-org/comments/internal/services"
)

// MessageReader is the consuming half of eventpkg.KafkaClient.
type MessageReader interface {
	ReadMessage(ctx context.Context) (string, []byte, error)
}

// Worker consumes comment events and re-checks the counters they touched.
// The write path keeps counters exact; this catches rows changed outside it.
type Worker struct {
	context   context.Context
	cancel    func()
	waitGroup sync.WaitGroup
	logger    *zap.Logger
	router    *Router
	reader    MessageReader
	auditor   services.CounterAuditor
	metrics   *metrics.Metrics
}

func NewWorker(logger *zap.Logger, reader MessageReader, auditor services.CounterAuditor, m *metrics.Metrics) *Worker {
	context, cancel := context.WithCancel(context.Background())
	this := &Worker{
		context: context,
		cancel:  cancel,
		logger:  logger,
		reader:  reader,
		auditor: auditor,
		metrics: m,
	}
	this.router = NewRouter(
		map[string][]EventHandler{
			eventpkg.COMMENT_CREATED: {
				this.CommentCreatedHandler,
			},
			eventpkg.COMMENT_LIKE_TOGGLED: {
				this.CommentLikeToggledHandler,
			},
		},
		eventpkg.Schemas,
	)
	return this
}

func (this *Worker) Start() error {
	this.logger.Info("starting comment worker")

	this.waitGroup.Add(1)
	go this.worker()
	return nil
}

func (this *Worker) Stop() error {
	this.logger.Info("stopping comment worker")

	this.cancel()
	this.waitGroup.Wait()
	return nil
}

func (this *Worker) worker() {
	defer this.waitGroup.Done()

	for {
		select {
		case <-this.context.Done():
			return
		case <-time.After(1 * time.Millisecond):
		}

		event, data, err := this.reader.ReadMessage(this.context)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			this.logger.Error("error receiving kafka message", zap.Error(err))
			continue
		}

		err = this.router.Handle(event, data)
		this.metrics.IncrementEventHandled(event, err)
		if err != nil {
			this.logger.Error("error handling kafka message", zap.String("event", event), zap.Error(err))
			continue
		}
	}
}

// CommentCreatedHandler re-checks the parent's replies counter.
func (this *Worker) CommentCreatedHandler(data []byte) error {
	var message eventpkg.CommentCreatedMessage
	err := json.Unmarshal(data, &message)
	if err != nil {
		return err
	}

	if message.ParentID == "" {
		this.logger.Debug("root comment created", zap.String("id", message.ID), zap.String("post_id", message.PostID))
		return nil
	}

	parentID, err := uuid.Parse(message.ParentID)
	if err != nil {
		return err
	}
	return this.repair(parentID)
}

// CommentLikeToggledHandler re-checks the liked comment's likes counter.
func (this *Worker) CommentLikeToggledHandler(data []byte) error {
	var message eventpkg.CommentLikeToggledMessage
	err := json.Unmarshal(data, &message)
	if err != nil {
		return err
	}

	commentID, err := uuid.Parse(message.CommentID)
	if err != nil {
		return err
	}
	return this.repair(commentID)
}

func (this *Worker) repair(commentID uuid.UUID) error {
	repair, err := this.auditor.RepairCommentCounters(this.context, commentID)
	if err != nil {
		return err
	}
	recordRepair(this.logger, this.metrics, repair)
	return nil
}

func recordRepair(logger *zap.Logger, m *metrics.Metrics, repair orm.CounterRepair) {
	if repair.LikesBefore != repair.LikesAfter {
		m.RecordCounterDrift("likes")
		logger.Warn("repaired likes counter",
			zap.String("comment_id", repair.CommentID.String()),
			zap.Int64("before", repair.LikesBefore),
			zap.Int64("after", repair.LikesAfter),
		)
	}
	if repair.RepliesBefore != repair.RepliesAfter {
		m.RecordCounterDrift("replies")
		logger.Warn("repaired replies counter",
			zap.String("comment_id", repair.CommentID.String()),
			zap.Int64("before", repair.RepliesBefore),
			zap.Int64("after", repair.RepliesAfter),
		)
	}
}
