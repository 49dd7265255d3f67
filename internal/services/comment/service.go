package comment

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/metrics"
	"github.com/stormhead-org/comments/internal/services"
)

type Config struct {
	PageSize         int
	MaxPageSize      int
	PreviewSize      int
	ReplyBatchSize   int
	MaxReplyBatch    int
	MaxDepth         int
	MaxContentLength int
}

func DefaultConfig() Config {
	return Config{
		PageSize:         20,
		MaxPageSize:      50,
		PreviewSize:      3,
		ReplyBatchSize:   10,
		MaxReplyBatch:    50,
		MaxDepth:         16,
		MaxContentLength: 1000,
	}
}

type CommentServiceImpl struct {
	store     services.CommentStore
	log       *zap.Logger
	config    Config
	publisher services.EventPublisher
	avatars   services.AvatarResolver
	metrics   *metrics.Metrics
	validate  *validator.Validate
}

type Option func(*CommentServiceImpl)

func WithPublisher(publisher services.EventPublisher) Option {
	return func(s *CommentServiceImpl) {
		s.publisher = publisher
	}
}

func WithAvatarResolver(avatars services.AvatarResolver) Option {
	return func(s *CommentServiceImpl) {
		s.avatars = avatars
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CommentServiceImpl) {
		s.metrics = m
	}
}

func NewCommentService(store services.CommentStore, log *zap.Logger, config Config, options ...Option) services.CommentService {
	return newCommentService(store, log, config, options...)
}

func newCommentService(store services.CommentStore, log *zap.Logger, config Config, options ...Option) *CommentServiceImpl {
	s := &CommentServiceImpl{
		store:    store,
		log:      log,
		config:   config,
		validate: validator.New(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// publish is best effort: the write already committed and the auditor
// repairs whatever a lost event would have checked.
func (s *CommentServiceImpl) publish(ctx context.Context, event string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, event, payload)
	s.metrics.IncrementEventPublished(event, err)
	if err != nil {
		s.log.Error("error publishing event", zap.String("event", event), zap.Error(err))
	}
}
