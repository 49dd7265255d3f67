package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/cache"
	"github.com/stormhead-org/comments/internal/orm"
	"github.com/stormhead-org/comments/internal/services"
)

const userCachePrefix = "comment:user:"

// CachedStore is a read-through cache in front of a CommentStore for author
// profiles. Comment rows carry live counters and lists shift under inserts,
// so neither is cached.
type CachedStore struct {
	services.CommentStore
	cache   cache.Cache
	log     *zap.Logger
	userTTL time.Duration
}

func NewCachedStore(backing services.CommentStore, c cache.Cache, log *zap.Logger, userTTL time.Duration) *CachedStore {
	return &CachedStore{
		CommentStore: backing,
		cache:        c,
		log:          log,
		userTTL:      userTTL,
	}
}

func (s *CachedStore) SelectUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*orm.User, error) {
	users := make(map[uuid.UUID]*orm.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userCachePrefix + id.String()
	}

	values, err := s.cache.MGet(ctx, keys...)
	if err != nil {
		s.log.Warn("cache read failed", zap.String("key", userCachePrefix), zap.Error(err))
		values = nil
	}

	var missing []uuid.UUID
	for i, id := range ids {
		if i < len(values) && values[i] != nil {
			var user orm.User
			if json.Unmarshal(values[i], &user) == nil {
				users[id] = &user
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return users, nil
	}

	loaded, err := s.CommentStore.SelectUsersByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, user := range loaded {
		users[id] = user
		s.store(ctx, userCachePrefix+id.String(), user, s.userTTL)
	}
	return users, nil
}

func (s *CachedStore) RepairCommentCounters(ctx context.Context, commentID uuid.UUID) (orm.CounterRepair, error) {
	auditor, ok := s.CommentStore.(services.CounterAuditor)
	if !ok {
		return orm.CounterRepair{CommentID: commentID}, errors.New("backing store cannot audit counters")
	}
	return auditor.RepairCommentCounters(ctx, commentID)
}

func (s *CachedStore) SelectDriftedCommentIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	auditor, ok := s.CommentStore.(services.CounterAuditor)
	if !ok {
		return nil, errors.New("backing store cannot audit counters")
	}
	return auditor.SelectDriftedCommentIDs(ctx, limit)
}

func (s *CachedStore) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
