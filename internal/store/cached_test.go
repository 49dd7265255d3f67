package store

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

	"github.com/stormhead-org/comments/internal/cache"
	"github.com/stormhead-org/comments/internal/orm"
)

type mapCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	gets    int
	failing bool
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string][]byte{}}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failing {
		return nil, errors.New("connection refused")
	}
	value, ok := c.values[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return value, nil
}

func (c *mapCache) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, errors.New("connection refused")
	}
	values := make([][]byte, len(keys))
	for i, key := range keys {
		values[i] = c.values[key]
	}
	return values, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("connection refused")
	}
	c.values[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

func newCachedStore(c *mapCache) (*CachedStore, *MemoryStore) {
	backing := NewMemoryStore()
	return NewCachedStore(backing, c, zap.NewNop(), time.Minute), backing
}

func TestCachedStore_CommentsBypassCache(t *testing.T) {
	c := newMapCache()
	s, _ := newCachedStore(c)
	comment := &orm.Comment{PostID: uuid.New(), AuthorID: uuid.New(), Content: "hello"}
	require.NoError(t, s.InsertComment(context.Background(), comment, 16))

	_, err := s.SelectCommentByID(context.Background(), comment.ID)
	require.NoError(t, err)

	assert.Zero(t, c.gets)
	assert.Empty(t, c.values)
}

// A toggle landing between a reader's load and its cache write must not
// leave the pre-toggle counters behind for later readers.
func TestCachedStore_ToggleVisibleToNextRead(t *testing.T) {
	c := newMapCache()
	s, _ := newCachedStore(c)
	comment := &orm.Comment{PostID: uuid.New(), AuthorID: uuid.New(), Content: "hello"}
	require.NoError(t, s.InsertComment(context.Background(), comment, 16))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := s.ToggleCommentLike(context.Background(), comment.ID, uuid.New())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.SelectCommentByID(context.Background(), comment.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := s.SelectCommentByID(context.Background(), comment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), stored.LikesCount)
}

func TestCachedStore_ReplyVisibleOnParent(t *testing.T) {
	c := newMapCache()
	s, _ := newCachedStore(c)
	postID := uuid.New()
	root := &orm.Comment{PostID: postID, AuthorID: uuid.New(), Content: "root"}
	require.NoError(t, s.InsertComment(context.Background(), root, 16))
	_, err := s.SelectCommentByID(context.Background(), root.ID)
	require.NoError(t, err)

	reply := &orm.Comment{PostID: postID, ParentID: &root.ID, AuthorID: uuid.New(), Content: "reply"}
	require.NoError(t, s.InsertComment(context.Background(), reply, 16))

	stored, err := s.SelectCommentByID(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.RepliesCount)
}

func TestCachedStore_UsersMixHitsAndMisses(t *testing.T) {
	c := newMapCache()
	s, backing := newCachedStore(c)
	alex := &orm.User{ID: uuid.New(), DisplayName: "Alex"}
	sam := &orm.User{ID: uuid.New(), DisplayName: "Sam"}
	require.NoError(t, backing.UpsertUser(context.Background(), alex))
	require.NoError(t, backing.UpsertUser(context.Background(), sam))

	_, err := s.SelectUsersByIDs(context.Background(), []uuid.UUID{alex.ID})
	require.NoError(t, err)
	assert.True(t, c.has(userCachePrefix+alex.ID.String()))

	users, err := s.SelectUsersByIDs(context.Background(), []uuid.UUID{alex.ID, sam.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "Sam", users[sam.ID].DisplayName)
	assert.True(t, c.has(userCachePrefix+sam.ID.String()))
}

func TestCachedStore_FallsBackWhenCacheFails(t *testing.T) {
	c := newMapCache()
	s, backing := newCachedStore(c)
	alex := &orm.User{ID: uuid.New(), DisplayName: "Alex"}
	require.NoError(t, backing.UpsertUser(context.Background(), alex))
	c.failing = true

	users, err := s.SelectUsersByIDs(context.Background(), []uuid.UUID{alex.ID})

	require.NoError(t, err)
	assert.Equal(t, "Alex", users[alex.ID].DisplayName)
}

func TestCachedStore_RepairDelegates(t *testing.T) {
	c := newMapCache()
	s, backing := newCachedStore(c)
	comment := &orm.Comment{PostID: uuid.New(), AuthorID: uuid.New(), Content: "hello"}
	require.NoError(t, s.InsertComment(context.Background(), comment, 16))
	backing.comments[comment.ID].likesCount.Store(3)

	repair, err := s.RepairCommentCounters(context.Background(), comment.ID)

	require.NoError(t, err)
	assert.True(t, repair.Drifted())
	stored, err := s.SelectCommentByID(context.Background(), comment.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LikesCount)
}
