package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/orm"
)

// RepairCommentCounters recomputes the counters of one comment. Holding the
// index read lock keeps inserts out; the like mutex keeps toggles out.
func (s *MemoryStore) RepairCommentCounters(ctx context.Context, commentID uuid.UUID) (orm.CounterRepair, error) {
	repair := orm.CounterRepair{CommentID: commentID}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.comments[commentID]
	if !ok {
		return repair, fmt.Errorf("%w: comment %s", lib.ErrNotFound, commentID)
	}

	n.likesMu.Lock()
	defer n.likesMu.Unlock()

	repair.LikesBefore = n.likesCount.Load()
	repair.LikesAfter = int64(len(n.likes))
	repair.RepliesBefore = n.repliesCount.Load()
	repair.RepliesAfter = int64(len(s.children[commentID]))

	if repair.Drifted() {
		n.likesCount.Store(repair.LikesAfter)
		n.repliesCount.Store(repair.RepliesAfter)
	}
	return repair, nil
}

func (s *MemoryStore) SelectDriftedCommentIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for id, n := range s.comments {
		if limit > 0 && len(ids) >= limit {
			break
		}

		n.likesMu.Lock()
		drifted := n.likesCount.Load() != int64(len(n.likes)) ||
			n.repliesCount.Load() != int64(len(s.children[id]))
		n.likesMu.Unlock()

		if drifted {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
