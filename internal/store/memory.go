package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/orm"
)

type node struct {
	comment orm.Comment

	likesMu sync.Mutex
	likes   map[uuid.UUID]struct{}

	likesCount   atomic.Int64
	repliesCount atomic.Int64
}

func (n *node) snapshot() *orm.Comment {
	comment := n.comment
	comment.LikesCount = n.likesCount.Load()
	comment.RepliesCount = n.repliesCount.Load()
	return &comment
}

// MemoryStore keeps comments in a flat index keyed by id with a children
// index per parent. The index lock is only taken for writing by inserts and
// is never held while sorting; likes serialise on a per-comment mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	comments map[uuid.UUID]*node
	roots    map[uuid.UUID][]*node
	children map[uuid.UUID][]*node

	usersMu sync.RWMutex
	users   map[uuid.UUID]*orm.User

	clock *lib.Clock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		comments: map[uuid.UUID]*node{},
		roots:    map[uuid.UUID][]*node{},
		children: map[uuid.UUID][]*node{},
		users:    map[uuid.UUID]*orm.User{},
		clock:    lib.NewClock(),
	}
}

func (s *MemoryStore) InsertComment(ctx context.Context, comment *orm.Comment, maxDepth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var parent *node
	comment.Level = 0
	if comment.ParentID != nil {
		var ok bool
		parent, ok = s.comments[*comment.ParentID]
		if !ok {
			return fmt.Errorf("%w: parent %s", lib.ErrNotFound, *comment.ParentID)
		}
		if parent.comment.PostID != comment.PostID {
			return fmt.Errorf("%w: parent %s belongs to another post", lib.ErrInvalidParent, *comment.ParentID)
		}
		if maxDepth > 0 && parent.comment.Level+1 > maxDepth {
			return fmt.Errorf("%w: replies are limited to depth %d", lib.ErrValidation, maxDepth)
		}
		comment.Level = parent.comment.Level + 1
	}

	id, err := orm.NewCommentID()
	if err != nil {
		return err
	}
	comment.ID = id
	comment.CreatedAt = s.clock.Now()
	comment.LikesCount = 0
	comment.RepliesCount = 0

	n := &node{comment: *comment, likes: map[uuid.UUID]struct{}{}}
	s.comments[id] = n
	if parent == nil {
		s.roots[comment.PostID] = append(s.roots[comment.PostID], n)
	} else {
		s.children[parent.comment.ID] = append(s.children[parent.comment.ID], n)
		parent.repliesCount.Add(1)
	}
	return nil
}

func (s *MemoryStore) SelectCommentByID(ctx context.Context, id uuid.UUID) (*orm.Comment, error) {
	s.mu.RLock()
	n, ok := s.comments[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: comment %s", lib.ErrNotFound, id)
	}
	return n.snapshot(), nil
}

// SelectChildren copies the sibling list under the read lock and sorts it
// after releasing it, so inserts wait only for the copy. Appends never touch
// the elements of a copied slice header.
func (s *MemoryStore) SelectChildren(ctx context.Context, query orm.ChildrenQuery) (*orm.ChildrenPage, error) {
	s.mu.RLock()
	var siblings []*node
	if query.ParentID == nil {
		siblings = s.roots[query.PostID]
	} else {
		siblings = s.children[*query.ParentID]
	}
	var cursor *node
	if query.After != nil {
		cursor = s.comments[*query.After]
	}
	s.mu.RUnlock()

	if query.After != nil && cursor == nil {
		return nil, fmt.Errorf("%w: cursor %s", lib.ErrNotFound, *query.After)
	}

	sorted := sortedSnapshots(siblings, query.Order)
	page := &orm.ChildrenPage{Total: int64(len(sorted))}

	start := query.Offset
	if cursor != nil {
		cursorComment := cursor.snapshot()
		start = sort.Search(len(sorted), func(i int) bool {
			return lib.Before(query.Order, cursorComment, sorted[i])
		})
	}
	page.Comments = window(sorted, start, query.Limit)

	if query.PreviewSize > 0 {
		replyLists := make(map[uuid.UUID][]*node, len(page.Comments))
		s.mu.RLock()
		for _, comment := range page.Comments {
			replyLists[comment.ID] = s.children[comment.ID]
		}
		s.mu.RUnlock()

		page.Previews = make(map[uuid.UUID][]*orm.Comment, len(page.Comments))
		for id, nodes := range replyLists {
			replies := sortedSnapshots(nodes, query.Order)
			if len(replies) > 0 {
				page.Previews[id] = window(replies, 0, query.PreviewSize)
			}
		}
	}

	return page, nil
}

func (s *MemoryStore) ToggleCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) (bool, int64, error) {
	s.mu.RLock()
	n, ok := s.comments[commentID]
	s.mu.RUnlock()
	if !ok {
		return false, 0, fmt.Errorf("%w: comment %s", lib.ErrNotFound, commentID)
	}

	n.likesMu.Lock()
	defer n.likesMu.Unlock()

	if _, liked := n.likes[userID]; liked {
		delete(n.likes, userID)
		return false, n.likesCount.Add(-1), nil
	}
	n.likes[userID] = struct{}{}
	return true, n.likesCount.Add(1), nil
}

func (s *MemoryStore) SelectLikedCommentIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		s.mu.RLock()
		n, ok := s.comments[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}

		n.likesMu.Lock()
		_, isLiked := n.likes[userID]
		n.likesMu.Unlock()
		if isLiked {
			liked[id] = true
		}
	}
	return liked, nil
}

func (s *MemoryStore) SelectUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*orm.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	users := make(map[uuid.UUID]*orm.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			copied := *user
			users[id] = &copied
		}
	}
	return users, nil
}

func (s *MemoryStore) UpsertUser(ctx context.Context, user *orm.User) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func sortedSnapshots(nodes []*node, order lib.Order) []*orm.Comment {
	comments := make([]*orm.Comment, 0, len(nodes))
	for _, n := range nodes {
		comments = append(comments, n.snapshot())
	}
	sort.Slice(comments, func(i, j int) bool {
		return lib.Before(order, comments[i], comments[j])
	})
	return comments
}

func window(comments []*orm.Comment, start int, limit int) []*orm.Comment {
	if start < 0 || start >= len(comments) {
		return []*orm.Comment{}
	}
	end := len(comments)
	if limit > 0 && limit < end-start {
		end = start + limit
	}
	return comments[start:end]
}
