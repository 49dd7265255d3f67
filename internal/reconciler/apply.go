package reconciler

import (
	"github.com/google/uuid"

	"github.com/stormhead-org/comments/internal/services"
)

// Apply returns the state after event. The input state is not modified.
// Events that refer to nodes the state does not hold are ignored.
func Apply(state State, event Event) State {
	next := state.clone()

	switch e := event.(type) {
	case PageLoaded:
		next.applyPage(e)
	case RepliesLoaded:
		next.applyReplies(e)
	case CommentSubmitted:
		next.applySubmitted(e)
	case RequestIssued:
		if mutation, ok := next.Mutations[e.Key]; ok && mutation.Phase == PhaseOptimistic {
			mutation.Phase = PhaseInFlight
			next.Mutations[e.Key] = mutation
		}
	case CommentCreated:
		next.applyCreated(e)
	case CommentFailed:
		next.applyCreateFailed(e)
	case LikeTapped:
		next.applyLikeTapped(e)
	case LikeToggled:
		next.applyLikeToggled(e)
	case LikeFailed:
		next.applyLikeFailed(e)
	}

	return next
}

func (s *State) applyPage(e PageLoaded) {
	if e.Page == nil {
		return
	}

	keys := make([]string, 0, len(e.Page.Comments))
	for _, view := range e.Page.Comments {
		key := s.upsert(view, nil)
		keys = append(keys, key)

		preview := make([]string, 0, len(view.Replies))
		for _, reply := range view.Replies {
			preview = append(preview, s.upsert(reply, &view.ID))
		}
		s.Children[key] = s.merge(s.Children[key], preview, false)
		if _, loaded := s.Replies[key]; !loaded {
			cursor := RepliesCursor{HasMore: view.RepliesCount > int64(len(view.Replies))}
			if cursor.HasMore && len(view.Replies) > 0 {
				last := view.Replies[len(view.Replies)-1].ID
				cursor.NextCursor = &last
			}
			s.Replies[key] = cursor
		}
	}
	s.Roots = s.merge(s.Roots, keys, e.Reset)

	s.Page = e.Page.Pagination.Page
	s.HasMore = e.Page.Pagination.HasMore
	s.NextCursor = e.Page.Pagination.NextCursor
	s.TotalCount = e.Page.Pagination.TotalCount + int64(s.pendingIn(s.Roots))
}

func (s *State) applyReplies(e RepliesLoaded) {
	parentKey := CommittedRef{ID: e.ParentID}.Key()
	if e.Parent != nil {
		var grandparent *uuid.UUID
		if node, ok := s.Nodes[parentKey]; ok {
			grandparent = node.ParentID
		} else {
			grandparent = e.Parent.ParentID
		}
		s.upsert(e.Parent, grandparent)
	}
	if _, ok := s.Nodes[parentKey]; !ok || e.Page == nil {
		return
	}

	keys := make([]string, 0, len(e.Page.Replies))
	for _, reply := range e.Page.Replies {
		keys = append(keys, s.upsert(reply, &e.ParentID))
	}
	s.Children[parentKey] = s.merge(s.Children[parentKey], keys, e.Reset)
	s.Replies[parentKey] = RepliesCursor{HasMore: e.Page.HasMore, NextCursor: e.Page.NextCursor}
}

func (s *State) applySubmitted(e CommentSubmitted) {
	ref := PendingRef{TempID: e.TempID}
	if _, exists := s.Nodes[ref.Key()]; exists {
		return
	}

	node := Node{
		Ref: ref,
		Comment: services.CommentView{
			PostID:    s.PostID,
			Author:    e.Author,
			Content:   e.Content,
			CreatedAt: e.CreatedAt,
		},
	}

	if e.ParentID != nil {
		parentKey := CommittedRef{ID: *e.ParentID}.Key()
		parent, ok := s.Nodes[parentKey]
		if !ok {
			return
		}
		parentID := *e.ParentID
		node.ParentID = &parentID
		node.Comment.ParentID = &parentID
		node.Comment.Level = parent.Comment.Level + 1

		parent.Comment.RepliesCount++
		s.Nodes[parentKey] = parent
		s.Children[parentKey] = prepend(s.Children[parentKey], ref.Key())
	} else {
		s.Roots = prepend(s.Roots, ref.Key())
		s.TotalCount++
	}

	s.Nodes[ref.Key()] = node
	s.Mutations[CreateKey(e.TempID)] = Mutation{Kind: MutationCreate, Ref: ref, Phase: PhaseOptimistic}
}

func (s *State) applyCreated(e CommentCreated) {
	if e.Comment == nil {
		return
	}
	pendingKey := PendingRef{TempID: e.TempID}.Key()
	ref := CommittedRef{ID: e.Comment.ID}
	committedKey := ref.Key()

	defer func() {
		s.Mutations[CreateKey(e.TempID)] = Mutation{Kind: MutationCreate, Ref: ref, Phase: PhaseCommitted}
	}()

	if pending, ok := s.Nodes[pendingKey]; ok {
		delete(s.Nodes, pendingKey)
		if _, loaded := s.Nodes[committedKey]; loaded {
			// A refetch already delivered the comment; drop the placeholder
			// and give back its optimistic bump.
			s.detach(pendingKey, pending.ParentID)
			s.unbump(pending.ParentID)
			s.upsert(e.Comment, pending.ParentID)
			return
		}
		s.replaceKey(pendingKey, committedKey, pending.ParentID)
		s.upsert(e.Comment, pending.ParentID)
		return
	}

	if _, loaded := s.Nodes[committedKey]; loaded {
		s.upsert(e.Comment, e.Comment.ParentID)
		return
	}
	if e.Comment.ParentID != nil {
		parentKey := CommittedRef{ID: *e.Comment.ParentID}.Key()
		parent, ok := s.Nodes[parentKey]
		if !ok {
			return
		}
		parent.Comment.RepliesCount++
		s.Nodes[parentKey] = parent
		s.upsert(e.Comment, e.Comment.ParentID)
		s.Children[parentKey] = prepend(s.Children[parentKey], committedKey)
		return
	}
	s.upsert(e.Comment, nil)
	s.Roots = prepend(s.Roots, committedKey)
	s.TotalCount++
}

func (s *State) applyCreateFailed(e CommentFailed) {
	ref := PendingRef{TempID: e.TempID}
	pending, ok := s.Nodes[ref.Key()]
	if !ok {
		return
	}
	delete(s.Nodes, ref.Key())
	s.detach(ref.Key(), pending.ParentID)
	s.unbump(pending.ParentID)

	s.Mutations[CreateKey(e.TempID)] = Mutation{Kind: MutationCreate, Ref: ref, Phase: PhaseRolledBack, Err: e.Err}
	s.LastError = e.Err
}

func (s *State) applyLikeTapped(e LikeTapped) {
	ref := CommittedRef{ID: e.CommentID}
	node, ok := s.Nodes[ref.Key()]
	if !ok {
		return
	}

	intent, active := s.likes[e.CommentID]
	if !active {
		intent = likeIntent{
			Confirmed:      node.Comment.IsLikedByCaller,
			ConfirmedCount: node.Comment.LikesCount,
		}
	}
	intent.Desired = !node.Comment.IsLikedByCaller
	s.likes[e.CommentID] = intent
	node.Comment.IsLikedByCaller, node.Comment.LikesCount = intent.display()
	s.Nodes[ref.Key()] = node

	key := LikeKey(e.CommentID)
	if mutation, exists := s.Mutations[key]; !exists || mutation.Phase.Done() {
		s.Mutations[key] = Mutation{Kind: MutationLike, Ref: ref, Phase: PhaseOptimistic}
	}
}

func (s *State) applyLikeToggled(e LikeToggled) {
	ref := CommittedRef{ID: e.CommentID}
	node, ok := s.Nodes[ref.Key()]
	if !ok {
		// Evicted by a reload while the request was in flight.
		delete(s.likes, e.CommentID)
		s.settleLike(e.CommentID, PhaseCommitted, nil)
		return
	}

	intent, active := s.likes[e.CommentID]
	if !active || intent.Desired == e.Liked {
		delete(s.likes, e.CommentID)
		node.Comment.IsLikedByCaller = e.Liked
		node.Comment.LikesCount = e.LikesCount
		s.Nodes[ref.Key()] = node
		s.settleLike(e.CommentID, PhaseCommitted, nil)
		return
	}

	// The user tapped again while this request was in flight. The server
	// state becomes the new baseline and the display keeps the latest intent.
	intent.Confirmed = e.Liked
	intent.ConfirmedCount = e.LikesCount
	s.likes[e.CommentID] = intent
	node.Comment.IsLikedByCaller, node.Comment.LikesCount = intent.display()
	s.Nodes[ref.Key()] = node
}

func (s *State) applyLikeFailed(e LikeFailed) {
	ref := CommittedRef{ID: e.CommentID}
	intent, active := s.likes[e.CommentID]
	if !active {
		s.settleLike(e.CommentID, PhaseRolledBack, e.Err)
		return
	}
	delete(s.likes, e.CommentID)

	if node, ok := s.Nodes[ref.Key()]; ok {
		node.Comment.IsLikedByCaller = intent.Confirmed
		node.Comment.LikesCount = intent.ConfirmedCount
		s.Nodes[ref.Key()] = node
	}
	s.Mutations[LikeKey(e.CommentID)] = Mutation{Kind: MutationLike, Ref: ref, Phase: PhaseRolledBack, Err: e.Err}
	s.LastError = e.Err
}

// settleLike closes an open like mutation whose intent is already gone.
func (s *State) settleLike(commentID uuid.UUID, phase Phase, err error) {
	key := LikeKey(commentID)
	mutation, ok := s.Mutations[key]
	if !ok || mutation.Phase.Done() {
		return
	}
	mutation.Phase = phase
	mutation.Err = err
	s.Mutations[key] = mutation
}

func (i likeIntent) display() (bool, int64) {
	count := i.ConfirmedCount
	switch {
	case i.Desired && !i.Confirmed:
		count++
	case !i.Desired && i.Confirmed && count > 0:
		count--
	}
	return i.Desired, count
}

// upsert stores a server comment. Counters stay consistent with what is
// still pending locally: an unsettled like keeps its intent and pending
// replies keep their optimistic bump.
func (s *State) upsert(view *services.CommentView, parentID *uuid.UUID) string {
	ref := CommittedRef{ID: view.ID}
	key := ref.Key()

	comment := *view
	comment.Replies = nil

	if intent, active := s.likes[view.ID]; active {
		intent.Confirmed = view.IsLikedByCaller
		intent.ConfirmedCount = view.LikesCount
		s.likes[view.ID] = intent
		comment.IsLikedByCaller, comment.LikesCount = intent.display()
	}
	comment.RepliesCount += int64(s.pendingIn(s.Children[key]))

	var parent *uuid.UUID
	if parentID != nil {
		id := *parentID
		parent = &id
	}
	s.Nodes[key] = Node{Ref: ref, ParentID: parent, Comment: comment}
	return key
}

// merge combines the keys already displayed with a freshly loaded batch.
// Pending keys always stay in front. With reset the committed keys become
// exactly incoming and dropped subtrees are removed.
func (s *State) merge(existing []string, incoming []string, reset bool) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	result := make([]string, 0, len(existing)+len(incoming))

	for _, key := range existing {
		if s.isPending(key) {
			result = append(result, key)
			seen[key] = true
		}
	}

	if !reset {
		for _, key := range existing {
			if !seen[key] {
				result = append(result, key)
				seen[key] = true
			}
		}
	}

	incomingSet := make(map[string]bool, len(incoming))
	for _, key := range incoming {
		incomingSet[key] = true
		if !seen[key] {
			result = append(result, key)
			seen[key] = true
		}
	}

	if reset {
		for _, key := range existing {
			if !s.isPending(key) && !incomingSet[key] {
				s.removeSubtree(key)
			}
		}
	}
	return result
}

// removeSubtree drops key and its descendants. Like intents on dropped
// nodes go with them; the in-flight answer only closes the mutation.
func (s *State) removeSubtree(key string) {
	for _, child := range s.Children[key] {
		s.removeSubtree(child)
	}
	if node, ok := s.Nodes[key]; ok {
		if ref, committed := node.Ref.(CommittedRef); committed {
			delete(s.likes, ref.ID)
		}
	}
	delete(s.Children, key)
	delete(s.Replies, key)
	delete(s.Nodes, key)
}

func (s *State) isPending(key string) bool {
	node, ok := s.Nodes[key]
	return ok && node.Pending()
}

func (s *State) pendingIn(keys []string) int {
	count := 0
	for _, key := range keys {
		if s.isPending(key) {
			count++
		}
	}
	return count
}

func (s *State) replaceKey(from string, to string, parentID *uuid.UUID) {
	list := s.listOf(parentID)
	for i, key := range list {
		if key == from {
			list[i] = to
		}
	}
}

func (s *State) detach(key string, parentID *uuid.UUID) {
	list := s.listOf(parentID)
	kept := list[:0]
	for _, k := range list {
		if k != key {
			kept = append(kept, k)
		}
	}
	if parentID == nil {
		s.Roots = kept
		return
	}
	s.Children[CommittedRef{ID: *parentID}.Key()] = kept
}

// unbump reverts the counter increment made for a pending comment.
func (s *State) unbump(parentID *uuid.UUID) {
	if parentID == nil {
		if s.TotalCount > 0 {
			s.TotalCount--
		}
		return
	}
	parentKey := CommittedRef{ID: *parentID}.Key()
	if parent, ok := s.Nodes[parentKey]; ok && parent.Comment.RepliesCount > 0 {
		parent.Comment.RepliesCount--
		s.Nodes[parentKey] = parent
	}
}

func (s *State) listOf(parentID *uuid.UUID) []string {
	if parentID == nil {
		return s.Roots
	}
	return s.Children[CommittedRef{ID: *parentID}.Key()]
}

func prepend(list []string, key string) []string {
	return append([]string{key}, list...)
}
