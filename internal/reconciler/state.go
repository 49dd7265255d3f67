// Package reconciler keeps a client-side view of a post's comment thread that
// applies user actions optimistically and reconciles them with the server.
//
// All state transitions go through Apply, a pure function of the previous
// State and an Event. Reconciler drives Apply from API calls.
package reconciler

import (
	"github.com/google/uuid"

	"github.com/stormhead-org/comments/internal/services"
)

// Ref identifies a node: PendingRef before the server acknowledged it,
// CommittedRef afterwards.
type Ref interface {
	Key() string
	isRef()
}

type PendingRef struct {
	TempID string
}

type CommittedRef struct {
	ID uuid.UUID
}

func (r PendingRef) Key() string   { return "pending:" + r.TempID }
func (r CommittedRef) Key() string { return r.ID.String() }

func (PendingRef) isRef()   {}
func (CommittedRef) isRef() {}

// Phase is the lifecycle of one optimistic mutation.
type Phase int

const (
	PhaseOptimistic Phase = iota
	PhaseInFlight
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseOptimistic:
		return "optimistic"
	case PhaseInFlight:
		return "in_flight"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled_back"
	}
	return "unknown"
}

func (p Phase) Done() bool {
	return p == PhaseCommitted || p == PhaseRolledBack
}

type MutationKind int

const (
	MutationCreate MutationKind = iota
	MutationLike
)

// MutationKey names a mutation: one per submitted comment, one per liked
// comment (taps on the same comment coalesce into it).
type MutationKey string

func CreateKey(tempID string) MutationKey {
	return MutationKey("create:" + tempID)
}

func LikeKey(commentID uuid.UUID) MutationKey {
	return MutationKey("like:" + commentID.String())
}

type Mutation struct {
	Kind  MutationKind
	Ref   Ref
	Phase Phase
	Err   error
}

// Node is one comment in the flat arena. Comment.Replies is always nil; the
// tree is kept in State.Children.
type Node struct {
	Ref      Ref
	ParentID *uuid.UUID
	Comment  services.CommentView
}

func (n Node) Pending() bool {
	_, ok := n.Ref.(PendingRef)
	return ok
}

// likeIntent tracks an unsettled like mutation: what the user last asked
// for and the last state the server confirmed.
type likeIntent struct {
	Desired        bool
	Confirmed      bool
	ConfirmedCount int64
}

type RepliesCursor struct {
	HasMore    bool
	NextCursor *uuid.UUID
}

type State struct {
	PostID uuid.UUID
	Nodes  map[string]Node
	// Roots and Children hold node keys in display order.
	Roots    []string
	Children map[string][]string

	Page       int
	HasMore    bool
	NextCursor *uuid.UUID
	TotalCount int64
	Replies    map[string]RepliesCursor

	Mutations map[MutationKey]Mutation
	likes     map[uuid.UUID]likeIntent

	// LastError is the failure that caused the most recent rollback.
	LastError error
}

func NewState(postID uuid.UUID) State {
	return State{
		PostID:    postID,
		Nodes:     map[string]Node{},
		Children:  map[string][]string{},
		Replies:   map[string]RepliesCursor{},
		Mutations: map[MutationKey]Mutation{},
		likes:     map[uuid.UUID]likeIntent{},
	}
}

// clone copies every map and slice so the result can be mutated freely.
func (s State) clone() State {
	next := s
	next.Nodes = make(map[string]Node, len(s.Nodes))
	for key, node := range s.Nodes {
		if node.ParentID != nil {
			parentID := *node.ParentID
			node.ParentID = &parentID
		}
		next.Nodes[key] = node
	}
	next.Roots = append([]string(nil), s.Roots...)
	next.Children = make(map[string][]string, len(s.Children))
	for key, children := range s.Children {
		next.Children[key] = append([]string(nil), children...)
	}
	next.Replies = make(map[string]RepliesCursor, len(s.Replies))
	for key, cursor := range s.Replies {
		next.Replies[key] = cursor
	}
	next.Mutations = make(map[MutationKey]Mutation, len(s.Mutations))
	for key, mutation := range s.Mutations {
		next.Mutations[key] = mutation
	}
	next.likes = make(map[uuid.UUID]likeIntent, len(s.likes))
	for key, intent := range s.likes {
		next.likes[key] = intent
	}
	return next
}

// Node returns the node behind ref.
func (s State) Node(ref Ref) (Node, bool) {
	node, ok := s.Nodes[ref.Key()]
	return node, ok
}

// Mutation returns the lifecycle record stored under key.
func (s State) Mutation(key MutationKey) (Mutation, bool) {
	mutation, ok := s.Mutations[key]
	return mutation, ok
}

// Settled reports whether no mutation is waiting for the server.
func (s State) Settled() bool {
	for _, mutation := range s.Mutations {
		if !mutation.Phase.Done() {
			return false
		}
	}
	return true
}

// LikePending reports whether taps on commentID are not yet confirmed.
func (s State) LikePending(commentID uuid.UUID) bool {
	_, ok := s.likes[commentID]
	return ok
}

// DesiredLike is the like state the user last asked for on commentID.
func (s State) DesiredLike(commentID uuid.UUID) (bool, bool) {
	intent, ok := s.likes[commentID]
	return intent.Desired, ok
}
