package reconciler

import (
	"github.com/stormhead-org/comments/internal/services"
)

// Row is one rendered line of the thread.
type Row struct {
	Ref            Ref
	Depth          int
	Pending        bool
	HasMoreReplies bool
	Comment        services.CommentView
}

// View flattens the thread depth first in display order.
func (s State) View() []Row {
	rows := make([]Row, 0, len(s.Nodes))
	var walk func(keys []string, depth int)
	walk = func(keys []string, depth int) {
		for _, key := range keys {
			node, ok := s.Nodes[key]
			if !ok {
				continue
			}
			rows = append(rows, Row{
				Ref:            node.Ref,
				Depth:          depth,
				Pending:        node.Pending(),
				HasMoreReplies: s.Replies[key].HasMore,
				Comment:        node.Comment,
			})
			walk(s.Children[key], depth+1)
		}
	}
	walk(s.Roots, 0)
	return rows
}

// Tree rebuilds nested comments from the arena.
func (s State) Tree() []*services.CommentView {
	var build func(keys []string) []*services.CommentView
	build = func(keys []string) []*services.CommentView {
		result := make([]*services.CommentView, 0, len(keys))
		for _, key := range keys {
			node, ok := s.Nodes[key]
			if !ok {
				continue
			}
			comment := node.Comment
			if children := s.Children[key]; len(children) > 0 {
				comment.Replies = build(children)
			}
			result = append(result, &comment)
		}
		return result
	}
	return build(s.Roots)
}
