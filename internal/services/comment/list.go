package comment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/orm"
	"github.com/stormhead-org/comments/internal/services"
)

// ListComments returns one page of root comments, each with a preview of its
// first replies. Page/PageSize select by offset; a Cursor selects the roots
// after the one the client saw last, which does not shift under inserts.
func (s *CommentServiceImpl) ListComments(ctx context.Context, request services.ListCommentsRequest) (*services.CommentPage, error) {
	pageSize, err := s.pageSize(request.PageSize)
	if err != nil {
		return nil, err
	}
	pageNumber, err := page(request.Page, pageSize)
	if err != nil {
		return nil, err
	}
	listOrder, err := order(request.Order)
	if err != nil {
		return nil, err
	}

	query := orm.ChildrenQuery{
		PostID:      request.PostID,
		Order:       listOrder,
		Limit:       pageSize,
		Offset:      (pageNumber - 1) * pageSize,
		PreviewSize: s.config.PreviewSize,
	}

	if request.Cursor != nil {
		cursor, err := s.store.SelectCommentByID(ctx, *request.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor.PostID != request.PostID || !cursor.IsRoot() {
			return nil, fmt.Errorf("%w: cursor is not a root comment of this post", lib.ErrValidation)
		}
		query.After = request.Cursor
		query.Offset = 0
		query.Limit = pageSize + 1
	}

	result, err := s.store.SelectChildren(ctx, query)
	if err != nil {
		s.log.Error("error listing comments", zap.String("post_id", request.PostID.String()), zap.Error(err))
		return nil, err
	}

	comments := result.Comments
	hasMore := int64(pageNumber*pageSize) < result.Total
	if request.Cursor != nil {
		hasMore = len(comments) > pageSize
		if hasMore {
			comments = comments[:pageSize]
		}
	}

	views, err := s.loadViewContext(ctx, withPreviews(comments, result.Previews))
	if err != nil {
		s.log.Error("error loading comment authors", zap.Error(err))
		return nil, err
	}

	response := &services.CommentPage{
		Comments: views.views(comments, result.Previews),
		Pagination: services.Pagination{
			Page:       pageNumber,
			PageSize:   pageSize,
			HasMore:    hasMore,
			TotalCount: result.Total,
		},
	}
	if hasMore && len(comments) > 0 {
		last := comments[len(comments)-1].ID
		response.Pagination.NextCursor = &last
	}
	return response, nil
}

// ListReplies returns the next batch of direct children of a comment after
// AfterID, which must itself be a direct child.
func (s *CommentServiceImpl) ListReplies(ctx context.Context, request services.ListRepliesRequest) (*services.ReplyPage, error) {
	limit, err := s.replyBatch(request.Limit)
	if err != nil {
		return nil, err
	}
	listOrder, err := order(request.Order)
	if err != nil {
		return nil, err
	}

	parent, err := s.store.SelectCommentByID(ctx, request.CommentID)
	if err != nil {
		s.log.Debug("comment not found", zap.String("comment_id", request.CommentID.String()))
		return nil, err
	}

	if request.AfterID != nil {
		after, err := s.store.SelectCommentByID(ctx, *request.AfterID)
		if err != nil {
			return nil, err
		}
		if after.ParentID == nil || *after.ParentID != parent.ID {
			return nil, fmt.Errorf("%w: cursor is not a reply of this comment", lib.ErrValidation)
		}
	}

	result, err := s.store.SelectChildren(ctx, orm.ChildrenQuery{
		PostID:   parent.PostID,
		ParentID: &parent.ID,
		Order:    listOrder,
		Limit:    limit + 1,
		After:    request.AfterID,
	})
	if err != nil {
		s.log.Error("error listing replies", zap.String("comment_id", parent.ID.String()), zap.Error(err))
		return nil, err
	}

	replies := result.Comments
	hasMore := len(replies) > limit
	if hasMore {
		replies = replies[:limit]
	}

	views, err := s.loadViewContext(ctx, replies)
	if err != nil {
		s.log.Error("error loading reply authors", zap.Error(err))
		return nil, err
	}

	response := &services.ReplyPage{
		Replies:    views.views(replies, nil),
		HasMore:    hasMore,
		TotalCount: result.Total,
	}
	if hasMore {
		last := replies[len(replies)-1].ID
		response.NextCursor = &last
	}
	return response, nil
}
