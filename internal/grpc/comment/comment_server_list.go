package grpc

import (
	"context"

	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	protopkg "github.com/stormhead-org/comments/internal/proto"
	"github.com/stormhead-org/comments/internal/services"
)

func (s *CommentServer) ListComments(ctx context.Context, request *protopkg.ListCommentsRequest) (*protopkg.ListCommentsResponse, error) {
	postID, err := parseID("post_id", request.PostId)
	if err != nil {
		return nil, lib.HandleError(err)
	}
	cursor, err := parseOptionalID("cursor", request.Cursor)
	if err != nil {
		return nil, lib.HandleError(err)
	}

	page, err := s.service.ListComments(ctx, services.ListCommentsRequest{
		PostID:   postID,
		Page:     int(request.Page),
		PageSize: int(request.PageSize),
		Order:    lib.Order(request.Order),
		Cursor:   cursor,
	})
	if err != nil {
		s.log.Debug("list comments rejected", zap.String("post_id", request.PostId), zap.Error(err))
		return nil, lib.HandleError(err)
	}

	return &protopkg.ListCommentsResponse{
		Comments: commentsToProto(page.Comments),
		Pagination: &protopkg.Pagination{
			Page:       int32(page.Pagination.Page),
			PageSize:   int32(page.Pagination.PageSize),
			HasMore:    page.Pagination.HasMore,
			TotalCount: page.Pagination.TotalCount,
			NextCursor: cursorString(page.Pagination.NextCursor),
		},
	}, nil
}
