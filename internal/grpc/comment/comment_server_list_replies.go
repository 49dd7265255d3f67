package grpc

import (
	"context"

	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	protopkg "github.com/stormhead-org/comments/internal/proto"
	"github.com/stormhead-org/comments/internal/services"
)

func (s *CommentServer) ListReplies(ctx context.Context, request *protopkg.ListRepliesRequest) (*protopkg.ListRepliesResponse, error) {
	commentID, err := parseID("comment_id", request.CommentId)
	if err != nil {
		return nil, lib.HandleError(err)
	}
	afterID, err := parseOptionalID("after_id", request.AfterId)
	if err != nil {
		return nil, lib.HandleError(err)
	}

	page, err := s.service.ListReplies(ctx, services.ListRepliesRequest{
		CommentID: commentID,
		AfterID:   afterID,
		Limit:     int(request.Limit),
		Order:     lib.Order(request.Order),
	})
	if err != nil {
		s.log.Debug("list replies rejected", zap.String("comment_id", request.CommentId), zap.Error(err))
		return nil, lib.HandleError(err)
	}

	return &protopkg.ListRepliesResponse{
		Replies:    commentsToProto(page.Replies),
		HasMore:    page.HasMore,
		NextCursor: cursorString(page.NextCursor),
		TotalCount: page.TotalCount,
	}, nil
}
