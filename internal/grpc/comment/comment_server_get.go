package grpc

import (
	"context"

	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	protopkg "github.com/stormhead-org/comments/internal/proto"
)

func (s *CommentServer) GetComment(ctx context.Context, request *protopkg.GetCommentRequest) (*protopkg.GetCommentResponse, error) {
	commentID, err := parseID("comment_id", request.CommentId)
	if err != nil {
		return nil, lib.HandleError(err)
	}

	comment, err := s.service.GetComment(ctx, commentID)
	if err != nil {
		s.log.Debug("comment not found", zap.String("comment_id", request.CommentId))
		return nil, lib.HandleError(err)
	}

	return &protopkg.GetCommentResponse{
		Comment: commentToProto(comment),
	}, nil
}
