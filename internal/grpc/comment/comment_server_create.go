package grpc

import (
	"context"

	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	protopkg "github.com/stormhead-org/comments/internal/proto"
	"github.com/stormhead-org/comments/internal/services"
)

func (s *CommentServer) CreateComment(ctx context.Context, request *protopkg.CreateCommentRequest) (*protopkg.CreateCommentResponse, error) {
	postID, err := parseID("post_id", request.PostId)
	if err != nil {
		return nil, lib.HandleError(err)
	}
	parentID, err := parseOptionalID("parent_id", request.ParentCommentId)
	if err != nil {
		return nil, lib.HandleError(err)
	}

	comment, err := s.service.CreateComment(ctx, services.CreateCommentRequest{
		PostID:   postID,
		ParentID: parentID,
		Content:  request.Content,
	})
	if err != nil {
		s.log.Debug("create comment rejected", zap.String("post_id", request.PostId), zap.Error(err))
		return nil, lib.HandleError(err)
	}

	return &protopkg.CreateCommentResponse{
		Comment: commentToProto(comment),
	}, nil
}
