package grpc

import (
	"context"

	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	protopkg "github.com/stormhead-org/comments/internal/proto"
)

func (s *CommentServer) ToggleLike(ctx context.Context, request *protopkg.ToggleLikeRequest) (*protopkg.ToggleLikeResponse, error) {
	commentID, err := parseID("comment_id", request.CommentId)
	if err != nil {
		return nil, lib.HandleError(err)
	}

	state, err := s.service.ToggleLike(ctx, commentID)
	if err != nil {
		s.log.Debug("toggle like rejected", zap.String("comment_id", request.CommentId), zap.Error(err))
		return nil, lib.HandleError(err)
	}

	return &protopkg.ToggleLikeResponse{
		CommentId:  state.CommentID.String(),
		Liked:      state.Liked,
		LikesCount: state.LikesCount,
	}, nil
}
