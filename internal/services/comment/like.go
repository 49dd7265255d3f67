package comment

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	eventpkg "github.com/stormhead-org/comments/internal/event"
	"github.com/stormhead-org/comments/internal/middleware"
	"github.com/stormhead-org/comments/internal/services"
)

// ToggleLike flips the caller's like and reports the resulting state, so
// like and unlike requests can never disagree with what is stored.
func (s *CommentServiceImpl) ToggleLike(ctx context.Context, commentID uuid.UUID) (*services.LikeState, error) {
	userID, err := middleware.GetUserUUID(ctx)
	if err != nil {
		return nil, err
	}

	liked, likesCount, err := s.store.ToggleCommentLike(ctx, commentID, userID)
	if err != nil {
		s.log.Debug("like not toggled",
			zap.String("comment_id", commentID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrementLikeToggle(liked)
	s.publish(ctx, eventpkg.COMMENT_LIKE_TOGGLED, eventpkg.CommentLikeToggledMessage{
		CommentID:  commentID.String(),
		UserID:     userID.String(),
		Liked:      liked,
		LikesCount: likesCount,
	})

	return &services.LikeState{
		CommentID:  commentID,
		Liked:      liked,
		LikesCount: likesCount,
	}, nil
}
