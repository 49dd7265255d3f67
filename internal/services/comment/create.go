package comment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	eventpkg "github.com/stormhead-org/comments/internal/event"
	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/middleware"
	"github.com/stormhead-org/comments/internal/orm"
	"github.com/stormhead-org/comments/internal/services"
)

func (s *CommentServiceImpl) CreateComment(ctx context.Context, request services.CreateCommentRequest) (*services.CommentView, error) {
	userID, err := middleware.GetUserUUID(ctx)
	if err != nil {
		return nil, err
	}

	if request.PostID == uuid.Nil {
		return nil, fmt.Errorf("%w: post id is required", lib.ErrValidation)
	}
	if request.ParentID != nil && *request.ParentID == uuid.Nil {
		request.ParentID = nil
	}

	content, err := s.normalizeContent(request.Content)
	if err != nil {
		return nil, err
	}

	comment := &orm.Comment{
		PostID:   request.PostID,
		ParentID: request.ParentID,
		AuthorID: userID,
		Content:  content,
	}

	err = s.store.InsertComment(ctx, comment, s.config.MaxDepth)
	if err != nil {
		s.log.Debug("comment not created",
			zap.String("post_id", request.PostID.String()),
			zap.Stringp("parent_id", stringp(request.ParentID)),
			zap.Error(err),
		)
		return nil, err
	}

	kind := "root"
	parentID := ""
	if comment.ParentID != nil {
		kind = "reply"
		parentID = comment.ParentID.String()
	}
	s.metrics.IncrementCommentCreated(kind)

	s.publish(ctx, eventpkg.COMMENT_CREATED, eventpkg.CommentCreatedMessage{
		ID:        comment.ID.String(),
		PostID:    comment.PostID.String(),
		ParentID:  parentID,
		AuthorID:  comment.AuthorID.String(),
		Level:     comment.Level,
		CreatedAt: comment.CreatedAt,
	})

	// The row is committed; a failed profile lookup only costs the display name.
	views, err := s.loadViewContext(ctx, []*orm.Comment{comment})
	if err != nil {
		s.log.Warn("error loading author",
			zap.String("comment_id", comment.ID.String()),
			zap.Error(err),
		)
		views = &viewContext{}
	}
	return views.view(comment), nil
}

func (s *CommentServiceImpl) GetComment(ctx context.Context, commentID uuid.UUID) (*services.CommentView, error) {
	comment, err := s.store.SelectCommentByID(ctx, commentID)
	if err != nil {
		s.log.Debug("comment not found", zap.String("comment_id", commentID.String()), zap.Error(err))
		return nil, err
	}

	views, err := s.loadViewContext(ctx, []*orm.Comment{comment})
	if err != nil {
		return nil, err
	}
	return views.view(comment), nil
}

func stringp(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	value := id.String()
	return &value
}
