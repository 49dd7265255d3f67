package grpc

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	protopkg "github.com/stormhead-org/comments/internal/proto"
	"github.com/stormhead-org/comments/internal/services"
)

type CommentServer struct {
	protopkg.UnimplementedCommentServiceServer
	log     *zap.Logger
	service services.CommentService
}

func NewCommentServer(log *zap.Logger, service services.CommentService) *CommentServer {
	return &CommentServer{
		log:     log,
		service: service,
	}
}

func parseID(field string, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", lib.ErrValidation, field)
	}
	return id, nil
}

// parseOptionalID treats an empty string as absent.
func parseOptionalID(field string, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := parseID(field, value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func commentToProto(view *services.CommentView) *protopkg.Comment {
	if view == nil {
		return nil
	}
	parentID := ""
	if view.ParentID != nil {
		parentID = view.ParentID.String()
	}
	result := &protopkg.Comment{
		Id:              view.ID.String(),
		PostId:          view.PostID.String(),
		ParentCommentId: parentID,
		Author: &protopkg.Author{
			Id:          view.Author.ID.String(),
			DisplayName: view.Author.DisplayName,
			AvatarUrl:   view.Author.AvatarURL,
		},
		Content:         view.Content,
		Level:           int32(view.Level),
		LikesCount:      view.LikesCount,
		RepliesCount:    view.RepliesCount,
		IsLikedByCaller: view.IsLikedByCaller,
		CreatedAt:       view.CreatedAt,
	}
	if len(view.Replies) > 0 {
		result.Replies = commentsToProto(view.Replies)
	}
	return result
}

func commentsToProto(views []*services.CommentView) []*protopkg.Comment {
	result := make([]*protopkg.Comment, 0, len(views))
	for _, view := range views {
		result = append(result, commentToProto(view))
	}
	return result
}

func cursorString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
