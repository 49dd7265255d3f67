package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/proto"
	"github.com/stormhead-org/comments/internal/services"
)

// CommentClient implements services.CommentService on top of the gRPC API, so
// a reconciler can run against a remote server. Status errors are mapped back
// onto the lib sentinels.
type CommentClient struct {
	client proto.CommentServiceClient
	token  string
}

// NewCommentClient sends token as a bearer credential on every call. An empty
// token makes anonymous calls.
func NewCommentClient(conn grpc.ClientConnInterface, token string) *CommentClient {
	return &CommentClient{
		client: proto.NewCommentServiceClient(conn),
		token:  token,
	}
}

var _ services.CommentService = (*CommentClient)(nil)

func (c *CommentClient) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

func (c *CommentClient) CreateComment(ctx context.Context, request services.CreateCommentRequest) (*services.CommentView, error) {
	response, err := c.client.CreateComment(c.outgoing(ctx), &proto.CreateCommentRequest{
		PostId:          request.PostID.String(),
		ParentCommentId: optionalString(request.ParentID),
		Content:         request.Content,
	})
	if err != nil {
		return nil, lib.FromStatus(err)
	}
	return commentFromProto(response.Comment)
}

func (c *CommentClient) GetComment(ctx context.Context, commentID uuid.UUID) (*services.CommentView, error) {
	response, err := c.client.GetComment(c.outgoing(ctx), &proto.GetCommentRequest{CommentId: commentID.String()})
	if err != nil {
		return nil, lib.FromStatus(err)
	}
	return commentFromProto(response.Comment)
}

func (c *CommentClient) ListComments(ctx context.Context, request services.ListCommentsRequest) (*services.CommentPage, error) {
	response, err := c.client.ListComments(c.outgoing(ctx), &proto.ListCommentsRequest{
		PostId:   request.PostID.String(),
		Page:     int32(request.Page),
		PageSize: int32(request.PageSize),
		Order:    string(request.Order),
		Cursor:   optionalString(request.Cursor),
	})
	if err != nil {
		return nil, lib.FromStatus(err)
	}

	comments, err := commentsFromProto(response.Comments)
	if err != nil {
		return nil, err
	}
	page := &services.CommentPage{Comments: comments}
	if pagination := response.Pagination; pagination != nil {
		nextCursor, err := optionalID(pagination.NextCursor)
		if err != nil {
			return nil, err
		}
		page.Pagination = services.Pagination{
			Page:       int(pagination.Page),
			PageSize:   int(pagination.PageSize),
			HasMore:    pagination.HasMore,
			TotalCount: pagination.TotalCount,
			NextCursor: nextCursor,
		}
	}
	return page, nil
}

func (c *CommentClient) ListReplies(ctx context.Context, request services.ListRepliesRequest) (*services.ReplyPage, error) {
	response, err := c.client.ListReplies(c.outgoing(ctx), &proto.ListRepliesRequest{
		CommentId: request.CommentID.String(),
		AfterId:   optionalString(request.AfterID),
		Limit:     int32(request.Limit),
		Order:     string(request.Order),
	})
	if err != nil {
		return nil, lib.FromStatus(err)
	}

	replies, err := commentsFromProto(response.Replies)
	if err != nil {
		return nil, err
	}
	nextCursor, err := optionalID(response.NextCursor)
	if err != nil {
		return nil, err
	}
	return &services.ReplyPage{
		Replies:    replies,
		HasMore:    response.HasMore,
		NextCursor: nextCursor,
		TotalCount: response.TotalCount,
	}, nil
}

func (c *CommentClient) ToggleLike(ctx context.Context, commentID uuid.UUID) (*services.LikeState, error) {
	response, err := c.client.ToggleLike(c.outgoing(ctx), &proto.ToggleLikeRequest{CommentId: commentID.String()})
	if err != nil {
		return nil, lib.FromStatus(err)
	}
	id, err := uuid.Parse(response.CommentId)
	if err != nil {
		return nil, fmt.Errorf("malformed comment id in response: %w", err)
	}
	return &services.LikeState{CommentID: id, Liked: response.Liked, LikesCount: response.LikesCount}, nil
}

func commentFromProto(comment *proto.Comment) (*services.CommentView, error) {
	if comment == nil {
		return nil, fmt.Errorf("empty comment in response")
	}
	id, err := uuid.Parse(comment.Id)
	if err != nil {
		return nil, fmt.Errorf("malformed comment id in response: %w", err)
	}
	postID, err := uuid.Parse(comment.PostId)
	if err != nil {
		return nil, fmt.Errorf("malformed post id in response: %w", err)
	}
	parentID, err := optionalID(comment.ParentCommentId)
	if err != nil {
		return nil, err
	}

	view := &services.CommentView{
		ID:              id,
		PostID:          postID,
		ParentID:        parentID,
		Content:         comment.Content,
		Level:           int(comment.Level),
		LikesCount:      comment.LikesCount,
		RepliesCount:    comment.RepliesCount,
		IsLikedByCaller: comment.IsLikedByCaller,
		CreatedAt:       comment.CreatedAt,
	}
	if comment.Author != nil {
		authorID, err := uuid.Parse(comment.Author.Id)
		if err != nil {
			return nil, fmt.Errorf("malformed author id in response: %w", err)
		}
		view.Author = services.AuthorView{ID: authorID, DisplayName: comment.Author.DisplayName, AvatarURL: comment.Author.AvatarUrl}
	}
	if len(comment.Replies) > 0 {
		view.Replies, err = commentsFromProto(comment.Replies)
		if err != nil {
			return nil, err
		}
	}
	return view, nil
}

func commentsFromProto(comments []*proto.Comment) ([]*services.CommentView, error) {
	views := make([]*services.CommentView, 0, len(comments))
	for _, comment := range comments {
		view, err := commentFromProto(comment)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func optionalString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func optionalID(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("malformed id in response: %w", err)
	}
	return lo.ToPtr(id), nil
}
