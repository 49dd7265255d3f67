package comment

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/middleware"
	"github.com/stormhead-org/comments/internal/orm"
	"github.com/stormhead-org/comments/internal/services"
)

// viewContext holds what is looked up once per response: author profiles,
// avatar URLs and the caller's likes.
type viewContext struct {
	users   map[uuid.UUID]*orm.User
	avatars map[string]string
	liked   map[uuid.UUID]bool
}

func (s *CommentServiceImpl) loadViewContext(ctx context.Context, comments []*orm.Comment) (*viewContext, error) {
	authorIDs := lo.Uniq(lo.Map(comments, func(c *orm.Comment, _ int) uuid.UUID {
		return c.AuthorID
	}))

	users, err := s.store.SelectUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	liked := map[uuid.UUID]bool{}
	if callerID, ok := middleware.LookupUserUUID(ctx); ok {
		commentIDs := lo.Map(comments, func(c *orm.Comment, _ int) uuid.UUID {
			return c.ID
		})
		liked, err = s.store.SelectLikedCommentIDs(ctx, callerID, commentIDs)
		if err != nil {
			return nil, err
		}
	}

	return &viewContext{
		users:   users,
		avatars: s.resolveAvatars(ctx, lo.Values(users)),
		liked:   liked,
	}, nil
}

// resolveAvatars degrades to no avatar when the object store is unavailable.
func (s *CommentServiceImpl) resolveAvatars(ctx context.Context, users []*orm.User) map[string]string {
	urls := map[string]string{}
	if s.avatars == nil {
		return urls
	}

	for _, user := range users {
		if user.AvatarKey == nil || *user.AvatarKey == "" {
			continue
		}
		if _, ok := urls[*user.AvatarKey]; ok {
			continue
		}
		url, err := s.avatars.AvatarURL(ctx, *user.AvatarKey)
		if err != nil {
			s.log.Warn("error resolving avatar", zap.String("user_id", user.ID.String()), zap.Error(err))
			continue
		}
		urls[*user.AvatarKey] = url
	}
	return urls
}

func (v *viewContext) view(comment *orm.Comment) *services.CommentView {
	author := services.AuthorView{ID: comment.AuthorID}
	if user, ok := v.users[comment.AuthorID]; ok {
		author.DisplayName = user.DisplayName
		if user.AvatarKey != nil {
			author.AvatarURL = v.avatars[*user.AvatarKey]
		}
	}

	return &services.CommentView{
		ID:              comment.ID,
		PostID:          comment.PostID,
		ParentID:        comment.ParentID,
		Author:          author,
		Content:         comment.Content,
		Level:           comment.Level,
		LikesCount:      comment.LikesCount,
		RepliesCount:    comment.RepliesCount,
		IsLikedByCaller: v.liked[comment.ID],
		CreatedAt:       comment.CreatedAt,
	}
}

// views renders comments in order, attaching each one's preview replies.
func (v *viewContext) views(comments []*orm.Comment, previews map[uuid.UUID][]*orm.Comment) []*services.CommentView {
	return lo.Map(comments, func(c *orm.Comment, _ int) *services.CommentView {
		view := v.view(c)
		if replies, ok := previews[c.ID]; ok {
			view.Replies = lo.Map(replies, func(r *orm.Comment, _ int) *services.CommentView {
				return v.view(r)
			})
		}
		return view
	})
}

func withPreviews(comments []*orm.Comment, previews map[uuid.UUID][]*orm.Comment) []*orm.Comment {
	all := append([]*orm.Comment{}, comments...)
	for _, c := range comments {
		all = append(all, previews[c.ID]...)
	}
	return all
}
