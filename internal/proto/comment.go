package proto

import "time"

type Author struct {
	Id          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarUrl   string `json:"avatarUrl,omitempty"`
}

type Comment struct {
	Id              string     `json:"id"`
	PostId          string     `json:"postId"`
	ParentCommentId string     `json:"parentId,omitempty"`
	Author          *Author    `json:"author"`
	Content         string     `json:"content"`
	Level           int32      `json:"level"`
	LikesCount      int64      `json:"likesCount"`
	RepliesCount    int64      `json:"repliesCount"`
	IsLikedByCaller bool       `json:"isLikedByCaller"`
	CreatedAt       time.Time  `json:"createdAt"`
	Replies         []*Comment `json:"replies,omitempty"`
}

type CreateCommentRequest struct {
	PostId          string `json:"postId"`
	ParentCommentId string `json:"parentId,omitempty"`
	Content         string `json:"content"`
}

type CreateCommentResponse struct {
	Comment *Comment `json:"comment"`
}

type GetCommentRequest struct {
	CommentId string `json:"commentId"`
}

type GetCommentResponse struct {
	Comment *Comment `json:"comment"`
}

type ListCommentsRequest struct {
	PostId   string `json:"postId"`
	Page     int32  `json:"page,omitempty"`
	PageSize int32  `json:"pageSize,omitempty"`
	Order    string `json:"order,omitempty"`
	Cursor   string `json:"cursor,omitempty"`
}

type Pagination struct {
	Page       int32  `json:"page"`
	PageSize   int32  `json:"pageSize"`
	HasMore    bool   `json:"hasMore"`
	TotalCount int64  `json:"totalCount"`
	NextCursor string `json:"nextCursor,omitempty"`
}

type ListCommentsResponse struct {
	Comments   []*Comment  `json:"comments"`
	Pagination *Pagination `json:"pagination"`
}

type ListRepliesRequest struct {
	CommentId string `json:"commentId"`
	AfterId   string `json:"afterId,omitempty"`
	Limit     int32  `json:"limit,omitempty"`
	Order     string `json:"order,omitempty"`
}

type ListRepliesResponse struct {
	Replies    []*Comment `json:"replies"`
	HasMore    bool       `json:"hasMore"`
	NextCursor string     `json:"nextCursor,omitempty"`
	TotalCount int64      `json:"totalCount"`
}

type ToggleLikeRequest struct {
	CommentId string `json:"commentId"`
}

type ToggleLikeResponse struct {
	CommentId  string `json:"commentId"`
	Liked      bool   `json:"liked"`
	LikesCount int64  `json:"likesCount"`
}
