package event

import (
	"time"
)

const (
	COMMENT_CREATED      = "comment.created"
	COMMENT_LIKE_TOGGLED = "comment.like_toggled"
)

type CommentCreatedMessage struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	ParentID  string    `json:"parentId,omitempty"`
	AuthorID  string    `json:"authorId"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
}

// Replies are keyed by their parent so the parent's counter audits stay ordered.
func (m CommentCreatedMessage) PartitionKey() string {
	if m.ParentID != "" {
		return m.ParentID
	}
	return m.ID
}

type CommentLikeToggledMessage struct {
	CommentID  string `json:"commentId"`
	UserID     string `json:"userId"`
	Liked      bool   `json:"liked"`
	LikesCount int64  `json:"likesCount"`
}

func (m CommentLikeToggledMessage) PartitionKey() string {
	return m.CommentID
}

// Schemas validate payloads on the consumer side before they are decoded.
var Schemas = map[string]string{
	COMMENT_CREATED: `{
		"type": "object",
		"properties": {
			"id": {"type": "string", "minLength": 36, "maxLength": 36},
			"postId": {"type": "string", "minLength": 36, "maxLength": 36},
			"parentId": {"type": "string", "minLength": 36, "maxLength": 36},
			"authorId": {"type": "string", "minLength": 36, "maxLength": 36},
			"level": {"type": "integer", "minimum": 0},
			"createdAt": {"type": "string"}
		},
		"required": ["id", "postId", "authorId", "level"]
	}`,
	COMMENT_LIKE_TOGGLED: `{
		"type": "object",
		"properties": {
			"commentId": {"type": "string", "minLength": 36, "maxLength": 36},
			"userId": {"type": "string", "minLength": 36, "maxLength": 36},
			"liked": {"type": "boolean"},
			"likesCount": {"type": "integer", "minimum": 0}
		},
		"required": ["commentId", "userId", "liked", "likesCount"]
	}`,
}
