package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/services"
)

type CommentHandler struct {
	log     *zap.Logger
	service services.CommentService
}

func NewCommentHandler(log *zap.Logger, service services.CommentService) *CommentHandler {
	return &CommentHandler{
		log:     log,
		service: service,
	}
}

type CreateCommentBody struct {
	ParentID *uuid.UUID `json:"parentId"`
	Content  string     `json:"content"`
}

// ListComments godoc
// @Summary  Top-level comments of a post with reply previews
// @Tags     comments
// @Produce  json
// @Param    postId   path  string true  "Post ID"
// @Param    page     query int    false "Page number, 1-based"
// @Param    pageSize query int    false "Page size"
// @Param    order    query string false "newest or most_liked"
// @Param    cursor   query string false "Last root comment already shown"
// @Success  200 {object} services.CommentPage
// @Failure  400 {object} ErrorResponse
// @Router   /posts/{postId}/comments [get]
func (h *CommentHandler) ListComments(c *gin.Context) {
	postID, ok := pathID(c, "postId")
	if !ok {
		return
	}

	request := services.ListCommentsRequest{
		PostID: postID,
		Order:  lib.Order(c.Query("order")),
	}
	var err error
	if request.Page, err = queryInt(c, "page"); err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	if request.PageSize, err = queryInt(c, "pageSize"); err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	if request.Cursor, err = queryID(c, "cursor"); err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	page, err := h.service.ListComments(c.Request.Context(), request)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateComment godoc
// @Summary  Create a comment or a reply
// @Tags     comments
// @Accept   json
// @Produce  json
// @Param    postId  path string            true "Post ID"
// @Param    request body CreateCommentBody true "Comment"
// @Success  201 {object} services.CommentView
// @Failure  400 {object} ErrorResponse
// @Failure  401 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  422 {object} ErrorResponse
// @Router   /posts/{postId}/comments [post]
func (h *CommentHandler) CreateComment(c *gin.Context) {
	postID, ok := pathID(c, "postId")
	if !ok {
		return
	}

	var body CreateCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	comment, err := h.service.CreateComment(c.Request.Context(), services.CreateCommentRequest{
		PostID:   postID,
		ParentID: body.ParentID,
		Content:  body.Content,
	})
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// GetComment godoc
// @Summary  A single comment with its current counters
// @Tags     comments
// @Produce  json
// @Param    commentId path string true "Comment ID"
// @Success  200 {object} services.CommentView
// @Failure  404 {object} ErrorResponse
// @Router   /comments/{commentId} [get]
func (h *CommentHandler) GetComment(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	comment, err := h.service.GetComment(c.Request.Context(), commentID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// ListReplies godoc
// @Summary  Next batch of direct replies
// @Tags     comments
// @Produce  json
// @Param    commentId path  string true  "Parent comment ID"
// @Param    afterId   query string false "Last reply already shown"
// @Param    limit     query int    false "Batch size"
// @Param    order     query string false "newest or most_liked"
// @Success  200 {object} services.ReplyPage
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /comments/{commentId}/replies [get]
func (h *CommentHandler) ListReplies(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	request := services.ListRepliesRequest{
		CommentID: commentID,
		Order:     lib.Order(c.Query("order")),
	}
	var err error
	if request.AfterID, err = queryID(c, "afterId"); err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	if request.Limit, err = queryInt(c, "limit"); err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	page, err := h.service.ListReplies(c.Request.Context(), request)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ToggleLike godoc
// @Summary  Flip the caller's like on a comment
// @Tags     comments
// @Produce  json
// @Param    commentId path string true "Comment ID"
// @Success  200 {object} services.LikeState
// @Failure  401 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /comments/{commentId}/like [post]
// @Router   /comments/{commentId}/like [delete]
func (h *CommentHandler) ToggleLike(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	state, err := h.service.ToggleLike(c.Request.Context(), commentID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (*uuid.UUID, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", lib.ErrValidation, name)
	}
	return &id, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	value := c.Query(name)
	if value == "" {
		return 0, nil
	}
	number, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", lib.ErrValidation, name)
	}
	return number, nil
}
