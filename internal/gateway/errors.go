package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/lib"
	"github.com/stormhead-org/comments/internal/middleware"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func sendError(c *gin.Context, statusCode int, code string, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message},
	})
}

// handleServiceError maps service errors to HTTP responses. Internal errors
// are logged and reported without their text.
func handleServiceError(c *gin.Context, log *zap.Logger, err error) {
	statusCode := lib.HTTPStatus(err)
	if statusCode == http.StatusInternalServerError {
		log.Error("internal error",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c.Request.Context())),
			zap.Error(err),
		)
		sendError(c, statusCode, lib.ErrorCode(err), "internal server error")
		return
	}

	message := err.Error()
	if errors.Is(err, lib.ErrUnauthenticated) {
		message = "missing or invalid token"
	}
	sendError(c, statusCode, lib.ErrorCode(err), message)
}
