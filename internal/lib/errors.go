package lib

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

var (
	// ErrValidation marks malformed input: empty or over-length content, bad pagination.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing comment, parent or cursor.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParent marks a reply whose parent belongs to another post.
	ErrInvalidParent = errors.New("invalid parent")
	// ErrUnauthenticated marks a mutating call without caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConflict marks a transaction that could not serialize. Stores retry it
	// a bounded number of times before returning it.
	ErrConflict = errors.New("conflict")
)

// HandleError converts a domain error into a gRPC status error.
// Unknown errors are reported as Internal without leaking their text.
func HandleError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return NotFoundError("")
	case errors.Is(err, ErrInvalidParent):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "missing or invalid token")
	case errors.Is(err, ErrConflict):
		return status.Error(codes.Aborted, "concurrent update, try again")
	}

	return InternalError()
}

// FromStatus is the inverse of HandleError, used by clients to recover the
// domain error from a gRPC status.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return errors.Join(ErrValidation, errors.New(st.Message()))
	case codes.NotFound:
		return ErrNotFound
	case codes.FailedPrecondition:
		return ErrInvalidParent
	case codes.Unauthenticated:
		return ErrUnauthenticated
	case codes.Aborted:
		return ErrConflict
	}
	return err
}

// HTTPStatus maps a domain error to the status code of the REST gateway.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidParent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ErrorCode is the machine readable kind reported next to HTTPStatus.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidParent):
		return "INVALID_PARENT"
	case errors.Is(err, ErrUnauthenticated):
		return "AUTH_ERROR"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	}
	return "INTERNAL_ERROR"
}

// NotFoundError returns a gRPC NotFound error.
func NotFoundError(message string) error {
	if message == "" {
		message = "The requested resource was not found."
	}
	return status.Error(codes.NotFound, message)
}

// InternalError returns a gRPC Internal error.
func InternalError() error {
	return status.Error(codes.Internal, "An unexpected internal error occurred.")
}

// InvalidArgumentError returns a gRPC InvalidArgument error.
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}
