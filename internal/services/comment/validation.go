package comment

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/stormhead-org/comments/internal/lib"
)

// normalizeContent trims surrounding whitespace and enforces the length limit
// in code points. Bodies are plain text and are stored as written.
func (s *CommentServiceImpl) normalizeContent(content string) (string, error) {
	if !utf8.ValidString(content) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", lib.ErrValidation)
	}
	content = strings.TrimSpace(content)

	err := s.validate.Var(content, fmt.Sprintf("required,max=%d", s.config.MaxContentLength))
	if err != nil {
		if content == "" {
			return "", fmt.Errorf("%w: content must not be empty", lib.ErrValidation)
		}
		return "", fmt.Errorf("%w: content exceeds %d characters", lib.ErrValidation, s.config.MaxContentLength)
	}
	return content, nil
}

func (s *CommentServiceImpl) pageSize(requested int) (int, error) {
	switch {
	case requested == 0:
		return s.config.PageSize, nil
	case requested < 0 || requested > s.config.MaxPageSize:
		return 0, fmt.Errorf("%w: page size must be between 1 and %d", lib.ErrValidation, s.config.MaxPageSize)
	}
	return requested, nil
}

func (s *CommentServiceImpl) replyBatch(requested int) (int, error) {
	switch {
	case requested == 0:
		return s.config.ReplyBatchSize, nil
	case requested < 0 || requested > s.config.MaxReplyBatch:
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", lib.ErrValidation, s.config.MaxReplyBatch)
	}
	return requested, nil
}

// page bounds the page number so the row offset fits in an int.
func page(requested int, pageSize int) (int, error) {
	maxPage := math.MaxInt / pageSize
	switch {
	case requested == 0:
		return 1, nil
	case requested < 0 || requested > maxPage:
		return 0, fmt.Errorf("%w: page must be between 1 and %d", lib.ErrValidation, maxPage)
	}
	return requested, nil
}

func order(requested lib.Order) (lib.Order, error) {
	return lib.ParseOrder(string(requested))
}
