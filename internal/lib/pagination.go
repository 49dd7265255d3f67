package lib

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is a supported listing order.
type Order string

const (
	OrderNewest    Order = "newest"
	OrderMostLiked Order = "most_liked"
)

// ParseOrder accepts the wire value of an order. Empty means newest.
func ParseOrder(value string) (Order, error) {
	switch Order(value) {
	case "", OrderNewest:
		return OrderNewest, nil
	case OrderMostLiked:
		return OrderMostLiked, nil
	}
	return "", fmt.Errorf("%w: unknown order %q", ErrValidation, value)
}

// Clause returns the ORDER BY expression of the order. Every order ends in
// `id DESC` so ties are broken deterministically.
func (o Order) Clause() string {
	if o == OrderMostLiked {
		return "likes_count DESC, created_at DESC, id DESC"
	}
	return "created_at DESC, id DESC"
}

// Paginatable defines the interface for models that can be paginated.
type Paginatable interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetLikesCount() int64
}

// Before reports whether a sorts before b under the order.
func Before(order Order, a, b Paginatable) bool {
	if order == OrderMostLiked && a.GetLikesCount() != b.GetLikesCount() {
		return a.GetLikesCount() > b.GetLikesCount()
	}
	if !a.GetCreatedAt().Equal(b.GetCreatedAt()) {
		return a.GetCreatedAt().After(b.GetCreatedAt())
	}
	aID, bID := a.GetID(), b.GetID()
	return bytes.Compare(aID[:], bID[:]) > 0
}

// Paginate applies cursor-based keyset pagination to a GORM query ordered by
// order.Clause(). The cursor is the ID of the last item from the previous page.
// A cursor that does not exist yields ErrNotFound.
func Paginate[T Paginatable](db *gorm.DB, query *gorm.DB, order Order, cursor string, limit int) (*gorm.DB, error) {
	query = query.Order(order.Clause())
	if cursor == "" {
		return query.Limit(limit), nil
	}

	var cursorModel T
	err := db.Model(&cursorModel).Where("id = ?", cursor).First(&cursorModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: cursor %s", ErrNotFound, cursor)
		}
		return nil, err
	}

	return After(query, order, cursorModel).Limit(limit), nil
}

// After restricts query to the rows strictly after the cursor row.
func After(query *gorm.DB, order Order, cursor Paginatable) *gorm.DB {
	createdAt := cursor.GetCreatedAt()
	id := cursor.GetID()

	if order == OrderMostLiked {
		likes := cursor.GetLikesCount()
		return query.Where(
			"(likes_count < ?) OR (likes_count = ? AND created_at < ?) OR (likes_count = ? AND created_at = ? AND id < ?)",
			likes,
			likes, createdAt,
			likes, createdAt, id,
		)
	}

	return query.Where(
		"(created_at < ?) OR (created_at = ? AND id < ?)",
		createdAt,
		createdAt,
		id,
	)
}
