// Package pagination implements the keyset cursors behind the offer and lead
// listings. Pages run newest first on (created_at, id), and a cursor names
// the last row of the page the caller already holds.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the page size when a request omits limit.
	DefaultLimit = 25
	// MaxLimit caps a single listing page.
	MaxLimit = 100
)

const cursorSeparator = "|"

// Cursor is the (created_at, id) key of the last row on a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for zero
// or negative values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Seek orders query newest first and, when cursor is set, skips every row at
// or before it.
func Seek(query *gorm.DB, cursor *Cursor) *gorm.DB {
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	return query.Order("created_at DESC").Order("id DESC")
}

// Trim cuts rows fetched with limit+1 back to limit. The returned cursor is
// nil on the last page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	if len(rows) <= limit {
		return rows, nil
	}
	rows = rows[:limit]
	next := key(rows[len(rows)-1])
	return rows, &next
}

// EncodeCursor renders a cursor for the ?cursor= query parameter.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a cursor from EncodeCursor. An empty value means the
// first page and yields nil.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	createdAt, id, ok := strings.Cut(string(decoded), cursorSeparator)
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: ts, ID: key}, nil
}
