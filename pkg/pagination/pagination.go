// Package pagination covers both listing styles: numbered pages for the
// catalog and back-office tables, and opaque cursors for the audit log.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ErrInvalidCursor wraps every cursor decoding failure.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params is a cursor request as it arrives from the query string.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of the previous page in (created_at, id)
// order.
type Cursor struct {
	CreatedAt time.Time
	ID        uint
}

// Encode renders the cursor as "<unix nanos>.<id>" in unpadded base64url.
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "." + strconv.FormatUint(uint64(c.ID), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes an encoded cursor. A blank value is the first page and
// yields nil.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	nanos, id, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, ErrInvalidCursor
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q", ErrInvalidCursor, nanos)
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("%w: id %q", ErrInvalidCursor, id)
	}
	return &Cursor{CreatedAt: time.Unix(0, ts).UTC(), ID: uint(n)}, nil
}

// Window is a validated cursor request.
type Window struct {
	Limit int
	After *Cursor
}

// Window clamps the limit into [1, MaxLimit], defaulting to DefaultLimit, and
// decodes the cursor.
func (p Params) Window() (Window, error) {
	limit := p.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	after, err := ParseCursor(p.Cursor)
	if err != nil {
		return Window{}, err
	}
	return Window{Limit: limit, After: after}, nil
}

// Fetch is how many rows to query: one extra row tells whether a next page
// exists.
func (w Window) Fetch() int {
	return w.Limit + 1
}

// Split trims rows queried with Fetch back to limit and returns the encoded
// cursor of the next page, or "" on the last page.
func Split[T any](rows []T, limit int, at func(T) Cursor) ([]T, string) {
	if limit <= 0 || len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, at(rows[limit-1]).Encode()
}
