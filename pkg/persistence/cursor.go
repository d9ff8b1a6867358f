package persistence

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Keyset cursors encode (created_at, id) of the last row of a page so the
// next page can resume after it without offset scans.

const cursorTimeLayout = time.RFC3339Nano

// EncodeCursor builds an opaque cursor from the last row of a page.
func EncodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(cursorTimeLayout) + "|" + id

	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", ErrInvalidCursor
	}

	createdAt, err := time.Parse(cursorTimeLayout, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	return createdAt, parts[1], nil
}
