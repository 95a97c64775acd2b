package ledger

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/sokohub/soko/internal/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Page selects a window of entries. An empty Cursor starts at the newest entry.
type Page struct {
	Cursor string
	Limit  int
}

func (p Page) limit() int {
	switch {
	case p.Limit <= 0:
		return DefaultPageSize
	case p.Limit > MaxPageSize:
		return MaxPageSize
	}
	return p.Limit
}

// EntryPage is one page of entries plus the cursor of the next page.
// NextCursor is empty on the last page.
type EntryPage struct {
	Entries    []domain.Entry `json:"entries"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

const cursorPrefix = "e:"

func encodeCursor(seq int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(seq, 10)))
}

func decodeCursor(c string) (int64, error) {
	if c == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c)
	if err == nil {
		s, ok := strings.CutPrefix(string(raw), cursorPrefix)
		if ok {
			if seq, err := strconv.ParseInt(s, 10, 64); err == nil && seq > 0 {
				return seq, nil
			}
		}
	}
	return 0, domain.Errorf(domain.ErrValidation, "list entries", "invalid cursor")
}
