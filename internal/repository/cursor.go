package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"socialmedia_api/internal/model"
)

// Cursors are "id:unix_micros" of the last row on the previous page. Pages
// are ordered (created_at DESC, id DESC), so the next page starts strictly
// after that pair.

func parseCursor(cursor string) (time.Time, int64, error) {
	parts := strings.Split(cursor, ":")
	if len(parts) != 2 {
		return time.Time{}, 0, model.NewValidationError("invalid cursor format")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, 0, model.NewValidationError("invalid cursor id")
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, model.NewValidationError("invalid cursor timestamp")
	}
	return time.UnixMicro(ts), id, nil
}

func formatCursor(t time.Time, id int64) string {
	return fmt.Sprintf("%d:%d", id, t.UnixMicro())
}

// ValidateCursor lets handlers reject malformed cursors before hitting the store.
func ValidateCursor(cursor string) error {
	_, _, err := parseCursor(cursor)
	return err
}
