package cli

import (
	"fmt"
	"time"

	"github.com/optiflow/optiflow/internal/core/domain"
)

const dateLayout = "2006-01-02"

// parseTime accepts an RFC 3339 timestamp or a plain date, read as local
// midnight.
func parseTime(flag, s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --%s must be YYYY-MM-DD or RFC 3339, got %q", domain.ErrValidation, flag, s)
	}
	return t, nil
}

// endOfDay widens a date-only bound so the whole day is included.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
