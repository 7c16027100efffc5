package calendar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/erazemk/omara/internal/model"
)

// Duration bounds in minutes.
const (
	DefaultDurationMinutes = 60
	MaxDurationMinutes     = 24 * 60
)

// DefaultHour is the UTC start hour for date-only requests.
const DefaultHour = 9

// ParseStart parses a start date. A bare YYYY-MM-DD starts at DefaultHour
// UTC; YYYY-MM-DDTHH:MM is read as UTC; RFC 3339 keeps its offset.
func ParseStart(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Add(DefaultHour * time.Hour), nil
	}
	if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, &model.ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD, YYYY-MM-DDTHH:MM or RFC 3339", s)}
}

// ParseDuration parses a duration in minutes. Empty means the default.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return DefaultDurationMinutes * time.Minute, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxDurationMinutes {
		return 0, &model.ValidationError{Field: "duration_minutes", Reason: fmt.Sprintf("must be an integer between 1 and %d", MaxDurationMinutes)}
	}
	return time.Duration(n) * time.Minute, nil
}
