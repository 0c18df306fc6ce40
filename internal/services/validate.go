package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"eventhub/internal/domain"
)

const minPasswordLen = 8

var (
	emailRegexp   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonSlugRegexp = regexp.MustCompile(`[^a-z0-9]+`)
)

// eventTimeLayouts are tried in order. Layouts without an offset are read in the event's timezone.
var eventTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegexp.MatchString(email) {
		return "", invalid("invalid email format")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

func slugify(name string) string {
	return strings.Trim(nonSlugRegexp.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, invalid("unknown timezone %q", tz)
	}
	return loc, nil
}

// parseEventTime accepts RFC 3339 or a local wall-clock time in loc, and returns UTC.
func parseEventTime(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalid("%s must be a date-time, got %q", field, value)
}

func ptr[T any](v T) *T {
	return &v
}
