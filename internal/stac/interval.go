package stac

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateTime is returned when a datetime or interval cannot be parsed.
var ErrInvalidDateTime = errors.New("invalid datetime format")

// ParseTime parses an RFC 3339 timestamp or a bare YYYY-MM-DD date, which is
// taken as midnight UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
}

// ParseDatetimeInterval parses a datetime interval string into start and end times.
// Supports formats:
//   - "2024-06-01T00:00:00Z/2024-06-30T23:59:59Z" (closed interval)
//   - "2024-06-01/2024-06-30" (dates)
//   - "2024-06-01T00:00:00Z/.." (start time only)
//   - "../2024-06-30T23:59:59Z" (end time only)
//   - ".." or "../.." (open interval, both nil)
//   - a single timestamp, returned as both start and end
func ParseDatetimeInterval(dt string) (start, end *time.Time, err error) {
	dt = strings.TrimSpace(dt)
	if dt == "" {
		return nil, nil, fmt.Errorf("%w: datetime interval cannot be empty", ErrInvalidDateTime)
	}

	if dt == ".." || dt == "../.." {
		return nil, nil, nil
	}

	if !strings.Contains(dt, "/") {
		t, err := ParseTime(dt)
		if err != nil {
			return nil, nil, err
		}
		return &t, &t, nil
	}

	parts := strings.Split(dt, "/")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("%w: expected 'start/end', got %s", ErrInvalidDateTime, dt)
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	if startStr != "" && startStr != ".." {
		t, err := ParseTime(startStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start datetime: %w", err)
		}
		start = &t
	}

	if endStr != "" && endStr != ".." {
		t, err := ParseTime(endStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end datetime: %w", err)
		}
		end = &t
	}

	if start != nil && end != nil && start.After(*end) {
		return nil, nil, fmt.Errorf("%w: start (%s) must be before or equal to end (%s)",
			ErrInvalidDateTime, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return start, end, nil
}

// FormatInterval renders a start/end pair the way CMR's temporal parameter expects.
func FormatInterval(start, end *time.Time) string {
	var s, e string
	if start != nil {
		s = start.UTC().Format(time.RFC3339)
	}
	if end != nil {
		e = end.UTC().Format(time.RFC3339)
	}
	return s + "," + e
}

// DayWindow turns start and end dates into a whole-day UTC window ending one
// second before the midnight after end. An empty start means the day of now
// and an empty end means the start day. Timestamps are truncated to their day.
func DayWindow(startStr, endStr string, now time.Time) (start, end time.Time, err error) {
	start = now.UTC().Truncate(24 * time.Hour)
	if startStr != "" {
		t, err := ParseTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
		}
		start = t.UTC().Truncate(24 * time.Hour)
	}

	last := start
	if endStr != "" {
		t, err := ParseTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
		}
		last = t.UTC().Truncate(24 * time.Hour)
	}
	if last.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end is before start", ErrInvalidDateTime)
	}

	return start, last.Add(24*time.Hour - time.Second), nil
}
