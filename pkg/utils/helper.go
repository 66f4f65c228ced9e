package utils

import (
	"strconv"
	"time"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// ParseInt64 parses a positive numeric id. ok is false for empty or
// malformed input.
func ParseInt64(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil || result < 1 {
		return 0, false
	}
	return result, true
}

// ParseDate accepts either RFC3339 or a plain YYYY-MM-DD date.
func ParseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseDateEnd parses an upper bound for a half-open range. A plain date
// covers that whole day, so it becomes the following midnight. Timestamps are
// returned unchanged.
func ParseDateEnd(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, err
	}
	end := t.AddDate(0, 0, 1)
	return &end, nil
}
