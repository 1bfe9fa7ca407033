package model

import (
	"errors"
	"time"
)

type ContextKey int

const (
	LOGGER ContextKey = iota
	ACTOR
)

var ErrValidation = errors.New("validation failed")

// ISO8601 matches the millisecond, UTC layout browsers produce, so lexical
// order of formatted timestamps equals chronological order.
const ISO8601 = "2006-01-02T15:04:05.000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(ISO8601)
}

func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(ISO8601, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}

	return t, nil
}

type Model struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
