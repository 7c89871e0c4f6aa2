package anilist

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when upstream cannot find the requested user.
var ErrNotFound = errors.New("anilist: not found")

// ErrRateLimited is returned on HTTP 429. The pipeline does not retry;
// callers surface a try-again-later condition.
var ErrRateLimited = errors.New("anilist: rate limited")

// ErrTimeout is returned when no response arrives within the client timeout.
var ErrTimeout = errors.New("anilist: request timed out")

// RequestError attaches the user and format being ingested to an underlying
// failure so callers can render an actionable message.
type RequestError struct {
	Username string
	Format   string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Format, e.Username, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
