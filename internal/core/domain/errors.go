package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrReplayNotFound  = errors.New("no replay for session")
	ErrReplayActive    = errors.New("replay already active")
)

// FatalMediaError aborts a replay session. Only the video resource produces
// it: without video there is nothing to critique.
type FatalMediaError struct {
	Resource string
	Err      error
}

func (e *FatalMediaError) Error() string {
	return fmt.Sprintf("fatal media error on %s: %v", e.Resource, e.Err)
}

func (e *FatalMediaError) Unwrap() error {
	return e.Err
}

// DegradedMediaError marks a secondary stream failure the replay survives.
// Audio loss is logged and reflected in status, never surfaced to the caller.
type DegradedMediaError struct {
	Resource string
	Err      error
}

func (e *DegradedMediaError) Error() string {
	return fmt.Sprintf("degraded media on %s: %v", e.Resource, e.Err)
}

func (e *DegradedMediaError) Unwrap() error {
	return e.Err
}

// IsFatalMedia reports whether err is (or wraps) a FatalMediaError.
func IsFatalMedia(err error) bool {
	var fatal *FatalMediaError
	return errors.As(err, &fatal)
}
