package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("session not found")
	ErrClosed             = errors.New("session closed")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrCompleted          = errors.New("session already submitted")

	// ErrResponseDiscarded wraps ErrClosed when the remote call was made but
	// the session closed before its response arrived.
	ErrResponseDiscarded = fmt.Errorf("%w: response discarded", ErrClosed)
)
