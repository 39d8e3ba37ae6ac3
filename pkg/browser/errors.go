package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolExhausted indicates the configured maximum of sessions is in use.
	ErrPoolExhausted = errors.New("session pool exhausted")

	// ErrSessionNotFound indicates no live session has the given id.
	ErrSessionNotFound = errors.New("session not found")
)

// PoolExhaustedError keeps the operator facing message while matching ErrPoolExhausted.
type PoolExhaustedError struct {
	MaxSessions int
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("Maximum number of WebDriver sessions (%d) reached", e.MaxSessions)
}

func (e *PoolExhaustedError) Is(target error) bool {
	return target == ErrPoolExhausted
}

func IsPoolExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}
