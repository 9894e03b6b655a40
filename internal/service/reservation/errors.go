package reservation

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoSeats          = errors.New("no seats selected")
	ErrDuplicateSeats   = errors.New("duplicate seats in request")
	ErrUnknownSeat      = errors.New("seat not in layout")
	ErrSeatsUnavailable = errors.New("some seats are unavailable")
	ErrShowNotFound     = errors.New("show not found")
)

// RateLimitedError tells the caller when to retry.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
