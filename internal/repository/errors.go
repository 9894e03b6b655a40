package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrSeatUnavailable  = errors.New("seat unavailable")
	ErrNotOwner         = errors.New("holder does not own the seat")
	ErrSeatSold         = errors.New("seat already sold")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Failure reasons reported per seat by batch operations.
const (
	ReasonNotFound    = "not_found"
	ReasonSold        = "sold"
	ReasonNotHeld     = "not_held"
	ReasonHeldByOther = "held_by_other"
	ReasonExpired     = "expired"
)

type SeatFailure struct {
	SeatID string `json:"seat_id"`
	Reason string `json:"reason"`
}

// ConfirmConflictError reports why a confirm batch was rejected. The
// batch is all-or-nothing: when this error is returned, no seat in the
// batch changed state.
type ConfirmConflictError struct {
	Failures []SeatFailure
}

func (e *ConfirmConflictError) Error() string {
	return fmt.Sprintf("confirm rejected, %d seat(s) failed precondition", len(e.Failures))
}

func (e *ConfirmConflictError) Is(target error) bool {
	return target == ErrConflict
}
