package httpgin

import (
	"time"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/repository"
	"github.com/kirinyoku/seatcore/internal/seatcode"
)

type ScheduleShowRequest struct {
	VenueID  int64  `json:"venue_id" binding:"required"`
	Title    string `json:"title" binding:"required"`
	StartsAt string `json:"starts_at" binding:"required"`
	EndsAt   string `json:"ends_at" binding:"required"`

	CodeSpace seatcode.CodeSpace  `json:"code_space"`
	Aliases   seatcode.AliasTable `json:"aliases"`
}

type ScheduleShowResponse struct {
	ShowID        int64 `json:"show_id"`
	LayoutVersion int   `json:"layout_version"`
	SeatCount     int   `json:"seat_count"`
	CodeCount     int   `json:"code_count"`
}

type PublishLayoutResponse struct {
	VenueID   int64       `json:"venue_id"`
	Version   int         `json:"version"`
	Viewport  domain.Rect `json:"viewport"`
	SeatCount int         `json:"seat_count"`
}

type CreateHoldsRequest struct {
	HolderID string   `json:"holder_id" binding:"required"`
	SeatIDs  []string `json:"seat_ids" binding:"required,min=1,dive,required"`
	TTLSec   int      `json:"ttl_sec"`
}

type SeatBatchRequest struct {
	HolderID string   `json:"holder_id" binding:"required"`
	SeatIDs  []string `json:"seat_ids" binding:"required,min=1,dive,required"`
}

type HoldView struct {
	SeatID  string    `json:"seat_id"`
	Expires time.Time `json:"expires"`
}

type CreateHoldsResponse struct {
	Holds []HoldView `json:"holds"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ConfirmConflictResponse lists every seat that failed its precondition
// in an all-or-nothing confirm.
type ConfirmConflictResponse struct {
	Error    string                   `json:"error"`
	Failures []repository.SeatFailure `json:"failures"`
}

// RuleViolationResponse names the violated business rule and offers
// alternative seats near the rejected batch.
type RuleViolationResponse struct {
	Error        string        `json:"error"`
	Rule         string        `json:"rule"`
	SeatIDs      []string      `json:"seat_ids"`
	Alternatives []domain.Seat `json:"alternatives"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
