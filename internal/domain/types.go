package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatSold      SeatStatus = "sold"
)

type SectionShape string

const (
	ShapeGrid     SectionShape = "grid"
	ShapeCurved   SectionShape = "curved"
	ShapeStanding SectionShape = "standing"
)

// Seat is one physical seat in a compiled layout version. The ID is
// deterministic (section, row label, number) so recompiling the same
// descriptors always yields the same IDs.
type Seat struct {
	ID        string `json:"id"`
	SectionID string `json:"section_id"`
	Row       string `json:"row"`
	Number    int    `json:"number"`
	Pos       Point  `json:"pos"`
}

// Section is a compiled section. Standing sections carry a capacity but
// no individual seats. Color and Price are display metadata the core
// carries through untouched.
type Section struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Shape    SectionShape    `json:"shape"`
	Color    string          `json:"color,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Capacity int             `json:"capacity"`
	Seats    []Seat          `json:"seats,omitempty"`
}

// VenueLayout is one immutable compiled layout version. Editing a venue
// produces a new version; existing versions are never mutated.
type VenueLayout struct {
	VenueID  int64     `json:"venue_id"`
	Version  int       `json:"version"`
	Viewport Rect      `json:"viewport"`
	Sections []Section `json:"sections"`
}

// SeatCount is the number of bookable seat records across all sections
// (standing capacity excluded).
func (l *VenueLayout) SeatCount() int {
	n := 0
	for i := range l.Sections {
		n += len(l.Sections[i].Seats)
	}
	return n
}

// StandingCapacity is the advertised capacity of all standing sections.
func (l *VenueLayout) StandingCapacity() int {
	n := 0
	for i := range l.Sections {
		if l.Sections[i].Shape == ShapeStanding {
			n += l.Sections[i].Capacity
		}
	}
	return n
}

type Show struct {
	ID            int64     `json:"id"`
	VenueID       int64     `json:"venue_id"`
	LayoutVersion int       `json:"layout_version"`
	Title         string    `json:"title"`
	Starts        time.Time `json:"starts"`
	Ends          time.Time `json:"ends"`
}

// SeatState is the live reservation record of one seat for one show.
// Holder and Expires are set iff Status is SeatHeld.
type SeatState struct {
	SeatID  string     `json:"seat_id"`
	Status  SeatStatus `json:"status"`
	Holder  string     `json:"holder,omitempty"`
	Expires time.Time  `json:"expires,omitempty"`
}

// HeldLive reports whether the state is a hold that has not expired at
// t. A hold is live while Expires >= t; once Expires < t it is
// indistinguishable from an available seat.
func (s SeatState) HeldLive(t time.Time) bool {
	return s.Status == SeatHeld && !s.Expires.Before(t)
}

type ShowCounts struct {
	Available int64 `json:"available"`
	Held      int64 `json:"held"`
	Sold      int64 `json:"sold"`
	Total     int64 `json:"total"`
}
