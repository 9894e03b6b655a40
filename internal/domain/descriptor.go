package domain

import "github.com/shopspring/decimal"

// LayoutSpec is the compiler input: abstract section descriptors plus the
// fixed venue furniture the viewport has to cover.
type LayoutSpec struct {
	VenueID  int64               `json:"venue_id"`
	Stage    Rect                `json:"stage"`
	Decor    []Rect              `json:"decor,omitempty"`
	Margin   float64             `json:"margin"`
	Sections []SectionDescriptor `json:"sections"`
}

// SectionDescriptor describes one section abstractly. Exactly one of
// Grid, Curved, Standing must be set, matching Shape.
type SectionDescriptor struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Shape    SectionShape    `json:"shape"`
	Color    string          `json:"color,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Capacity int             `json:"capacity"`

	Grid     *GridParams     `json:"grid,omitempty"`
	Curved   *CurvedParams   `json:"curved,omitempty"`
	Standing *StandingParams `json:"standing,omitempty"`
}

// GridParams places rows of seats on a rectangular lattice:
// seat(row, col) = Origin + (col*SeatSpacing, row*RowSpacing).
// RowSeats, when non-empty, overrides SeatsPerRow row by row.
type GridParams struct {
	Origin      Point   `json:"origin"`
	RowCount    int     `json:"row_count"`
	SeatsPerRow int     `json:"seats_per_row"`
	RowSeats    []int   `json:"row_seats,omitempty"`
	SeatSpacing float64 `json:"seat_spacing"`
	RowSpacing  float64 `json:"row_spacing"`
}

// CurvedParams places seats along concentric arcs. Row i sits at radius
// Radius + i*RowOffset; adjacent seats on a row are SeatSpacing apart
// along the arc, so the angular step is SeatSpacing / rowRadius and
// outer rows take more seats. Angles are radians, StartAngle < EndAngle.
type CurvedParams struct {
	Center      Point   `json:"center"`
	Radius      float64 `json:"radius"`
	StartAngle  float64 `json:"start_angle"`
	EndAngle    float64 `json:"end_angle"`
	RowCount    int     `json:"row_count"`
	SeatSpacing float64 `json:"seat_spacing"`
	RowOffset   float64 `json:"row_offset"`
}

// StandingParams is an open area with an advertised capacity and no
// individual seat records.
type StandingParams struct {
	Polygon []Point `json:"polygon"`
}
