package layout

import "fmt"

// SectionCapacityMismatchError is fatal to the layout version being
// compiled; the previously active version stays live.
type SectionCapacityMismatchError struct {
	SectionID string
	Declared  int
	Generated int
}

func (e *SectionCapacityMismatchError) Error() string {
	return fmt.Sprintf("section %q: declared capacity %d but generated %d seats",
		e.SectionID, e.Declared, e.Generated)
}

type SeatCollisionError struct {
	SeatA string
	SeatB string
}

func (e *SeatCollisionError) Error() string {
	return fmt.Sprintf("seats %q and %q share coordinates", e.SeatA, e.SeatB)
}
