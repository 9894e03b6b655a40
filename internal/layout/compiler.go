// Package layout compiles abstract section descriptors into a concrete,
// immutable VenueLayout: every bookable seat with a coordinate, plus the
// minimal bounding viewport. Compilation is pure and deterministic -
// identical input always yields identical seat IDs, order and coordinates.
package layout

import (
	"fmt"
	"math"

	"github.com/kirinyoku/seatcore/internal/domain"
)

// CoordEpsilon is the minimum distance two seats in one layout version
// may be apart. Anything closer is treated as the same physical spot.
const CoordEpsilon = 1e-6

// Compile builds a VenueLayout for the given version from spec. It fails
// if any section's generated seat count differs from its declared
// capacity, or if two seats collide within CoordEpsilon.
func Compile(spec domain.LayoutSpec, version int) (*domain.VenueLayout, error) {
	const op = "layout.Compile"

	if len(spec.Sections) == 0 {
		return nil, fmt.Errorf("%s: layout has no sections", op)
	}

	out := &domain.VenueLayout{
		VenueID:  spec.VenueID,
		Version:  version,
		Sections: make([]domain.Section, 0, len(spec.Sections)),
	}

	seen := make(map[string]struct{}, len(spec.Sections))
	for i := range spec.Sections {
		d := &spec.Sections[i]

		if d.ID == "" {
			return nil, fmt.Errorf("%s: section %d has no id", op, i)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate section id %q", op, d.ID)
		}
		seen[d.ID] = struct{}{}

		sec, err := compileSection(d)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		out.Sections = append(out.Sections, sec)
	}

	if err := checkCollisions(out); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out.Viewport = viewport(spec, out)

	return out, nil
}

func compileSection(d *domain.SectionDescriptor) (domain.Section, error) {
	sec := domain.Section{
		ID:       d.ID,
		Name:     d.Name,
		Shape:    d.Shape,
		Color:    d.Color,
		Price:    d.Price,
		Capacity: d.Capacity,
	}

	var err error
	switch d.Shape {
	case domain.ShapeGrid:
		if d.Grid == nil {
			return sec, fmt.Errorf("section %q: missing grid params", d.ID)
		}
		sec.Seats, err = gridSeats(d.ID, d.Grid)
	case domain.ShapeCurved:
		if d.Curved == nil {
			return sec, fmt.Errorf("section %q: missing curved params", d.ID)
		}
		sec.Seats, err = curvedSeats(d.ID, d.Curved)
	case domain.ShapeStanding:
		if d.Standing == nil {
			return sec, fmt.Errorf("section %q: missing standing params", d.ID)
		}
		if d.Capacity <= 0 {
			return sec, fmt.Errorf("section %q: standing capacity must be positive", d.ID)
		}
		// Standing areas contribute capacity only, no seat records.
		return sec, nil
	default:
		return sec, fmt.Errorf("section %q: unknown shape %q", d.ID, d.Shape)
	}
	if err != nil {
		return sec, err
	}

	if len(sec.Seats) != d.Capacity {
		return sec, &SectionCapacityMismatchError{
			SectionID: d.ID,
			Declared:  d.Capacity,
			Generated: len(sec.Seats),
		}
	}

	return sec, nil
}

func gridSeats(sectionID string, g *domain.GridParams) ([]domain.Seat, error) {
	if g.RowCount <= 0 {
		return nil, fmt.Errorf("section %q: row count must be positive", sectionID)
	}
	if g.SeatSpacing <= 0 || g.RowSpacing <= 0 {
		return nil, fmt.Errorf("section %q: spacing must be positive", sectionID)
	}
	if len(g.RowSeats) > 0 && len(g.RowSeats) != g.RowCount {
		return nil, fmt.Errorf("section %q: row_seats length %d != row_count %d",
			sectionID, len(g.RowSeats), g.RowCount)
	}
	if len(g.RowSeats) == 0 && g.SeatsPerRow <= 0 {
		return nil, fmt.Errorf("section %q: seats per row must be positive", sectionID)
	}

	var seats []domain.Seat
	for row := 0; row < g.RowCount; row++ {
		perRow := g.SeatsPerRow
		if len(g.RowSeats) > 0 {
			perRow = g.RowSeats[row]
		}
		if perRow <= 0 {
			return nil, fmt.Errorf("section %q: row %d has no seats", sectionID, row)
		}

		label := RowLabel(row)
		for col := 0; col < perRow; col++ {
			seats = append(seats, domain.Seat{
				ID:        SeatID(sectionID, label, col+1),
				SectionID: sectionID,
				Row:       label,
				Number:    col + 1,
				Pos: domain.Point{
					X: g.Origin.X + float64(col)*g.SeatSpacing,
					Y: g.Origin.Y + float64(row)*g.RowSpacing,
				},
			})
		}
	}

	return seats, nil
}

func curvedSeats(sectionID string, c *domain.CurvedParams) ([]domain.Seat, error) {
	if c.RowCount <= 0 {
		return nil, fmt.Errorf("section %q: row count must be positive", sectionID)
	}
	if c.SeatSpacing <= 0 {
		return nil, fmt.Errorf("section %q: seat spacing must be positive", sectionID)
	}
	if c.EndAngle <= c.StartAngle {
		return nil, fmt.Errorf("section %q: end angle must exceed start angle", sectionID)
	}

	var seats []domain.Seat
	for row := 0; row < c.RowCount; row++ {
		r := c.Radius + float64(row)*c.RowOffset
		if r <= 0 {
			return nil, fmt.Errorf("section %q: row %d radius is not positive", sectionID, row)
		}

		step := c.SeatSpacing / r
		// A hair of slack so a seat landing exactly on the end angle
		// is not dropped to float rounding.
		n := int(math.Floor((c.EndAngle-c.StartAngle)/step+1e-9)) + 1

		label := RowLabel(row)
		for j := 0; j < n; j++ {
			theta := c.StartAngle + float64(j)*step
			seats = append(seats, domain.Seat{
				ID:        SeatID(sectionID, label, j+1),
				SectionID: sectionID,
				Row:       label,
				Number:    j + 1,
				Pos: domain.Point{
					X: c.Center.X + r*math.Cos(theta),
					Y: c.Center.Y + r*math.Sin(theta),
				},
			})
		}
	}

	return seats, nil
}

// checkCollisions rejects layouts where two seats land within
// CoordEpsilon of each other. Seats are hashed into epsilon-sized cells;
// a collision can only involve the 3x3 cell neighborhood.
func checkCollisions(l *domain.VenueLayout) error {
	type cell struct{ x, y int64 }
	occupied := make(map[cell][]*domain.Seat, l.SeatCount())

	for si := range l.Sections {
		for i := range l.Sections[si].Seats {
			s := &l.Sections[si].Seats[i]
			cx := int64(math.Floor(s.Pos.X / CoordEpsilon))
			cy := int64(math.Floor(s.Pos.Y / CoordEpsilon))

			for dx := int64(-1); dx <= 1; dx++ {
				for dy := int64(-1); dy <= 1; dy++ {
					for _, other := range occupied[cell{cx + dx, cy + dy}] {
						if s.Pos.DistanceTo(other.Pos) < CoordEpsilon {
							return &SeatCollisionError{SeatA: other.ID, SeatB: s.ID}
						}
					}
				}
			}

			occupied[cell{cx, cy}] = append(occupied[cell{cx, cy}], s)
		}
	}

	return nil
}

// viewport is the minimal rect covering stage, decor and every seat,
// expanded by the spec margin.
func viewport(spec domain.LayoutSpec, l *domain.VenueLayout) domain.Rect {
	vp := spec.Stage
	for _, d := range spec.Decor {
		vp = vp.Union(d)
	}
	for si := range l.Sections {
		for i := range l.Sections[si].Seats {
			vp = vp.Union(domain.RectAround(l.Sections[si].Seats[i].Pos))
		}
	}
	return vp.Expand(spec.Margin)
}

// RowLabel converts a zero-based row index to a spreadsheet-style label:
// A..Z, then AA, AB, ...
func RowLabel(row int) string {
	label := ""
	n := row
	for {
		label = string(rune('A'+n%26)) + label
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return label
}

// SeatID is the deterministic seat identifier within one venue+version.
func SeatID(sectionID, rowLabel string, number int) string {
	return fmt.Sprintf("%s-%s-%d", sectionID, rowLabel, number)
}
