package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatcore/internal/domain"
)

func gridSpec(sectionID string, rows, perRow int, spacing float64) domain.LayoutSpec {
	return domain.LayoutSpec{
		VenueID: 1,
		Stage:   domain.Rect{MinX: 0, MinY: -40, MaxX: 100, MaxY: -20},
		Margin:  10,
		Sections: []domain.SectionDescriptor{
			{
				ID:       sectionID,
				Name:     sectionID,
				Shape:    domain.ShapeGrid,
				Capacity: rows * perRow,
				Grid: &domain.GridParams{
					RowCount:    rows,
					SeatsPerRow: perRow,
					SeatSpacing: spacing,
					RowSpacing:  spacing,
				},
			},
		},
	}
}

func TestCompileGridCoordinates(t *testing.T) {
	l, err := Compile(gridSpec("Stalls", 2, 3, 20), 1)
	require.NoError(t, err)
	require.Len(t, l.Sections, 1)
	require.Len(t, l.Sections[0].Seats, 6)

	byID := make(map[string]domain.Seat)
	for _, s := range l.Sections[0].Seats {
		byID[s.ID] = s
	}

	a2, ok := byID["Stalls-A-2"]
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 20, Y: 0}, a2.Pos)

	b1, ok := byID["Stalls-B-1"]
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 0, Y: 20}, b1.Pos)
}

func TestCompileDeterministic(t *testing.T) {
	spec := domain.LayoutSpec{
		VenueID: 7,
		Stage:   domain.Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		Margin:  5,
		Sections: []domain.SectionDescriptor{
			{
				ID:       "balcony",
				Name:     "Balcony",
				Shape:    domain.ShapeCurved,
				Capacity: curvedCount(100, 2, 1.5, math.Pi/2, 3*math.Pi/2, 5),
				Curved: &domain.CurvedParams{
					Center:      domain.Point{X: 50, Y: 50},
					Radius:      100,
					StartAngle:  math.Pi / 2,
					EndAngle:    3 * math.Pi / 2,
					RowCount:    2,
					SeatSpacing: 1.5,
					RowOffset:   5,
				},
			},
		},
	}

	a, err := Compile(spec, 3)
	require.NoError(t, err)
	b, err := Compile(spec, 3)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

// curvedCount mirrors the compiler's per-row seat count so tests can
// declare a matching capacity.
func curvedCount(radius float64, rows int, spacing, start, end, rowOffset float64) int {
	total := 0
	for i := 0; i < rows; i++ {
		r := radius + float64(i)*rowOffset
		total += int(math.Floor((end-start)/(spacing/r)+1e-9)) + 1
	}
	return total
}

func TestCompileCurvedRowsGrowOutward(t *testing.T) {
	cap := curvedCount(50, 3, 1.0, 0, math.Pi, 10)
	spec := domain.LayoutSpec{
		VenueID: 2,
		Sections: []domain.SectionDescriptor{
			{
				ID:       "arc",
				Name:     "Arc",
				Shape:    domain.ShapeCurved,
				Capacity: cap,
				Curved: &domain.CurvedParams{
					Radius:      50,
					StartAngle:  0,
					EndAngle:    math.Pi,
					RowCount:    3,
					SeatSpacing: 1.0,
					RowOffset:   10,
				},
			},
		},
	}

	l, err := Compile(spec, 1)
	require.NoError(t, err)

	perRow := map[string]int{}
	for _, s := range l.Sections[0].Seats {
		perRow[s.Row]++
	}
	assert.Greater(t, perRow["B"], perRow["A"], "outer rows hold more seats at equal spacing")
	assert.Greater(t, perRow["C"], perRow["B"])

	// Every seat sits on its row's radius.
	for _, s := range l.Sections[0].Seats {
		rowIdx := int(s.Row[0] - 'A')
		want := 50 + float64(rowIdx)*10
		got := s.Pos.DistanceTo(domain.Point{})
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestCompileCapacityMismatch(t *testing.T) {
	spec := gridSpec("Stalls", 2, 3, 20)
	spec.Sections[0].Capacity = 7

	_, err := Compile(spec, 1)
	require.Error(t, err)

	var mismatch *SectionCapacityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Stalls", mismatch.SectionID)
	assert.Equal(t, 7, mismatch.Declared)
	assert.Equal(t, 6, mismatch.Generated)
}

func TestCompileSeatCollision(t *testing.T) {
	spec := gridSpec("A", 1, 2, 20)
	spec.Sections = append(spec.Sections, domain.SectionDescriptor{
		ID:       "B",
		Name:     "B",
		Shape:    domain.ShapeGrid,
		Capacity: 2,
		Grid: &domain.GridParams{
			Origin:      domain.Point{X: 20, Y: 0}, // lands on A's second seat
			RowCount:    1,
			SeatsPerRow: 2,
			SeatSpacing: 20,
			RowSpacing:  20,
		},
	})

	_, err := Compile(spec, 1)
	require.Error(t, err)

	var collision *SeatCollisionError
	require.ErrorAs(t, err, &collision)
}

func TestCompileStandingSection(t *testing.T) {
	spec := gridSpec("Stalls", 2, 3, 20)
	spec.Sections = append(spec.Sections, domain.SectionDescriptor{
		ID:       "pit",
		Name:     "Standing Pit",
		Shape:    domain.ShapeStanding,
		Capacity: 150,
		Standing: &domain.StandingParams{
			Polygon: []domain.Point{{X: 0, Y: -20}, {X: 40, Y: -20}, {X: 40, Y: 0}, {X: 0, Y: 0}},
		},
	})

	l, err := Compile(spec, 1)
	require.NoError(t, err)

	assert.Equal(t, 6, l.SeatCount())
	assert.Equal(t, 150, l.StandingCapacity())
	assert.Empty(t, l.Sections[1].Seats)
}

func TestCompileViewportCoversStageAndSeats(t *testing.T) {
	l, err := Compile(gridSpec("Stalls", 2, 3, 20), 1)
	require.NoError(t, err)

	// Stage spans y in [-40,-20], seats span x in [0,40], y in [0,20];
	// margin is 10 on all sides.
	assert.Equal(t, domain.Rect{MinX: -10, MinY: -50, MaxX: 110, MaxY: 30}, l.Viewport)
}

func TestRowLabel(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA"}
	for idx, want := range cases {
		assert.Equal(t, want, RowLabel(idx), "row %d", idx)
	}
}
