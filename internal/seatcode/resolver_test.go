package seatcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/layout"
)

func compile(t *testing.T, sections ...domain.SectionDescriptor) *domain.VenueLayout {
	t.Helper()
	l, err := layout.Compile(domain.LayoutSpec{VenueID: 1, Sections: sections}, 1)
	require.NoError(t, err)
	return l
}

func grid(id, name string, rows, perRow int) domain.SectionDescriptor {
	return domain.SectionDescriptor{
		ID: id, Name: name, Shape: domain.ShapeGrid, Capacity: rows * perRow,
		Grid: &domain.GridParams{
			Origin:      originFor(id),
			RowCount:    rows,
			SeatsPerRow: perRow,
			SeatSpacing: 10,
			RowSpacing:  10,
		},
	}
}

// originFor spreads sections apart so compiled layouts never collide.
func originFor(id string) domain.Point {
	return domain.Point{X: float64(len(id)) * 1000, Y: float64(int(id[0])) * 1000}
}

var testAliases = AliasTable{
	{Tag: "sideA", Match: MatchSubstring, Pattern: "left"},
	{Tag: "sideB", Match: MatchSubstring, Pattern: "right"},
	{Tag: "main", Match: MatchExact, Pattern: "stalls"},
}

func TestBuildCoversWholeCodeSpace(t *testing.T) {
	l := compile(t,
		grid("st", "Stalls", 4, 5),
		grid("lft", "Left Wing", 2, 3),
		grid("rgt", "Right Wing", 2, 3),
	)
	space := CodeSpace{Tags: []string{"main", "sideA", "sideB"}, Rows: 2, SeatsPerRow: 3}

	m, err := Build(l, space, testAliases)
	require.NoError(t, err)
	require.Equal(t, space.Size(), m.Len())

	for _, tag := range space.Tags {
		for row := 1; row <= space.Rows; row++ {
			for seat := 1; seat <= space.SeatsPerRow; seat++ {
				_, err := m.Resolve(Code(tag, row, seat))
				assert.NoError(t, err, "code %s", Code(tag, row, seat))
			}
		}
	}
}

func TestBuildInjective(t *testing.T) {
	l := compile(t,
		grid("st", "Stalls", 4, 5),
		grid("lft", "Left Wing", 2, 3),
	)
	space := CodeSpace{Tags: []string{"main", "sideA"}, Rows: 2, SeatsPerRow: 3}

	m, err := Build(l, space, testAliases)
	require.NoError(t, err)

	seen := make(map[string]string)
	m.Each(func(code, seatID string) {
		prev, dup := seen[seatID]
		assert.False(t, dup, "seat %s mapped by both %s and %s", seatID, prev, code)
		seen[seatID] = code
	})
}

func TestBuildIdempotent(t *testing.T) {
	l := compile(t,
		grid("st", "Stalls", 4, 5),
		grid("lft", "Left Wing", 2, 3),
		grid("rgt", "Right Wing", 2, 3),
	)
	space := CodeSpace{Tags: []string{"main", "sideA", "sideB"}, Rows: 2, SeatsPerRow: 3}

	a, err := Build(l, space, testAliases)
	require.NoError(t, err)
	b, err := Build(l, space, testAliases)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestBuildRowMajorAssignment(t *testing.T) {
	l := compile(t, grid("lft", "Left Wing", 2, 3))
	space := CodeSpace{Tags: []string{"sideA"}, Rows: 2, SeatsPerRow: 3}

	m, err := Build(l, space, testAliases)
	require.NoError(t, err)

	// Row-major code walk lands on seats in layout order.
	got, err := m.Resolve("sideA-1-2")
	require.NoError(t, err)
	assert.Equal(t, "lft-A-2", got)

	got, err = m.Resolve("sideA-2-1")
	require.NoError(t, err)
	assert.Equal(t, "lft-B-1", got)
}

func TestBuildFanIn(t *testing.T) {
	// sideA matches a 4-seat section but needs 6 codes; the overflow
	// spills into the first unassigned seats anywhere in the layout.
	l := compile(t,
		grid("lft", "Left Wing", 2, 2),
		grid("st", "Stalls", 2, 5),
	)
	space := CodeSpace{Tags: []string{"sideA"}, Rows: 2, SeatsPerRow: 3}

	m, err := Build(l, space, testAliases)
	require.NoError(t, err)
	require.Equal(t, 6, m.Len())

	s5, err := m.Resolve("sideA-2-2")
	require.NoError(t, err)
	s6, err := m.Resolve("sideA-2-3")
	require.NoError(t, err)
	assert.Equal(t, "st-A-1", s5)
	assert.Equal(t, "st-A-2", s6)
}

func TestBuildUnmatchedTagFallsBack(t *testing.T) {
	// No alias rule matches the tag at all: every one of its codes goes
	// through fan-in rather than failing the build.
	l := compile(t, grid("st", "Stalls", 2, 3))
	space := CodeSpace{Tags: []string{"mystery"}, Rows: 2, SeatsPerRow: 3}

	m, err := Build(l, space, testAliases)
	require.NoError(t, err)
	assert.Equal(t, 6, m.Len())

	got, err := m.Resolve("mystery-1-1")
	require.NoError(t, err)
	assert.Equal(t, "st-A-1", got)
}

func TestBuildCodeSpaceTooLarge(t *testing.T) {
	l := compile(t, grid("st", "Stalls", 1, 3))
	space := CodeSpace{Tags: []string{"main"}, Rows: 2, SeatsPerRow: 3}

	_, err := Build(l, space, testAliases)
	assert.ErrorIs(t, err, ErrCodeSpaceTooLarge)
}

func TestResolveUnmappedCode(t *testing.T) {
	l := compile(t, grid("st", "Stalls", 2, 3))
	space := CodeSpace{Tags: []string{"main"}, Rows: 2, SeatsPerRow: 3}

	m, err := Build(l, space, testAliases)
	require.NoError(t, err)

	_, err = m.Resolve("main-9-9")
	assert.ErrorIs(t, err, ErrCodeUnmapped)
}

func TestRestoreRoundTrip(t *testing.T) {
	l := compile(t, grid("st", "Stalls", 2, 3))
	space := CodeSpace{Tags: []string{"main"}, Rows: 2, SeatsPerRow: 3}

	built, err := Build(l, space, testAliases)
	require.NoError(t, err)

	var pairs [][2]string
	built.Each(func(code, seatID string) {
		pairs = append(pairs, [2]string{code, seatID})
	})

	assert.Equal(t, built, Restore(pairs))
}
