// Package spatial indexes a compiled layout's seats for viewport and
// nearest-seat queries. An Index is built once per layout version and
// never mutated; new versions get a fresh Index swapped in whole.
package spatial

import (
	"math"
	"sort"

	"github.com/kirinyoku/seatcore/internal/domain"
)

// targetPerCell tunes the bucket grid: cell size is chosen so an
// average cell holds about this many seats.
const targetPerCell = 4.0

type Index struct {
	bounds domain.Rect
	cell   float64
	cols   int
	rows   int
	seats  []domain.Seat
	cells  [][]int32 // indices into seats, row-major cell order
}

// Build flattens the layout's seats into a bucketed uniform grid.
func Build(l *domain.VenueLayout) *Index {
	ix := &Index{bounds: l.Viewport}

	for si := range l.Sections {
		ix.seats = append(ix.seats, l.Sections[si].Seats...)
	}

	n := len(ix.seats)
	if n == 0 {
		ix.cell = 1
		ix.cols, ix.rows = 1, 1
		ix.cells = make([][]int32, 1)
		return ix
	}

	area := ix.bounds.Width() * ix.bounds.Height()
	if area <= 0 {
		area = 1
	}
	ix.cell = math.Sqrt(area / float64(n) * targetPerCell)

	ix.cols = int(math.Ceil(ix.bounds.Width()/ix.cell)) + 1
	ix.rows = int(math.Ceil(ix.bounds.Height()/ix.cell)) + 1
	ix.cells = make([][]int32, ix.cols*ix.rows)

	for i := range ix.seats {
		c := ix.cellAt(ix.seats[i].Pos)
		ix.cells[c] = append(ix.cells[c], int32(i))
	}

	return ix
}

func (ix *Index) Len() int { return len(ix.seats) }

func (ix *Index) cellAt(p domain.Point) int {
	cx := ix.clampCol(int(math.Floor((p.X - ix.bounds.MinX) / ix.cell)))
	cy := ix.clampRow(int(math.Floor((p.Y - ix.bounds.MinY) / ix.cell)))
	return cy*ix.cols + cx
}

func (ix *Index) clampCol(c int) int {
	return min(max(c, 0), ix.cols-1)
}

func (ix *Index) clampRow(r int) int {
	return min(max(r, 0), ix.rows-1)
}

// SeatsIn returns every seat whose coordinate falls inside r, ordered by
// (section, row, number) so the result is stable across calls.
func (ix *Index) SeatsIn(r domain.Rect) []domain.Seat {
	if len(ix.seats) == 0 {
		return nil
	}

	c0 := ix.clampCol(int(math.Floor((r.MinX - ix.bounds.MinX) / ix.cell)))
	c1 := ix.clampCol(int(math.Floor((r.MaxX - ix.bounds.MinX) / ix.cell)))
	r0 := ix.clampRow(int(math.Floor((r.MinY - ix.bounds.MinY) / ix.cell)))
	r1 := ix.clampRow(int(math.Floor((r.MaxY - ix.bounds.MinY) / ix.cell)))

	var out []domain.Seat
	for cy := r0; cy <= r1; cy++ {
		for cx := c0; cx <= c1; cx++ {
			for _, i := range ix.cells[cy*ix.cols+cx] {
				if r.Contains(ix.seats[i].Pos) {
					out = append(out, ix.seats[i])
				}
			}
		}
	}

	sort.Slice(out, func(a, b int) bool { return seatLess(out[a], out[b]) })

	return out
}

// Nearest returns the seat within radius closest to p. Distance ties
// break by (row, number) ascending, so hit-testing is deterministic.
func (ix *Index) Nearest(p domain.Point, radius float64) (domain.Seat, bool) {
	if len(ix.seats) == 0 || radius < 0 {
		return domain.Seat{}, false
	}

	candidates := ix.SeatsIn(domain.RectAround(p).Expand(radius))

	best := domain.Seat{}
	bestDist := math.Inf(1)
	found := false
	for _, s := range candidates {
		d := s.Pos.DistanceTo(p)
		if d > radius {
			continue
		}
		if d < bestDist || (d == bestDist && seatLess(s, best)) {
			best, bestDist, found = s, d, true
		}
	}

	return best, found
}

func seatLess(a, b domain.Seat) bool {
	if a.SectionID != b.SectionID {
		return a.SectionID < b.SectionID
	}
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Number < b.Number
}
