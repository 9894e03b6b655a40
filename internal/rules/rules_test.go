package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/layout"
	"github.com/kirinyoku/seatcore/internal/spatial"
)

var now = time.Date(2026, 8, 30, 19, 0, 0, 0, time.UTC)

// rowOf5 compiles a single-section layout with one row of five seats,
// the canonical orphan-rule fixture.
func rowOf5(t *testing.T) *domain.VenueLayout {
	t.Helper()
	l, err := layout.Compile(domain.LayoutSpec{
		VenueID: 1,
		Sections: []domain.SectionDescriptor{{
			ID: "st", Name: "Stalls", Shape: domain.ShapeGrid, Capacity: 5,
			Grid: &domain.GridParams{RowCount: 1, SeatsPerRow: 5, SeatSpacing: 10, RowSpacing: 10},
		}},
	}, 1)
	require.NoError(t, err)
	return l
}

func sold(seatID string) domain.SeatState {
	return domain.SeatState{SeatID: seatID, Status: domain.SeatSold}
}

func heldBy(seatID, holder string) domain.SeatState {
	return domain.SeatState{
		SeatID:  seatID,
		Status:  domain.SeatHeld,
		Holder:  holder,
		Expires: now.Add(time.Minute),
	}
}

func TestOrphanLoneMiddleSeatRejected(t *testing.T) {
	// Seats 1,2 sold, seat 4 held by someone else. Taking just seat 3
	// would isolate seat 5.
	l := rowOf5(t)
	req := Request{
		HolderID: "h1",
		SeatIDs:  []string{"st-A-3"},
		States: map[string]domain.SeatState{
			"st-A-1": sold("st-A-1"),
			"st-A-2": sold("st-A-2"),
			"st-A-4": heldBy("st-A-4", "h2"),
		},
		Now: now,
	}

	err := Evaluate(l, req, Config{})
	require.Error(t, err)

	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, RuleOrphanSeat, v.Rule)
}

func TestOrphanBatchCoveringGapAccepted(t *testing.T) {
	// Same occupancy, but requesting {3,5} together leaves no orphan.
	l := rowOf5(t)
	req := Request{
		HolderID: "h1",
		SeatIDs:  []string{"st-A-3", "st-A-5"},
		States: map[string]domain.SeatState{
			"st-A-1": sold("st-A-1"),
			"st-A-2": sold("st-A-2"),
			"st-A-4": heldBy("st-A-4", "h2"),
		},
		Now: now,
	}

	assert.NoError(t, Evaluate(l, req, Config{}))
}

func TestOrphanAcceptedAfterNeighborReleased(t *testing.T) {
	// Seat 4 back to available: a lone request for 3 is fine, because 4
	// and 5 remain an available pair.
	l := rowOf5(t)
	req := Request{
		HolderID: "h1",
		SeatIDs:  []string{"st-A-3"},
		States: map[string]domain.SeatState{
			"st-A-1": sold("st-A-1"),
			"st-A-2": sold("st-A-2"),
		},
		Now: now,
	}

	assert.NoError(t, Evaluate(l, req, Config{}))
}

func TestOrphanExpiredHoldCountsAsAvailable(t *testing.T) {
	l := rowOf5(t)
	expired := heldBy("st-A-4", "h2")
	expired.Expires = now.Add(-time.Second)

	req := Request{
		HolderID: "h1",
		SeatIDs:  []string{"st-A-3"},
		States: map[string]domain.SeatState{
			"st-A-1": sold("st-A-1"),
			"st-A-2": sold("st-A-2"),
			"st-A-4": expired,
		},
		Now: now,
	}

	assert.NoError(t, Evaluate(l, req, Config{}))
}

func TestOrphanEdgeSeatWithSingleNeighbor(t *testing.T) {
	// In an otherwise empty row, taking seat 2 strands edge seat 1.
	l := rowOf5(t)
	req := Request{HolderID: "h1", SeatIDs: []string{"st-A-2"}, Now: now}

	err := Evaluate(l, req, Config{})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, RuleOrphanSeat, v.Rule)

	// Taking seat 1 is fine: seat 2 keeps available neighbor 3.
	req.SeatIDs = []string{"st-A-1"}
	assert.NoError(t, Evaluate(l, req, Config{}))
}

func TestOrphanDisabled(t *testing.T) {
	l := rowOf5(t)
	req := Request{HolderID: "h1", SeatIDs: []string{"st-A-2"}, Now: now}

	assert.NoError(t, Evaluate(l, req, Config{DisableOrphanCheck: true}))
}

func TestOrphanIgnoresOtherSections(t *testing.T) {
	// A one-seat row in a different section has no neighbors and is
	// never orphaned by activity elsewhere.
	l, err := layout.Compile(domain.LayoutSpec{
		VenueID: 1,
		Sections: []domain.SectionDescriptor{
			{
				ID: "st", Name: "Stalls", Shape: domain.ShapeGrid, Capacity: 2,
				Grid: &domain.GridParams{RowCount: 1, SeatsPerRow: 2, SeatSpacing: 10, RowSpacing: 10},
			},
			{
				ID: "box", Name: "Box", Shape: domain.ShapeGrid, Capacity: 1,
				Grid: &domain.GridParams{
					Origin:   domain.Point{X: 100, Y: 0},
					RowCount: 1, SeatsPerRow: 1, SeatSpacing: 10, RowSpacing: 10,
				},
			},
		},
	}, 1)
	require.NoError(t, err)

	req := Request{HolderID: "h1", SeatIDs: []string{"st-A-1", "st-A-2"}, Now: now}
	assert.NoError(t, Evaluate(l, req, Config{}))
}

func TestCapacityRule(t *testing.T) {
	l := rowOf5(t)
	cfg := Config{MaxSeatsPerHolder: 4, DisableOrphanCheck: true}

	ok := Request{HolderID: "h1", SeatIDs: []string{"st-A-1", "st-A-2"}, AlreadyHeld: 2, Now: now}
	assert.NoError(t, Evaluate(l, ok, cfg))

	over := Request{HolderID: "h1", SeatIDs: []string{"st-A-1", "st-A-2", "st-A-3"}, AlreadyHeld: 2, Now: now}
	err := Evaluate(l, over, cfg)

	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, RuleCapacity, v.Rule)
}

func TestAlternativesNearestFirstAndRuleClean(t *testing.T) {
	l := rowOf5(t)
	ix := spatial.Build(l)

	// Seats 1,2 sold, the rest free. Individually holdable seats: 3
	// (leaves the 4-5 pair), 5 (leaves the 3-4 pair), but not 4 (would
	// strand 3 between sold 2 and taken 4).
	req := Request{
		HolderID: "h1",
		States: map[string]domain.SeatState{
			"st-A-1": sold("st-A-1"),
			"st-A-2": sold("st-A-2"),
		},
		Now: now,
	}

	from := domain.Point{X: 20, Y: 0} // seat 3's spot
	alts := Alternatives(l, ix, req, Config{}, from, 100, 3)

	var ids []string
	for _, s := range alts {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"st-A-3", "st-A-5"}, ids)
}

func TestAlternativesNoneWhenEverySingleViolates(t *testing.T) {
	// With 1,2 sold and 4 held by another holder, seats 3 and 5 each
	// strand the other; only the {3,5} batch works, so there are no
	// individually valid alternatives to offer.
	l := rowOf5(t)
	ix := spatial.Build(l)

	req := Request{
		HolderID: "h1",
		States: map[string]domain.SeatState{
			"st-A-1": sold("st-A-1"),
			"st-A-2": sold("st-A-2"),
			"st-A-4": heldBy("st-A-4", "h2"),
		},
		Now: now,
	}

	assert.Empty(t, Alternatives(l, ix, req, Config{}, domain.Point{X: 20, Y: 0}, 100, 3))
}

func TestAlternativesRespectsRadiusAndLimit(t *testing.T) {
	l := rowOf5(t)
	ix := spatial.Build(l)

	req := Request{HolderID: "h1", Now: now}
	alts := Alternatives(l, ix, req, Config{DisableOrphanCheck: true}, domain.Point{X: 0, Y: 0}, 12, 5)

	// Only seats 1 and 2 are within radius 12 of seat 1's position.
	require.Len(t, alts, 2)
	assert.Equal(t, "st-A-1", alts[0].ID)
	assert.Equal(t, "st-A-2", alts[1].ID)
}
