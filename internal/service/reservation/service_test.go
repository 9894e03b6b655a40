package reservation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/layout"
	"github.com/kirinyoku/seatcore/internal/repository"
	"github.com/kirinyoku/seatcore/internal/repository/memory"
	"github.com/kirinyoku/seatcore/internal/rules"
	"github.com/kirinyoku/seatcore/internal/seatcode"
	"github.com/kirinyoku/seatcore/internal/service/layouts"
	"github.com/kirinyoku/seatcore/internal/service/shows"
	"github.com/kirinyoku/seatcore/internal/spatial"
)

var baseTime = time.Date(2026, 8, 30, 19, 0, 0, 0, time.UTC)

const showID = int64(7)

type fakeSnaps struct {
	snap *shows.Snapshot
}

func (f *fakeSnaps) Get(_ context.Context, id int64) (*shows.Snapshot, error) {
	if id != f.snap.Show.ID {
		return nil, fmt.Errorf("fake: %w", shows.ErrShowNotFound)
	}
	return f.snap, nil
}

// fixture is a two-row grid (st-A-1..5, st-B-1..5), an in-memory store
// seeded with all ten seats, and a service whose clock tests can move.
type fixture struct {
	svc   *Service
	store *memory.ReservationStore
	now   *time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	spec := domain.LayoutSpec{
		VenueID: 1,
		Sections: []domain.SectionDescriptor{
			{
				ID:       "st",
				Name:     "Stalls",
				Shape:    domain.ShapeGrid,
				Capacity: 10,
				Grid: &domain.GridParams{
					RowCount:    2,
					SeatsPerRow: 5,
					SeatSpacing: 10,
					RowSpacing:  10,
				},
			},
		},
	}

	l, err := layout.Compile(spec, 1)
	require.NoError(t, err)

	lsnap := &layouts.Snapshot{
		Layout: l,
		Index:  spatial.Build(l),
		Seats:  make(map[string]domain.Seat),
	}
	var seatIDs []string
	for i := range l.Sections {
		for _, seat := range l.Sections[i].Seats {
			lsnap.Seats[seat.ID] = seat
			seatIDs = append(seatIDs, seat.ID)
		}
	}

	codes, err := seatcode.Build(l, seatcode.CodeSpace{}, nil)
	require.NoError(t, err)

	snap := &shows.Snapshot{
		Show:     domain.Show{ID: showID, VenueID: 1, LayoutVersion: 1},
		Snapshot: lsnap,
		Codes:    codes,
	}

	now := baseTime
	store := memory.NewReservationStore()
	store.Now = func() time.Time { return now }

	_, err = store.InitInventory(context.Background(), showID, seatIDs)
	require.NoError(t, err)

	svc := New(&fakeSnaps{snap: snap}, store, nil, nil, nil, cfg)
	svc.Now = func() time.Time { return now }

	return &fixture{svc: svc, store: store, now: &now}
}

func (f *fixture) sell(t *testing.T, holder string, seatIDs ...string) {
	t.Helper()
	ctx := context.Background()

	for _, id := range seatIDs {
		_, err := f.store.Acquire(ctx, showID, id, holder, time.Minute)
		require.NoError(t, err)
	}
	require.NoError(t, f.store.ConfirmSale(ctx, showID, seatIDs, holder))
}

func TestAcquireHoldsGrantsBatch(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	holds, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-A-1", "st-A-2"}, time.Minute, "")
	require.NoError(t, err)
	require.Len(t, holds, 2)

	for _, h := range holds {
		assert.Equal(t, baseTime.Add(time.Minute), h.Expires)
	}

	states, err := f.store.States(ctx, showID, []string{"st-A-1", "st-A-2"})
	require.NoError(t, err)
	assert.Equal(t, domain.SeatHeld, states["st-A-1"].Status)
	assert.Equal(t, "u1", states["st-A-2"].Holder)
}

func TestAcquireHoldsRefreshesOwnHold(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-A-1"}, time.Minute, "")
	require.NoError(t, err)

	*f.now = f.now.Add(30 * time.Second)

	holds, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-A-1"}, time.Minute, "")
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(time.Minute), holds[0].Expires)
}

func TestAcquireHoldsRejectsOrphanWithAlternatives(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	// Row A: 1,2 sold, 4 held by someone else. Taking 3 would leave 5
	// with no available neighbor.
	f.sell(t, "x", "st-A-1", "st-A-2")
	_, err := f.store.Acquire(ctx, showID, "st-A-4", "rival", time.Minute)
	require.NoError(t, err)

	_, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-A-3"}, time.Minute, "")
	require.Error(t, err)

	var viol *rules.ViolationError
	require.ErrorAs(t, err, &viol)
	assert.Equal(t, rules.RuleOrphanSeat, viol.Rule)
	assert.NotEmpty(t, viol.Alternatives)

	// Nothing was written.
	states, err := f.store.States(ctx, showID, []string{"st-A-3"})
	require.NoError(t, err)
	assert.Equal(t, domain.SeatAvailable, states["st-A-3"].Status)
}

func TestAcquireHoldsAlternativesExcludeSoldRows(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	// Every seat in row B is sold; row A set up so a lone request for 3
	// strands 5 and no single seat anywhere is individually holdable.
	f.sell(t, "x", "st-B-1", "st-B-2", "st-B-3", "st-B-4", "st-B-5")
	f.sell(t, "x", "st-A-1", "st-A-2")
	_, err := f.store.Acquire(ctx, showID, "st-A-4", "rival", time.Minute)
	require.NoError(t, err)

	_, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-A-3"}, time.Minute, "")
	require.Error(t, err)

	var viol *rules.ViolationError
	require.ErrorAs(t, err, &viol)
	assert.Equal(t, rules.RuleOrphanSeat, viol.Rule)
	assert.Empty(t, viol.Alternatives, "sold seats must never be offered")
}

func TestAcquireHoldsAlternativesFromOtherRows(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	// Row B sold except seat 5; with row A blocked as above the only
	// individually holdable seat in the venue is st-B-5.
	f.sell(t, "x", "st-B-1", "st-B-2", "st-B-3", "st-B-4")
	f.sell(t, "x", "st-A-1", "st-A-2")
	_, err := f.store.Acquire(ctx, showID, "st-A-4", "rival", time.Minute)
	require.NoError(t, err)

	_, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-A-3"}, time.Minute, "")
	require.Error(t, err)

	var viol *rules.ViolationError
	require.ErrorAs(t, err, &viol)

	var ids []string
	for _, s := range viol.Alternatives {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"st-B-5"}, ids)
}

func TestAcquireHoldsPairAroundHeldSeatAccepted(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	f.sell(t, "x", "st-A-1", "st-A-2")
	_, err := f.store.Acquire(ctx, showID, "st-A-4", "rival", time.Minute)
	require.NoError(t, err)

	// {3,5} fills the row completely, so no seat is left stranded.
	holds, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-A-3", "st-A-5"}, time.Minute, "")
	require.NoError(t, err)
	assert.Len(t, holds, 2)
}

func TestAcquireHoldsCapacityRule(t *testing.T) {
	f := newFixture(t, Config{Rules: rules.Config{MaxSeatsPerHolder: 2}})
	ctx := context.Background()

	_, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1", "st-B-2"}, time.Minute, "")
	require.NoError(t, err)

	_, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-4"}, time.Minute, "")
	require.Error(t, err)

	var viol *rules.ViolationError
	require.ErrorAs(t, err, &viol)
	assert.Equal(t, rules.RuleCapacity, viol.Rule)
}

func TestAcquireHoldsCapacityCountsRefreshOnce(t *testing.T) {
	f := newFixture(t, Config{Rules: rules.Config{MaxSeatsPerHolder: 2}})
	ctx := context.Background()

	_, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1", "st-B-2"}, time.Minute, "")
	require.NoError(t, err)

	// Re-requesting the same two seats is a refresh, not new capacity.
	_, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1", "st-B-2"}, time.Minute, "")
	require.NoError(t, err)
}

func TestAcquireHoldsRollsBackOnStoreConflict(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.store.Acquire(ctx, showID, "st-B-2", "rival", time.Minute)
	require.NoError(t, err)

	_, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1", "st-B-2"}, time.Minute, "")
	require.ErrorIs(t, err, ErrSeatsUnavailable)

	// The seat u1 won before the conflict was returned.
	states, err := f.store.States(ctx, showID, []string{"st-B-1", "st-B-2"})
	require.NoError(t, err)
	assert.Equal(t, domain.SeatAvailable, states["st-B-1"].Status)
	assert.Equal(t, "rival", states["st-B-2"].Holder)
}

func TestAcquireHoldsValidation(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.AcquireHolds(ctx, showID, "u1", nil, time.Minute, "")
	assert.ErrorIs(t, err, ErrNoSeats)

	_, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-A-1", "st-A-1"}, time.Minute, "")
	assert.ErrorIs(t, err, ErrDuplicateSeats)

	_, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-Z-9"}, time.Minute, "")
	assert.ErrorIs(t, err, ErrUnknownSeat)

	_, err = f.svc.AcquireHolds(ctx, 99, "u1", []string{"st-A-1"}, time.Minute, "")
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestAcquireHoldsClampsTTL(t *testing.T) {
	f := newFixture(t, Config{MinHoldTTL: 30 * time.Second, MaxHoldTTL: time.Minute})
	ctx := context.Background()

	holds, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1"}, time.Second, "")
	require.NoError(t, err)
	assert.Equal(t, baseTime.Add(30*time.Second), holds[0].Expires)

	holds, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-2"}, time.Hour, "")
	require.NoError(t, err)
	assert.Equal(t, baseTime.Add(time.Minute), holds[0].Expires)
}

func TestReleaseThenReacquire(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1"}, time.Minute, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Release(ctx, showID, "u1", []string{"st-B-1"}))

	_, err = f.svc.AcquireHolds(ctx, showID, "u2", []string{"st-B-1"}, time.Minute, "")
	require.NoError(t, err)
}

func TestConfirmSaleAllOrNothing(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.store.Acquire(ctx, showID, "st-B-1", "u1", time.Minute)
	require.NoError(t, err)
	_, err = f.store.Acquire(ctx, showID, "st-B-3", "u2", time.Minute)
	require.NoError(t, err)

	err = f.svc.ConfirmSale(ctx, showID, "u1", []string{"st-B-1", "st-B-3"})
	require.ErrorIs(t, err, repository.ErrConflict)

	var conflict *repository.ConfirmConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Failures, 1)
	assert.Equal(t, "st-B-3", conflict.Failures[0].SeatID)
	assert.Equal(t, repository.ReasonHeldByOther, conflict.Failures[0].Reason)

	// u1's own seat was not sold by the failed batch.
	states, err := f.store.States(ctx, showID, []string{"st-B-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SeatHeld, states["st-B-1"].Status)
}

func TestConfirmSaleHappyPath(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1", "st-B-2"}, time.Minute, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.ConfirmSale(ctx, showID, "u1", []string{"st-B-1", "st-B-2"}))

	counts, err := f.svc.Availability(ctx, showID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Sold)
	assert.Equal(t, int64(8), counts.Available)
}

func TestExpireFreesLapsedHolds(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1"}, time.Minute, "")
	require.NoError(t, err)

	*f.now = f.now.Add(time.Minute + time.Second)

	released, err := f.svc.Expire(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	counts, err := f.svc.Availability(ctx, showID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), counts.Available)
}

func TestExpiredHoldIsNoCapacity(t *testing.T) {
	f := newFixture(t, Config{Rules: rules.Config{MaxSeatsPerHolder: 1}})
	ctx := context.Background()

	_, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1"}, time.Minute, "")
	require.NoError(t, err)

	// After expiry the old hold no longer counts against the cap even
	// before any sweep runs.
	*f.now = f.now.Add(2 * time.Minute)

	_, err = f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-3"}, time.Minute, "")
	require.NoError(t, err)
}

func TestReleaseRequiresOwnership(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.AcquireHolds(ctx, showID, "u1", []string{"st-B-1"}, time.Minute, "")
	require.NoError(t, err)

	err = f.svc.Release(ctx, showID, "u2", []string{"st-B-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrNotOwner))
}
