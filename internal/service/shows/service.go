package shows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/repository"
	postgresrepo "github.com/kirinyoku/seatcore/internal/repository/postgres"
	"github.com/kirinyoku/seatcore/internal/seatcode"
	"github.com/kirinyoku/seatcore/internal/service/layouts"
	"github.com/kirinyoku/seatcore/internal/uow"
)

// Inventory seeds per-show seat records in the reservation store.
type Inventory interface {
	InitInventory(ctx context.Context, showID int64, seatIDs []string) (int64, error)
}

// Snapshot bundles everything per-show reads need: the show record, its
// pinned layout version and the external-code table built at
// scheduling time.
type Snapshot struct {
	Show domain.Show
	*layouts.Snapshot
	Codes *seatcode.Mapping
}

type Service struct {
	store   *postgresrepo.Store
	layouts *layouts.Service
	inv     Inventory
	uow     *uow.UoW

	mu    sync.RWMutex
	snaps map[int64]*Snapshot
}

func New(store *postgresrepo.Store, ls *layouts.Service, inv Inventory) *Service {
	return &Service{
		store:   store,
		layouts: ls,
		inv:     inv,
		uow:     uow.NewUoW(store),
		snaps:   make(map[int64]*Snapshot),
	}
}

// Schedule creates a show against the venue's active layout, builds its
// external-code table and seeds the show's seat inventory. The show
// pins the layout version it was scheduled with; later publishes do not
// affect it.
func (s *Service) Schedule(
	ctx context.Context,
	venueID int64,
	title string,
	starts, ends time.Time,
	space seatcode.CodeSpace,
	aliases seatcode.AliasTable,
) (*Snapshot, error) {
	const op = "service.shows.Schedule"

	lsnap, err := s.layouts.Active(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mapping, err := seatcode.Build(lsnap.Layout, space, aliases)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	show := domain.Show{
		VenueID:       venueID,
		LayoutVersion: lsnap.Layout.Version,
		Title:         title,
		Starts:        starts,
		Ends:          ends,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		id, err := s.store.Shows().With(tx).Create(ctx, &show)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrShowConflict)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		show.ID = id

		var pairs [][2]string
		mapping.Each(func(code, seatID string) {
			pairs = append(pairs, [2]string{code, seatID})
		})
		if len(pairs) > 0 {
			if err := s.store.SeatCodes().With(tx).BatchInsert(ctx, id, pairs); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Seeding is idempotent; if it fails the show row exists and the
	// caller may retry Schedule's effect by calling InitInventory again.
	seatIDs := make([]string, 0, len(lsnap.Seats))
	for id := range lsnap.Seats {
		seatIDs = append(seatIDs, id)
	}
	if _, err := s.inv.InitInventory(ctx, show.ID, seatIDs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snap := &Snapshot{Show: show, Snapshot: lsnap, Codes: mapping}

	s.mu.Lock()
	s.snaps[show.ID] = snap
	s.mu.Unlock()

	return snap, nil
}

// Get returns the show's snapshot, rebuilding it from storage on first
// use after a restart.
func (s *Service) Get(ctx context.Context, showID int64) (*Snapshot, error) {
	const op = "service.shows.Get"

	s.mu.RLock()
	if snap, ok := s.snaps[showID]; ok {
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	show, err := s.store.Shows().Get(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lsnap, err := s.layouts.Version(ctx, show.VenueID, show.LayoutVersion)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pairs, err := s.store.SeatCodes().LoadByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snap := &Snapshot{Show: *show, Snapshot: lsnap, Codes: seatcode.Restore(pairs)}

	s.mu.Lock()
	s.snaps[showID] = snap
	s.mu.Unlock()

	return snap, nil
}

// List lists upcoming shows ordered by start time.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Show, error) {
	const op = "service.shows.List"

	out, err := s.store.Shows().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
