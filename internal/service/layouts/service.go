package layouts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/layout"
	"github.com/kirinyoku/seatcore/internal/repository"
	postgresrepo "github.com/kirinyoku/seatcore/internal/repository/postgres"
	"github.com/kirinyoku/seatcore/internal/spatial"
	"github.com/kirinyoku/seatcore/internal/uow"
)

// Snapshot is one compiled layout version together with the structures
// built from it. All fields are immutable once published.
type Snapshot struct {
	Layout *domain.VenueLayout
	Index  *spatial.Index
	Seats  map[string]domain.Seat
}

type verKey struct {
	venue   int64
	version int
}

type Service struct {
	store *postgresrepo.Store
	uow   *uow.UoW

	mu     sync.RWMutex
	byVer  map[verKey]*Snapshot
	active map[int64]int
}

func New(store *postgresrepo.Store) *Service {
	return &Service{
		store:  store,
		uow:    uow.NewUoW(store),
		byVer:  make(map[verKey]*Snapshot),
		active: make(map[int64]int),
	}
}

// Publish compiles a descriptor into a new layout version, persists it
// and makes it the venue's active version in one transaction. Existing
// versions are never touched; shows scheduled against them keep working.
//
// Compile failures (capacity mismatch, seat collision) abort before
// anything is written and surface their typed errors unchanged.
func (s *Service) Publish(ctx context.Context, spec domain.LayoutSpec) (*Snapshot, error) {
	const op = "service.layouts.Publish"

	var compiled *domain.VenueLayout

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		version, err := s.store.Layouts().With(tx).NextVersion(ctx, spec.VenueID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		compiled, err = layout.Compile(spec, version)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.store.Layouts().With(tx).SaveVersion(ctx, compiled); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrVersionConflict)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.store.Layouts().With(tx).Activate(ctx, spec.VenueID, compiled.Version); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.remember(compiled, true), nil
}

// Active returns the venue's active layout snapshot, building it from
// storage on first use.
func (s *Service) Active(ctx context.Context, venueID int64) (*Snapshot, error) {
	const op = "service.layouts.Active"

	s.mu.RLock()
	if v, ok := s.active[venueID]; ok {
		snap := s.byVer[verKey{venueID, v}]
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	l, err := s.store.Layouts().GetActive(ctx, venueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrLayoutNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.remember(l, true), nil
}

// Version returns one specific layout version. Shows pin the version
// they were scheduled against and read it through here even after the
// venue publishes newer layouts.
func (s *Service) Version(ctx context.Context, venueID int64, version int) (*Snapshot, error) {
	const op = "service.layouts.Version"

	s.mu.RLock()
	if snap, ok := s.byVer[verKey{venueID, version}]; ok {
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	l, err := s.store.Layouts().GetVersion(ctx, venueID, version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrLayoutNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.remember(l, false), nil
}

func (s *Service) remember(l *domain.VenueLayout, markActive bool) *Snapshot {
	snap := &Snapshot{
		Layout: l,
		Index:  spatial.Build(l),
		Seats:  make(map[string]domain.Seat, l.SeatCount()),
	}
	for i := range l.Sections {
		for _, seat := range l.Sections[i].Seats {
			snap.Seats[seat.ID] = seat
		}
	}

	s.mu.Lock()
	s.byVer[verKey{l.VenueID, l.Version}] = snap
	if markActive {
		s.active[l.VenueID] = l.Version
	}
	s.mu.Unlock()

	return snap
}
