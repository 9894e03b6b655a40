package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/seatcore/internal/domain"
	redisrepo "github.com/kirinyoku/seatcore/internal/repository/redis"
	"github.com/kirinyoku/seatcore/internal/seatcode"
	"github.com/kirinyoku/seatcore/internal/service/shows"
)

// States is the read-only slice of the reservation store the query
// service needs.
type States interface {
	States(ctx context.Context, showID int64, seatIDs []string) (map[string]domain.SeatState, error)
}

// Snapshots resolves a show to its layout, spatial index and code table.
type Snapshots interface {
	Get(ctx context.Context, showID int64) (*shows.Snapshot, error)
}

type Config struct {
	// SeatMapCacheTTL bounds staleness of the cached full seat map.
	SeatMapCacheTTL time.Duration
}

type Service struct {
	snaps Snapshots
	res   States
	cache *redisrepo.Cache
	cfg   Config
}

// SeatView is a seat with its live reservation status. Holds look
// identical to available seats once expired.
type SeatView struct {
	domain.Seat
	Status domain.SeatStatus `json:"status"`
}

func New(snaps Snapshots, res States, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.SeatMapCacheTTL <= 0 {
		cfg.SeatMapCacheTTL = 5 * time.Second
	}

	return &Service{
		snaps: snaps,
		res:   res,
		cache: cache,
		cfg:   cfg,
	}
}

// Viewport returns the seats whose coordinates fall inside the
// rectangle, edges inclusive, with their live status. An empty region
// yields an empty slice, not an error.
func (s *Service) Viewport(ctx context.Context, showID int64, r domain.Rect) ([]SeatView, error) {
	const op = "service.query.Viewport"

	snap, err := s.snapshot(ctx, op, showID)
	if err != nil {
		return nil, err
	}

	seats := snap.Index.SeatsIn(r)
	return s.withStates(ctx, op, showID, seats)
}

// Nearest returns the closest seat to the point within radius, with
// ties broken deterministically by seat identity.
func (s *Service) Nearest(ctx context.Context, showID int64, p domain.Point, radius float64) (*SeatView, error) {
	const op = "service.query.Nearest"

	snap, err := s.snapshot(ctx, op, showID)
	if err != nil {
		return nil, err
	}

	seat, ok := snap.Index.Nearest(p, radius)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSeatNearby)
	}

	views, err := s.withStates(ctx, op, showID, []domain.Seat{seat})
	if err != nil {
		return nil, err
	}

	return &views[0], nil
}

// Resolve maps an external seat code to its seat and live status.
func (s *Service) Resolve(ctx context.Context, showID int64, code string) (*SeatView, error) {
	const op = "service.query.Resolve"

	snap, err := s.snapshot(ctx, op, showID)
	if err != nil {
		return nil, err
	}

	seatID, err := snap.Codes.Resolve(code)
	if err != nil {
		if errors.Is(err, seatcode.ErrCodeUnmapped) {
			return nil, fmt.Errorf("%s: %q: %w", op, code, ErrCodeUnknown)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seat, ok := snap.Seats[seatID]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", op, seatID, ErrSeatNotFound)
	}

	views, err := s.withStates(ctx, op, showID, []domain.Seat{seat})
	if err != nil {
		return nil, err
	}

	return &views[0], nil
}

// CodeFor returns the external code assigned to a seat for this show.
func (s *Service) CodeFor(ctx context.Context, showID int64, seatID string) (string, error) {
	const op = "service.query.CodeFor"

	snap, err := s.snapshot(ctx, op, showID)
	if err != nil {
		return "", err
	}

	code, ok := snap.Codes.CodeFor(seatID)
	if !ok {
		return "", fmt.Errorf("%s: %s: %w", op, seatID, ErrSeatNotFound)
	}

	return code, nil
}

// Layout returns the show's pinned immutable layout, viewport included.
func (s *Service) Layout(ctx context.Context, showID int64) (*domain.VenueLayout, error) {
	const op = "service.query.Layout"

	snap, err := s.snapshot(ctx, op, showID)
	if err != nil {
		return nil, err
	}

	return snap.Layout, nil
}

// SeatMap returns every seat of the show with its live status, served
// from a short-lived cache when one is configured.
func (s *Service) SeatMap(ctx context.Context, showID int64) ([]SeatView, error) {
	const op = "service.query.SeatMap"

	load := func(ctx context.Context) ([]SeatView, error) {
		snap, err := s.snapshot(ctx, op, showID)
		if err != nil {
			return nil, err
		}
		return s.withStates(ctx, op, showID, snap.Index.SeatsIn(snap.Layout.Viewport))
	}

	if s.cache == nil {
		return load(ctx)
	}

	return redisrepo.GetOrSetJSON(ctx, s.cache,
		redisrepo.KeyShowSeatMap(showID), s.cfg.SeatMapCacheTTL, load)
}

// SectionCounts is one section's capacity broken down by live status,
// for display alongside the seat map.
type SectionCounts struct {
	SectionID string `json:"section_id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
	Held      int    `json:"held"`
	Sold      int    `json:"sold"`
}

// SectionAvailability returns per-section counts in layout order,
// served from a short-lived cache when one is configured.
func (s *Service) SectionAvailability(ctx context.Context, showID int64) ([]SectionCounts, error) {
	const op = "service.query.SectionAvailability"

	load := func(ctx context.Context) ([]SectionCounts, error) {
		snap, err := s.snapshot(ctx, op, showID)
		if err != nil {
			return nil, err
		}

		out := make([]SectionCounts, 0, len(snap.Layout.Sections))
		for i := range snap.Layout.Sections {
			sec := &snap.Layout.Sections[i]

			views, err := s.withStates(ctx, op, showID, sec.Seats)
			if err != nil {
				return nil, err
			}

			sc := SectionCounts{SectionID: sec.ID, Name: sec.Name, Capacity: sec.Capacity}
			for _, v := range views {
				switch v.Status {
				case domain.SeatSold:
					sc.Sold++
				case domain.SeatHeld:
					sc.Held++
				default:
					sc.Available++
				}
			}
			out = append(out, sc)
		}

		return out, nil
	}

	if s.cache == nil {
		return load(ctx)
	}

	return redisrepo.GetOrSetJSON(ctx, s.cache,
		redisrepo.KeyShowSectionCounts(showID), s.cfg.SeatMapCacheTTL, load)
}

func (s *Service) snapshot(ctx context.Context, op string, showID int64) (*shows.Snapshot, error) {
	snap, err := s.snaps.Get(ctx, showID)
	if err != nil {
		if errors.Is(err, shows.ErrShowNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}

func (s *Service) withStates(ctx context.Context, op string, showID int64, seats []domain.Seat) ([]SeatView, error) {
	views := make([]SeatView, 0, len(seats))
	if len(seats) == 0 {
		return views, nil
	}

	ids := make([]string, len(seats))
	for i, seat := range seats {
		ids[i] = seat.ID
	}

	states, err := s.res.States(ctx, showID, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	for _, seat := range seats {
		status := domain.SeatAvailable
		if st, ok := states[seat.ID]; ok {
			switch {
			case st.Status == domain.SeatSold:
				status = domain.SeatSold
			case st.HeldLive(now):
				status = domain.SeatHeld
			}
		}
		views = append(views, SeatView{Seat: seat, Status: status})
	}

	return views, nil
}
