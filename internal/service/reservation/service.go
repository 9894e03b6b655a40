package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/metrics"
	redisrepo "github.com/kirinyoku/seatcore/internal/repository/redis"
	"github.com/kirinyoku/seatcore/internal/rules"
	"github.com/kirinyoku/seatcore/internal/service/shows"
)

// Store is the conditional-write surface the service needs from the
// reservation store. Every mutation is atomic per seat; ConfirmSale is
// atomic across the whole batch.
type Store interface {
	Acquire(ctx context.Context, showID int64, seatID, holderID string, ttl time.Duration) (time.Time, error)
	Release(ctx context.Context, showID int64, seatID, holderID string) error
	ConfirmSale(ctx context.Context, showID int64, seatIDs []string, holderID string) error
	ExpireDue(ctx context.Context, limit int64) (int64, error)
	States(ctx context.Context, showID int64, seatIDs []string) (map[string]domain.SeatState, error)
	Counts(ctx context.Context, showID int64) (domain.ShowCounts, error)
	HeldBy(ctx context.Context, showID int64, holderID string) ([]string, error)
}

// Snapshots resolves a show to its layout, spatial index and code table.
type Snapshots interface {
	Get(ctx context.Context, showID int64) (*shows.Snapshot, error)
}

type Config struct {
	MinHoldTTL time.Duration
	MaxHoldTTL time.Duration

	Rules rules.Config

	// Alternatives search when the rule engine rejects a batch.
	AlternativesRadius float64
	AlternativesLimit  int

	// CountsCacheTTL bounds staleness of the cached availability counts.
	CountsCacheTTL time.Duration
}

type Service struct {
	snaps   Snapshots
	res     Store
	cache   *redisrepo.Cache
	pubsub  *redisrepo.SeatEventsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	cfg     Config

	// Now is the clock rule evaluation reads; tests may replace it.
	Now func() time.Time
}

// Hold is one granted seat hold.
type Hold struct {
	SeatID  string    `json:"seat_id"`
	Expires time.Time `json:"expires"`
}

func New(
	snaps Snapshots,
	res Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.SeatEventsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
) *Service {
	if cfg.MinHoldTTL <= 0 {
		cfg.MinHoldTTL = 15 * time.Second
	}

	if cfg.MaxHoldTTL <= 0 || cfg.MaxHoldTTL < cfg.MinHoldTTL {
		cfg.MaxHoldTTL = 5 * time.Minute
	}

	if cfg.AlternativesRadius <= 0 {
		cfg.AlternativesRadius = 100
	}

	if cfg.AlternativesLimit <= 0 {
		cfg.AlternativesLimit = 5
	}

	if cfg.CountsCacheTTL <= 0 {
		cfg.CountsCacheTTL = 2 * time.Second
	}

	return &Service{
		snaps:   snaps,
		res:     res,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		cfg:     cfg,
		Now:     time.Now,
	}
}

// AcquireHolds places a TTL hold on every requested seat for the
// holder. The batch is validated against the business rules first; on a
// rule violation the returned *rules.ViolationError carries alternative
// seats. Store acquisition is per seat; if any seat is lost to a
// concurrent holder, seats newly acquired by this call are released
// before returning, so a failed call leaves no partial batch behind.
// Re-requesting seats already held by the same holder refreshes their
// TTL.
func (s *Service) AcquireHolds(
	ctx context.Context,
	showID int64,
	holderID string,
	seatIDs []string,
	ttl time.Duration,
	rlKey string,
) ([]Hold, error) {
	const op = "service.reservation.AcquireHolds"

	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSeats)
	}

	seen := make(map[string]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%s: %s: %w", op, id, ErrDuplicateSeats)
		}
		seen[id] = struct{}{}
	}

	ttl = s.clampTTL(ttl)

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", op, &RateLimitedError{RetryAfter: retry})
		}
	}

	snap, err := s.snaps.Get(ctx, showID)
	if err != nil {
		if errors.Is(err, shows.ErrShowNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, id := range seatIDs {
		if _, ok := snap.Seats[id]; !ok {
			return nil, fmt.Errorf("%s: %s: %w", op, id, ErrUnknownSeat)
		}
	}

	prevHeld, err := s.res.HeldBy(ctx, showID, holderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	prev := make(map[string]struct{}, len(prevHeld))
	for _, id := range prevHeld {
		prev[id] = struct{}{}
	}

	alreadyHeld := 0
	for _, id := range prevHeld {
		if _, inBatch := seen[id]; !inBatch {
			alreadyHeld++
		}
	}

	req := rules.Request{
		HolderID:    holderID,
		SeatIDs:     seatIDs,
		AlreadyHeld: alreadyHeld,
		Now:         s.Now(),
	}
	req.States, err = s.rowStates(ctx, snap, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := rules.Evaluate(snap.Layout, req, s.cfg.Rules); err != nil {
		var viol *rules.ViolationError
		if errors.As(err, &viol) {
			from := s.centroid(snap, seatIDs)
			// The search spans rows the batch never touched, so the
			// row-scoped snapshot in req.States is not enough: reload
			// states for every row the search rect reaches, or a sold
			// seat there would be offered as available. If the reload
			// fails the rejection stands without alternatives.
			altReq := req
			if states, serr := s.alternativeStates(ctx, snap, seatIDs, from); serr == nil {
				altReq.States = states
				viol.Alternatives = rules.Alternatives(
					snap.Layout, snap.Index, altReq, s.cfg.Rules,
					from, s.cfg.AlternativesRadius, s.cfg.AlternativesLimit,
				)
			}
			metrics.TrackHoldOperation("acquire", "rejected_"+viol.Rule)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	start := time.Now()
	holds := make([]Hold, 0, len(seatIDs))

	for _, id := range seatIDs {
		expires, err := s.res.Acquire(ctx, showID, id, holderID, ttl)
		if err != nil {
			s.rollback(ctx, showID, holderID, holds, prev)
			metrics.TrackHoldOperation("acquire", "conflict")
			return nil, fmt.Errorf("%s: seat %s: %w: %w", op, id, ErrSeatsUnavailable, err)
		}
		holds = append(holds, Hold{SeatID: id, Expires: expires})
	}

	metrics.TrackHoldDuration("acquire", time.Since(start))
	metrics.TrackHoldOperation("acquire", "ok")
	s.notify(ctx, showID, seatIDs)

	return holds, nil
}

// Release returns the holder's holds on the given seats to available.
func (s *Service) Release(ctx context.Context, showID int64, holderID string, seatIDs []string) error {
	const op = "service.reservation.Release"

	if len(seatIDs) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoSeats)
	}

	var released []string
	for _, id := range seatIDs {
		if err := s.res.Release(ctx, showID, id, holderID); err != nil {
			if len(released) > 0 {
				s.notify(ctx, showID, released)
			}
			metrics.TrackHoldOperation("release", "failed")
			return fmt.Errorf("%s: seat %s: %w", op, id, err)
		}
		released = append(released, id)
	}

	metrics.TrackHoldOperation("release", "ok")
	s.notify(ctx, showID, released)

	return nil
}

// ConfirmSale converts the holder's live holds into sold, all seats or
// none. On conflict the returned *repository.ConfirmConflictError lists
// every failed seat with its reason and no seat changes state.
func (s *Service) ConfirmSale(ctx context.Context, showID int64, holderID string, seatIDs []string) error {
	const op = "service.reservation.ConfirmSale"

	if len(seatIDs) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoSeats)
	}

	start := time.Now()

	if err := s.res.ConfirmSale(ctx, showID, seatIDs, holderID); err != nil {
		metrics.TrackHoldOperation("confirm", "conflict")
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.TrackHoldDuration("confirm", time.Since(start))
	metrics.TrackHoldOperation("confirm", "ok")
	s.notify(ctx, showID, seatIDs)

	return nil
}

// Expire releases due holds across all shows, at most limit per call.
// Holds expiring at exactly the sweep instant are left alone.
func (s *Service) Expire(ctx context.Context, limit int64) (int64, error) {
	const op = "service.reservation.Expire"

	released, err := s.res.ExpireDue(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if released > 0 {
		metrics.TrackSweepReleased(released)
	}

	return released, nil
}

// Availability returns the show's availability counters, served from a
// short-lived cache when one is configured.
func (s *Service) Availability(ctx context.Context, showID int64) (domain.ShowCounts, error) {
	const op = "service.reservation.Availability"

	load := func(ctx context.Context) (domain.ShowCounts, error) {
		return s.res.Counts(ctx, showID)
	}

	var counts domain.ShowCounts
	var err error
	if s.cache != nil {
		counts, err = redisrepo.GetOrSetJSON(ctx, s.cache,
			redisrepo.KeyShowAvailability(showID), s.cfg.CountsCacheTTL, load)
	} else {
		counts, err = load(ctx)
	}
	if err != nil {
		return domain.ShowCounts{}, fmt.Errorf("%s: %w", op, err)
	}

	return counts, nil
}

// HeldBy lists the holder's live holds for a show.
func (s *Service) HeldBy(ctx context.Context, showID int64, holderID string) ([]string, error) {
	const op = "service.reservation.HeldBy"

	out, err := s.res.HeldBy(ctx, showID, holderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// rowStates loads the live state of every seat in the rows containing
// any of the given seats; the rule engine judges orphaning against
// whole rows.
func (s *Service) rowStates(ctx context.Context, snap *shows.Snapshot, seatIDs []string) (map[string]domain.SeatState, error) {
	type rowKey struct {
		section string
		row     string
	}

	touched := make(map[rowKey]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		seat := snap.Seats[id]
		touched[rowKey{seat.SectionID, seat.Row}] = struct{}{}
	}

	var ids []string
	for i := range snap.Layout.Sections {
		sec := &snap.Layout.Sections[i]
		for _, seat := range sec.Seats {
			if _, ok := touched[rowKey{seat.SectionID, seat.Row}]; ok {
				ids = append(ids, seat.ID)
			}
		}
	}

	return s.res.States(ctx, snap.Show.ID, ids)
}

// alternativeStates widens rowStates to every row reachable by the
// alternatives search around from, so candidates in other rows are
// judged against their real state.
func (s *Service) alternativeStates(
	ctx context.Context,
	snap *shows.Snapshot,
	seatIDs []string,
	from domain.Point,
) (map[string]domain.SeatState, error) {
	rect := domain.RectAround(from).Expand(s.cfg.AlternativesRadius)

	ids := make([]string, 0, len(seatIDs))
	ids = append(ids, seatIDs...)
	for _, seat := range snap.Index.SeatsIn(rect) {
		ids = append(ids, seat.ID)
	}

	return s.rowStates(ctx, snap, ids)
}

func (s *Service) centroid(snap *shows.Snapshot, seatIDs []string) domain.Point {
	var c domain.Point
	for _, id := range seatIDs {
		c.X += snap.Seats[id].Pos.X
		c.Y += snap.Seats[id].Pos.Y
	}
	n := float64(len(seatIDs))
	c.X /= n
	c.Y /= n
	return c
}

// rollback releases seats this call newly acquired. Seats the holder
// already held before the call keep their (refreshed) hold; their old
// deadline cannot be restored anyway.
func (s *Service) rollback(ctx context.Context, showID int64, holderID string, holds []Hold, prev map[string]struct{}) {
	for _, h := range holds {
		if _, held := prev[h.SeatID]; held {
			continue
		}
		_ = s.res.Release(ctx, showID, h.SeatID, holderID)
	}
}

func (s *Service) notify(ctx context.Context, showID int64, seatIDs []string) {
	if s.cache != nil {
		_ = s.cache.InvalidateShow(ctx, showID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishSeatsChanged(ctx, showID, seatIDs)
	}
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl < s.cfg.MinHoldTTL {
		return s.cfg.MinHoldTTL
	}

	if ttl > s.cfg.MaxHoldTTL {
		return s.cfg.MaxHoldTTL
	}

	return ttl
}
