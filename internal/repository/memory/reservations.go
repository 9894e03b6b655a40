// Package memory holds an in-process ReservationStore with the same
// contract as the Redis one. It backs tests that need a controllable
// clock and real goroutine contention; production always runs the
// Redis store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/repository"
)

type seatRecord struct {
	status  domain.SeatStatus
	holder  string
	expires time.Time
}

type ReservationStore struct {
	mu    sync.Mutex
	shows map[int64]map[string]*seatRecord

	// Now is the store's clock; tests may replace it.
	Now func() time.Time
}

func NewReservationStore() *ReservationStore {
	return &ReservationStore{
		shows: make(map[int64]map[string]*seatRecord),
		Now:   time.Now,
	}
}

func (s *ReservationStore) InitInventory(_ context.Context, showID int64, seatIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seats := s.shows[showID]
	if seats == nil {
		seats = make(map[string]*seatRecord, len(seatIDs))
		s.shows[showID] = seats
	}

	var created int64
	for _, id := range seatIDs {
		if _, ok := seats[id]; ok {
			continue
		}
		seats[id] = &seatRecord{status: domain.SeatAvailable}
		created++
	}

	return created, nil
}

func (s *ReservationStore) Acquire(
	_ context.Context,
	showID int64,
	seatID, holderID string,
	ttl time.Duration,
) (time.Time, error) {
	const op = "memory.ReservationStore.Acquire"

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shows[showID][seatID]
	if !ok {
		return time.Time{}, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	now := s.Now()
	switch {
	case rec.status == domain.SeatSold:
		return time.Time{}, fmt.Errorf("%s:%w", op, repository.ErrSeatSold)
	case rec.status == domain.SeatHeld && rec.holder != holderID && !rec.expires.Before(now):
		return time.Time{}, fmt.Errorf("%s:%w", op, repository.ErrSeatUnavailable)
	}

	rec.status = domain.SeatHeld
	rec.holder = holderID
	rec.expires = now.Add(ttl)

	return rec.expires, nil
}

func (s *ReservationStore) Release(_ context.Context, showID int64, seatID, holderID string) error {
	const op = "memory.ReservationStore.Release"

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.shows[showID][seatID]
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	switch {
	case rec.status == domain.SeatSold:
		return fmt.Errorf("%s:%w", op, repository.ErrSeatSold)
	case rec.status != domain.SeatHeld:
		return fmt.Errorf("%s:%w", op, repository.ErrSeatUnavailable)
	case rec.holder != holderID:
		return fmt.Errorf("%s:%w", op, repository.ErrNotOwner)
	}

	rec.status = domain.SeatAvailable
	rec.holder = ""
	rec.expires = time.Time{}

	return nil
}

func (s *ReservationStore) ConfirmSale(_ context.Context, showID int64, seatIDs []string, holderID string) error {
	const op = "memory.ReservationStore.ConfirmSale"

	if len(seatIDs) == 0 {
		return fmt.Errorf("%s: empty batch", op)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	var failures []repository.SeatFailure
	for _, id := range seatIDs {
		rec, ok := s.shows[showID][id]
		switch {
		case !ok:
			failures = append(failures, repository.SeatFailure{SeatID: id, Reason: repository.ReasonNotFound})
		case rec.status == domain.SeatSold:
			failures = append(failures, repository.SeatFailure{SeatID: id, Reason: repository.ReasonSold})
		case rec.status != domain.SeatHeld:
			failures = append(failures, repository.SeatFailure{SeatID: id, Reason: repository.ReasonNotHeld})
		case rec.holder != holderID:
			failures = append(failures, repository.SeatFailure{SeatID: id, Reason: repository.ReasonHeldByOther})
		case rec.expires.Before(now):
			failures = append(failures, repository.SeatFailure{SeatID: id, Reason: repository.ReasonExpired})
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%s:%w", op, &repository.ConfirmConflictError{Failures: failures})
	}

	for _, id := range seatIDs {
		rec := s.shows[showID][id]
		rec.status = domain.SeatSold
		rec.holder = ""
		rec.expires = time.Time{}
	}

	return nil
}

func (s *ReservationStore) ExpireDue(_ context.Context, limit int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 200
	}

	now := s.Now()
	var released int64
	for _, seats := range s.shows {
		for _, rec := range seats {
			if released >= limit {
				return released, nil
			}
			if rec.status == domain.SeatHeld && rec.expires.Before(now) {
				rec.status = domain.SeatAvailable
				rec.holder = ""
				rec.expires = time.Time{}
				released++
			}
		}
	}

	return released, nil
}

func (s *ReservationStore) States(_ context.Context, showID int64, seatIDs []string) (map[string]domain.SeatState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.SeatState, len(seatIDs))
	for _, id := range seatIDs {
		rec, ok := s.shows[showID][id]
		if !ok {
			continue
		}
		out[id] = domain.SeatState{
			SeatID:  id,
			Status:  rec.status,
			Holder:  rec.holder,
			Expires: rec.expires,
		}
	}

	return out, nil
}

func (s *ReservationStore) Counts(_ context.Context, showID int64) (domain.ShowCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seats, ok := s.shows[showID]
	if !ok {
		return domain.ShowCounts{}, fmt.Errorf("memory.ReservationStore.Counts:%w", repository.ErrNotFound)
	}

	var c domain.ShowCounts
	for _, rec := range seats {
		switch rec.status {
		case domain.SeatHeld:
			c.Held++
		case domain.SeatSold:
			c.Sold++
		default:
			c.Available++
		}
	}
	c.Total = c.Available + c.Held + c.Sold

	return c, nil
}

func (s *ReservationStore) HeldBy(_ context.Context, showID int64, holderID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	var out []string
	for id, rec := range s.shows[showID] {
		if rec.status == domain.SeatHeld && rec.holder == holderID && !rec.expires.Before(now) {
			out = append(out, id)
		}
	}
	sort.Strings(out)

	return out, nil
}
