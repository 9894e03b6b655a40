// Package rules validates candidate hold requests against the layout
// and the current reservation snapshot before the store commits them.
// The checks are pure functions so they can run in any handler without
// coordination; the store's atomic transition remains the arbiter of
// races.
package rules

import (
	"fmt"
	"sort"
	"time"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/spatial"
)

const (
	RuleOrphanSeat = "orphan_seat"
	RuleCapacity   = "capacity"
)

type Config struct {
	// MaxSeatsPerHolder caps a holder's total held seats, counting
	// both the candidate batch and seats they already hold.
	MaxSeatsPerHolder int

	// DisableOrphanCheck turns off the orphan-seat rule, for venues
	// that do not care about stranded singles.
	DisableOrphanCheck bool
}

// ViolationError names the violated rule and carries alternative seats
// that individually satisfy every rule, so the caller gets options
// instead of a bare failure.
type ViolationError struct {
	Rule         string
	SeatIDs      []string
	Alternatives []domain.Seat
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("rule %s violated for seats %v", e.Rule, e.SeatIDs)
}

// Request is one candidate hold batch with the snapshot it is judged
// against. States holds the live reservation record for every seat in
// the rows the batch touches; missing entries count as available.
type Request struct {
	HolderID    string
	SeatIDs     []string
	AlreadyHeld int
	States      map[string]domain.SeatState
	Now         time.Time
}

// Evaluate checks the batch against the capacity and orphan-seat rules.
// It returns nil when the batch may proceed to the store.
//
// Adjacency definition (fixed here, of the alternatives the source
// material leaves open): a seat's neighbors are seat number +-1 within
// the same row of the same section. Rows never connect across aisles or
// sections. An available seat is orphaned when it has at least one
// neighbor and every neighbor is unavailable; a seat with no neighbors
// (single-seat row) is never orphaned.
func Evaluate(l *domain.VenueLayout, req Request, cfg Config) error {
	if cfg.MaxSeatsPerHolder > 0 && len(req.SeatIDs)+req.AlreadyHeld > cfg.MaxSeatsPerHolder {
		return &ViolationError{Rule: RuleCapacity, SeatIDs: req.SeatIDs}
	}

	if cfg.DisableOrphanCheck {
		return nil
	}

	if orphan := findOrphan(l, req); orphan != "" {
		return &ViolationError{Rule: RuleOrphanSeat, SeatIDs: req.SeatIDs}
	}

	return nil
}

// findOrphan returns the ID of a seat the batch would strand, or "".
func findOrphan(l *domain.VenueLayout, req Request) string {
	requested := make(map[string]struct{}, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		requested[id] = struct{}{}
	}

	// Only rows touched by the request can change orphan-ness.
	type rowKey struct {
		section string
		row     string
	}
	touched := make(map[rowKey]struct{})
	for si := range l.Sections {
		for i := range l.Sections[si].Seats {
			s := &l.Sections[si].Seats[i]
			if _, ok := requested[s.ID]; ok {
				touched[rowKey{s.SectionID, s.Row}] = struct{}{}
			}
		}
	}

	unavailable := func(s *domain.Seat) bool {
		if _, ok := requested[s.ID]; ok {
			return true
		}
		st, ok := req.States[s.ID]
		if !ok {
			return false
		}
		return st.Status == domain.SeatSold || st.HeldLive(req.Now)
	}

	for si := range l.Sections {
		sec := &l.Sections[si]
		byNumber := make(map[rowKey]map[int]*domain.Seat)

		for i := range sec.Seats {
			s := &sec.Seats[i]
			k := rowKey{s.SectionID, s.Row}
			if _, ok := touched[k]; !ok {
				continue
			}
			if byNumber[k] == nil {
				byNumber[k] = make(map[int]*domain.Seat)
			}
			byNumber[k][s.Number] = s
		}

		for _, row := range byNumber {
			for _, s := range row {
				if unavailable(s) {
					continue
				}

				left, hasLeft := row[s.Number-1]
				right, hasRight := row[s.Number+1]
				if !hasLeft && !hasRight {
					continue
				}

				stranded := true
				if hasLeft && !unavailable(left) {
					stranded = false
				}
				if hasRight && !unavailable(right) {
					stranded = false
				}
				if stranded {
					return s.ID
				}
			}
		}
	}

	return ""
}

// Alternatives finds up to n available seats near from, each of which
// would individually pass Evaluate for the same holder. Used to enrich
// rule rejections.
func Alternatives(
	l *domain.VenueLayout,
	ix *spatial.Index,
	req Request,
	cfg Config,
	from domain.Point,
	radius float64,
	n int,
) []domain.Seat {
	if n <= 0 {
		return nil
	}

	candidates := ix.SeatsIn(domain.RectAround(from).Expand(radius))
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Pos.DistanceTo(from) < candidates[b].Pos.DistanceTo(from)
	})

	var out []domain.Seat
	for _, s := range candidates {
		if s.Pos.DistanceTo(from) > radius {
			continue
		}
		if st, ok := req.States[s.ID]; ok {
			if st.Status == domain.SeatSold || st.HeldLive(req.Now) {
				continue
			}
		}

		single := Request{
			HolderID:    req.HolderID,
			SeatIDs:     []string{s.ID},
			AlreadyHeld: req.AlreadyHeld,
			States:      req.States,
			Now:         req.Now,
		}
		if Evaluate(l, single, cfg) != nil {
			continue
		}

		out = append(out, s)
		if len(out) == n {
			break
		}
	}

	return out
}
