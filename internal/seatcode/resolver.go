// Package seatcode maps the bounded space of externally-issued seat
// codes onto a show's internal seats. Codes look like "sideA-1-2"
// (section tag, row, seat) and are more uniform than the venue's real
// sections, so the mapping is built once per show from a static alias
// table and is thereafter a pure O(1) lookup.
package seatcode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kirinyoku/seatcore/internal/domain"
)

var (
	// ErrCodeUnmapped is returned for codes outside the show's built
	// mapping. Unknown codes never silently default to any seat.
	ErrCodeUnmapped = errors.New("seat code is not mapped")

	// ErrCodeSpaceTooLarge means the layout has fewer seats than the
	// code space needs, even with fan-in.
	ErrCodeSpaceTooLarge = errors.New("code space exceeds total seat capacity")
)

// CodeSpace is the fixed cross product of codes a client can generate:
// every tag combined with rows 1..Rows and seats 1..SeatsPerRow.
type CodeSpace struct {
	Tags        []string `json:"tags"`
	Rows        int      `json:"rows"`
	SeatsPerRow int      `json:"seats_per_row"`
}

func (cs CodeSpace) Size() int {
	return len(cs.Tags) * cs.Rows * cs.SeatsPerRow
}

// Code renders the canonical external form of one code.
func Code(tag string, row, seat int) string {
	return fmt.Sprintf("%s-%d-%d", tag, row, seat)
}

type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
)

// AliasRule binds an external section tag to internal sections by name.
// Matching is consulted only while building a mapping, never at lookup.
type AliasRule struct {
	Tag     string    `json:"tag"`
	Match   MatchKind `json:"match"`
	Pattern string    `json:"pattern"`
}

func (r AliasRule) matches(sectionName string) bool {
	name := strings.ToLower(sectionName)
	pat := strings.ToLower(r.Pattern)
	switch r.Match {
	case MatchSubstring:
		return strings.Contains(name, pat)
	default:
		return name == pat
	}
}

// AliasTable is the static, versioned tag-to-section binding for a venue.
type AliasTable []AliasRule

func (t AliasTable) rulesFor(tag string) []AliasRule {
	var out []AliasRule
	for _, r := range t {
		if r.Tag == tag {
			out = append(out, r)
		}
	}
	return out
}

// Mapping is the immutable result of a build: an injective table from
// every code in the space to an internal seat ID.
type Mapping struct {
	bySeat map[string]string
	byCode map[string]string
	codes  []string // build order, for deterministic persistence
}

// Resolve is the read path: exact O(1) lookup, ErrCodeUnmapped otherwise.
func (m *Mapping) Resolve(code string) (string, error) {
	seatID, ok := m.byCode[code]
	if !ok {
		return "", fmt.Errorf("seatcode.Resolve: %q: %w", code, ErrCodeUnmapped)
	}
	return seatID, nil
}

// CodeFor is the reverse lookup, used for display.
func (m *Mapping) CodeFor(seatID string) (string, bool) {
	code, ok := m.bySeat[seatID]
	return code, ok
}

func (m *Mapping) Len() int { return len(m.byCode) }

// Each visits every (code, seatID) pair in build order.
func (m *Mapping) Each(fn func(code, seatID string)) {
	for _, c := range m.codes {
		fn(c, m.byCode[c])
	}
}

// Build walks the code space in row-major order per tag, assigning each
// code to the next unassigned seat of the tag's alias-matched sections.
// Codes that exhaust their matched sections are assigned, in code order,
// to the show's first unassigned seats from any section, so the code
// space never has fewer destinations than it needs while total capacity
// suffices. Deterministic and idempotent: rebuilding yields the same table.
func Build(l *domain.VenueLayout, space CodeSpace, aliases AliasTable) (*Mapping, error) {
	const op = "seatcode.Build"

	if space.Size() > l.SeatCount() {
		return nil, fmt.Errorf("%s: %d codes for %d seats: %w",
			op, space.Size(), l.SeatCount(), ErrCodeSpaceTooLarge)
	}

	m := &Mapping{
		bySeat: make(map[string]string, space.Size()),
		byCode: make(map[string]string, space.Size()),
		codes:  make([]string, 0, space.Size()),
	}

	assigned := make(map[string]struct{}, space.Size())
	var overflow []string

	for _, tag := range space.Tags {
		pool := matchedSeats(l, aliases.rulesFor(tag))
		next := 0

		for row := 1; row <= space.Rows; row++ {
			for seat := 1; seat <= space.SeatsPerRow; seat++ {
				code := Code(tag, row, seat)

				for next < len(pool) {
					if _, taken := assigned[pool[next].ID]; !taken {
						break
					}
					next++
				}

				if next >= len(pool) {
					overflow = append(overflow, code)
					continue
				}

				m.assign(code, pool[next].ID, assigned)
				next++
			}
		}
	}

	// Fan-in: spill overflow codes into the first unassigned seats of
	// the whole layout, in layout order.
	if len(overflow) > 0 {
		all := allSeats(l)
		next := 0
		for _, code := range overflow {
			for next < len(all) {
				if _, taken := assigned[all[next].ID]; !taken {
					break
				}
				next++
			}
			if next >= len(all) {
				return nil, fmt.Errorf("%s: %w", op, ErrCodeSpaceTooLarge)
			}
			m.assign(code, all[next].ID, assigned)
			next++
		}
	}

	return m, nil
}

// Restore rebuilds a Mapping from persisted pairs, preserving order.
func Restore(pairs [][2]string) *Mapping {
	m := &Mapping{
		bySeat: make(map[string]string, len(pairs)),
		byCode: make(map[string]string, len(pairs)),
		codes:  make([]string, 0, len(pairs)),
	}
	for _, p := range pairs {
		m.byCode[p[0]] = p[1]
		m.bySeat[p[1]] = p[0]
		m.codes = append(m.codes, p[0])
	}
	return m
}

func (m *Mapping) assign(code, seatID string, assigned map[string]struct{}) {
	m.byCode[code] = seatID
	m.bySeat[seatID] = code
	m.codes = append(m.codes, code)
	assigned[seatID] = struct{}{}
}

// matchedSeats collects the seats of all sections matched by the tag's
// rules, in layout order.
func matchedSeats(l *domain.VenueLayout, rules []AliasRule) []domain.Seat {
	if len(rules) == 0 {
		return nil
	}

	var out []domain.Seat
	for si := range l.Sections {
		for _, r := range rules {
			if r.matches(l.Sections[si].Name) {
				out = append(out, l.Sections[si].Seats...)
				break
			}
		}
	}
	return out
}

func allSeats(l *domain.VenueLayout) []domain.Seat {
	out := make([]domain.Seat, 0, l.SeatCount())
	for si := range l.Sections {
		out = append(out, l.Sections[si].Seats...)
	}
	return out
}
