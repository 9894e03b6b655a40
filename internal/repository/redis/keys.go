package redis

import "fmt"

const ns = "seatcore:v1"

// KeySeat is the per-seat reservation record: a hash with fields
// state, holder, expires_ms. One key per seat is what keeps unrelated
// seats from contending with each other.
func KeySeat(showID int64, seatID string) string {
	return fmt.Sprintf("%s:show:%d:seat:%s", ns, showID, seatID)
}

// KeyCounts is the per-show availability counter hash
// (available/held/sold), maintained by the same scripts that move seats.
func KeyCounts(showID int64) string {
	return fmt.Sprintf("%s:show:%d:counts", ns, showID)
}

// KeyHolderSeats is the set of seat IDs currently held by one holder
// within a show.
func KeyHolderSeats(showID int64, holderID string) string {
	return KeyHolderPrefix(showID) + holderID
}

// KeyHolderPrefix is passed into scripts that must derive another
// holder's set key (stealing an expired hold, expiry sweep).
func KeyHolderPrefix(showID int64) string {
	return fmt.Sprintf("%s:show:%d:holder:", ns, showID)
}

// KeyHoldDeadlines is the global sorted set of hold deadlines, scored
// by expiry in unix milliseconds. Members are "showID|seatID".
func KeyHoldDeadlines() string {
	return ns + ":hold_deadlines"
}

func KeyShowAvailability(showID int64) string {
	return fmt.Sprintf("%s:show:%d:availability", ns, showID)
}

func KeyShowSeatMap(showID int64) string {
	return fmt.Sprintf("%s:show:%d:seatmap", ns, showID)
}

func KeyShowSectionCounts(showID int64) string {
	return fmt.Sprintf("%s:show:%d:sections", ns, showID)
}

func KeyIdemHold(showID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:holds:%d:%s", ns, showID, idemKey)
}

func ChannelSeatsChanged() string {
	return ns + ":seats:changed"
}

// DeadlineMember encodes a ZSET member for one seat's hold deadline.
func DeadlineMember(showID int64, seatID string) string {
	return fmt.Sprintf("%d|%s", showID, seatID)
}
