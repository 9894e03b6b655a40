package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/repository"
)

// Every seat transition is one Lua script over that seat's key, which
// is the atomic conditional-write primitive the whole state machine
// rests on: concurrent callers for one seat serialize inside Redis,
// callers for different seats never touch the same key.
//
// Seat hash fields: state (available|held|sold), holder, expires_ms.
// The scripts also maintain the per-show counter hash, the holder seat
// sets and the global deadline ZSET so reads stay O(1).

// KEYS: 1 seat, 2 deadlines, 3 counts, 4 this holder's set
// ARGV: 1 holder, 2 now_ms, 3 expires_ms, 4 zset member, 5 seat id,
//       6 holder set prefix
const luaAcquire = `
local state = redis.call('HGET', KEYS[1], 'state')
if not state then
  return {'err', 'not_found'}
end
if state == 'sold' then
  return {'err', 'sold'}
end
local holder = redis.call('HGET', KEYS[1], 'holder')
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires_ms') or '0')
if state == 'held' and holder ~= ARGV[1] and expires >= tonumber(ARGV[2]) then
  return {'err', 'held_by_other'}
end
if state == 'available' then
  redis.call('HINCRBY', KEYS[3], 'available', -1)
  redis.call('HINCRBY', KEYS[3], 'held', 1)
elseif holder ~= ARGV[1] then
  -- expired hold by someone else: take it over
  redis.call('SREM', ARGV[6] .. holder, ARGV[5])
end
redis.call('HSET', KEYS[1], 'state', 'held', 'holder', ARGV[1], 'expires_ms', ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[4])
redis.call('SADD', KEYS[4], ARGV[5])
return {'ok'}
`

// KEYS: 1 seat, 2 deadlines, 3 counts, 4 holder's set
// ARGV: 1 holder, 2 zset member, 3 seat id
const luaRelease = `
local state = redis.call('HGET', KEYS[1], 'state')
if not state then
  return {'err', 'not_found'}
end
if state == 'sold' then
  return {'err', 'sold'}
end
if state ~= 'held' then
  return {'err', 'not_held'}
end
if redis.call('HGET', KEYS[1], 'holder') ~= ARGV[1] then
  return {'err', 'not_owner'}
end
redis.call('HSET', KEYS[1], 'state', 'available')
redis.call('HDEL', KEYS[1], 'holder', 'expires_ms')
redis.call('ZREM', KEYS[2], ARGV[2])
redis.call('SREM', KEYS[4], ARGV[3])
redis.call('HINCRBY', KEYS[3], 'held', -1)
redis.call('HINCRBY', KEYS[3], 'available', 1)
return {'ok'}
`

// All-or-nothing batch confirm. The verify pass runs to completion
// before any write, so a single failed precondition leaves every seat
// untouched and the caller learns exactly which seats failed and why.
//
// KEYS: 1..n seats, n+1 deadlines, n+2 counts, n+3 holder's set
// ARGV: 1 holder, 2 now_ms, 3 member prefix ("<showID>|"), 4..3+n seat ids
const luaConfirm = `
local n = #KEYS - 3
local fails = {}
for i = 1, n do
  local state = redis.call('HGET', KEYS[i], 'state')
  local reason = false
  if not state then
    reason = 'not_found'
  elseif state == 'sold' then
    reason = 'sold'
  elseif state ~= 'held' then
    reason = 'not_held'
  else
    local holder = redis.call('HGET', KEYS[i], 'holder')
    local expires = tonumber(redis.call('HGET', KEYS[i], 'expires_ms') or '0')
    if holder ~= ARGV[1] then
      reason = 'held_by_other'
    elseif expires < tonumber(ARGV[2]) then
      reason = 'expired'
    end
  end
  if reason then
    fails[#fails + 1] = ARGV[3 + i]
    fails[#fails + 1] = reason
  end
end
if #fails > 0 then
  local res = {'conflict'}
  for i = 1, #fails do
    res[#res + 1] = fails[i]
  end
  return res
end
for i = 1, n do
  redis.call('HSET', KEYS[i], 'state', 'sold')
  redis.call('HDEL', KEYS[i], 'holder', 'expires_ms')
  redis.call('ZREM', KEYS[n + 1], ARGV[3] .. ARGV[3 + i])
  redis.call('SREM', KEYS[n + 3], ARGV[3 + i])
end
redis.call('HINCRBY', KEYS[n + 2], 'held', -n)
redis.call('HINCRBY', KEYS[n + 2], 'sold', n)
return {'ok'}
`

// Releases one seat iff its hold has expired. A hold refreshed since
// the sweeper read the deadline set is left alone, and its member keeps
// the new score from the refreshing ZADD.
//
// KEYS: 1 seat, 2 deadlines, 3 counts
// ARGV: 1 now_ms, 2 zset member, 3 seat id, 4 holder set prefix
const luaExpireOne = `
local state = redis.call('HGET', KEYS[1], 'state')
if state == 'held' then
  local expires = tonumber(redis.call('HGET', KEYS[1], 'expires_ms') or '0')
  if expires >= tonumber(ARGV[1]) then
    return 0
  end
  local holder = redis.call('HGET', KEYS[1], 'holder')
  redis.call('HSET', KEYS[1], 'state', 'available')
  redis.call('HDEL', KEYS[1], 'holder', 'expires_ms')
  redis.call('HINCRBY', KEYS[3], 'held', -1)
  redis.call('HINCRBY', KEYS[3], 'available', 1)
  if holder then
    redis.call('SREM', ARGV[4] .. holder, ARGV[3])
  end
  redis.call('ZREM', KEYS[2], ARGV[2])
  return 1
end
redis.call('ZREM', KEYS[2], ARGV[2])
return 0
`

const (
	storeRetries  = 3
	retryBackoff  = 50 * time.Millisecond
	sweepDefaults = 200
)

type ReservationStore struct {
	rdb     *redis.Client
	acquire *redis.Script
	release *redis.Script
	confirm *redis.Script
	expire  *redis.Script
}

func NewReservationStore(rdb *redis.Client) *ReservationStore {
	return &ReservationStore{
		rdb:     rdb,
		acquire: redis.NewScript(luaAcquire),
		release: redis.NewScript(luaRelease),
		confirm: redis.NewScript(luaConfirm),
		expire:  redis.NewScript(luaExpireOne),
	}
}

// InitInventory creates the per-seat records for a show in the
// available state. Idempotent: records that already exist are left
// untouched and not counted again. Returns the number created.
func (s *ReservationStore) InitInventory(ctx context.Context, showID int64, seatIDs []string) (int64, error) {
	const op = "redis.ReservationStore.InitInventory"

	pipe := s.rdb.Pipeline()
	created := make([]*redis.BoolCmd, len(seatIDs))
	for i, id := range seatIDs {
		created[i] = pipe.HSetNX(ctx, KeySeat(showID, id), "state", string(domain.SeatAvailable))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	var n int64
	for _, c := range created {
		if c.Val() {
			n++
		}
	}
	if n > 0 {
		if err := s.rdb.HIncrBy(ctx, KeyCounts(showID), "available", n).Err(); err != nil {
			return n, fmt.Errorf("%s:%w", op, err)
		}
	}

	return n, nil
}

// Acquire performs the atomic available->held transition. A re-acquire
// by the current owner refreshes the expiry; an expired hold is
// indistinguishable from an available seat.
func (s *ReservationStore) Acquire(
	ctx context.Context,
	showID int64,
	seatID, holderID string,
	ttl time.Duration,
) (time.Time, error) {
	const op = "redis.ReservationStore.Acquire"

	now := time.Now()
	expires := now.Add(ttl)

	res, err := s.runScript(ctx, s.acquire,
		[]string{
			KeySeat(showID, seatID),
			KeyHoldDeadlines(),
			KeyCounts(showID),
			KeyHolderSeats(showID, holderID),
		},
		holderID,
		now.UnixMilli(),
		expires.UnixMilli(),
		DeadlineMember(showID, seatID),
		seatID,
		KeyHolderPrefix(showID),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s:%w", op, err)
	}

	if reason, failed := scriptFailure(res); failed {
		return time.Time{}, fmt.Errorf("%s:%w", op, reasonErr(reason))
	}

	return expires, nil
}

// Release returns a held seat to available. Only the current owner may
// release; an owner may release an expired-but-unswept hold.
func (s *ReservationStore) Release(ctx context.Context, showID int64, seatID, holderID string) error {
	const op = "redis.ReservationStore.Release"

	res, err := s.runScript(ctx, s.release,
		[]string{
			KeySeat(showID, seatID),
			KeyHoldDeadlines(),
			KeyCounts(showID),
			KeyHolderSeats(showID, holderID),
		},
		holderID,
		DeadlineMember(showID, seatID),
		seatID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if reason, failed := scriptFailure(res); failed {
		return fmt.Errorf("%s:%w", op, reasonErr(reason))
	}

	return nil
}

// ConfirmSale transitions the whole batch held->sold in one script, or
// nothing at all: on any failed precondition it returns a
// ConfirmConflictError naming each failing seat.
func (s *ReservationStore) ConfirmSale(ctx context.Context, showID int64, seatIDs []string, holderID string) error {
	const op = "redis.ReservationStore.ConfirmSale"

	if len(seatIDs) == 0 {
		return fmt.Errorf("%s: empty batch", op)
	}

	keys := make([]string, 0, len(seatIDs)+3)
	for _, id := range seatIDs {
		keys = append(keys, KeySeat(showID, id))
	}
	keys = append(keys, KeyHoldDeadlines(), KeyCounts(showID), KeyHolderSeats(showID, holderID))

	args := make([]any, 0, len(seatIDs)+3)
	args = append(args, holderID, time.Now().UnixMilli(), fmt.Sprintf("%d|", showID))
	for _, id := range seatIDs {
		args = append(args, id)
	}

	res, err := s.runScript(ctx, s.confirm, keys, args...)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	arr, ok := res.([]any)
	if !ok || len(arr) == 0 {
		return fmt.Errorf("%s: bad script result: %v", op, res)
	}

	if toString(arr[0]) == "conflict" {
		conflict := &repository.ConfirmConflictError{}
		for i := 1; i+1 < len(arr); i += 2 {
			conflict.Failures = append(conflict.Failures, repository.SeatFailure{
				SeatID: toString(arr[i]),
				Reason: toString(arr[i+1]),
			})
		}
		return fmt.Errorf("%s:%w", op, conflict)
	}

	return nil
}

// ExpireDue frees up to limit holds whose deadline passed. Safe to run
// concurrently with everything else: each candidate is re-checked
// inside its own script, so a hold refreshed after the deadline read is
// left alone.
func (s *ReservationStore) ExpireDue(ctx context.Context, limit int64) (int64, error) {
	const op = "redis.ReservationStore.ExpireDue"

	if limit <= 0 {
		limit = sweepDefaults
	}

	now := time.Now().UnixMilli()
	// Exclusive max: a hold expiring exactly now is still live.
	members, err := s.rdb.ZRangeByScore(ctx, KeyHoldDeadlines(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(now, 10),
		Count: limit,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	var released int64
	for _, member := range members {
		showID, seatID, ok := parseDeadlineMember(member)
		if !ok {
			// Unparseable member: drop it so it cannot clog the sweep.
			_ = s.rdb.ZRem(ctx, KeyHoldDeadlines(), member).Err()
			continue
		}

		res, err := s.runScript(ctx, s.expire,
			[]string{
				KeySeat(showID, seatID),
				KeyHoldDeadlines(),
				KeyCounts(showID),
			},
			now,
			member,
			seatID,
			KeyHolderPrefix(showID),
		)
		if err != nil {
			return released, fmt.Errorf("%s:%w", op, err)
		}
		if freed, _ := res.(int64); freed == 1 {
			released++
		}
	}

	return released, nil
}

// States reads the live record of each requested seat in one pipeline.
// Seats with no record are reported as not present in the result.
func (s *ReservationStore) States(ctx context.Context, showID int64, seatIDs []string) (map[string]domain.SeatState, error) {
	const op = "redis.ReservationStore.States"

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.SliceCmd, len(seatIDs))
	for i, id := range seatIDs {
		cmds[i] = pipe.HMGet(ctx, KeySeat(showID, id), "state", "holder", "expires_ms")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := make(map[string]domain.SeatState, len(seatIDs))
	for i, id := range seatIDs {
		vals := cmds[i].Val()
		if len(vals) != 3 || vals[0] == nil {
			continue
		}

		st := domain.SeatState{SeatID: id, Status: domain.SeatStatus(toString(vals[0]))}
		if vals[1] != nil {
			st.Holder = toString(vals[1])
		}
		if vals[2] != nil {
			ms, err := strconv.ParseInt(toString(vals[2]), 10, 64)
			if err == nil {
				st.Expires = time.UnixMilli(ms)
			}
		}
		out[id] = st
	}

	return out, nil
}

// Counts returns the per-show availability counters.
func (s *ReservationStore) Counts(ctx context.Context, showID int64) (domain.ShowCounts, error) {
	const op = "redis.ReservationStore.Counts"

	vals, err := s.rdb.HGetAll(ctx, KeyCounts(showID)).Result()
	if err != nil {
		return domain.ShowCounts{}, fmt.Errorf("%s:%w", op, err)
	}
	if len(vals) == 0 {
		return domain.ShowCounts{}, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	var c domain.ShowCounts
	c.Available, _ = strconv.ParseInt(vals["available"], 10, 64)
	c.Held, _ = strconv.ParseInt(vals["held"], 10, 64)
	c.Sold, _ = strconv.ParseInt(vals["sold"], 10, 64)
	c.Total = c.Available + c.Held + c.Sold

	return c, nil
}

// HeldBy lists the seats a holder currently holds live in a show.
// Seats whose hold has expired but not yet been swept are filtered out.
func (s *ReservationStore) HeldBy(ctx context.Context, showID int64, holderID string) ([]string, error) {
	const op = "redis.ReservationStore.HeldBy"

	members, err := s.rdb.SMembers(ctx, KeyHolderSeats(showID, holderID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	states, err := s.States(ctx, showID, members)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := time.Now()
	var out []string
	for _, id := range members {
		if st, ok := states[id]; ok && st.Holder == holderID && st.HeldLive(now) {
			out = append(out, id)
		}
	}

	return out, nil
}

// runScript retries transient failures a bounded number of times; a
// script either ran entirely or not at all, so retrying is safe.
func (s *ReservationStore) runScript(
	ctx context.Context,
	script *redis.Script,
	keys []string,
	args ...any,
) (any, error) {
	var lastErr error
	for attempt := 0; attempt < storeRetries; attempt++ {
		res, err := script.Run(ctx, s.rdb, keys, args...).Result()
		if err == nil {
			return res, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}

	return nil, fmt.Errorf("%w: %w", repository.ErrStoreUnavailable, lastErr)
}

func scriptFailure(res any) (string, bool) {
	arr, ok := res.([]any)
	if !ok || len(arr) == 0 {
		return "", false
	}
	if toString(arr[0]) != "err" {
		return "", false
	}
	if len(arr) > 1 {
		return toString(arr[1]), true
	}
	return "unknown", true
}

func reasonErr(reason string) error {
	switch reason {
	case repository.ReasonNotFound:
		return repository.ErrNotFound
	case repository.ReasonSold:
		return repository.ErrSeatSold
	case repository.ReasonNotHeld:
		return repository.ErrSeatUnavailable
	case repository.ReasonHeldByOther:
		return repository.ErrSeatUnavailable
	case "not_owner":
		return repository.ErrNotOwner
	default:
		return repository.ErrConflict
	}
}

func parseDeadlineMember(member string) (int64, string, bool) {
	idx := strings.IndexByte(member, '|')
	if idx <= 0 || idx == len(member)-1 {
		return 0, "", false
	}
	showID, err := strconv.ParseInt(member[:idx], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return showID, member[idx+1:], true
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
