package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyLockThenResult(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(db, 2*time.Hour)
	ctx := context.Background()
	key := KeyIdemHold(7, "req-123")

	mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(true)
	locked, err := store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	mock.ExpectGet(key).SetVal("LOCK")
	inProgress, err := store.IsLocked(ctx, key)
	require.NoError(t, err)
	assert.True(t, inProgress)

	mock.ExpectSet(key, `RES:{"held":["st-A-1"]}`, 2*time.Hour).SetVal("OK")
	require.NoError(t, store.SaveResult(ctx, key, `{"held":["st-A-1"]}`))

	mock.ExpectGet(key).SetVal(`RES:{"held":["st-A-1"]}`)
	payload, ok, err := store.GetResult(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"held":["st-A-1"]}`, payload)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyMissingKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(db, time.Hour)
	key := KeyIdemHold(7, "nope")

	mock.ExpectGet(key).RedisNil()
	_, ok, err := store.GetResult(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectGet(key).RedisNil()
	locked, err := store.IsLocked(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, locked)

	assert.NoError(t, mock.ExpectationsWereMet())
}
