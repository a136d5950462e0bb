package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/routebot/internal/cache"
)

func newTestLedger(t *testing.T, now func() time.Time) (*cache.Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewLedgerWithClock(client, now), mr
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

var noon = time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

func TestLedger_ClaimOncePerDay(t *testing.T) {
	l, mr := newTestLedger(t, fixedClock(noon))
	ctx := context.Background()

	ok, err := l.Claim(ctx, "123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Claim(ctx, "123")
	require.NoError(t, err)
	assert.False(t, ok, "second claim on the same day must fail")

	assert.True(t, mr.Exists("routebot:posted:123:2026-03-05"))
	assert.Equal(t, 48*time.Hour, mr.TTL("routebot:posted:123:2026-03-05"))
}

func TestLedger_ChannelsAreIndependent(t *testing.T) {
	l, _ := newTestLedger(t, fixedClock(noon))
	ctx := context.Background()

	ok, err := l.Claim(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Claim(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_NextDayIsFree(t *testing.T) {
	now := noon
	l, _ := newTestLedger(t, func() time.Time { return now })
	ctx := context.Background()

	ok, err := l.Claim(ctx, "123")
	require.NoError(t, err)
	require.True(t, ok)

	now = noon.Add(24 * time.Hour)
	posted, err := l.Posted(ctx, "123")
	require.NoError(t, err)
	assert.False(t, posted)

	ok, err = l.Claim(ctx, "123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_DayUsesUTC(t *testing.T) {
	// 23:30 in UTC-5 is already the next UTC day.
	local := time.Date(2026, time.March, 4, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	l, mr := newTestLedger(t, fixedClock(local))

	_, err := l.Claim(context.Background(), "123")
	require.NoError(t, err)
	assert.True(t, mr.Exists("routebot:posted:123:2026-03-05"))
}

func TestLedger_ReleaseAllowsRetry(t *testing.T) {
	l, _ := newTestLedger(t, fixedClock(noon))
	ctx := context.Background()

	_, err := l.Claim(ctx, "123")
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, "123"))

	posted, err := l.Posted(ctx, "123")
	require.NoError(t, err)
	assert.False(t, posted)

	ok, err := l.Claim(ctx, "123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_ReleaseUnclaimed(t *testing.T) {
	l, _ := newTestLedger(t, fixedClock(noon))
	require.NoError(t, l.Release(context.Background(), "ghost"))
}

func TestLedger_ClaimExpires(t *testing.T) {
	l, mr := newTestLedger(t, fixedClock(noon))
	ctx := context.Background()

	_, err := l.Claim(ctx, "123")
	require.NoError(t, err)

	mr.FastForward(49 * time.Hour)

	posted, err := l.Posted(ctx, "123")
	require.NoError(t, err)
	assert.False(t, posted, "claim should be gone after TTL")
}

func TestLedger_ServerDown(t *testing.T) {
	l, mr := newTestLedger(t, fixedClock(noon))
	mr.Close()

	_, err := l.Claim(context.Background(), "123")
	require.Error(t, err)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := cache.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := cache.Connect(context.Background(), "redis://localhost:19999")
	require.Error(t, err)
}

func TestConnect_Miniredis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := cache.Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())
}

func TestLedger_Ping(t *testing.T) {
	l, mr := newTestLedger(t, fixedClock(noon))
	require.NoError(t, l.Ping(context.Background()))

	mr.Close()
	require.Error(t, l.Ping(context.Background()))
}
