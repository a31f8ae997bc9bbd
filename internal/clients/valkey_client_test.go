package clients

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"
)

const testLedgerKey = "redditmcp:ratelimit:client-id:posts/search"

func expectSetNX(client *mock.Client, now time.Time, interval time.Duration) *gomock.Call {
	return client.EXPECT().Do(gomock.Any(), mock.Match(
		"SET", testLedgerKey, strconv.FormatInt(now.UnixMilli(), 10),
		"NX", "PX", strconv.FormatInt(interval.Milliseconds(), 10),
	))
}

func expectPTTL(client *mock.Client) *gomock.Call {
	return client.EXPECT().Do(gomock.Any(), mock.Match("PTTL", testLedgerKey))
}

func TestLedgerKey(t *testing.T) {
	assert.Equal(t, "redditmcp:ratelimit:abc:posts/search", ledgerKey("abc", ENDPOINT_SEARCH))
	assert.NotEqual(t, ledgerKey("abc", ENDPOINT_SEARCH), ledgerKey("abc", ENDPOINT_COMMENT))
}

func TestValkeyLedgerReserve(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	clock := newFakeClock()
	interval := 2 * time.Second

	first := clock.Now()
	second := first.Add(500 * time.Millisecond)
	gomock.InOrder(
		expectSetNX(client, first, interval).Return(mock.Result(mock.ValkeyString("OK"))),
		expectSetNX(client, second, interval).Return(mock.Result(mock.ValkeyNil())),
		expectPTTL(client).Return(mock.Result(mock.ValkeyInt64(1500))),
	)

	ledger := NewValkeyLedger(client, "client-id")
	ctx := context.Background()

	wait, err := ledger.Reserve(ctx, ENDPOINT_SEARCH, first, interval)
	require.NoError(t, err)
	assert.Zero(t, wait)

	wait, err = ledger.Reserve(ctx, ENDPOINT_SEARCH, second, interval)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, wait)
}

func TestValkeyLedgerRetriesWhenKeyExpires(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	now := newFakeClock().Now()
	interval := 2 * time.Second

	gomock.InOrder(
		expectSetNX(client, now, interval).Return(mock.Result(mock.ValkeyNil())),
		expectPTTL(client).Return(mock.Result(mock.ValkeyInt64(-2))),
		expectSetNX(client, now, interval).Return(mock.Result(mock.ValkeyString("OK"))),
	)

	wait, err := NewValkeyLedger(client, "client-id").Reserve(context.Background(), ENDPOINT_SEARCH, now, interval)
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestValkeyLedgerGivesUpAfterTwoAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	now := newFakeClock().Now()
	interval := 2 * time.Second

	gomock.InOrder(
		expectSetNX(client, now, interval).Return(mock.Result(mock.ValkeyNil())),
		expectPTTL(client).Return(mock.Result(mock.ValkeyInt64(-2))),
		expectSetNX(client, now, interval).Return(mock.Result(mock.ValkeyNil())),
		expectPTTL(client).Return(mock.Result(mock.ValkeyInt64(-2))),
	)

	_, err := NewValkeyLedger(client, "client-id").Reserve(context.Background(), ENDPOINT_SEARCH, now, interval)
	assert.Error(t, err)
}

func TestGateWithValkeyLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	clock := newFakeClock()
	interval := 2 * time.Second
	now := clock.Now()

	gomock.InOrder(
		expectSetNX(client, now, interval).Return(mock.Result(mock.ValkeyString("OK"))),
		expectSetNX(client, now, interval).Return(mock.Result(mock.ValkeyNil())),
		expectPTTL(client).Return(mock.Result(mock.ValkeyInt64(2000))),
		expectSetNX(client, now, interval).Return(mock.ErrorResult(errors.New("connection refused"))),
	)

	g := NewRateGovernor(NewValkeyLedger(client, "client-id"), clock, interval)
	ctx := context.Background()

	require.NoError(t, g.Gate(ctx, ENDPOINT_SEARCH))

	err := g.Gate(ctx, ENDPOINT_SEARCH)
	require.Error(t, err)
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t, 2*time.Second, AsRedditError(err).RetryAfter)

	err = g.Gate(ctx, ENDPOINT_SEARCH)
	require.Error(t, err)
	assert.Equal(t, KindInternalError, KindOf(err))
}

func TestValkeyTokenCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	clock := newFakeClock()
	key := "redditmcp:token:client-id"

	tok := AccessToken{Value: "bearer-1", ExpiresAt: clock.Now().Add(55 * time.Minute)}
	raw, err := encodeToken(tok)
	require.NoError(t, err)

	gomock.InOrder(
		client.EXPECT().Do(gomock.Any(), mock.Match("GET", key)).Return(mock.Result(mock.ValkeyNil())),
		client.EXPECT().Do(gomock.Any(), mock.Match("SET", key, raw, "PX", "3300000")).Return(mock.Result(mock.ValkeyString("OK"))),
		client.EXPECT().Do(gomock.Any(), mock.Match("GET", key)).Return(mock.Result(mock.ValkeyString(raw))),
		client.EXPECT().Do(gomock.Any(), mock.Match("DEL", key)).Return(mock.Result(mock.ValkeyInt64(1))),
	)

	cache := NewValkeyTokenCache(client, "client-id", clock)
	ctx := context.Background()

	_, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Store(ctx, tok))

	got, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bearer-1", got.Value)
	assert.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, cache.Clear(ctx))
}

func TestValkeyTokenCacheSkipsExpiredToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	clock := newFakeClock()

	// No Do call expected.
	cache := NewValkeyTokenCache(client, "client-id", clock)
	require.NoError(t, cache.Store(context.Background(), AccessToken{Value: "old", ExpiresAt: clock.Now().Add(-time.Second)}))
	require.NoError(t, cache.Store(context.Background(), AccessToken{Value: "now", ExpiresAt: clock.Now()}))
}

func TestValkeyTokenCacheLoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().Do(gomock.Any(), mock.Match("GET", "redditmcp:token:client-id")).
		Return(mock.ErrorResult(errors.New("timeout")))

	_, ok, err := NewValkeyTokenCache(client, "client-id", newFakeClock()).Load(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestTokenEncoding(t *testing.T) {
	tok := AccessToken{Value: "bearer-1", ExpiresAt: time.Date(2024, 3, 1, 12, 55, 0, 0, time.UTC)}

	raw, err := encodeToken(tok)
	require.NoError(t, err)

	got, err := decodeToken(raw)
	require.NoError(t, err)
	assert.Equal(t, tok.Value, got.Value)
	assert.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))
}

func TestDecodeTokenGarbage(t *testing.T) {
	_, err := decodeToken("not json")
	assert.Error(t, err)
}
