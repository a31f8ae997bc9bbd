package clients

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"
)

const VALKEY_KEY_PREFIX = "redditmcp"

type ValkeyConfig struct {
	Address  string
	Password string
	UseTLS   bool
}

// NewValkeyClient connects and pings once so a bad address fails at startup.
func NewValkeyClient(ctx context.Context, cfg ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey", slog.String("address", cfg.Address))
	return client, nil
}

// ValkeyLedger shares the rate ledger between processes using the same
// credentials. The key's TTL is the remaining interval, so SET NX both checks
// and records in one round trip.
type ValkeyLedger struct {
	client    valkey.Client
	namespace string
}

func NewValkeyLedger(client valkey.Client, clientID string) *ValkeyLedger {
	return &ValkeyLedger{client: client, namespace: clientID}
}

func (l *ValkeyLedger) key(endpoint string) string {
	return ledgerKey(l.namespace, endpoint)
}

func ledgerKey(namespace, endpoint string) string {
	return fmt.Sprintf("%s:ratelimit:%s:%s", VALKEY_KEY_PREFIX, namespace, endpoint)
}

func (l *ValkeyLedger) Reserve(ctx context.Context, endpoint string, now time.Time, interval time.Duration) (time.Duration, error) {
	key := l.key(endpoint)
	ms := interval.Milliseconds()
	if ms <= 0 {
		return 0, nil
	}

	// Two attempts cover the key expiring between SET and PTTL.
	for attempt := 0; attempt < 2; attempt++ {
		err := l.client.Do(ctx, l.client.B().Set().Key(key).
			Value(strconv.FormatInt(now.UnixMilli(), 10)).
			Nx().PxMilliseconds(ms).Build()).Error()
		if err == nil {
			return 0, nil
		}
		if !valkey.IsValkeyNil(err) {
			return 0, fmt.Errorf("[ValkeyClient] ledger reserve failed: %w", err)
		}

		pttl, err := l.client.Do(ctx, l.client.B().Pttl().Key(key).Build()).AsInt64()
		if err != nil {
			return 0, fmt.Errorf("[ValkeyClient] ledger ttl failed: %w", err)
		}
		if pttl > 0 {
			return time.Duration(pttl) * time.Millisecond, nil
		}
	}
	return 0, fmt.Errorf("[ValkeyClient] ledger key %s kept expiring", key)
}

// ValkeyTokenCache shares one bearer token between processes. The entry
// expires at the token's adjusted expiry.
type ValkeyTokenCache struct {
	client valkey.Client
	key    string
	clock  Clock
}

func NewValkeyTokenCache(client valkey.Client, clientID string, clock Clock) *ValkeyTokenCache {
	if clock == nil {
		clock = systemClock{}
	}
	return &ValkeyTokenCache{
		client: client,
		key:    fmt.Sprintf("%s:token:%s", VALKEY_KEY_PREFIX, clientID),
		clock:  clock,
	}
}

func (c *ValkeyTokenCache) Load(ctx context.Context) (AccessToken, bool, error) {
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(c.key).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return AccessToken{}, false, nil
	}
	if err != nil {
		return AccessToken{}, false, fmt.Errorf("[ValkeyClient] token load failed: %w", err)
	}

	tok, err := decodeToken(raw)
	if err != nil {
		return AccessToken{}, false, err
	}
	return tok, true, nil
}

func (c *ValkeyTokenCache) Store(ctx context.Context, tok AccessToken) error {
	ttl := tok.ExpiresAt.Sub(c.clock.Now()).Milliseconds()
	if ttl <= 0 {
		return nil
	}

	raw, err := encodeToken(tok)
	if err != nil {
		return err
	}

	if err := c.client.Do(ctx, c.client.B().Set().Key(c.key).Value(raw).PxMilliseconds(ttl).Build()).Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] token store failed: %w", err)
	}
	return nil
}

func (c *ValkeyTokenCache) Clear(ctx context.Context) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(c.key).Build()).Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] token clear failed: %w", err)
	}
	return nil
}

func encodeToken(tok AccessToken) (string, error) {
	b, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("[ValkeyClient] failed to encode token: %w", err)
	}
	return string(b), nil
}

func decodeToken(raw string) (AccessToken, error) {
	var tok AccessToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return AccessToken{}, fmt.Errorf("[ValkeyClient] failed to decode token: %w", err)
	}
	return tok, nil
}
