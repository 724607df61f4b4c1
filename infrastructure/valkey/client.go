// Package valkey wraps valkey-go with the two concerns this service has:
// a best-effort run lock so overlapping coordinator invocations cannot
// double-process schedules, and pub/sub fan-out for the outcome websocket
// feed across nodes.
package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
)

const DefaultConnectTimeout = 5 * time.Second

type Config struct {
	Address        string
	Password       string
	DB             int
	KeyPrefix      string
	ConnectTimeout time.Duration
}

type Client struct {
	inner     valkeylib.Client
	keyPrefix string
}

// NewClient dials Valkey and verifies the connection with a ping. The
// caller owns the client and must Close it.
func NewClient(cfg Config) (*Client, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	inner, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := inner.Do(ctx, inner.B().Ping().Build()).Error(); err != nil {
		inner.Close()
		return nil, fmt.Errorf("failed to ping valkey (timeout: %v): %w", timeout, err)
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}

	return &Client{inner: inner, keyPrefix: prefix}, nil
}

// Inner returns the raw valkey-go client for command building.
func (c *Client) Inner() valkeylib.Client {
	return c.inner
}

func (c *Client) Close() {
	if c.inner != nil {
		c.inner.Close()
	}
}

// Key builds a prefixed key: Key("runner", "lock") -> "threadpilot:runner:lock".
func (c *Client) Key(parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(c.keyPrefix, ":")
	}
	return c.keyPrefix + strings.Join(parts, ":")
}

// AcquireLock takes a named lock with SET NX EX semantics. It returns false
// when another holder owns the lock.
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	key := c.Key("lock", name)
	err := c.inner.Do(ctx, c.inner.B().Set().Key(key).Value("1").Nx().Ex(ttl).Build()).Error()
	if err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReleaseLock drops a lock before its TTL expires. Best effort: an expired
// or missing lock is not an error.
func (c *Client) ReleaseLock(ctx context.Context, name string) {
	key := c.Key("lock", name)
	_ = c.inner.Do(ctx, c.inner.B().Del().Key(key).Build()).Error()
}

// IsNil checks whether an error represents a Valkey NIL response.
func IsNil(err error) bool {
	return valkeylib.IsValkeyNil(err)
}
