package lease

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "gridbook:lease:"

// Redis coordinates per-path write leases through a Redis instance, for
// hosts running more than one process against the same backing store.
//
// Acquire uses SET NX PX for an atomic lock-with-TTL. Release runs a
// token-checked Lua script (GET + DEL), so a writer whose lease expired and
// was re-acquired by someone else cannot delete the new holder's lock.
type Redis struct {
	Client redis.UniversalClient
	Prefix string
}

var _ Manager = &Redis{}

// NewRedis creates a Redis-backed lease manager. Prefix namespaces the
// lease keys; if empty, a default namespace is used.
func NewRedis(client redis.UniversalClient, prefix string) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{Client: client, Prefix: prefix}, nil
}

// Acquire attempts to take the lease for path for the given ttl.
func (m *Redis) Acquire(ctx context.Context, path string, ttl time.Duration) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ok, err := m.Client.SetNX(ctx, m.Prefix+path, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", path, err)
	}
	if !ok {
		return nil, ErrConflict
	}
	return &Lease{Path: path, Token: token, ExpiresAt: now.Add(ttl)}, nil
}

// Release deletes the lease only while l's token still owns the key.
//
// Release always attempts the Redis call regardless of the caller's context
// state. A cancelled context must not leave the lock held until TTL expiry.
func (m *Redis) Release(_ context.Context, l *Lease) error {
	if l == nil || l.Path == "" || l.Token == "" {
		return nil
	}
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := releaseScript.Run(releaseCtx, m.Client, []string{m.Prefix + l.Path}, l.Token).Int()
	return err
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate lease token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

var releaseScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)
