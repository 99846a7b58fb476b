package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const nonceKeyPrefix = "botcentral:nonce:"

var errEmptyNonce = errors.New("nonce is empty")

// NonceStore remembers single-use values, such as OAuth state ids, until they
// expire. Redis backs it when configured so every replica sees a claim;
// otherwise claims are kept in process.
type NonceStore struct {
	client *redis.Client

	mu    sync.Mutex
	local map[string]time.Time
	now   func() time.Time
}

func NewNonceStore(client *redis.Client) *NonceStore {
	return &NonceStore{
		client: client,
		local:  make(map[string]time.Time),
		now:    time.Now,
	}
}

// Claim records nonce for ttl. It reports false when the nonce was already
// claimed and has not expired.
func (n *NonceStore) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	if nonce == "" {
		return false, errEmptyNonce
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	if n.client != nil {
		return n.client.SetNX(ctx, nonceKeyPrefix+nonce, 1, ttl).Result()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	for key, expiresAt := range n.local {
		if !expiresAt.After(now) {
			delete(n.local, key)
		}
	}
	if _, seen := n.local[nonce]; seen {
		return false, nil
	}
	n.local[nonce] = now.Add(ttl)
	return true, nil
}
