package secrets

import (
	"sync"
	"time"

	"github.com/relaypay/gateway-bridge/internal/adapters/ports"
)

// secretCache is a small in-memory TTL cache shared by the remote
// backends so every token mint does not hit the secrets service.
type secretCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	enabled bool
	ttl     time.Duration
}

type cacheEntry struct {
	secret    *ports.Secret
	expiresAt time.Time
}

func newSecretCache(enabled bool, ttl time.Duration) *secretCache {
	return &secretCache{
		entries: make(map[string]*cacheEntry),
		enabled: enabled,
		ttl:     ttl,
	}
}

func (c *secretCache) get(path string) *ports.Secret {
	if !c.enabled {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.entries, path)
		return nil
	}
	return entry.secret
}

func (c *secretCache) set(path string, secret *ports.Secret) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = &cacheEntry{
		secret:    secret,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *secretCache) invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}
