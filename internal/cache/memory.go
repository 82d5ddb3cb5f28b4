package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider with per-key TTL. Retrieval
// results are small and per-query, so a process-local cache is sufficient;
// expired entries are dropped lazily on read.
type MemoryProvider struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider constructs an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{items: make(map[string]memoryItem)}
}

// Get returns the cached bytes or ErrCacheMiss when absent or expired.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	item, ok := p.items[key]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		p.mu.Lock()
		delete(p.items, key)
		p.mu.Unlock()
		return nil, ErrCacheMiss
	}
	// Copy so callers cannot mutate the cached payload.
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores a value with an optional TTL (zero means no expiry).
func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	p.mu.Lock()
	if p.items != nil {
		p.items[key] = memoryItem{value: stored, expiresAt: expires}
	}
	p.mu.Unlock()
	return nil
}

// SetNX stores the value only when the key is absent or expired, reporting
// whether the write happened.
func (p *MemoryProvider) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.items == nil {
		return false, nil
	}
	if item, ok := p.items[key]; ok {
		if item.expiresAt.IsZero() || time.Now().Before(item.expiresAt) {
			return false, nil
		}
	}
	p.items[key] = memoryItem{value: stored, expiresAt: expires}
	return true, nil
}

// Del removes a key if present.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.items, key)
	p.mu.Unlock()
	return nil
}

// Close releases the backing map.
func (p *MemoryProvider) Close() error {
	p.mu.Lock()
	p.items = nil
	p.mu.Unlock()
	return nil
}
