package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend keeps entries in process; used when no shared store is configured
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryBackend creates an empty in-process store
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get returns the value for key unless it has expired
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	item, ok := b.items[key]
	b.mu.RUnlock()

	if !ok || !b.now().Before(item.expiresAt) {
		return nil, ErrMiss
	}
	return item.value, nil
}

// Set stores a copy of value
func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	b.mu.Lock()
	b.items[key] = memoryItem{value: stored, expiresAt: b.now().Add(ttl)}
	b.mu.Unlock()
	return nil
}

// Delete removes key
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.items, key)
	b.mu.Unlock()
	return nil
}

// Keys reaps expired entries, then lists the rest matching prefix
func (b *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	var keys []string
	for k, item := range b.items {
		if !now.Before(item.expiresAt) {
			delete(b.items, k)
			continue
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
