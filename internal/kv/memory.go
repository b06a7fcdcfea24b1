package kv

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryBucket is an in-memory bucket, used as a test double for the
// persistent store. Values round-trip through JSON so type behavior
// matches the SQLite bucket.
type MemoryBucket struct {
	name    string
	entries map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryBucket creates a new in-memory bucket.
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:    name,
		entries: make(map[string][]byte),
	}
}

// Name returns the bucket name.
func (b *MemoryBucket) Name() string {
	return b.name
}

// Store marshals value to JSON and saves it under key.
func (b *MemoryBucket) Store(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	b.mu.Lock()
	b.entries[key] = data
	b.mu.Unlock()
	return nil
}

// Get unmarshals the value for key into out.
func (b *MemoryBucket) Get(key string, out any) (bool, error) {
	b.mu.RLock()
	data, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return true, nil
}

// Delete removes a key.
func (b *MemoryBucket) Delete(key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[key]
	delete(b.entries, key)
	return ok, nil
}

// Keys returns all keys in the bucket.
func (b *MemoryBucket) Keys() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.entries))
	for key := range b.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes all keys from the bucket.
func (b *MemoryBucket) Clear() error {
	b.mu.Lock()
	b.entries = make(map[string][]byte)
	b.mu.Unlock()
	return nil
}
