package kv

import (
	"database/sql"
	"sync"
)

// Well-known bucket names.
const (
	BucketAuth    = "auth"
	BucketDevices = "devices"
	BucketTracker = "tracker"
)

// Manager hands out namespaced buckets over one database connection.
type Manager struct {
	db      *sql.DB
	buckets map[string]Bucket
	mu      sync.Mutex
}

// NewManager creates a new KV manager.
func NewManager(db *sql.DB) *Manager {
	return &Manager{
		db:      db,
		buckets: make(map[string]Bucket),
	}
}

// Bucket returns the persistent bucket with the given name, creating
// it on first use.
func (m *Manager) Bucket(name string) Bucket {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bucket, ok := m.buckets[name]; ok {
		return bucket
	}
	bucket := NewSQLiteBucket(m.db, name)
	m.buckets[name] = bucket
	return bucket
}
