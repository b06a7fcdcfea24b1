// Package kv provides the namespaced key-value store backing the
// durable application state: OAuth token set, device selection,
// per-device assignments, and tracker configuration. Values are JSON.
package kv

// Bucket is a namespaced key-value store.
type Bucket interface {
	// Name returns the bucket name.
	Name() string

	// Store marshals value to JSON and saves it under key.
	Store(key string, value any) error

	// Get unmarshals the value for key into out.
	// Returns false if the key does not exist.
	Get(key string, out any) (bool, error)

	// Delete removes a key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Keys returns all keys in the bucket.
	Keys() ([]string, error)

	// Clear removes all keys from the bucket.
	Clear() error
}
