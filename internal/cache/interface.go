// Package cache provides the shared key-value cache behind analysis status
// publishing, with in-memory and Redis backends.
package cache

import "time"

// Cache is the backend-neutral interface. Writes are best effort; a cache
// miss must always be answerable from the database.
type Cache interface {
	Get(key string) (interface{}, bool)
	// Set stores the value under the backend's default TTL.
	Set(key string, value interface{})
	// SetWithTTL stores the value with an explicit TTL, as status
	// publishing does to bound how long a stale "processing" can live.
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}
