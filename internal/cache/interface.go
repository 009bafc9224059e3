package cache

import (
	"encoding/json"
	"time"
)

// DefaultPrefix namespaces every key this service writes to a shared backend.
const DefaultPrefix = "newsdesk:"

// Cache is the key/value store behind feed listings and stats. Values must
// survive a JSON round trip; read them back with GetInto.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	// Incr atomically increments the counter at key, creating it at 1, and
	// resets its expiry to ttl.
	Incr(key string, ttl time.Duration) int64
	Delete(key string)
	Clear()
}

// GetInto loads key into dst. The memory backend hands back the stored value
// while Redis returns generic JSON, so both are normalized through a JSON
// round trip.
func GetInto(c Cache, key string, dst interface{}) bool {
	if c == nil {
		return false
	}

	cached, ok := c.Get(key)
	if !ok || cached == nil {
		return false
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
