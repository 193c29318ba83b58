package cache

// CacheProvider is an interface for a cache provider.
// It stores and retrieves []byte values, which represent serialized HTTP
// responses. Entries are opaque: providers never parse them, they only
// move bytes around. A provider is free to expire entries on its own;
// expiry surfaces to callers as a plain miss.
//
// Implementations must be thread-safe!
type CacheProvider interface {
	// Get returns the cached response for the given key, if it exists.
	// The boolean indicates whether the entry exists; a miss is not an
	// error.
	Get(key string) ([]byte, bool, error)
	// Put stores the given response under the given key, overwriting any
	// previous entry. Concurrent puts to the same key must leave one
	// well-formed entry behind (last writer wins).
	Put(key string, bytes []byte) error
	// Has checks if the specified key exists in the cache.
	Has(key string) bool
	// Purge removes the cache entry for the given key. Purging a missing
	// key is not an error.
	Purge(key string) error
	// Clear removes every entry in the cache.
	Clear() error
}
