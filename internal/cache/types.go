package cache

// Key identifies one cached block of a named blob. Keys must be stable
// across processes so a disk-backed cache can be rebuilt on startup.
type Key struct {
	// Name is the blob the block belongs to.
	Name string
	// Block is the block index within the blob.
	Block uint64
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
	Bytes   int64
}

// Cache is a byte-oriented cache for immutable blocks. Returned slices
// must be treated as read-only; implementations may retain set values.
type Cache interface {
	// Get returns a cached block. ok is false if the block is missing.
	Get(key Key) ([]byte, bool)
	// Set caches a block. Admission is best-effort: an implementation may
	// drop the value instead of exceeding its budget.
	Set(key Key, b []byte)
	// InvalidateName drops every block belonging to the named blob.
	InvalidateName(name string)
	// Stats returns cache statistics.
	Stats() Stats
	// Close releases resources such as background writers.
	Close() error
}
