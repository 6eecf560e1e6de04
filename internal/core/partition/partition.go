package partition

import (
	"hash/fnv"
	"sync"
)

// Count is the fixed number of logical partitions.
const Count = 256

// For returns the partition ID for a key.
// Stable and deterministic: the same key always maps to the same partition.
// Uses FNV-32a (stdlib, fast, well-distributed).
func For(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % Count)
}

// Locks is a fixed set of mutexes striped by partition. Two keys that hash to
// the same partition share a lock; distinct partitions never contend.
type Locks struct {
	stripes [Count]sync.Mutex
}

// Lock acquires the stripe for key and returns its unlock func.
func (l *Locks) Lock(key string) (unlock func()) {
	m := &l.stripes[For(key)]
	m.Lock()
	return m.Unlock
}
