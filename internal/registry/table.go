// Package registry provides the sharded identity table behind the buffer
// reference table.
//
// Entries are keyed by a 64-bit identity. Shard locks are held only for map
// insert, lookup and delete; per-identity state lives in the stored value and
// is guarded by that value's own lock, so work on one identity never holds a
// lock another identity needs for longer than a map access.
package registry

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Default configuration constants.
const (
	// ShardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	ShardCount = 32

	shardMask = ShardCount - 1
)

// Hasher computes the shard hash of an identity.
type Hasher func(uint64) uint64

// XXHasher spreads identities with xxhash so that sequential ids do not
// cluster when the shard count changes.
func XXHasher(id uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	return xxhash.Sum64(buf[:])
}

// Table is a thread-safe sharded map from identity to V.
type Table[V any] struct {
	shards [ShardCount]*shard[V]
	hasher Hasher

	size     atomic.Int64
	inserts  atomic.Uint64
	removals atomic.Uint64
}

type shard[V any] struct {
	mu      sync.RWMutex
	entries map[uint64]V
}

// New creates an empty table. A nil hasher selects XXHasher.
func New[V any](hasher Hasher) *Table[V] {
	if hasher == nil {
		hasher = XXHasher
	}
	t := &Table[V]{hasher: hasher}
	for i := range t.shards {
		t.shards[i] = &shard[V]{entries: make(map[uint64]V)}
	}
	return t
}

func (t *Table[V]) shardFor(id uint64) *shard[V] {
	return t.shards[t.hasher(id)&shardMask]
}

// Insert stores v under id. It returns false without storing anything when
// id is already present.
func (t *Table[V]) Insert(id uint64, v V) bool {
	s := t.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return false
	}
	s.entries[id] = v
	t.size.Add(1)
	t.inserts.Add(1)
	return true
}

// Get returns the value stored under id.
func (t *Table[V]) Get(id uint64) (V, bool) {
	s := t.shardFor(id)
	s.mu.RLock()
	v, ok := s.entries[id]
	s.mu.RUnlock()
	return v, ok
}

// Delete removes id and returns the value it held.
func (t *Table[V]) Delete(id uint64) (V, bool) {
	s := t.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[id]
	if !ok {
		var zero V
		return zero, false
	}
	delete(s.entries, id)
	t.size.Add(-1)
	t.removals.Add(1)
	return v, true
}

// Len returns the number of entries. It reads an atomic counter and does
// not take shard locks.
func (t *Table[V]) Len() int {
	return int(t.size.Load())
}

// Range calls fn for every entry until fn returns false. Each shard is
// copied under its read lock and fn runs without any lock held, so fn may
// call back into the table.
func (t *Table[V]) Range(fn func(id uint64, v V) bool) {
	type kv struct {
		id uint64
		v  V
	}
	var batch []kv
	for _, s := range t.shards {
		batch = batch[:0]
		s.mu.RLock()
		for id, v := range s.entries {
			batch = append(batch, kv{id, v})
		}
		s.mu.RUnlock()
		for _, e := range batch {
			if !fn(e.id, e.v) {
				return
			}
		}
	}
}

// ShardLen returns the number of entries in each shard, for the device
// debug dump.
func (t *Table[V]) ShardLen() [ShardCount]int {
	var lens [ShardCount]int
	for i, s := range t.shards {
		s.mu.RLock()
		lens[i] = len(s.entries)
		s.mu.RUnlock()
	}
	return lens
}

// Stats is a snapshot of table counters.
type Stats struct {
	Len      int
	Inserts  uint64
	Removals uint64
}

// Stats returns current table statistics.
func (t *Table[V]) Stats() Stats {
	return Stats{
		Len:      t.Len(),
		Inserts:  t.inserts.Load(),
		Removals: t.removals.Load(),
	}
}
