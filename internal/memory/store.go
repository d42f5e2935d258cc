package memory

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// Store hands out Blocks and recycles released ones.
//
// Released blocks are zeroed and kept in FIFO buckets keyed by their mapped
// size, up to a per-bucket limit, so a tight allocate/free loop reuses the
// same mappings instead of growing the mapped set. Blocks beyond the limit
// are unmapped immediately.
//
// Thread safety: All methods are safe for concurrent use.
type Store struct {
	budget    int64
	maxPooled int
	page      int

	mu          sync.Mutex
	buckets     map[int]*queue.Queue
	pooled      int
	pooledBytes int64

	live      atomic.Int64
	liveBytes atomic.Int64
	mapped    atomic.Int64
	reused    atomic.Uint64
}

// NewStore creates a store. budget caps the bytes held by live blocks
// (0 means unlimited). maxPooled limits how many released blocks of each size
// are retained; 0 disables pooling.
func NewStore(budget int64, maxPooled int) *Store {
	if maxPooled < 0 {
		maxPooled = 0
	}
	return &Store{
		budget:    budget,
		maxPooled: maxPooled,
		page:      pageSize(),
		buckets:   make(map[int]*queue.Queue),
	}
}

// RoundSize rounds size up to a whole number of pages.
func (s *Store) RoundSize(size int) int {
	return (size + s.page - 1) / s.page * s.page
}

// Get returns a zeroed block of at least size bytes.
func (s *Store) Get(size int) (*Block, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	size = s.RoundSize(size)
	if !s.reserve(int64(size)) {
		return nil, ErrExhausted
	}

	if b := s.popPooled(size); b != nil {
		b.released.Store(false)
		s.live.Add(1)
		s.reused.Add(1)
		return b, nil
	}

	b, err := mapBlock(size)
	if err != nil {
		s.liveBytes.Add(-int64(size))
		return nil, err
	}
	s.mapped.Add(1)
	s.live.Add(1)
	return b, nil
}

// reserve accounts size bytes against the budget.
func (s *Store) reserve(size int64) bool {
	for {
		cur := s.liveBytes.Load()
		if s.budget > 0 && cur+size > s.budget {
			return false
		}
		if s.liveBytes.CompareAndSwap(cur, cur+size) {
			return true
		}
	}
}

func (s *Store) popPooled(size int) *Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.buckets[size]
	if q == nil || q.Length() == 0 {
		return nil
	}
	b := q.Remove().(*Block)
	s.pooled--
	s.pooledBytes -= int64(size)
	return b
}

// Put returns a block to the store. The caller must not touch the block's
// memory afterwards.
func (s *Store) Put(b *Block) error {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	size := b.Size()
	s.live.Add(-1)
	s.liveBytes.Add(-int64(size))

	if s.maxPooled > 0 {
		clear(b.data)

		s.mu.Lock()
		q := s.buckets[size]
		if q == nil {
			q = queue.New()
			s.buckets[size] = q
		}
		if q.Length() < s.maxPooled {
			q.Add(b)
			s.pooled++
			s.pooledBytes += int64(size)
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
	}

	s.mapped.Add(-1)
	return b.unmap()
}

// Drain unmaps every pooled block.
func (s *Store) Drain() error {
	s.mu.Lock()
	var blocks []*Block
	for size, q := range s.buckets {
		for q.Length() > 0 {
			blocks = append(blocks, q.Remove().(*Block))
		}
		delete(s.buckets, size)
	}
	s.pooled = 0
	s.pooledBytes = 0
	s.mu.Unlock()

	var errs []error
	for _, b := range blocks {
		s.mapped.Add(-1)
		if err := b.unmap(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats is a snapshot of store usage.
type Stats struct {
	LiveBlocks   int64
	LiveBytes    int64
	PooledBlocks int
	PooledBytes  int64
	Mapped       int64
	Reused       uint64
}

// Stats returns current store usage.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	pooled, pooledBytes := s.pooled, s.pooledBytes
	s.mu.Unlock()
	return Stats{
		LiveBlocks:   s.live.Load(),
		LiveBytes:    s.liveBytes.Load(),
		PooledBlocks: pooled,
		PooledBytes:  pooledBytes,
		Mapped:       s.mapped.Load(),
		Reused:       s.reused.Load(),
	}
}
