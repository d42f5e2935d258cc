// Package memory provides the shared backing store behind buffer identities.
//
// A Block is one contiguous CPU-mappable region together with the resource
// descriptor that names it. On Linux blocks are memfd files mapped
// MAP_SHARED, so the descriptor can be handed to another process and mapped
// there. Elsewhere, and when memfd is unavailable, blocks fall back to the Go
// heap with a process-local descriptor number.
package memory

import (
	"errors"
	"sync/atomic"
)

// Common errors for backing store operations.
var (
	// ErrExhausted is returned when an allocation would exceed the budget.
	ErrExhausted = errors.New("memory: budget exhausted")

	// ErrInvalidSize is returned for non-positive allocation sizes.
	ErrInvalidSize = errors.New("memory: invalid size")

	// ErrReleased is returned when a block is returned to the store twice.
	ErrReleased = errors.New("memory: block already released")
)

// Block is a mapped region of backing memory.
type Block struct {
	data []byte
	fd   int
	heap bool

	// released is set while the block is not owned by a caller.
	released atomic.Bool
}

// Bytes returns the mapped memory. The slice is valid until the block is
// returned to its store.
func (b *Block) Bytes() []byte { return b.data }

// Size returns the mapped size in bytes (a multiple of the page size).
func (b *Block) Size() int { return len(b.data) }

// FD returns the resource descriptor naming this block.
func (b *Block) FD() int { return b.fd }

// Shared reports whether the block is backed by a shareable file rather than
// the Go heap.
func (b *Block) Shared() bool { return !b.heap }

// heapFD numbers heap-backed blocks. Values start high so they never look
// like stdio descriptors.
var heapFD atomic.Int64

func init() {
	heapFD.Store(1 << 20)
}

func newHeapBlock(size int) *Block {
	return &Block{
		data: make([]byte, size),
		fd:   int(heapFD.Add(1)),
		heap: true,
	}
}
