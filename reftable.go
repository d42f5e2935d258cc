// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gralloc/internal/memory"
)

// Identity keys and reference tokens are process-wide so that handles of
// one Device can never alias a live identity of another.
var (
	nextIdentity  atomic.Uint64
	nextReference atomic.Uint64
)

// identity is one piece of backing memory and the references held on it.
//
// The reference count is the number of live entries in refs. Each entry is
// one handle value's claim: the raw handle from the allocator, or one
// successful import. The block is returned to the store when the last entry
// goes away.
type identity struct {
	id    uint64
	shape bufferShape
	block *memory.Block
	ints  []int32

	mu       sync.Mutex
	refs     map[uint64]*reference
	released bool
}

// reference is the per-handle state of one live claim.
type reference struct {
	kind   handleKind
	locks  int
	usage  Usage
	region Rect
}

func encodeInts(id uint64, s bufferShape) []int32 {
	ints := make([]int32, handleInts)
	ints[intMagic] = handleMagic
	ints[intIDLo] = int32(uint32(id))
	ints[intIDHi] = int32(uint32(id >> 32))
	ints[intWidth] = int32(s.info.Width)
	ints[intHeight] = int32(s.info.Height)
	ints[intFormat] = int32(uint32(s.info.Format))
	ints[intLayers] = int32(s.info.LayerCount)
	ints[intStride] = int32(s.stride)
	ints[intUsageLo] = int32(uint32(s.info.Usage))
	ints[intUsageHi] = int32(uint32(s.info.Usage >> 32))
	ints[intSizeLo] = int32(uint32(uint64(s.size)))
	ints[intSizeHi] = int32(uint32(uint64(s.size) >> 32))
	return ints
}

// create backs one buffer of shape s and returns its first handle.
func (d *Device) create(s bufferShape, imported bool) (*Handle, error) {
	block, err := d.store.Get(s.size)
	if err != nil {
		return nil, errorf(NoResources, "%v", err)
	}

	id := &identity{
		id:    nextIdentity.Add(1),
		shape: s,
		block: block,
		refs:  make(map[uint64]*reference, 1),
	}
	id.ints = encodeInts(id.id, s)

	kind := kindRaw
	if imported {
		kind = kindImported
	}
	ref := nextReference.Add(1)
	id.refs[ref] = &reference{kind: kind}
	d.ids.Insert(id.id, id)

	d.allocated.Add(1)
	d.metrics.allocations.Inc()
	d.metrics.liveBuffers.Inc()
	d.metrics.liveBytes.Add(float64(block.Size()))
	Logger().Debug("gralloc: buffer allocated",
		"id", id.id,
		"format", s.info.Format,
		"width", s.info.Width,
		"height", s.info.Height,
		"stride", s.stride,
		"bytes", block.Size(),
		"kind", kind)
	return newHandle(id, kind, ref, d), nil
}

// resolve finds the live identity h names. Structural and identity checks
// both fail with BadBuffer.
func (d *Device) resolve(h *Handle) (*identity, error) {
	if h == nil {
		return nil, errorf(BadBuffer, "nil handle")
	}
	if !h.valid() {
		return nil, errorf(BadBuffer, "malformed handle (%d fds, %d ints)", len(h.FDs), len(h.Ints))
	}
	id, ok := d.ids.Get(h.ID())
	if !ok {
		return nil, errorf(BadBuffer, "unknown buffer %d", h.ID())
	}
	if h.FDs[0] != id.block.FD() || !slices.Equal(h.Ints, id.ints) {
		return nil, errorf(BadBuffer, "handle does not match buffer %d", h.ID())
	}
	return id, nil
}

// importHandle grants a new reference on the identity h names.
func (d *Device) importHandle(h *Handle) (*Handle, error) {
	id, err := d.resolve(h)
	if err != nil {
		return nil, err
	}

	id.mu.Lock()
	if id.released {
		id.mu.Unlock()
		return nil, errorf(BadBuffer, "buffer %d already released", id.id)
	}
	if h.kind != kindBare {
		if _, live := id.refs[h.ref]; !live {
			id.mu.Unlock()
			return nil, errorf(BadBuffer, "handle of buffer %d was already released", id.id)
		}
	}
	ref := nextReference.Add(1)
	id.refs[ref] = &reference{kind: kindImported}
	refs := len(id.refs)
	id.mu.Unlock()

	d.metrics.imports.Inc()
	Logger().Debug("gralloc: buffer imported", "id", id.id, "refs", refs)
	return newHandle(id, kindImported, ref, d), nil
}

// release drops the reference h holds, which must be of kind want and have
// no outstanding locks, and frees the backing memory when it was the last
// one.
func (d *Device) release(h *Handle, want handleKind) error {
	id, err := d.resolve(h)
	if err != nil {
		return err
	}

	id.mu.Lock()
	r, live := id.refs[h.ref]
	if h.kind != want || !live || r.kind != want {
		id.mu.Unlock()
		return errorf(BadBuffer, "no live %v reference on buffer %d", want, id.id)
	}
	if r.locks > 0 {
		// The CPU mapping handed out by Lock must stay valid until Unlock.
		id.mu.Unlock()
		return errorf(BadBuffer, "buffer %d is still locked %d times", id.id, r.locks)
	}
	delete(id.refs, h.ref)
	last := len(id.refs) == 0
	if last {
		id.released = true
	}
	id.mu.Unlock()

	d.metrics.frees.Inc()
	if !last {
		return nil
	}

	d.ids.Delete(id.id)
	size := id.block.Size()
	if err := d.store.Put(id.block); err != nil {
		Logger().Warn("gralloc: releasing backing memory failed", "id", id.id, "err", err)
	}
	d.metrics.liveBuffers.Dec()
	d.metrics.liveBytes.Sub(float64(size))
	Logger().Debug("gralloc: buffer released", "id", id.id, "bytes", size)
	return nil
}

// discard drops a handle the caller never saw, during batch rollback.
func (d *Device) discard(h *Handle) {
	if err := d.release(h, h.kind); err != nil {
		Logger().Warn("gralloc: rollback release failed", "id", h.ID(), "err", err)
	}
}

// importedRef looks up the live imported reference h holds. The identity
// lock is held on return when err is nil.
func (d *Device) importedRef(h *Handle) (*identity, *reference, error) {
	id, err := d.resolve(h)
	if err != nil {
		return nil, nil, err
	}
	id.mu.Lock()
	r, live := id.refs[h.ref]
	if h.kind != kindImported || !live || r.kind != kindImported {
		id.mu.Unlock()
		return nil, nil, errorf(BadBuffer, "buffer %d is not imported by this handle", id.id)
	}
	return id, r, nil
}
