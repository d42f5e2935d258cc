// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

// Allocator turns descriptors into buffers.
//
// Allocator is safe for concurrent use; any number of goroutines may
// allocate from the same or different descriptors at once.
type Allocator struct {
	dev *Device
}

// NewAllocator returns an allocator bound to the default device, or to the
// device given with WithDevice.
func NewAllocator(opts ...Option) *Allocator {
	o := resolveOptions(opts)
	return &Allocator{dev: o.device}
}

// Device returns the device the allocator draws memory from.
func (a *Allocator) Device() *Device { return a.dev }

// Allocate creates count buffers described by desc. All buffers share the
// returned stride, in pixels, which is at least the requested width.
//
// With importBuffers set the handles are imported (one reference each,
// lockable, released with Mapper.FreeBuffer). Otherwise they are raw: they
// must be imported before locking and their own reference is released with
// Handle.Close.
//
// An empty or corrupt descriptor fails with BadDescriptor. A descriptor the
// device cannot back fails with Unsupported. If memory runs out part way,
// every buffer of the batch is released again and the call fails with
// NoResources.
func (a *Allocator) Allocate(desc Descriptor, count uint32, importBuffers bool) (uint32, []*Handle, error) {
	stride, handles, err := a.allocate(desc, count, importBuffers)
	return stride, handles, a.dev.metrics.fail("allocate", err)
}

func (a *Allocator) allocate(desc Descriptor, count uint32, importBuffers bool) (uint32, []*Handle, error) {
	info, err := desc.decode()
	if err != nil {
		return 0, nil, err
	}
	shape, err := a.dev.shape(info)
	if err != nil {
		return 0, nil, err
	}

	handles := make([]*Handle, 0, min(count, 64))
	for i := uint32(0); i < count; i++ {
		h, err := a.dev.create(shape, importBuffers)
		if err != nil {
			Logger().Warn("gralloc: allocation failed, rolling back batch",
				"allocated", i, "requested", count, "err", err)
			for _, done := range handles {
				a.dev.discard(done)
			}
			return 0, nil, err
		}
		handles = append(handles, h)
	}
	return shape.stride, handles, nil
}

// AllocateInfo is a convenience wrapper that builds the descriptor from info
// and allocates a single buffer.
func (a *Allocator) AllocateInfo(info DescriptorInfo, importBuffer bool) (*Handle, uint32, error) {
	desc, err := CreateDescriptor(info)
	if err != nil {
		return nil, 0, err
	}
	stride, handles, err := a.Allocate(desc, 1, importBuffer)
	if err != nil {
		return nil, 0, err
	}
	return handles[0], stride, nil
}

// DumpDebugInfo describes the live buffers of the device. The format is for
// humans and may change.
func (a *Allocator) DumpDebugInfo() string {
	return a.dev.dump()
}
