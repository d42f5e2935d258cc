// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"time"

	"github.com/gogpu/gralloc/fence"
)

// Mapper validates descriptors, tracks buffer references and maps buffers
// into CPU memory.
//
// Mappers are cheap views onto a Device. Every Mapper on the same device
// sees the same reference table, so a reference taken through one can be
// released through another. Mapper is safe for concurrent use.
type Mapper struct {
	dev *Device
}

// NewMapper returns a mapper bound to the default device, or to the device
// given with WithDevice.
func NewMapper(opts ...Option) *Mapper {
	o := resolveOptions(opts)
	return &Mapper{dev: o.device}
}

// CreateDescriptor validates info and encodes it; see the package-level
// CreateDescriptor.
func (m *Mapper) CreateDescriptor(info DescriptorInfo) (Descriptor, error) {
	desc, err := CreateDescriptor(info)
	return desc, m.dev.metrics.fail("createDescriptor", err)
}

// IsSupported reports whether a buffer described by info could be
// allocated on this device. It allocates nothing.
func (m *Mapper) IsSupported(info DescriptorInfo) bool {
	if info.validate() != nil {
		return false
	}
	_, err := m.dev.shape(info)
	return err == nil
}

// ImportBuffer takes a new reference on the buffer h names and returns a
// handle that holds it. h may be raw, imported, or bare (decoded from the
// wire); importing the same handle repeatedly yields independent references.
// A nil, descriptor-less, unknown or released handle fails with BadBuffer.
func (m *Mapper) ImportBuffer(h *Handle) (*Handle, error) {
	out, err := m.dev.importHandle(h)
	return out, m.dev.metrics.fail("importBuffer", err)
}

// FreeBuffer releases the reference an imported handle holds. Backing
// memory is released with the last reference. Raw handles, handles already
// freed, handles this device never issued, and handles with a lock still
// outstanding fail with BadBuffer and change nothing.
func (m *Mapper) FreeBuffer(h *Handle) error {
	return m.dev.metrics.fail("freeBuffer", m.dev.release(h, kindImported))
}

// Lock maps an imported buffer for CPU access described by usage within
// region. It first waits for acquire to signal, so device writes guarded by
// the fence are visible; a nil fence means there is nothing to wait for.
//
// Packed formats return Data with pixel and stride sizes. YCbCr formats
// return the plane layout in YCbCr with sizes reported as -1. Data always
// starts at the first byte of the buffer.
func (m *Mapper) Lock(h *Handle, usage Usage, region Rect, acquire *fence.Fence) (Layout, error) {
	l, err := m.dev.lock(h, usage, region, acquire)
	return l, m.dev.metrics.fail("lock", err)
}

// LockYCbCr is Lock for callers that want the plane layout of a YCbCr
// buffer. Buffers whose format has no chroma planes fail with BadValue.
func (m *Mapper) LockYCbCr(h *Handle, usage Usage, region Rect, acquire *fence.Fence) (YCbCrLayout, error) {
	l, err := m.dev.lockYCbCr(h, usage, region, acquire)
	return l, m.dev.metrics.fail("lockYCbCr", err)
}

// Unlock ends one CPU access started by Lock. The returned release fence is
// nil: CPU writes are complete and visible when Unlock returns. Unlocking a
// handle with no outstanding lock fails with BadBuffer and changes nothing.
func (m *Mapper) Unlock(h *Handle) (*fence.Fence, error) {
	f, err := m.dev.unlock(h)
	return f, m.dev.metrics.fail("unlock", err)
}

// waitFence blocks on f and records how long it took.
func (d *Device) waitFence(f *fence.Fence) {
	if f.IsSignaled() {
		return
	}
	start := time.Now()
	f.Wait()
	d.metrics.fenceWait.Observe(time.Since(start).Seconds())
}
