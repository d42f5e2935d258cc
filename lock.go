// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"github.com/gogpu/gralloc/fence"
	"github.com/gogpu/gralloc/internal/layout"
)

// Rect bounds the pixels a lock intends to access.
type Rect struct {
	Left, Top     int32
	Width, Height int32
}

// Layout is the CPU view of a locked buffer.
type Layout struct {
	// Data is the whole mapped buffer, starting at layer 0, row 0.
	Data []byte

	// BytesPerPixel and BytesPerStride are both >= 0 when reported, or
	// both -1 when the format has no meaningful value.
	BytesPerPixel  int32
	BytesPerStride int32

	// YCbCr is set for formats with luma and chroma planes.
	YCbCr *YCbCrLayout
}

// YCbCrLayout locates the three planes of a YCbCr buffer. Each slice starts
// at its plane's first sample and runs to the end of the mapping.
//
// Sample (x, y) of luma is Y[y*YStride + x*s] and chroma sample (cx, cy) is
// Cb[cy*CStride + cx*ChromaStep], where s is the luma sample size.
type YCbCrLayout struct {
	Y, Cb, Cr  []byte
	YStride    uint32
	CStride    uint32
	ChromaStep uint32
}

// checkLockUsage validates a lock request against what the buffer was
// allocated for.
func checkLockUsage(s bufferShape, usage Usage, region Rect) error {
	info := s.info
	switch {
	case usage.Reserved() != 0:
		return errorf(BadValue, "reserved usage bits %#x", uint64(usage.Reserved()))
	case !usage.CPU():
		return errorf(BadValue, "lock usage %v has no CPU access", usage)
	case info.Usage&UsageProtected != 0:
		return errorf(BadValue, "protected buffers cannot be locked")
	case usage.CPURead() && !info.Usage.CPURead():
		return errorf(BadValue, "buffer was not allocated for CPU reads")
	case usage.CPUWrite() && !info.Usage.CPUWrite():
		return errorf(BadValue, "buffer was not allocated for CPU writes")
	}
	if region.Left < 0 || region.Top < 0 || region.Width < 0 || region.Height < 0 ||
		int64(region.Left)+int64(region.Width) > int64(info.Width) ||
		int64(region.Top)+int64(region.Height) > int64(info.Height) {
		return errorf(BadValue, "region %+v outside %dx%d buffer", region, info.Width, info.Height)
	}
	return nil
}

// acquire validates a lock, waits on the fence, and records the lock on
// the handle's reference. It returns the identity of the locked buffer and
// its mapped bytes.
func (d *Device) acquire(h *Handle, usage Usage, region Rect, f *fence.Fence) (*identity, []byte, error) {
	id, _, err := d.importedRef(h)
	if err != nil {
		return nil, nil, err
	}
	err = checkLockUsage(id.shape, usage, region)
	id.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	// The fence wait runs with no lock held; the reference is rechecked
	// afterwards in case it was freed meanwhile.
	d.waitFence(f)

	id, r, err := d.importedRef(h)
	if err != nil {
		return nil, nil, err
	}
	r.locks++
	r.usage = usage
	r.region = region
	locks := r.locks
	data := id.block.Bytes()[:id.shape.size]
	id.mu.Unlock()

	d.metrics.locks.Inc()
	Logger().Debug("gralloc: buffer locked", "id", id.id, "usage", usage, "locks", locks)
	return id, data, nil
}

func (d *Device) lock(h *Handle, usage Usage, region Rect, f *fence.Fence) (Layout, error) {
	id, data, err := d.acquire(h, usage, region, f)
	if err != nil {
		return Layout{}, err
	}
	s := id.shape

	if s.layout.IsYCbCr() {
		ycbcr := planes(s, data)
		return Layout{Data: data, BytesPerPixel: -1, BytesPerStride: -1, YCbCr: &ycbcr}, nil
	}
	if s.layout.Kind == layout.KindBlob {
		return Layout{Data: data, BytesPerPixel: -1, BytesPerStride: -1}, nil
	}
	return Layout{
		Data:           data,
		BytesPerPixel:  int32(s.layout.BytesPerPixel),
		BytesPerStride: int32(s.layout.RowBytes(s.stride)),
	}, nil
}

func (d *Device) lockYCbCr(h *Handle, usage Usage, region Rect, f *fence.Fence) (YCbCrLayout, error) {
	id, err := d.resolve(h)
	if err != nil {
		return YCbCrLayout{}, err
	}
	if !id.shape.layout.IsYCbCr() {
		return YCbCrLayout{}, errorf(BadValue, "format %v has no YCbCr layout", id.shape.info.Format)
	}
	id, data, err := d.acquire(h, usage, region, f)
	if err != nil {
		return YCbCrLayout{}, err
	}
	return planes(id.shape, data), nil
}

// planes slices data into the planes of layer 0.
func planes(s bufferShape, data []byte) YCbCrLayout {
	// shape already validated the dimensions, so Planes cannot fail here.
	p, _ := s.layout.Planes(s.stride, s.info.Height)
	return YCbCrLayout{
		Y:          data[p.Y:],
		Cb:         data[p.Cb:],
		Cr:         data[p.Cr:],
		YStride:    uint32(p.YStride),
		CStride:    uint32(p.CStride),
		ChromaStep: uint32(p.ChromaStep),
	}
}

func (d *Device) unlock(h *Handle) (*fence.Fence, error) {
	id, r, err := d.importedRef(h)
	if err != nil {
		return nil, err
	}
	defer id.mu.Unlock()
	if r.locks == 0 {
		return nil, errorf(BadBuffer, "buffer %d is not locked", id.id)
	}
	r.locks--
	d.metrics.unlocks.Inc()
	Logger().Debug("gralloc: buffer unlocked", "id", id.id, "locks", r.locks)
	return nil, nil
}
