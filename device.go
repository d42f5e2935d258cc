// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/gralloc/internal/layout"
	"github.com/gogpu/gralloc/internal/memory"
	"github.com/gogpu/gralloc/internal/registry"
)

// Device owns the backing store and the reference table shared by every
// Allocator and Mapper bound to it.
//
// Most programs use the process-wide DefaultDevice, which is what makes a
// buffer imported through one Mapper freeable through any other. Separate
// devices are fully isolated: handles from one are foreign to another.
type Device struct {
	cfg     deviceConfig
	store   *memory.Store
	ids     *registry.Table[*identity]
	metrics *deviceMetrics

	allocated atomic.Uint64
}

var (
	defaultDeviceOnce sync.Once
	defaultDevice     *Device
)

// DefaultDevice returns the process-wide device, creating it on first use.
func DefaultDevice() *Device {
	defaultDeviceOnce.Do(func() {
		defaultDevice = NewDevice()
	})
	return defaultDevice
}

// NewDevice creates an isolated device.
func NewDevice(opts ...DeviceOption) *Device {
	cfg := defaultDeviceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	d := &Device{
		cfg:     cfg,
		store:   memory.NewStore(cfg.budget, cfg.poolBlocks),
		ids:     registry.New[*identity](registry.XXHasher),
		metrics: newDeviceMetrics(cfg.registerer),
	}
	Logger().Info("gralloc: device created",
		"strideAlign", cfg.strideAlign,
		"maxDimension", cfg.maxDim,
		"budget", cfg.budget,
		"poolBlocks", cfg.poolBlocks)
	return d
}

// bufferShape is everything the allocator decides about a buffer before
// backing memory exists.
type bufferShape struct {
	info   DescriptorInfo
	layout layout.Format
	stride uint32
	size   int
}

// shape resolves the concrete format of info and checks that this device
// can back it. info must already be structurally valid.
func (d *Device) shape(info DescriptorInfo) (bufferShape, error) {
	info.Format = resolveFormat(info.Format, info.Usage)
	switch {
	case !info.Format.allocatable():
		return bufferShape{}, errorf(Unsupported, "format %v", info.Format)
	case info.Width > d.cfg.maxDim || info.Height > d.cfg.maxDim:
		return bufferShape{}, errorf(Unsupported, "%dx%d exceeds %d", info.Width, info.Height, d.cfg.maxDim)
	case info.LayerCount > d.cfg.maxLayers:
		return bufferShape{}, errorf(Unsupported, "%d layers exceeds %d", info.LayerCount, d.cfg.maxLayers)
	case info.Usage&UsageProtected != 0 && info.Usage.CPU():
		return bufferShape{}, errorf(Unsupported, "protected buffers cannot be CPU accessible")
	}
	lf := info.Format.memLayout()
	stride := lf.Stride(info.Width, d.cfg.strideAlign)
	size, err := lf.Size(stride, info.Height, info.LayerCount)
	if err != nil {
		return bufferShape{}, errorf(Unsupported, "%v", err)
	}
	if d.cfg.budget > 0 && int64(size) > d.cfg.budget {
		return bufferShape{}, errorf(Unsupported, "%d bytes exceeds the device budget", size)
	}
	return bufferShape{info: info, layout: lf, stride: stride, size: size}, nil
}

// DeviceStats is a snapshot of device resource usage.
type DeviceStats struct {
	// Buffers is the number of live buffer identities.
	Buffers int

	// LiveBytes is the backing memory held by live identities.
	LiveBytes int64

	// PooledBlocks and PooledBytes describe released mappings kept for reuse.
	PooledBlocks int
	PooledBytes  int64

	// Mapped is the number of mappings currently held, live or pooled.
	Mapped int64

	// Allocations is the total number of buffers ever allocated.
	Allocations uint64
}

// Stats returns current device resource usage.
func (d *Device) Stats() DeviceStats {
	st := d.store.Stats()
	return DeviceStats{
		Buffers:      d.ids.Len(),
		LiveBytes:    st.LiveBytes,
		PooledBlocks: st.PooledBlocks,
		PooledBytes:  st.PooledBytes,
		Mapped:       st.Mapped,
		Allocations:  d.allocated.Load(),
	}
}

// Trim unmaps every pooled mapping. Live buffers are unaffected.
func (d *Device) Trim() error {
	return d.store.Drain()
}
