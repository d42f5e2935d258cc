// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import "github.com/prometheus/client_golang/prometheus"

// Default device limits.
const (
	DefaultStrideAlignment = 16
	DefaultMaxDimension    = 16384
	DefaultMaxLayers       = 8
	DefaultPoolBlocks      = 4
)

// DeviceOption configures a Device during creation.
//
// Example:
//
//	dev := gralloc.NewDevice(
//	    gralloc.WithMemoryBudget(256<<20),
//	    gralloc.WithRegisterer(prometheus.DefaultRegisterer),
//	)
type DeviceOption func(*deviceConfig)

// deviceConfig holds the limits and collaborators of a Device.
type deviceConfig struct {
	strideAlign uint32
	maxDim      uint32
	maxLayers   uint32
	budget      int64
	poolBlocks  int
	registerer  prometheus.Registerer
}

func defaultDeviceConfig() deviceConfig {
	return deviceConfig{
		strideAlign: DefaultStrideAlignment,
		maxDim:      DefaultMaxDimension,
		maxLayers:   DefaultMaxLayers,
		poolBlocks:  DefaultPoolBlocks,
	}
}

// WithStrideAlignment sets the pixel alignment of allocated row strides.
// Values below 1 are treated as 1 (no padding).
func WithStrideAlignment(pixels uint32) DeviceOption {
	return func(c *deviceConfig) {
		if pixels < 1 {
			pixels = 1
		}
		c.strideAlign = pixels
	}
}

// WithMaxDimension sets the largest width or height the device accepts.
func WithMaxDimension(n uint32) DeviceOption {
	return func(c *deviceConfig) { c.maxDim = n }
}

// WithMaxLayers sets the largest layer count the device accepts.
func WithMaxLayers(n uint32) DeviceOption {
	return func(c *deviceConfig) { c.maxLayers = n }
}

// WithMemoryBudget caps the bytes held by live buffers. Allocations past the
// cap fail with NoResources. Zero means unlimited.
func WithMemoryBudget(bytes int64) DeviceOption {
	return func(c *deviceConfig) { c.budget = bytes }
}

// WithPoolBlocks sets how many released mappings of each size the device
// keeps for reuse. Zero unmaps memory as soon as its last reference is freed.
func WithPoolBlocks(n int) DeviceOption {
	return func(c *deviceConfig) { c.poolBlocks = n }
}

// WithRegisterer registers the device metrics with reg. Without it metrics
// are still kept but not exported. Register each device with a given
// registerer at most once.
func WithRegisterer(reg prometheus.Registerer) DeviceOption {
	return func(c *deviceConfig) { c.registerer = reg }
}

// Option configures an Allocator or Mapper.
type Option func(*serviceOptions)

type serviceOptions struct {
	device *Device
}

// WithDevice binds a service to dev instead of the process-wide default.
func WithDevice(dev *Device) Option {
	return func(o *serviceOptions) { o.device = dev }
}

func resolveOptions(opts []Option) serviceOptions {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.device == nil {
		o.device = DefaultDevice()
	}
	return o
}
