// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import "github.com/gogpu/gputypes"

// GPUTexture describes a buffer in WebGPU terms, for importing it into a GPU
// framework as a texture.
type GPUTexture struct {
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
	Size   gputypes.Extent3D
}

// gpuFormats maps formats with a direct WebGPU equivalent.
var gpuFormats = map[PixelFormat]gputypes.TextureFormat{
	FormatRGBA8888: gputypes.TextureFormatRGBA8Unorm,
	FormatRGBX8888: gputypes.TextureFormatRGBA8Unorm,
	FormatBGRA8888: gputypes.TextureFormatBGRA8Unorm,
	FormatY8:       gputypes.TextureFormatR8Unorm,
}

// GPUTexture returns the WebGPU description of a buffer allocated from info.
// It reports false for formats without a WebGPU equivalent (YCbCr, packed
// 24- and 16-bit formats, raw and blob data).
func (info DescriptorInfo) GPUTexture() (GPUTexture, bool) {
	format, ok := gpuFormats[resolveFormat(info.Format, info.Usage)]
	if !ok {
		return GPUTexture{Format: gputypes.TextureFormatUndefined}, false
	}

	var usage gputypes.TextureUsage
	if info.Usage&UsageGPUTexture != 0 {
		usage |= gputypes.TextureUsageTextureBinding
	}
	if info.Usage&(UsageGPURenderTarget|UsageComposerClientTarget) != 0 {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	if info.Usage.CPUWrite() {
		usage |= gputypes.TextureUsageCopyDst
	}
	if info.Usage.CPURead() {
		usage |= gputypes.TextureUsageCopySrc
	}

	return GPUTexture{
		Format: format,
		Usage:  usage,
		Size: gputypes.Extent3D{
			Width:              info.Width,
			Height:             info.Height,
			DepthOrArrayLayers: max(info.LayerCount, 1),
		},
	}, true
}
