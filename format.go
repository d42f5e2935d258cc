// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"fmt"

	"github.com/gogpu/gralloc/internal/layout"
)

// PixelFormat identifies how pixels are stored in a buffer.
// Values follow the graphics HAL numbering so they can cross process
// boundaries unchanged.
type PixelFormat uint32

const (
	// FormatRGBA8888 is 8-bit-per-channel RGBA, 4 bytes per pixel.
	// Every device must support it.
	FormatRGBA8888 PixelFormat = 0x1

	// FormatRGBX8888 is RGBA8888 with the alpha byte ignored.
	FormatRGBX8888 PixelFormat = 0x2

	// FormatRGB888 is packed 24-bit RGB.
	FormatRGB888 PixelFormat = 0x3

	// FormatRGB565 is packed 16-bit RGB.
	FormatRGB565 PixelFormat = 0x4

	// FormatBGRA8888 is 8-bit-per-channel BGRA.
	FormatBGRA8888 PixelFormat = 0x5

	// FormatYCbCr422SP is semi-planar 4:2:2 (NV16).
	FormatYCbCr422SP PixelFormat = 0x10

	// FormatYCrCb420SP is semi-planar 4:2:0 with CrCb ordering (NV21).
	FormatYCrCb420SP PixelFormat = 0x11

	// FormatYCbCr422I is interleaved 4:2:2 (YUY2).
	FormatYCbCr422I PixelFormat = 0x14

	// FormatRGBAFP16 is half-float RGBA, 8 bytes per pixel.
	FormatRGBAFP16 PixelFormat = 0x16

	// FormatRaw16 is 16-bit raw sensor data.
	FormatRaw16 PixelFormat = 0x20

	// FormatBlob is an opaque byte buffer; width is its size in bytes.
	FormatBlob PixelFormat = 0x21

	// FormatImplementationDefined lets the device pick a format from usage.
	FormatImplementationDefined PixelFormat = 0x22

	// FormatYCbCr420888 is flexible 4:2:0; this device lays it out as NV12.
	FormatYCbCr420888 PixelFormat = 0x23

	// FormatRawOpaque is device-specific raw sensor data.
	FormatRawOpaque PixelFormat = 0x24

	// FormatRaw10 is packed 10-bit raw sensor data.
	FormatRaw10 PixelFormat = 0x25

	// FormatRaw12 is packed 12-bit raw sensor data.
	FormatRaw12 PixelFormat = 0x26

	// FormatRGBA1010102 is 10-bit RGB with 2-bit alpha, 4 bytes per pixel.
	FormatRGBA1010102 PixelFormat = 0x2B

	// Depth and stencil formats.
	FormatDepth16          PixelFormat = 0x30
	FormatDepth24          PixelFormat = 0x31
	FormatDepth24Stencil8  PixelFormat = 0x32
	FormatDepth32F         PixelFormat = 0x33
	FormatDepth32FStencil8 PixelFormat = 0x34
	FormatStencil8         PixelFormat = 0x35

	// FormatYCbCrP010 is semi-planar 4:2:0 with 16-bit samples.
	FormatYCbCrP010 PixelFormat = 0x36

	// FormatHSV888 is packed 24-bit HSV.
	FormatHSV888 PixelFormat = 0x37

	// FormatY8 is 8-bit luma only.
	FormatY8 PixelFormat = 0x20203859

	// FormatY16 is 16-bit luma only.
	FormatY16 PixelFormat = 0x20363159

	// FormatYV12 is planar 4:2:0: Y, then Cr, then Cb, with 16-aligned strides.
	// Every device must support it.
	FormatYV12 PixelFormat = 0x32315659
)

// formatInfo contains metadata about a pixel format.
type formatInfo struct {
	name string

	// layout is the memory arrangement; KindNone for formats this device
	// recognizes but cannot allocate.
	layout layout.Format
}

// formatTable lists every recognized format.
var formatTable = map[PixelFormat]formatInfo{
	FormatRGBA8888:              {"RGBA_8888", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 4}},
	FormatRGBX8888:              {"RGBX_8888", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 4}},
	FormatRGB888:                {"RGB_888", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 3}},
	FormatRGB565:                {"RGB_565", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 2}},
	FormatBGRA8888:              {"BGRA_8888", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 4}},
	FormatYCbCr422SP:            {"YCBCR_422_SP", layout.Format{Kind: layout.KindNV16, BytesPerPixel: 1}},
	FormatYCrCb420SP:            {"YCRCB_420_SP", layout.Format{Kind: layout.KindNV21, BytesPerPixel: 1}},
	FormatYCbCr422I:             {"YCBCR_422_I", layout.Format{}},
	FormatRGBAFP16:              {"RGBA_FP16", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 8}},
	FormatRaw16:                 {"RAW16", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 2}},
	FormatBlob:                  {"BLOB", layout.Format{Kind: layout.KindBlob, BytesPerPixel: 1}},
	FormatImplementationDefined: {"IMPLEMENTATION_DEFINED", layout.Format{}},
	FormatYCbCr420888:           {"YCBCR_420_888", layout.Format{Kind: layout.KindNV12, BytesPerPixel: 1}},
	FormatRawOpaque:             {"RAW_OPAQUE", layout.Format{}},
	FormatRaw10:                 {"RAW10", layout.Format{}},
	FormatRaw12:                 {"RAW12", layout.Format{}},
	FormatRGBA1010102:           {"RGBA_1010102", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 4}},
	FormatDepth16:               {"DEPTH_16", layout.Format{}},
	FormatDepth24:               {"DEPTH_24", layout.Format{}},
	FormatDepth24Stencil8:       {"DEPTH_24_STENCIL_8", layout.Format{}},
	FormatDepth32F:              {"DEPTH_32F", layout.Format{}},
	FormatDepth32FStencil8:      {"DEPTH_32F_STENCIL_8", layout.Format{}},
	FormatStencil8:              {"STENCIL_8", layout.Format{}},
	FormatYCbCrP010:             {"YCBCR_P010", layout.Format{Kind: layout.KindP010, BytesPerPixel: 2}},
	FormatHSV888:                {"HSV_888", layout.Format{}},
	FormatY8:                    {"Y8", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 1}},
	FormatY16:                   {"Y16", layout.Format{Kind: layout.KindPacked, BytesPerPixel: 2}},
	FormatYV12:                  {"YV12", layout.Format{Kind: layout.KindYV12, BytesPerPixel: 1}},
}

// IsValid reports whether f is a recognized format value.
func (f PixelFormat) IsValid() bool {
	_, ok := formatTable[f]
	return ok
}

// String returns the HAL name of the format.
func (f PixelFormat) String() string {
	if info, ok := formatTable[f]; ok {
		return info.name
	}
	return fmt.Sprintf("PixelFormat(%#x)", uint32(f))
}

// IsYCbCr reports whether buffers of this format have luma and chroma planes.
func (f PixelFormat) IsYCbCr() bool {
	return formatTable[f].layout.IsYCbCr()
}

// BytesPerPixel returns the packed pixel size, or -1 when the format has no
// single per-pixel size (planar, blob, or unallocatable formats).
func (f PixelFormat) BytesPerPixel() int {
	l := formatTable[f].layout
	if l.Kind != layout.KindPacked {
		return -1
	}
	return l.BytesPerPixel
}

// allocatable reports whether this device can back the format with memory.
// FormatImplementationDefined is resolved before this check.
func (f PixelFormat) allocatable() bool {
	return formatTable[f].layout.Kind != layout.KindNone
}

func (f PixelFormat) memLayout() layout.Format {
	return formatTable[f].layout
}

// resolveFormat picks the concrete format for FormatImplementationDefined.
// Video and camera consumers get flexible YCbCr; everything else gets RGBX.
func resolveFormat(f PixelFormat, usage Usage) PixelFormat {
	if f != FormatImplementationDefined {
		return f
	}
	if usage&(UsageVideoEncoder|UsageVideoDecoder|UsageCameraInput|UsageCameraOutput) != 0 {
		return FormatYCbCr420888
	}
	return FormatRGBX8888
}
