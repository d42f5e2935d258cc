// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"strings"
)

// Usage is a bitmask of the producers and consumers a buffer is meant for.
type Usage uint64

// CPU access levels live in two 4-bit fields.
const (
	UsageCPUReadMask   Usage = 0xF
	UsageCPUReadNever  Usage = 0
	UsageCPUReadRarely Usage = 2
	UsageCPUReadOften  Usage = 3

	UsageCPUWriteMask   Usage = 0xF << 4
	UsageCPUWriteNever  Usage = 0 << 4
	UsageCPUWriteRarely Usage = 2 << 4
	UsageCPUWriteOften  Usage = 3 << 4
)

// Device and consumer flags.
const (
	UsageGPUTexture           Usage = 1 << 8
	UsageGPURenderTarget      Usage = 1 << 9
	UsageComposerOverlay      Usage = 1 << 11
	UsageComposerClientTarget Usage = 1 << 12
	UsageProtected            Usage = 1 << 14
	UsageComposerCursor       Usage = 1 << 15
	UsageVideoEncoder         Usage = 1 << 16
	UsageCameraOutput         Usage = 1 << 17
	UsageCameraInput          Usage = 1 << 18
	UsageRenderScript         Usage = 1 << 20
	UsageVideoDecoder         Usage = 1 << 22
	UsageSensorDirectData     Usage = 1 << 23
	UsageGPUDataBuffer        Usage = 1 << 24
	UsageGPUCubeMap           Usage = 1 << 25
	UsageGPUMipmapComplete    Usage = 1 << 26
	UsageHWImageEncoder       Usage = 1 << 27

	UsageVendorMask   Usage = 0xF << 28
	UsageVendorMaskHi Usage = 0xFFFF << 48
)

// usageDefined is every bit with an assigned meaning.
const usageDefined = UsageCPUReadMask | UsageCPUWriteMask |
	UsageGPUTexture | UsageGPURenderTarget | UsageComposerOverlay |
	UsageComposerClientTarget | UsageProtected | UsageComposerCursor |
	UsageVideoEncoder | UsageCameraOutput | UsageCameraInput |
	UsageRenderScript | UsageVideoDecoder | UsageSensorDirectData |
	UsageGPUDataBuffer | UsageGPUCubeMap | UsageGPUMipmapComplete |
	UsageHWImageEncoder | UsageVendorMask | UsageVendorMaskHi

// Reserved returns the bits of u that have no assigned meaning.
func (u Usage) Reserved() Usage {
	return u &^ usageDefined
}

// CPURead reports whether u asks for CPU read access.
func (u Usage) CPURead() bool { return u&UsageCPUReadMask != UsageCPUReadNever }

// CPUWrite reports whether u asks for CPU write access.
func (u Usage) CPUWrite() bool { return u&UsageCPUWriteMask != UsageCPUWriteNever }

// CPU reports whether u asks for any CPU access.
func (u Usage) CPU() bool { return u.CPURead() || u.CPUWrite() }

var usageNames = []struct {
	bit  Usage
	name string
}{
	{UsageGPUTexture, "GPU_TEXTURE"},
	{UsageGPURenderTarget, "GPU_RENDER_TARGET"},
	{UsageComposerOverlay, "COMPOSER_OVERLAY"},
	{UsageComposerClientTarget, "COMPOSER_CLIENT_TARGET"},
	{UsageProtected, "PROTECTED"},
	{UsageComposerCursor, "COMPOSER_CURSOR"},
	{UsageVideoEncoder, "VIDEO_ENCODER"},
	{UsageCameraOutput, "CAMERA_OUTPUT"},
	{UsageCameraInput, "CAMERA_INPUT"},
	{UsageRenderScript, "RENDERSCRIPT"},
	{UsageVideoDecoder, "VIDEO_DECODER"},
	{UsageSensorDirectData, "SENSOR_DIRECT_DATA"},
	{UsageGPUDataBuffer, "GPU_DATA_BUFFER"},
	{UsageGPUCubeMap, "GPU_CUBE_MAP"},
	{UsageGPUMipmapComplete, "GPU_MIPMAP_COMPLETE"},
	{UsageHWImageEncoder, "HW_IMAGE_ENCODER"},
}

// String lists the set flags, e.g. "CPU_READ_OFTEN|GPU_TEXTURE".
func (u Usage) String() string {
	var parts []string
	switch u & UsageCPUReadMask {
	case UsageCPUReadNever:
	case UsageCPUReadRarely:
		parts = append(parts, "CPU_READ_RARELY")
	case UsageCPUReadOften:
		parts = append(parts, "CPU_READ_OFTEN")
	default:
		parts = append(parts, "CPU_READ")
	}
	switch u & UsageCPUWriteMask {
	case UsageCPUWriteNever:
	case UsageCPUWriteRarely:
		parts = append(parts, "CPU_WRITE_RARELY")
	case UsageCPUWriteOften:
		parts = append(parts, "CPU_WRITE_OFTEN")
	default:
		parts = append(parts, "CPU_WRITE")
	}
	for _, n := range usageNames {
		if u&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if u&(UsageVendorMask|UsageVendorMaskHi) != 0 {
		parts = append(parts, "VENDOR")
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}
