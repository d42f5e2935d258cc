// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// DescriptorInfo describes a buffer to allocate.
type DescriptorInfo struct {
	Width      uint32
	Height     uint32
	LayerCount uint32
	Format     PixelFormat
	Usage      Usage
}

// Descriptor is the opaque, immutable encoding of a validated
// DescriptorInfo. The zero value is an empty descriptor and is rejected by
// the allocator with BadDescriptor.
//
// Descriptors built from equal infos are equal word for word and may be used
// interchangeably.
type Descriptor []uint32

const (
	descriptorMagic   = 0x47524453 // "GRDS"
	descriptorVersion = 1
	descriptorWords   = 9
)

// validate checks the structural rules every descriptor must satisfy.
func (info DescriptorInfo) validate() error {
	switch {
	case info.Width == 0:
		return errorf(BadValue, "width must be positive")
	case info.Height == 0:
		return errorf(BadValue, "height must be positive")
	case info.LayerCount == 0:
		return errorf(BadValue, "layer count must be at least 1")
	case !info.Format.IsValid():
		return errorf(BadValue, "unknown format %v", info.Format)
	case info.Usage.Reserved() != 0:
		return errorf(BadValue, "reserved usage bits %#x", uint64(info.Usage.Reserved()))
	case info.Format == FormatBlob && info.Height != 1:
		return errorf(BadValue, "BLOB buffers must have height 1, got %d", info.Height)
	}
	return nil
}

// encode packs info into descriptor words.
func (info DescriptorInfo) encode() Descriptor {
	d := make(Descriptor, descriptorWords)
	d[0] = descriptorMagic
	d[1] = descriptorVersion
	d[2] = info.Width
	d[3] = info.Height
	d[4] = info.LayerCount
	d[5] = uint32(info.Format)
	d[6] = uint32(info.Usage)
	d[7] = uint32(info.Usage >> 32)
	d[8] = d.checksum()
	return d
}

// checksum is the low half of xxhash64 over every word but the last.
func (d Descriptor) checksum() uint32 {
	var buf [4 * (descriptorWords - 1)]byte
	for i := 0; i < descriptorWords-1; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], d[i])
	}
	return uint32(xxhash.Sum64(buf[:]))
}

// decode recovers and re-validates the info a descriptor was built from.
func (d Descriptor) decode() (DescriptorInfo, error) {
	if len(d) == 0 {
		return DescriptorInfo{}, errorf(BadDescriptor, "empty descriptor")
	}
	if len(d) != descriptorWords || d[0] != descriptorMagic || d[1] != descriptorVersion {
		return DescriptorInfo{}, errorf(BadDescriptor, "malformed descriptor")
	}
	if d[8] != d.checksum() {
		return DescriptorInfo{}, errorf(BadDescriptor, "descriptor checksum mismatch")
	}
	info := DescriptorInfo{
		Width:      d[2],
		Height:     d[3],
		LayerCount: d[4],
		Format:     PixelFormat(d[5]),
		Usage:      Usage(d[6]) | Usage(d[7])<<32,
	}
	if err := info.validate(); err != nil {
		return DescriptorInfo{}, errorf(BadDescriptor, "descriptor holds invalid info")
	}
	return info, nil
}

// Info returns the info the descriptor was built from.
func (d Descriptor) Info() (DescriptorInfo, error) {
	return d.decode()
}

// CreateDescriptor validates info and encodes it. Structurally invalid info
// (zero width, height or layers, unknown format, reserved usage bits, a BLOB
// taller than one row) fails with BadValue.
func CreateDescriptor(info DescriptorInfo) (Descriptor, error) {
	if err := info.validate(); err != nil {
		return nil, err
	}
	return info.encode(), nil
}
