// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"encoding/binary"
	"errors"
	"slices"
)

// handleKind records how a Handle value holds its reference.
type handleKind uint8

const (
	// kindBare handles hold no reference: built by NewHandle or decoded
	// from the wire. They can be imported while their identity is live.
	kindBare handleKind = iota

	// kindRaw handles come straight from the allocator and carry its one
	// implicit reference. They are released with Close and cannot be locked.
	kindRaw

	// kindImported handles carry a reference granted by ImportBuffer or by
	// Allocate with import requested. They are released with FreeBuffer.
	kindImported
)

func (k handleKind) String() string {
	switch k {
	case kindRaw:
		return "raw"
	case kindImported:
		return "imported"
	}
	return "bare"
}

// Indexes into Handle.Ints.
const (
	intMagic = iota
	intIDLo
	intIDHi
	intWidth
	intHeight
	intFormat
	intLayers
	intStride
	intUsageLo
	intUsageHi
	intSizeLo
	intSizeHi
	handleInts
)

const handleMagic int32 = 0x47524248 // "GRBH"

// Handle is a transferable reference to a buffer identity, shaped like a
// native handle: a list of resource descriptors plus integer metadata.
//
// A handle with no descriptors cannot reference backing memory and is
// rejected by every operation with BadBuffer.
type Handle struct {
	FDs  []int
	Ints []int32

	kind handleKind
	ref  uint64
	dev  *Device
}

// NewHandle builds a bare handle from descriptors and metadata. The slices
// are copied.
func NewHandle(fds []int, ints []int32) *Handle {
	return &Handle{FDs: slices.Clone(fds), Ints: slices.Clone(ints)}
}

func newHandle(id *identity, kind handleKind, ref uint64, dev *Device) *Handle {
	return &Handle{
		FDs:  []int{id.block.FD()},
		Ints: slices.Clone(id.ints),
		kind: kind,
		ref:  ref,
		dev:  dev,
	}
}

// valid reports whether h is structurally able to name an identity.
func (h *Handle) valid() bool {
	return h != nil && len(h.FDs) > 0 && len(h.Ints) == handleInts && h.Ints[intMagic] == handleMagic
}

// ID returns the identity key the handle refers to, or 0 for a malformed
// handle.
func (h *Handle) ID() uint64 {
	if !h.valid() {
		return 0
	}
	return uint64(uint32(h.Ints[intIDLo])) | uint64(uint32(h.Ints[intIDHi]))<<32
}

// Stride returns the row pitch in pixels recorded in the handle.
func (h *Handle) Stride() uint32 {
	if !h.valid() {
		return 0
	}
	return uint32(h.Ints[intStride])
}

// Info returns the descriptor info recorded in the handle. The format is the
// concrete format the buffer was allocated with.
func (h *Handle) Info() DescriptorInfo {
	if !h.valid() {
		return DescriptorInfo{}
	}
	return DescriptorInfo{
		Width:      uint32(h.Ints[intWidth]),
		Height:     uint32(h.Ints[intHeight]),
		LayerCount: uint32(h.Ints[intLayers]),
		Format:     PixelFormat(uint32(h.Ints[intFormat])),
		Usage:      Usage(uint32(h.Ints[intUsageLo])) | Usage(uint32(h.Ints[intUsageHi]))<<32,
	}
}

// IsImported reports whether h carries an imported reference.
func (h *Handle) IsImported() bool {
	return h != nil && h.kind == kindImported
}

// Close releases the implicit reference of a raw handle returned by
// Allocate without import. It fails with BadBuffer for imported handles
// (use FreeBuffer), bare handles, and raw handles already closed.
func (h *Handle) Close() error {
	if !h.valid() || h.kind != kindRaw || h.dev == nil {
		return errorf(BadBuffer, "not a raw allocator handle")
	}
	return h.dev.release(h, kindRaw)
}

// MarshalBinary encodes the transferable form of the handle. The reference
// itself does not travel: the decoded handle is bare and must be imported.
func (h *Handle) MarshalBinary() ([]byte, error) {
	if !h.valid() {
		return nil, errorf(BadBuffer, "cannot marshal malformed handle")
	}
	buf := make([]byte, 0, 8+4*(len(h.FDs)+len(h.Ints)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(h.FDs)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(h.Ints)))
	for _, fd := range h.FDs {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(fd)))
	}
	for _, v := range h.Ints {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return buf, nil
}

var errShortHandle = errors.New("gralloc: truncated handle encoding")

// UnmarshalBinary decodes a handle produced by MarshalBinary into a bare
// handle.
func (h *Handle) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return errShortHandle
	}
	numFDs := int(binary.LittleEndian.Uint32(data))
	numInts := int(binary.LittleEndian.Uint32(data[4:]))
	data = data[8:]
	if numFDs < 0 || numInts < 0 || len(data) != 4*(numFDs+numInts) {
		return errShortHandle
	}
	fds := make([]int, numFDs)
	for i := range fds {
		fds[i] = int(int32(binary.LittleEndian.Uint32(data[4*i:])))
	}
	data = data[4*numFDs:]
	ints := make([]int32, numInts)
	for i := range ints {
		ints[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
	}
	*h = Handle{FDs: fds, Ints: ints}
	return nil
}
