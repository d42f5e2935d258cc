// Package layout computes strides, sizes and plane offsets for pixel formats.
//
// The math here is shared by the allocator (which picks a stride and a
// backing size) and the locker (which turns a mapping into plane pointers).
// It never touches memory itself.
package layout

import "errors"

// Common errors for layout computations.
var (
	// ErrInvalidDimensions is returned when width, height or layers are zero.
	ErrInvalidDimensions = errors.New("layout: invalid dimensions")

	// ErrNotPlanar is returned when a plane layout is requested for a packed format.
	ErrNotPlanar = errors.New("layout: format is not YCbCr")

	// ErrTooLarge is returned when a buffer size does not fit in an int.
	ErrTooLarge = errors.New("layout: buffer too large")
)

// Kind classifies how the bytes of a format are arranged in memory.
type Kind uint8

const (
	// KindNone marks a format that cannot be laid out.
	KindNone Kind = iota

	// KindPacked stores all components of a pixel together, row by row.
	KindPacked

	// KindBlob is an opaque byte array; width is the size in bytes and height is 1.
	KindBlob

	// KindYV12 is fully planar 4:2:0: Y plane, then Cr plane, then Cb plane.
	KindYV12

	// KindNV12 is semi-planar 4:2:0 with interleaved CbCr after the Y plane.
	KindNV12

	// KindNV21 is semi-planar 4:2:0 with interleaved CrCb after the Y plane.
	KindNV21

	// KindNV16 is semi-planar 4:2:2 with interleaved CbCr at full height.
	KindNV16

	// KindP010 is semi-planar 4:2:0 with 16-bit samples (10 significant bits).
	KindP010
)

// Format describes the memory arrangement of one pixel format.
type Format struct {
	Kind Kind

	// BytesPerPixel is the packed pixel size. For planar kinds it is the
	// size of one luma sample.
	BytesPerPixel int
}

// IsYCbCr reports whether the format has separate luma and chroma planes.
func (f Format) IsYCbCr() bool {
	switch f.Kind {
	case KindYV12, KindNV12, KindNV21, KindNV16, KindP010:
		return true
	}
	return false
}

// Stride returns the row pitch in pixels the allocator hands out for width.
// align is the pixel alignment; values below 2 disable rounding.
func (f Format) Stride(width, align uint32) uint32 {
	if f.Kind == KindBlob {
		return width
	}
	if f.Kind == KindYV12 && align < 16 {
		// YV12 requires 16-pixel aligned luma rows.
		align = 16
	}
	stride := alignUp(width, align)
	if f.semiPlanar() && stride%2 == 1 {
		// Interleaved chroma rows hold ceil(width/2) sample pairs and share
		// the luma pitch, so the pitch must be even.
		stride += max(align, 1)
	}
	return stride
}

// semiPlanar reports whether chroma is one interleaved plane sharing the
// luma pitch.
func (f Format) semiPlanar() bool {
	switch f.Kind {
	case KindNV12, KindNV21, KindNV16, KindP010:
		return true
	}
	return false
}

// RowBytes returns the byte pitch of the first plane for a pixel stride.
func (f Format) RowBytes(stride uint32) int {
	switch f.Kind {
	case KindBlob:
		return -1
	case KindYV12:
		return int(alignUp(stride, 16))
	}
	return int(stride) * f.BytesPerPixel
}

// LayerSize returns the byte size of a single layer.
func (f Format) LayerSize(stride, height uint32) (int, error) {
	if stride == 0 || height == 0 {
		return 0, ErrInvalidDimensions
	}
	var size uint64
	h := uint64(height)
	chromaRows := (h + 1) / 2
	switch f.Kind {
	case KindPacked:
		size = uint64(stride) * uint64(f.BytesPerPixel) * h
	case KindBlob:
		size = uint64(stride)
	case KindYV12:
		ys := uint64(alignUp(stride, 16))
		cs := uint64(alignUp(uint32(ys/2), 16))
		size = ys*h + 2*cs*chromaRows
	case KindNV12, KindNV21:
		ys := uint64(stride)
		size = ys*h + ys*chromaRows
	case KindNV16:
		ys := uint64(stride)
		size = 2 * ys * h
	case KindP010:
		ys := uint64(stride) * 2
		size = ys*h + ys*chromaRows
	default:
		return 0, ErrInvalidDimensions
	}
	if size > maxSize {
		return 0, ErrTooLarge
	}
	return int(size), nil
}

// Size returns the total byte size of layers stacked back to back.
func (f Format) Size(stride, height, layers uint32) (int, error) {
	if layers == 0 {
		return 0, ErrInvalidDimensions
	}
	layer, err := f.LayerSize(stride, height)
	if err != nil {
		return 0, err
	}
	total := uint64(layer) * uint64(layers)
	if total > maxSize {
		return 0, ErrTooLarge
	}
	return int(total), nil
}

// Planes holds byte offsets and pitches of a YCbCr layout, relative to the
// start of a layer.
type Planes struct {
	Y, Cb, Cr  int
	YStride    int
	CStride    int
	ChromaStep int
}

// Planes computes the plane arrangement of one layer.
func (f Format) Planes(stride, height uint32) (Planes, error) {
	if stride == 0 || height == 0 {
		return Planes{}, ErrInvalidDimensions
	}
	h := int(height)
	switch f.Kind {
	case KindYV12:
		ys := int(alignUp(stride, 16))
		cs := int(alignUp(uint32(ys/2), 16))
		cr := ys * h
		cb := cr + cs*((h+1)/2)
		return Planes{Y: 0, Cb: cb, Cr: cr, YStride: ys, CStride: cs, ChromaStep: 1}, nil
	case KindNV12, KindNV16:
		ys := int(stride)
		cb := ys * h
		return Planes{Y: 0, Cb: cb, Cr: cb + 1, YStride: ys, CStride: ys, ChromaStep: 2}, nil
	case KindNV21:
		ys := int(stride)
		cr := ys * h
		return Planes{Y: 0, Cb: cr + 1, Cr: cr, YStride: ys, CStride: ys, ChromaStep: 2}, nil
	case KindP010:
		ys := int(stride) * 2
		cb := ys * h
		return Planes{Y: 0, Cb: cb, Cr: cb + 2, YStride: ys, CStride: ys, ChromaStep: 4}, nil
	}
	return Planes{}, ErrNotPlanar
}

const maxSize = uint64(^uint(0) >> 1)

func alignUp(v, align uint32) uint32 {
	if align < 2 {
		return v
	}
	return (v + align - 1) / align * align
}
