// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package snapshot converts locked gralloc buffers into standard images.
//
// A snapshot copies the pixels out of the mapping, so the image stays valid
// after the buffer is unlocked or freed.
//
//	l, err := m.Lock(h, gralloc.UsageCPUReadOften, region, nil)
//	if err != nil {
//		return err
//	}
//	img, err := snapshot.FromLayout(info.Format, int(info.Width), int(info.Height), l)
//	_, _ = m.Unlock(h)
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gralloc"
	xdraw "golang.org/x/image/draw"
)

// Snapshot errors.
var (
	// ErrUnsupportedFormat is returned for formats with no image conversion.
	ErrUnsupportedFormat = errors.New("snapshot: unsupported format")

	// ErrShortBuffer is returned when the layout is too small for the
	// requested dimensions.
	ErrShortBuffer = errors.New("snapshot: buffer smaller than its layout")

	// ErrInvalidSize is returned for non-positive dimensions.
	ErrInvalidSize = errors.New("snapshot: invalid size")
)

// FromLayout copies layer 0 of a locked buffer into an image.
//
// RGBA_8888, RGBX_8888 and BGRA_8888 become *image.NRGBA, Y8 becomes
// *image.Gray and 4:2:0 YCbCr formats (YV12, YCbCr_420_888, NV21) become
// *image.YCbCr.
func FromLayout(format gralloc.PixelFormat, width, height int, l gralloc.Layout) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	switch format {
	case gralloc.FormatRGBA8888, gralloc.FormatRGBX8888, gralloc.FormatBGRA8888:
		return fromRGBA(format, width, height, l)
	case gralloc.FormatY8:
		return fromGray(width, height, l)
	case gralloc.FormatYV12, gralloc.FormatYCbCr420888, gralloc.FormatYCrCb420SP:
		if l.YCbCr == nil {
			return nil, fmt.Errorf("%w: %v lock has no plane layout", ErrUnsupportedFormat, format)
		}
		return fromYCbCr420(width, height, l.YCbCr)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
}

func fromRGBA(format gralloc.PixelFormat, width, height int, l gralloc.Layout) (*image.NRGBA, error) {
	stride := int(l.BytesPerStride)
	if l.BytesPerPixel != 4 || stride < width*4 || len(l.Data) < stride*(height-1)+width*4 {
		return nil, ErrShortBuffer
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		src := l.Data[y*stride : y*stride+width*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+width*4]
		copy(dst, src)
		for x := 0; x < len(dst); x += 4 {
			switch format {
			case gralloc.FormatBGRA8888:
				dst[x], dst[x+2] = dst[x+2], dst[x]
			case gralloc.FormatRGBX8888:
				dst[x+3] = 0xFF
			}
		}
	}
	return img, nil
}

func fromGray(width, height int, l gralloc.Layout) (*image.Gray, error) {
	stride := int(l.BytesPerStride)
	if l.BytesPerPixel != 1 || stride < width || len(l.Data) < stride*(height-1)+width {
		return nil, ErrShortBuffer
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := range height {
		copy(img.Pix[y*img.Stride:], l.Data[y*stride:y*stride+width])
	}
	return img, nil
}

func fromYCbCr420(width, height int, p *gralloc.YCbCrLayout) (*image.YCbCr, error) {
	ys, cs, step := int(p.YStride), int(p.CStride), int(p.ChromaStep)
	cw, ch := (width+1)/2, (height+1)/2
	if step < 1 || len(p.Y) < ys*(height-1)+width ||
		len(p.Cb) < cs*(ch-1)+step*(cw-1)+1 || len(p.Cr) < cs*(ch-1)+step*(cw-1)+1 {
		return nil, ErrShortBuffer
	}
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	for y := range height {
		copy(img.Y[y*img.YStride:], p.Y[y*ys:y*ys+width])
	}
	for y := range ch {
		for x := range cw {
			img.Cb[y*img.CStride+x] = p.Cb[y*cs+x*step]
			img.Cr[y*img.CStride+x] = p.Cr[y*cs+x*step]
		}
	}
	return img, nil
}

// Thumbnail scales img so that its longer side is at most maxDim pixels,
// keeping the aspect ratio. Images already small enough are converted to
// RGBA without scaling.
func Thumbnail(img image.Image, maxDim int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim > 0 && (w > maxDim || h > maxDim) {
		if w >= h {
			w, h = maxDim, max(1, h*maxDim/w)
		} else {
			w, h = max(1, w*maxDim/h), maxDim
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Gradient fills a locked RGBA_8888-family or Y8 buffer with a diagonal test
// pattern. Other formats are left untouched and reported as unsupported.
func Gradient(format gralloc.PixelFormat, width, height int, l gralloc.Layout) error {
	stride := int(l.BytesPerStride)
	bpp := int(l.BytesPerPixel)
	switch format {
	case gralloc.FormatRGBA8888, gralloc.FormatRGBX8888, gralloc.FormatBGRA8888, gralloc.FormatY8:
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if bpp < 1 || len(l.Data) < stride*(height-1)+width*bpp {
		return ErrShortBuffer
	}
	for y := range height {
		row := l.Data[y*stride:]
		for x := range width {
			c := color.NRGBA{
				R: uint8(x * 255 / max(1, width-1)),
				G: uint8(y * 255 / max(1, height-1)),
				B: uint8((x + y) * 255 / max(1, width+height-2)),
				A: 0xFF,
			}
			px := row[x*bpp : x*bpp+bpp]
			switch format {
			case gralloc.FormatY8:
				px[0] = color.GrayModel.Convert(c).(color.Gray).Y
			case gralloc.FormatBGRA8888:
				px[0], px[1], px[2], px[3] = c.B, c.G, c.R, c.A
			default:
				px[0], px[1], px[2], px[3] = c.R, c.G, c.B, c.A
			}
		}
	}
	return nil
}
