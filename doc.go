// Package gralloc allocates graphics buffers and maps them into CPU memory.
//
// # Overview
//
// gralloc is a Pure Go buffer allocation service modeled on the graphics
// allocator and mapper HALs. Producers and consumers of image data (cameras,
// video codecs, compositors, renderers) describe the buffers they need,
// receive transferable handles, and lock those handles for CPU access.
//
// # Quick Start
//
//	import "github.com/gogpu/gralloc"
//
//	m := gralloc.NewMapper()
//	a := gralloc.NewAllocator()
//
//	desc, err := m.CreateDescriptor(gralloc.DescriptorInfo{
//		Width:      640,
//		Height:     480,
//		LayerCount: 1,
//		Format:     gralloc.FormatRGBA8888,
//		Usage:      gralloc.UsageCPUReadOften | gralloc.UsageCPUWriteOften,
//	})
//	if err != nil {
//		return err
//	}
//	stride, handles, err := a.Allocate(desc, 1, true)
//	if err != nil {
//		return err
//	}
//	h := handles[0]
//	defer m.FreeBuffer(h)
//
//	l, err := m.Lock(h, gralloc.UsageCPUWriteOften, gralloc.Rect{Width: 640, Height: 480}, nil)
//	if err != nil {
//		return err
//	}
//	// write rows of stride*4 bytes into l.Data
//	_, _ = m.Unlock(h)
//
// # Handles and references
//
// A buffer identity lives while at least one reference is held on it.
// Allocate returns either raw handles, which carry the allocator's reference
// and are released with Handle.Close, or imported handles, which can be
// locked and are released with Mapper.FreeBuffer. ImportBuffer grants a new,
// independent reference for any handle naming a live identity, including
// handles decoded with Handle.UnmarshalBinary.
//
// # Devices
//
// Allocators and mappers are views onto a Device, which owns backing memory
// and the reference table. NewAllocator and NewMapper use DefaultDevice
// unless WithDevice is given, so references taken through one mapper can be
// released through another.
//
// # Errors
//
// Every failure wraps one of the Error result codes; ResultOf recovers it:
//
//	if gralloc.ResultOf(err) == gralloc.BadBuffer {
//		// stale or foreign handle
//	}
//
// # Logging
//
// gralloc is silent by default. Use SetLogger to route lifecycle events to a
// slog handler.
//
// # Metrics
//
// Each device keeps Prometheus collectors for allocations, references,
// locks and fence waits. Pass WithRegisterer to NewDevice to export them.
package gralloc
