// Command grallocdump allocates a buffer, fills it with a test pattern
// through the mapper, and writes a PNG thumbnail of what it reads back.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/gralloc"
	"github.com/gogpu/gralloc/snapshot"
)

var formats = map[string]gralloc.PixelFormat{
	"rgba": gralloc.FormatRGBA8888,
	"rgbx": gralloc.FormatRGBX8888,
	"bgra": gralloc.FormatBGRA8888,
	"y8":   gralloc.FormatY8,
}

func main() {
	var (
		width   = flag.Int("width", 640, "buffer width")
		height  = flag.Int("height", 480, "buffer height")
		format  = flag.String("format", "rgba", "pixel format (rgba, rgbx, bgra, y8)")
		thumb   = flag.Int("thumb", 256, "thumbnail size limit in pixels")
		output  = flag.String("output", "gralloc.png", "output file")
		verbose = flag.Bool("v", false, "log buffer lifecycle")
	)
	flag.Parse()

	if *verbose {
		gralloc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	pf, ok := formats[strings.ToLower(*format)]
	if !ok {
		log.Fatalf("Unknown format %q", *format)
	}

	info := gralloc.DescriptorInfo{
		Width:      uint32(*width),
		Height:     uint32(*height),
		LayerCount: 1,
		Format:     pf,
		Usage:      gralloc.UsageCPUReadOften | gralloc.UsageCPUWriteOften | gralloc.UsageGPUTexture,
	}
	if err := run(info, *thumb, *output); err != nil {
		log.Fatalf("grallocdump: %v", err)
	}
}

func run(info gralloc.DescriptorInfo, thumb int, output string) error {
	a := gralloc.NewAllocator()
	m := gralloc.NewMapper()

	desc, err := m.CreateDescriptor(info)
	if err != nil {
		return fmt.Errorf("create descriptor: %w", err)
	}
	stride, handles, err := a.Allocate(desc, 1, true)
	if err != nil {
		return fmt.Errorf("allocate: %w", err)
	}
	h := handles[0]
	defer func() { _ = m.FreeBuffer(h) }()

	region := gralloc.Rect{Width: int32(info.Width), Height: int32(info.Height)}
	l, err := m.Lock(h, gralloc.UsageCPUWriteOften, region, nil)
	if err != nil {
		return fmt.Errorf("lock for write: %w", err)
	}
	err = snapshot.Gradient(info.Format, int(info.Width), int(info.Height), l)
	if _, uerr := m.Unlock(h); uerr != nil && err == nil {
		err = uerr
	}
	if err != nil {
		return fmt.Errorf("fill: %w", err)
	}

	l, err = m.Lock(h, gralloc.UsageCPUReadOften, region, nil)
	if err != nil {
		return fmt.Errorf("lock for read: %w", err)
	}
	img, err := snapshot.FromLayout(info.Format, int(info.Width), int(info.Height), l)
	if _, uerr := m.Unlock(h); uerr != nil && err == nil {
		err = uerr
	}
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	if err := snapshot.SavePNG(output, snapshot.Thumbnail(img, thumb)); err != nil {
		return err
	}

	if tex, ok := info.GPUTexture(); ok {
		log.Printf("GPU texture: format=%v usage=%v size=%dx%d", tex.Format, tex.Usage, tex.Size.Width, tex.Size.Height)
	}
	log.Printf("Buffer %dx%d %v (stride %d) saved to %s", info.Width, info.Height, info.Format, stride, output)
	fmt.Print(a.DumpDebugInfo())
	return nil
}
