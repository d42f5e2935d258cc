// Command grallocstress allocates and frees buffers from several goroutines
// against one descriptor and reports throughput.
package main

import (
	"flag"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gogpu/gralloc"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	var (
		workers  = flag.Int("workers", 8, "concurrent allocating goroutines")
		duration = flag.Duration("duration", 3*time.Second, "how long to run")
		width    = flag.Int("width", 1024, "buffer width")
		height   = flag.Int("height", 1024, "buffer height")
		batch    = flag.Uint("batch", 1, "buffers per allocate call")
		lang     = flag.String("lang", "en", "language tag for number formatting")
	)
	flag.Parse()

	tag, err := language.Parse(*lang)
	if err != nil {
		log.Fatalf("Bad language %q: %v", *lang, err)
	}
	p := message.NewPrinter(tag)

	dev := gralloc.NewDevice()
	a := gralloc.NewAllocator(gralloc.WithDevice(dev))
	m := gralloc.NewMapper(gralloc.WithDevice(dev))

	desc, err := m.CreateDescriptor(gralloc.DescriptorInfo{
		Width:      uint32(*width),
		Height:     uint32(*height),
		LayerCount: 1,
		Format:     gralloc.FormatRGBA8888,
		Usage:      gralloc.UsageCPUReadOften | gralloc.UsageCPUWriteOften,
	})
	if err != nil {
		log.Fatalf("Create descriptor: %v", err)
	}

	var (
		allocs   atomic.Uint64
		failures atomic.Uint64
		ids      sync.Map
		dupes    atomic.Uint64
		wg       sync.WaitGroup
	)
	deadline := time.Now().Add(*duration)
	start := time.Now()
	for w := range *workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				_, handles, err := a.Allocate(desc, uint32(*batch), w%2 == 0)
				if err != nil {
					failures.Add(1)
					continue
				}
				for _, h := range handles {
					if _, loaded := ids.LoadOrStore(h.ID(), struct{}{}); loaded {
						dupes.Add(1)
					}
					if h.IsImported() {
						err = m.FreeBuffer(h)
					} else {
						err = h.Close()
					}
					if err != nil {
						failures.Add(1)
					}
				}
				allocs.Add(uint64(len(handles)))
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	st := dev.Stats()
	p.Printf("workers:       %d\n", *workers)
	p.Printf("buffers:       %d in %v (%.0f/s)\n", allocs.Load(), elapsed.Round(time.Millisecond), float64(allocs.Load())/elapsed.Seconds())
	p.Printf("failures:      %d\n", failures.Load())
	p.Printf("duplicate ids: %d\n", dupes.Load())
	p.Printf("live buffers:  %d\n", st.Buffers)
	p.Printf("mapped:        %d (%s pooled)\n", st.Mapped, humanize.IBytes(uint64(st.PooledBytes)))

	if err := dev.Trim(); err != nil {
		log.Printf("Trim: %v", err)
	}
	if st.Buffers != 0 || dupes.Load() != 0 {
		log.Fatal("grallocstress: leaked or duplicated buffers")
	}
}
