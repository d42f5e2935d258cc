package gralloc

import (
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gralloc/fence"
)

const (
	readWrite = UsageCPUReadOften | UsageCPUWriteOften
	readOnly  = UsageCPUReadOften
)

func TestImportFreeBuffer(t *testing.T) {
	a, m := newTestServices(t)
	raw := allocateOne(t, a, m, testInfo(), false)

	imported, err := m.ImportBuffer(raw)
	if err != nil {
		t.Fatalf("ImportBuffer() = %v", err)
	}
	if !imported.IsImported() {
		t.Error("ImportBuffer() returned a non-imported handle")
	}
	if imported.ID() != raw.ID() {
		t.Errorf("imported ID = %d, want %d", imported.ID(), raw.ID())
	}
	if err := m.FreeBuffer(imported); err != nil {
		t.Errorf("FreeBuffer() = %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if st := a.Device().Stats(); st.Buffers != 0 {
		t.Errorf("Stats().Buffers = %d, want 0", st.Buffers)
	}
}

func TestImportIndependentReferences(t *testing.T) {
	a, m := newTestServices(t)
	raw := allocateOne(t, a, m, testInfo(), false)

	first, err := m.ImportBuffer(raw)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.ImportBuffer(raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	// The identity survives the raw reference while imports remain.
	if err := m.FreeBuffer(first); err != nil {
		t.Fatalf("FreeBuffer(first) = %v", err)
	}
	if _, err := m.Lock(second, readWrite, fullRect(testInfo()), nil); err != nil {
		t.Fatalf("Lock(second) = %v", err)
	}
	if _, err := m.Unlock(second); err != nil {
		t.Fatalf("Unlock(second) = %v", err)
	}
	if err := m.FreeBuffer(second); err != nil {
		t.Fatalf("FreeBuffer(second) = %v", err)
	}
	if st := a.Device().Stats(); st.Buffers != 0 {
		t.Errorf("Stats().Buffers = %d, want 0", st.Buffers)
	}
}

func TestImportFromImported(t *testing.T) {
	a, m := newTestServices(t)
	h := allocateOne(t, a, m, testInfo(), true)

	clone, err := m.ImportBuffer(h)
	if err != nil {
		t.Fatalf("ImportBuffer(imported) = %v", err)
	}
	if err := m.FreeBuffer(h); err != nil {
		t.Fatal(err)
	}
	// A freed handle can no longer vouch for an import.
	_, err = m.ImportBuffer(h)
	wantResult(t, "ImportBuffer(freed)", err, BadBuffer)

	if err := m.FreeBuffer(clone); err != nil {
		t.Fatal(err)
	}
}

func TestFreeThroughOtherMapper(t *testing.T) {
	dev := newTestDevice(t)
	a := NewAllocator(WithDevice(dev))
	m1 := NewMapper(WithDevice(dev))
	m2 := NewMapper(WithDevice(dev))

	raw := allocateOne(t, a, m1, testInfo(), false)
	h, err := m1.ImportBuffer(raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := m2.FreeBuffer(h); err != nil {
		t.Errorf("FreeBuffer() through second mapper = %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Error(err)
	}
}

func TestForeignDeviceHandle(t *testing.T) {
	a1, m1 := newTestServices(t)
	_, m2 := newTestServices(t)

	h := allocateOne(t, a1, m1, testInfo(), true)
	defer m1.FreeBuffer(h)

	_, err := m2.ImportBuffer(h)
	wantResult(t, "ImportBuffer(foreign)", err, BadBuffer)
	wantResult(t, "FreeBuffer(foreign)", m2.FreeBuffer(h), BadBuffer)
	_, err = m2.Lock(h, readWrite, fullRect(testInfo()), nil)
	wantResult(t, "Lock(foreign)", err, BadBuffer)
}

func TestImportBufferNegative(t *testing.T) {
	a, m := newTestServices(t)
	live := allocateOne(t, a, m, testInfo(), true)
	defer m.FreeBuffer(live)

	tampered := NewHandle(live.FDs, live.Ints)
	tampered.Ints[intWidth]++

	wrongFD := NewHandle([]int{live.FDs[0] + 1}, live.Ints)

	released := allocateOne(t, a, m, testInfo(), false)
	if err := released.Close(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		h    *Handle
	}{
		{"nil", nil},
		{"empty", NewHandle(nil, nil)},
		{"no fds", NewHandle(nil, live.Ints)},
		{"short ints", NewHandle(live.FDs, live.Ints[:3])},
		{"tampered ints", tampered},
		{"wrong fd", wrongFD},
		{"released", released},
		{"released bare", NewHandle(released.FDs, released.Ints)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := m.ImportBuffer(tt.h)
			wantResult(t, "ImportBuffer", err, BadBuffer)
			if h != nil {
				t.Errorf("ImportBuffer() returned %+v alongside an error", h)
			}
		})
	}
}

func TestFreeBufferNegative(t *testing.T) {
	a, m := newTestServices(t)
	raw := allocateOne(t, a, m, testInfo(), false)
	h, err := m.ImportBuffer(raw)
	if err != nil {
		t.Fatal(err)
	}

	wantResult(t, "FreeBuffer(nil)", m.FreeBuffer(nil), BadBuffer)
	wantResult(t, "FreeBuffer(raw)", m.FreeBuffer(raw), BadBuffer)
	wantResult(t, "FreeBuffer(bare)", m.FreeBuffer(NewHandle(h.FDs, h.Ints)), BadBuffer)

	if err := m.FreeBuffer(h); err != nil {
		t.Fatalf("FreeBuffer() = %v", err)
	}
	wantResult(t, "FreeBuffer(twice)", m.FreeBuffer(h), BadBuffer)

	wantResult(t, "Close(imported)", h.Close(), BadBuffer)
	if err := raw.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	wantResult(t, "Close(twice)", raw.Close(), BadBuffer)
}

func TestLockNegative(t *testing.T) {
	a, m := newTestServices(t)
	info := testInfo()
	raw := allocateOne(t, a, m, info, false)
	defer raw.Close()

	_, err := m.Lock(nil, readWrite, fullRect(info), nil)
	wantResult(t, "Lock(nil)", err, BadBuffer)
	_, err = m.Lock(raw, readWrite, fullRect(info), nil)
	wantResult(t, "Lock(raw)", err, BadBuffer)
	_, err = m.LockYCbCr(raw, readWrite, fullRect(info), nil)
	wantResult(t, "LockYCbCr(raw)", err, BadBuffer)

	h, err := m.ImportBuffer(raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.FreeBuffer(h); err != nil {
		t.Fatal(err)
	}
	_, err = m.Lock(h, readWrite, fullRect(info), nil)
	wantResult(t, "Lock(freed)", err, BadBuffer)
}

func TestLockBadValue(t *testing.T) {
	a, m := newTestServices(t)
	info := testInfo()
	info.Usage = readOnly | UsageGPUTexture
	h := allocateOne(t, a, m, info, true)
	defer m.FreeBuffer(h)

	tests := []struct {
		name   string
		usage  Usage
		region Rect
	}{
		{"no cpu usage", UsageGPUTexture, fullRect(info)},
		{"write on read-only buffer", readWrite, fullRect(info)},
		{"reserved usage", readOnly | 1<<13, fullRect(info)},
		{"negative origin", readOnly, Rect{Left: -1, Width: 4, Height: 4}},
		{"past right edge", readOnly, Rect{Left: 60, Width: 5, Height: 1}},
		{"past bottom edge", readOnly, Rect{Top: 1, Width: 64, Height: 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Lock(h, tt.usage, tt.region, nil)
			wantResult(t, "Lock", err, BadValue)
		})
	}

	// Failed locks leave nothing to unlock.
	_, err := m.Unlock(h)
	wantResult(t, "Unlock", err, BadBuffer)
}

func TestUnlockNegative(t *testing.T) {
	a, m := newTestServices(t)
	raw := allocateOne(t, a, m, testInfo(), false)
	defer raw.Close()
	h, err := m.ImportBuffer(raw)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Unlock(nil)
	wantResult(t, "Unlock(nil)", err, BadBuffer)
	_, err = m.Unlock(raw)
	wantResult(t, "Unlock(raw)", err, BadBuffer)
	_, err = m.Unlock(h)
	wantResult(t, "Unlock(not locked)", err, BadBuffer)

	if err := m.FreeBuffer(h); err != nil {
		t.Fatal(err)
	}
	_, err = m.Unlock(h)
	wantResult(t, "Unlock(freed)", err, BadBuffer)
}

func TestNestedLocks(t *testing.T) {
	a, m := newTestServices(t)
	info := testInfo()
	h := allocateOne(t, a, m, info, true)
	defer m.FreeBuffer(h)

	for range 2 {
		if _, err := m.Lock(h, readOnly, fullRect(info), nil); err != nil {
			t.Fatalf("Lock() = %v", err)
		}
	}
	for range 2 {
		f, err := m.Unlock(h)
		if err != nil {
			t.Fatalf("Unlock() = %v", err)
		}
		if f != nil {
			t.Errorf("Unlock() fence = %v, want nil", f)
		}
	}
	_, err := m.Unlock(h)
	wantResult(t, "Unlock(third)", err, BadBuffer)
}

func TestLockPackedLayout(t *testing.T) {
	a, m := newTestServices(t)
	tests := []struct {
		format PixelFormat
		bpp    int32
	}{
		{FormatRGBA8888, 4},
		{FormatRGB888, 3},
		{FormatRGB565, 2},
		{FormatRGBAFP16, 8},
		{FormatY8, 1},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			info := testInfo()
			info.Format = tt.format
			h := allocateOne(t, a, m, info, true)
			defer m.FreeBuffer(h)

			l, err := m.Lock(h, readWrite, fullRect(info), nil)
			if err != nil {
				t.Fatalf("Lock() = %v", err)
			}
			defer m.Unlock(h)
			if l.BytesPerPixel != tt.bpp {
				t.Errorf("BytesPerPixel = %d, want %d", l.BytesPerPixel, tt.bpp)
			}
			if want := int32(h.Stride()) * tt.bpp; l.BytesPerStride != want {
				t.Errorf("BytesPerStride = %d, want %d", l.BytesPerStride, want)
			}
			if l.YCbCr != nil {
				t.Error("packed format reported a YCbCr layout")
			}
			if want := int(l.BytesPerStride) * int(info.Height); len(l.Data) < want {
				t.Errorf("len(Data) = %d, want >= %d", len(l.Data), want)
			}
		})
	}
}

func TestLockBlob(t *testing.T) {
	a, m := newTestServices(t)
	info := DescriptorInfo{Width: 1000, Height: 1, LayerCount: 1, Format: FormatBlob, Usage: readWrite}
	h := allocateOne(t, a, m, info, true)
	defer m.FreeBuffer(h)

	l, err := m.Lock(h, readWrite, fullRect(info), nil)
	if err != nil {
		t.Fatalf("Lock() = %v", err)
	}
	defer m.Unlock(h)
	if l.BytesPerPixel != -1 || l.BytesPerStride != -1 {
		t.Errorf("blob sizes = %d/%d, want -1/-1", l.BytesPerPixel, l.BytesPerStride)
	}
	if len(l.Data) != 1000 {
		t.Errorf("len(Data) = %d, want 1000", len(l.Data))
	}
}

func TestLockRGBARoundTrip(t *testing.T) {
	a, m := newTestServices(t)
	info := testInfo()
	h := allocateOne(t, a, m, info, true)
	defer m.FreeBuffer(h)

	l, err := m.Lock(h, UsageCPUWriteOften, fullRect(info), nil)
	if err != nil {
		t.Fatalf("Lock(write) = %v", err)
	}
	for y := 0; y < int(info.Height); y++ {
		row := l.Data[y*int(l.BytesPerStride):]
		for i := 0; i < int(info.Width)*int(l.BytesPerPixel); i++ {
			row[i] = byte(y + i)
		}
	}
	if _, err := m.Unlock(h); err != nil {
		t.Fatalf("Unlock() = %v", err)
	}

	l, err = m.Lock(h, UsageCPUReadOften, fullRect(info), nil)
	if err != nil {
		t.Fatalf("Lock(read) = %v", err)
	}
	defer m.Unlock(h)
	for y := 0; y < int(info.Height); y++ {
		row := l.Data[y*int(l.BytesPerStride):]
		for i := 0; i < int(info.Width)*int(l.BytesPerPixel); i++ {
			if row[i] != byte(y+i) {
				t.Fatalf("byte (%d, %d) = %d, want %d", i, y, row[i], byte(y+i))
			}
		}
	}
}

func TestLockYV12RoundTrip(t *testing.T) {
	a, m := newTestServices(t)
	info := testInfo()
	info.Format = FormatYV12
	h := allocateOne(t, a, m, info, true)
	defer m.FreeBuffer(h)

	yc, err := m.LockYCbCr(h, UsageCPUWriteOften, fullRect(info), nil)
	if err != nil {
		t.Fatalf("LockYCbCr(write) = %v", err)
	}
	if yc.ChromaStep != 1 {
		t.Errorf("ChromaStep = %d, want 1", yc.ChromaStep)
	}
	if yc.YStride%16 != 0 || yc.CStride%16 != 0 {
		t.Errorf("strides %d/%d not 16-aligned", yc.YStride, yc.CStride)
	}
	// YV12 stores the Cr plane before the Cb plane.
	if cap(yc.Cr) <= cap(yc.Cb) {
		t.Error("Cr plane does not precede Cb plane")
	}

	w, hgt := int(info.Width), int(info.Height)
	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			yc.Y[y*int(yc.YStride)+x] = byte(x ^ y)
		}
	}
	for y := 0; y < hgt/2; y++ {
		for x := 0; x < w/2; x++ {
			off := y*int(yc.CStride) + x*int(yc.ChromaStep)
			yc.Cb[off] = byte(x + y)
			yc.Cr[off] = byte(x*2 + y)
		}
	}
	if _, err := m.Unlock(h); err != nil {
		t.Fatal(err)
	}

	l, err := m.Lock(h, UsageCPUReadOften, fullRect(info), nil)
	if err != nil {
		t.Fatalf("Lock(read) = %v", err)
	}
	defer m.Unlock(h)
	if l.BytesPerPixel != -1 || l.BytesPerStride != -1 {
		t.Errorf("YCbCr sizes = %d/%d, want -1/-1", l.BytesPerPixel, l.BytesPerStride)
	}
	rc := l.YCbCr
	if rc == nil {
		t.Fatal("Lock() on YV12 returned no YCbCr layout")
	}
	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			if got := rc.Y[y*int(rc.YStride)+x]; got != byte(x^y) {
				t.Fatalf("Y(%d, %d) = %d, want %d", x, y, got, byte(x^y))
			}
		}
	}
	for y := 0; y < hgt/2; y++ {
		for x := 0; x < w/2; x++ {
			off := y*int(rc.CStride) + x*int(rc.ChromaStep)
			if rc.Cb[off] != byte(x+y) || rc.Cr[off] != byte(x*2+y) {
				t.Fatalf("chroma(%d, %d) = %d/%d", x, y, rc.Cb[off], rc.Cr[off])
			}
		}
	}
}

func TestLockYCbCrLayouts(t *testing.T) {
	a, m := newTestServices(t)
	tests := []struct {
		format   PixelFormat
		step     uint32
		yStride  uint32
		crOffset int // byte distance from Cb to Cr
		cStrideY bool
	}{
		{FormatYCbCr420888, 2, 64, 1, true},
		{FormatYCrCb420SP, 2, 64, -1, true},
		{FormatYCbCr422SP, 2, 64, 1, true},
		{FormatYCbCrP010, 4, 128, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			info := testInfo()
			info.Format = tt.format
			h := allocateOne(t, a, m, info, true)
			defer m.FreeBuffer(h)

			if h.Stride() != info.Width {
				t.Errorf("stride = %d, want %d", h.Stride(), info.Width)
			}
			yc, err := m.LockYCbCr(h, readWrite, fullRect(info), nil)
			if err != nil {
				t.Fatalf("LockYCbCr() = %v", err)
			}
			defer m.Unlock(h)
			if yc.ChromaStep != tt.step {
				t.Errorf("ChromaStep = %d, want %d", yc.ChromaStep, tt.step)
			}
			if yc.YStride != tt.yStride {
				t.Errorf("YStride = %d, want %d", yc.YStride, tt.yStride)
			}
			if tt.cStrideY && yc.CStride != yc.YStride {
				t.Errorf("CStride = %d, want %d", yc.CStride, yc.YStride)
			}
			if got := cap(yc.Cb) - cap(yc.Cr); got != tt.crOffset {
				t.Errorf("Cr - Cb = %d, want %d", got, tt.crOffset)
			}
			if got := cap(yc.Y) - max(cap(yc.Cb), cap(yc.Cr)); got != int(yc.YStride)*int(info.Height) {
				t.Errorf("chroma offset = %d, want %d", got, int(yc.YStride)*int(info.Height))
			}
		})
	}
}

func TestLockYCbCrPackedFormat(t *testing.T) {
	a, m := newTestServices(t)
	h := allocateOne(t, a, m, testInfo(), true)
	defer m.FreeBuffer(h)

	_, err := m.LockYCbCr(h, readWrite, fullRect(testInfo()), nil)
	wantResult(t, "LockYCbCr(RGBA)", err, BadValue)
	_, err = m.Unlock(h)
	wantResult(t, "Unlock", err, BadBuffer)
}

func TestLockWaitsForFence(t *testing.T) {
	a, m := newTestServices(t)
	info := testInfo()
	h := allocateOne(t, a, m, info, true)
	defer m.FreeBuffer(h)

	acquire := fence.New()
	var signaled time.Time
	go func() {
		time.Sleep(20 * time.Millisecond)
		signaled = time.Now()
		acquire.Signal()
	}()

	if _, err := m.Lock(h, readWrite, fullRect(info), acquire); err != nil {
		t.Fatalf("Lock() = %v", err)
	}
	if !acquire.IsSignaled() {
		t.Error("Lock() returned before the acquire fence signaled")
	}
	if time.Now().Before(signaled) {
		t.Error("Lock() returned before the fence was signaled")
	}
	if _, err := m.Unlock(h); err != nil {
		t.Fatal(err)
	}

	// An already signaled fence does not block.
	if _, err := m.Lock(h, readWrite, fullRect(info), fence.Signaled()); err != nil {
		t.Fatalf("Lock(signaled) = %v", err)
	}
	if _, err := m.Unlock(h); err != nil {
		t.Fatal(err)
	}
}

func TestLockFenceFreedWhileWaiting(t *testing.T) {
	a, m := newTestServices(t)
	info := testInfo()
	h := allocateOne(t, a, m, info, true)

	acquire := fence.New()
	done := make(chan error, 1)
	go func() {
		_, err := m.Lock(h, readWrite, fullRect(info), acquire)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := m.FreeBuffer(h); err != nil {
		t.Fatalf("FreeBuffer() = %v", err)
	}
	acquire.Signal()
	wantResult(t, "Lock", <-done, BadBuffer)
}

func TestLockYCbCrOddWidthRowsDoNotOverlap(t *testing.T) {
	a, m := newTestServices(t, WithStrideAlignment(1))
	tests := []struct {
		format     PixelFormat
		chromaRows int
	}{
		{FormatYCbCr420888, 2},
		{FormatYCrCb420SP, 2},
		{FormatYCbCr422SP, 4},
		{FormatYCbCrP010, 2},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			info := testInfo()
			info.Format = tt.format
			info.Width, info.Height = 5, 4
			h := allocateOne(t, a, m, info, true)
			defer m.FreeBuffer(h)

			if h.Stride()%2 != 0 {
				t.Errorf("stride = %d, want even", h.Stride())
			}
			yc, err := m.LockYCbCr(h, readWrite, fullRect(info), nil)
			if err != nil {
				t.Fatalf("LockYCbCr() = %v", err)
			}
			defer m.Unlock(h)

			cs, step := int(yc.CStride), int(yc.ChromaStep)
			lastSample := (int(info.Width)+1)/2 - 1
			if cs < (lastSample+1)*step {
				t.Errorf("CStride = %d, want >= %d", cs, (lastSample+1)*step)
			}
			for row := range tt.chromaRows {
				off := row*cs + lastSample*step
				if off >= len(yc.Cb) || off >= len(yc.Cr) {
					t.Fatalf("chroma row %d: last sample at %d outside the mapping", row, off)
				}
			}

			yc.Cb[cs] = 0xAA
			yc.Cr[lastSample*step] = 0x55
			if yc.Cb[cs] != 0xAA {
				t.Errorf("writing the last Cr sample of row 0 changed Cb(0, 1) to %#x", yc.Cb[cs])
			}
		})
	}
}

func TestFreeBufferWhileLocked(t *testing.T) {
	a, m := newTestServices(t)
	info := testInfo()
	h := allocateOne(t, a, m, info, true)

	l, err := m.Lock(h, readWrite, fullRect(info), nil)
	if err != nil {
		t.Fatalf("Lock() = %v", err)
	}
	wantResult(t, "FreeBuffer(locked)", m.FreeBuffer(h), BadBuffer)
	if st := a.Device().Stats(); st.Buffers != 1 {
		t.Fatalf("Stats().Buffers = %d after rejected free, want 1", st.Buffers)
	}

	// The mapping still belongs to h, and no other buffer can reuse it.
	other := allocateOne(t, a, m, info, true)
	l.Data[0] = 0x7F
	ol, err := m.Lock(other, readOnly, fullRect(info), nil)
	if err != nil {
		t.Fatal(err)
	}
	if ol.Data[0] != 0 {
		t.Errorf("write through a live lock reached another buffer: %#x", ol.Data[0])
	}
	if _, err := m.Unlock(other); err != nil {
		t.Fatal(err)
	}
	if err := m.FreeBuffer(other); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Unlock(h); err != nil {
		t.Fatalf("Unlock() = %v", err)
	}
	l, err = m.Lock(h, readOnly, fullRect(info), nil)
	if err != nil {
		t.Fatal(err)
	}
	if l.Data[0] != 0x7F {
		t.Errorf("Data[0] = %#x after relock, want 0x7f", l.Data[0])
	}
	if _, err := m.Unlock(h); err != nil {
		t.Fatal(err)
	}
	if err := m.FreeBuffer(h); err != nil {
		t.Fatalf("FreeBuffer() after unlock = %v", err)
	}
	if st := a.Device().Stats(); st.Buffers != 0 {
		t.Errorf("Stats().Buffers = %d, want 0", st.Buffers)
	}
}

func TestConcurrentImportFreeSameBuffer(t *testing.T) {
	a, m := newTestServices(t)
	info := testInfo()
	raw := allocateOne(t, a, m, info, false)

	const (
		workers    = 16
		iterations = 200
	)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range iterations {
				h, err := m.ImportBuffer(raw)
				if err != nil {
					t.Errorf("worker %d: ImportBuffer() = %v", w, err)
					return
				}
				if i%4 == 0 {
					if _, err := m.Lock(h, readOnly, fullRect(info), nil); err != nil {
						t.Errorf("worker %d: Lock() = %v", w, err)
					} else if _, err := m.Unlock(h); err != nil {
						t.Errorf("worker %d: Unlock() = %v", w, err)
					}
				}
				if err := m.FreeBuffer(h); err != nil {
					t.Errorf("worker %d: FreeBuffer() = %v", w, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	dev := a.Device()
	if st := dev.Stats(); st.Buffers != 1 {
		t.Fatalf("Stats().Buffers = %d with the raw reference held, want 1", st.Buffers)
	}
	id, ok := dev.ids.Get(raw.ID())
	if !ok {
		t.Fatal("identity missing while the raw reference is held")
	}
	id.mu.Lock()
	refs := len(id.refs)
	id.mu.Unlock()
	if refs != 1 {
		t.Errorf("references left = %d, want 1", refs)
	}

	if err := raw.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if st := dev.Stats(); st.Buffers != 0 || st.LiveBytes != 0 {
		t.Errorf("Stats() after Close = %+v, want no live buffers", st)
	}
}
