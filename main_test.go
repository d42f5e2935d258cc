package gralloc

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestDevice returns an isolated device so tests never share buffers or
// counters through DefaultDevice.
func newTestDevice(t *testing.T, opts ...DeviceOption) *Device {
	t.Helper()
	dev := NewDevice(opts...)
	t.Cleanup(func() {
		if err := dev.Trim(); err != nil {
			t.Errorf("Trim() = %v", err)
		}
	})
	return dev
}

// newTestServices returns an allocator and a mapper sharing one fresh device.
func newTestServices(t *testing.T, opts ...DeviceOption) (*Allocator, *Mapper) {
	t.Helper()
	dev := newTestDevice(t, opts...)
	return NewAllocator(WithDevice(dev)), NewMapper(WithDevice(dev))
}

// testInfo is the baseline buffer of most tests: a small CPU-accessible
// RGBA image.
func testInfo() DescriptorInfo {
	return DescriptorInfo{
		Width:      64,
		Height:     64,
		LayerCount: 1,
		Format:     FormatRGBA8888,
		Usage:      UsageCPUReadOften | UsageCPUWriteOften,
	}
}

// allocateOne allocates a single buffer described by info and fails the test
// on any error.
func allocateOne(t *testing.T, a *Allocator, m *Mapper, info DescriptorInfo, imported bool) *Handle {
	t.Helper()
	desc, err := m.CreateDescriptor(info)
	if err != nil {
		t.Fatalf("CreateDescriptor(%+v) = %v", info, err)
	}
	stride, handles, err := a.Allocate(desc, 1, imported)
	if err != nil {
		t.Fatalf("Allocate(%+v) = %v", info, err)
	}
	if len(handles) != 1 {
		t.Fatalf("Allocate() returned %d handles, want 1", len(handles))
	}
	if stride < info.Width {
		t.Errorf("stride = %d, want >= %d", stride, info.Width)
	}
	return handles[0]
}

// fullRect covers every pixel of info.
func fullRect(info DescriptorInfo) Rect {
	return Rect{Width: int32(info.Width), Height: int32(info.Height)}
}

func wantResult(t *testing.T, op string, err error, want Error) {
	t.Helper()
	if got := ResultOf(err); got != want {
		t.Errorf("%s: result = %v (err %v), want %v", op, got, err, want)
	}
}
