package fence

import (
	"testing"
	"time"
)

func TestNilFenceIsSignaled(t *testing.T) {
	var f *Fence
	if !f.IsSignaled() {
		t.Error("nil fence IsSignaled() = false, want true")
	}
	f.Wait()
	f.Signal()
}

func TestSignal(t *testing.T) {
	f := New()
	if f.IsSignaled() {
		t.Fatal("new fence already signaled")
	}

	released := make(chan struct{})
	go func() {
		f.Wait()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("Wait returned before Signal")
	case <-time.After(20 * time.Millisecond):
	}

	f.Signal()
	f.Signal()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Signal")
	}
	if !f.IsSignaled() {
		t.Error("IsSignaled() = false after Signal")
	}
}

func TestSignaled(t *testing.T) {
	if !Signaled().IsSignaled() {
		t.Error("Signaled().IsSignaled() = false")
	}
}

func TestDoneRace(t *testing.T) {
	f := New()
	timer := time.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-f.Done():
		t.Fatal("pending fence Done() closed")
	case <-timer.C:
	}
}

func TestMerge(t *testing.T) {
	if Merge() != nil {
		t.Error("Merge() = non-nil, want nil")
	}
	if Merge(nil, Signaled()) != nil {
		t.Error("Merge(nil, signaled) = non-nil, want nil")
	}

	a := New()
	if got := Merge(nil, a); got != a {
		t.Error("Merge with one pending fence should return it")
	}

	b := New()
	m := Merge(a, b, Signaled())
	a.Signal()
	if m.IsSignaled() {
		t.Fatal("merged fence signaled with one input pending")
	}
	b.Signal()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("merged fence did not signal")
	}
}
