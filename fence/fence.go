// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fence provides the synchronization token exchanged with buffer
// lock and unlock.
//
// A Fence represents one pending asynchronous memory operation, such as a
// device write that must land before the CPU reads a buffer. It has exactly
// two states: pending and signaled. A nil *Fence means "no fence" and is
// always signaled.
//
// There is no timeout or cancellation built into Wait. Callers that need one
// select on Done together with their own timer or context:
//
//	select {
//	case <-f.Done():
//	case <-time.After(time.Second):
//	    return errTimeout
//	}
package fence

import "sync"

// Fence is a one-shot completion signal. The zero value is not usable;
// create fences with New.
type Fence struct {
	done chan struct{}
	once sync.Once
}

// closed is shared by every already-signaled channel request.
var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// New returns a pending fence.
func New() *Fence {
	return &Fence{done: make(chan struct{})}
}

// Signaled returns a fence that has already completed.
func Signaled() *Fence {
	f := New()
	f.Signal()
	return f
}

// Signal marks the fence complete and releases all waiters. Signaling more
// than once has no further effect.
func (f *Fence) Signal() {
	if f == nil {
		return
	}
	f.once.Do(func() { close(f.done) })
}

// Done returns a channel that is closed once the fence signals.
func (f *Fence) Done() <-chan struct{} {
	if f == nil {
		return closed
	}
	return f.done
}

// Wait blocks until the fence signals.
func (f *Fence) Wait() {
	<-f.Done()
}

// IsSignaled reports whether the fence has completed, without blocking.
func (f *Fence) IsSignaled() bool {
	select {
	case <-f.Done():
		return true
	default:
		return false
	}
}

// Merge returns a fence that signals once every non-nil input has signaled.
// It returns nil when there is nothing left to wait for.
func Merge(fences ...*Fence) *Fence {
	var pending []*Fence
	for _, f := range fences {
		if f != nil && !f.IsSignaled() {
			pending = append(pending, f)
		}
	}
	switch len(pending) {
	case 0:
		return nil
	case 1:
		return pending[0]
	}
	merged := New()
	go func() {
		for _, f := range pending {
			f.Wait()
		}
		merged.Signal()
	}()
	return merged
}
