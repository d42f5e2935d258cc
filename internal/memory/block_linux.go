//go:build linux

package memory

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// mapBlock creates a memfd of size bytes and maps it read/write, shared.
// Kernels or sandboxes without memfd_create fall back to the heap.
func mapBlock(size int) (*Block, error) {
	fd, err := unix.MemfdCreate("gralloc-buffer", unix.MFD_CLOEXEC)
	if err != nil {
		if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EPERM) {
			return newHeapBlock(size), nil
		}
		return nil, fmt.Errorf("memory: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("memory: ftruncate %d: %w", size, err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("memory: mmap %d: %w", size, err)
	}
	return &Block{data: data, fd: fd}, nil
}

func (b *Block) unmap() error {
	if b.heap {
		b.data = nil
		return nil
	}
	err := unix.Munmap(b.data)
	b.data = nil
	return errors.Join(err, unix.Close(b.fd))
}

func pageSize() int {
	return unix.Getpagesize()
}
