//go:build !linux

package memory

import "os"

func mapBlock(size int) (*Block, error) {
	return newHeapBlock(size), nil
}

func (b *Block) unmap() error {
	b.data = nil
	return nil
}

func pageSize() int {
	return os.Getpagesize()
}
