package palloc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// pageSize is looked up once; anonymous mappings are always page-aligned,
// so any power-of-two alignment up to a page comes for free.
var pageSize = uint64(unix.Getpagesize())

// allocAligned returns a zero-initialized block of at least size bytes
// whose base address satisfies align. The block comes from an anonymous
// private mapping, so the kernel hands it back already zeroed.
func allocAligned(size, align uint64) ([]byte, error) {
	if align == 0 || align&(align-1) != 0 || align > pageSize {
		return nil, fmt.Errorf("%w: requested %d", ErrInvalidAlignment, align)
	}

	block, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("palloc: mmap of %d bytes: %w", size, err)
	}
	return block, nil
}

// freeAligned returns a block obtained from allocAligned to the OS.
func freeAligned(block []byte) error {
	if block == nil {
		return nil
	}
	if err := unix.Munmap(block); err != nil {
		return fmt.Errorf("palloc: munmap: %w", err)
	}
	return nil
}
