package palloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestAllocAlignedReturnsZeroedAlignedBlocks(t *testing.T) {
	block, err := allocAligned(4096+1, 64)
	require.NoError(t, err)
	defer func() { require.NoError(t, freeAligned(block)) }()

	require.GreaterOrEqual(t, uint64(len(block)), uint64(4097))
	require.Zero(t, uintptr(unsafe.Pointer(&block[0]))%64)

	for i, b := range block {
		require.Zerof(t, b, "byte %d not zeroed", i)
	}
}

func TestAllocAlignedRejectsBadAlignment(t *testing.T) {
	for _, align := range []uint64{0, 3, 24, pageSize * 2} {
		_, err := allocAligned(64, align)
		require.ErrorIs(t, err, ErrInvalidAlignment, "alignment %d", align)
	}
}

func TestFreeAlignedNilIsNoop(t *testing.T) {
	require.NoError(t, freeAligned(nil))
}
