package super

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/reviewfs/common"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	layout := ComputeLayout(2560)
	sb := New(layout)
	sb.SB.CreatedAt = 1234
	sb.SB.ModifiedAt = 5678

	decoded := Decode(sb.SB.EncodeBlock())
	require.Equal(t, sb.SB, *decoded)
}

// TestLayoutInvariant matches spec.md section 3's superblock invariant:
// data_block_start > bitmap_start > inode_table_start >= 1.
func TestLayoutInvariant(t *testing.T) {
	layout := ComputeLayout(4096)
	require.GreaterOrEqual(t, uint32(layout.InodeTableStart), uint32(1))
	require.Greater(t, uint32(layout.BitmapStart), uint32(layout.InodeTableStart))
	require.Greater(t, uint32(layout.DataBlockStart), uint32(layout.BitmapStart))
}

func TestLayoutFloorsInodeCount(t *testing.T) {
	layout := ComputeLayout(100)
	require.EqualValues(t, common.MinInodes, layout.TotalInodes)
}

func TestInodeAddrWalksTable(t *testing.T) {
	layout := ComputeLayout(4096)
	sb := New(layout)
	blk0, off0 := sb.InodeAddr(0)
	blk1, off1 := sb.InodeAddr(1)
	require.Equal(t, layout.InodeTableStart, blk0)
	require.EqualValues(t, 0, off0)
	require.EqualValues(t, common.InodeSize, off1)
	require.Equal(t, blk0, blk1) // inode 1 shares the first inode block
}

func TestDataBlockIndexRoundTrip(t *testing.T) {
	layout := ComputeLayout(4096)
	sb := New(layout)
	abs := sb.DataBlock(5)
	require.EqualValues(t, 5, sb.DataIndex(abs))
}
