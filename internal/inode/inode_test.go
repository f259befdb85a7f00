package inode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/reviewfs/common"
	"github.com/mit-pdos/reviewfs/internal/super"
)

type fakeDevice struct {
	blocks map[common.Bnum][]byte
	next   common.Bnum
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{blocks: make(map[common.Bnum][]byte), next: 100}
}

func (f *fakeDevice) ReadBlock(id common.Bnum) ([]byte, error) {
	if b, ok := f.blocks[id]; ok {
		cp := make([]byte, common.BlockSize)
		copy(cp, b)
		return cp, nil
	}
	return make([]byte, common.BlockSize), nil
}

func (f *fakeDevice) WriteBlock(id common.Bnum, buf []byte) error {
	cp := make([]byte, common.BlockSize)
	copy(cp, buf)
	f.blocks[id] = cp
	return nil
}

func (f *fakeDevice) Allocate() (common.Bnum, bool) {
	id := f.next
	f.next++
	return id, true
}

func (f *fakeDevice) Free(id common.Bnum) {
	delete(f.blocks, id)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := &Inode{
		Number:      7,
		Mode:        common.DefaultFileMode,
		Size:        4096,
		Nlink:       1,
		BlocksCount: 1,
	}
	in.Direct[0] = 42
	in.Indirect = common.NullBnum

	decoded := Decode(in.Encode())
	require.Equal(t, in, decoded)
}

func TestIsFree(t *testing.T) {
	require.True(t, (&Inode{}).IsFree())
	require.False(t, (&Inode{Mode: common.DefaultFileMode}).IsFree())
}

func TestDirectBlockRoundTrip(t *testing.T) {
	dev := newFakeDevice()
	in := &Inode{Number: 2}

	id, err := in.EnsureBlockAt(dev, dev, dev, 0)
	require.NoError(t, err)
	require.NotEqual(t, common.NullBnum, id)
	require.EqualValues(t, 1, in.BlocksCount)

	got, err := in.BlockAt(dev, 0)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestIndirectBlockAllocation(t *testing.T) {
	dev := newFakeDevice()
	in := &Inode{Number: 3}

	logical := uint32(common.DirectCount + 5)
	id, err := in.EnsureBlockAt(dev, dev, dev, logical)
	require.NoError(t, err)
	require.NotEqual(t, common.NullBnum, in.Indirect)

	got, err := in.BlockAt(dev, logical)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestBlockAtSparseRangeReturnsNull(t *testing.T) {
	dev := newFakeDevice()
	in := &Inode{Number: 4}

	id, err := in.BlockAt(dev, uint32(common.DirectCount+1))
	require.NoError(t, err)
	require.Equal(t, common.NullBnum, id)
}

func TestReadWriteAtRoundTrip(t *testing.T) {
	dev := newFakeDevice()
	in := &Inode{Number: 5}

	payload := []byte("hello, reviewfs")
	n, err := in.WriteAt(dev, dev, dev, payload, 10)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.EqualValues(t, 10+len(payload), in.Size)

	buf := make([]byte, len(payload))
	n, err = in.ReadAt(dev, buf, 10)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestReadAtZeroFillsSparseBlocks(t *testing.T) {
	dev := newFakeDevice()
	in := &Inode{Number: 6}

	_, err := in.WriteAt(dev, dev, dev, []byte("x"), int64(common.BlockSize*2))
	require.NoError(t, err)

	buf := make([]byte, common.BlockSize)
	n, err := in.ReadAt(dev, buf, 0)
	require.NoError(t, err)
	require.Equal(t, common.BlockSize, n)
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestWriteAtAcrossBlockBoundary(t *testing.T) {
	dev := newFakeDevice()
	in := &Inode{Number: 8}

	payload := make([]byte, common.BlockSize+100)
	for i := range payload {
		payload[i] = byte(i)
	}
	n, err := in.WriteAt(dev, dev, dev, payload, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	n, err = in.ReadAt(dev, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestFreeBlocksReleasesDirectAndIndirect(t *testing.T) {
	dev := newFakeDevice()
	in := &Inode{Number: 9}

	_, err := in.EnsureBlockAt(dev, dev, dev, 0)
	require.NoError(t, err)
	_, err = in.EnsureBlockAt(dev, dev, dev, uint32(common.DirectCount+2))
	require.NoError(t, err)

	require.NoError(t, in.FreeBlocks(dev, dev))
	require.EqualValues(t, 0, in.BlocksCount)
	require.EqualValues(t, 0, in.Size)
	require.Equal(t, common.NullBnum, in.Direct[0])
	require.Equal(t, common.NullBnum, in.Indirect)
}

func TestAllocateInodeSkipsReservedSlots(t *testing.T) {
	dev := newFakeDevice()
	layout := super.ComputeLayout(4096)
	sb := super.New(layout)

	root := &Inode{Number: common.RootInum, Mode: common.DefaultDirMode, Nlink: 1}
	require.NoError(t, WriteInode(dev, dev, sb, root))

	inum, err := AllocateInode(dev, sb)
	require.NoError(t, err)
	require.NotEqual(t, common.RootInum, inum)
	require.Greater(t, uint32(inum), uint32(1))
}

func TestReadWriteInodeRoundTrip(t *testing.T) {
	dev := newFakeDevice()
	layout := super.ComputeLayout(4096)
	sb := super.New(layout)

	in := &Inode{Number: 2, Mode: common.DefaultFileMode, Size: 99, Nlink: 1}
	require.NoError(t, WriteInode(dev, dev, sb, in))

	got, err := ReadInode(dev, sb, 2)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestFreeInodeZeroesSlot(t *testing.T) {
	dev := newFakeDevice()
	layout := super.ComputeLayout(4096)
	sb := super.New(layout)

	in := &Inode{Number: 2, Mode: common.DefaultFileMode, Nlink: 1}
	require.NoError(t, WriteInode(dev, dev, sb, in))
	require.NoError(t, FreeInode(dev, dev, sb, 2))

	got, err := ReadInode(dev, sb, 2)
	require.NoError(t, err)
	require.True(t, got.IsFree())
}
