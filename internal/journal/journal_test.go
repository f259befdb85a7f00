package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/reviewfs/common"
)

type fakeDevice struct {
	blocks map[common.Bnum][]byte
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{blocks: make(map[common.Bnum][]byte)}
}

func (f *fakeDevice) WriteBlock(id common.Bnum, buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	f.blocks[id] = cp
	return nil
}

func blockOf(b byte) []byte {
	return bytes.Repeat([]byte{b}, common.BlockSize)
}

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(filepath.Join(dir, "img.journal"))
	require.NoError(t, err)

	require.NoError(t, j.Append(5, blockOf(0xAA)))
	require.NoError(t, j.Append(7, blockOf(0xBB)))

	dev := newFakeDevice()
	stats, err := j.Replay(dev)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Replayed)
	require.True(t, stats.Recovered)
	require.Equal(t, blockOf(0xAA), dev.blocks[5])
	require.Equal(t, blockOf(0xBB), dev.blocks[7])

	require.Zero(t, j.Pending())
}

func TestReplaySkipsCorruptedRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.journal")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(1, blockOf(0x11)))
	j.Close()

	// Corrupt the checksum field (bytes 8..12 of the single record).
	f, err := os.OpenFile(path, os.O_RDWR, 0o666)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0, 0, 0, 0}, 8)
	require.NoError(t, err)
	f.Close()

	j2, err := Open(path)
	require.NoError(t, err)
	dev := newFakeDevice()
	stats, err := j2.Replay(dev)
	require.NoError(t, err)
	require.EqualValues(t, 0, stats.Replayed)
	require.EqualValues(t, 1, stats.Pending)
	require.Empty(t, dev.blocks)
}

func TestTruncateClearsJournal(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(filepath.Join(dir, "img.journal"))
	require.NoError(t, err)
	require.NoError(t, j.Append(1, blockOf(1)))
	require.NoError(t, j.Truncate())
	require.Zero(t, j.Pending())
}
