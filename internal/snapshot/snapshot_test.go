package snapshot

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/reviewfs/common"
)

type fakeDevice struct {
	blocks map[common.Bnum][]byte
}

func (f *fakeDevice) WriteBlock(id common.Bnum, buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	f.blocks[id] = cp
	return nil
}

func blockOf(b byte) []byte { return bytes.Repeat([]byte{b}, common.BlockSize) }

func TestCaptureOnlyOncePerBlock(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "img"))
	require.NoError(t, m.Create("s1"))

	require.NoError(t, m.CaptureIfNeeded(1, blockOf(0xAA)))
	require.NoError(t, m.CaptureIfNeeded(1, blockOf(0xBB))) // already captured, ignored

	dev := &fakeDevice{blocks: make(map[common.Bnum][]byte)}
	require.NoError(t, m.Restore("s1", dev))
	require.Equal(t, blockOf(0xAA), dev.blocks[1])
}

func TestRestoreRemovesSnapshot(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "img"))
	require.NoError(t, m.Create("s1"))
	require.NoError(t, m.CaptureIfNeeded(3, blockOf(1)))

	dev := &fakeDevice{blocks: make(map[common.Bnum][]byte)}
	require.NoError(t, m.Restore("s1", dev))
	require.Empty(t, m.List())

	err := m.Restore("s1", dev)
	require.Error(t, err)
}

func TestRescanRediscoversSnapshots(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "img")
	m := New(image)
	require.NoError(t, m.Create("alpha"))
	require.NoError(t, m.CaptureIfNeeded(2, blockOf(9)))
	m.Close()

	m2 := New(image)
	require.NoError(t, m2.Rescan())
	require.Equal(t, []string{"alpha"}, m2.List())

	dev := &fakeDevice{blocks: make(map[common.Bnum][]byte)}
	require.NoError(t, m2.Restore("alpha", dev))
	require.Equal(t, blockOf(9), dev.blocks[2])
}

func TestCreateDuplicateFails(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "img"))
	require.NoError(t, m.Create("s1"))
	require.Error(t, m.Create("s1"))
}
