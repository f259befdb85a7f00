package vfs

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/reviewfs/common"
)

func newFormatted(t *testing.T) (*FS, string) {
	t.Helper()
	image := filepath.Join(t.TempDir(), "image.vfs")
	fs := New()
	require.NoError(t, fs.Format(image, 1, 32))
	return fs, image
}

func writeFile(t *testing.T, fs *FS, path string, data []byte) {
	t.Helper()
	require.NoError(t, fs.CreateFile(path, 0o644))
	fd, err := fs.Open(path, FlagWrite)
	require.NoError(t, err)
	n, err := fs.Write(fd, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, fs.Close(fd))
}

func readFile(t *testing.T, fs *FS, path string) []byte {
	t.Helper()
	fd, err := fs.Open(path, FlagRead)
	require.NoError(t, err)
	defer fs.Close(fd)

	var out []byte
	for {
		chunk, err := fs.Read(fd, 4096)
		require.NoError(t, err)
		if len(chunk) == 0 {
			break
		}
		out = append(out, chunk...)
	}
	return out
}

// TestFormatMountsEmptyRoot matches the first seed scenario: a freshly
// formatted image mounts with an empty root directory and exactly one
// used data block (the root directory's own block).
func TestFormatMountsEmptyRoot(t *testing.T) {
	fs, _ := newFormatted(t)
	defer fs.Unmount()

	names, err := fs.Readdir("/")
	require.NoError(t, err)
	require.Empty(t, names)

	stats, err := fs.GetFsStats()
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.UsedDataBlocks)
}

// TestSmallFileRoundTrip matches the second seed scenario: write then
// read back a 49-byte file bit-exactly.
func TestSmallFileRoundTrip(t *testing.T) {
	fs, _ := newFormatted(t)
	defer fs.Unmount()

	payload := make([]byte, 49)
	for i := range payload {
		payload[i] = byte(i)
	}
	writeFile(t, fs, "/note.txt", payload)
	require.Equal(t, payload, readFile(t, fs, "/note.txt"))
}

// TestReadAtArbitraryOffset exercises the universal invariant that a read
// of any sub-range returns exactly the substring that was written there.
func TestReadAtArbitraryOffset(t *testing.T) {
	fs, _ := newFormatted(t)
	defer fs.Unmount()

	payload := []byte("the quick brown fox jumps over the lazy dog")
	writeFile(t, fs, "/f.txt", payload)

	fd, err := fs.Open("/f.txt", FlagRead)
	require.NoError(t, err)
	_, err = fs.Seek(fd, 10, io.SeekStart)
	require.NoError(t, err)
	chunk, err := fs.Read(fd, 5)
	require.NoError(t, err)
	require.Equal(t, payload[10:15], chunk)
	require.NoError(t, fs.Close(fd))
}

// TestMultiBlockFileCrossesIndirectBoundary matches the third seed
// scenario: a 50000-byte file needs more than the 12 direct blocks and
// must allocate the single-indirect block.
func TestMultiBlockFileCrossesIndirectBoundary(t *testing.T) {
	fs, _ := newFormatted(t)
	defer fs.Unmount()

	payload := make([]byte, 50000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	writeFile(t, fs, "/big.bin", payload)
	require.Equal(t, payload, readFile(t, fs, "/big.bin"))
}

// TestLogicalBlockBoundaryRoundTrip writes exactly up to the last direct
// block and one block into the indirect range, then reads it back.
func TestLogicalBlockBoundaryRoundTrip(t *testing.T) {
	fs, _ := newFormatted(t)
	defer fs.Unmount()

	size := (common.DirectCount + 1) * common.BlockSize
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i % 256)
	}
	writeFile(t, fs, "/boundary.bin", payload)
	require.Equal(t, payload, readFile(t, fs, "/boundary.bin"))
}

// TestSparseReadReturnsZeroBytes exercises the invariant that a read of a
// never-written range comes back zero-filled.
func TestSparseReadReturnsZeroBytes(t *testing.T) {
	fs, _ := newFormatted(t)
	defer fs.Unmount()

	require.NoError(t, fs.CreateFile("/sparse.bin", 0o644))
	fd, err := fs.Open("/sparse.bin", FlagWrite)
	require.NoError(t, err)
	_, err = fs.Seek(fd, int64(common.BlockSize*2), io.SeekStart)
	require.NoError(t, err)
	_, err = fs.Write(fd, []byte("end"))
	require.NoError(t, err)
	require.NoError(t, fs.Close(fd))

	fd, err = fs.Open("/sparse.bin", FlagRead)
	require.NoError(t, err)
	buf, err := fs.Read(fd, common.BlockSize)
	require.NoError(t, err)
	for _, b := range buf {
		require.Zero(t, b)
	}
	require.NoError(t, fs.Close(fd))
}

// TestDeleteAndReuseInodes matches the fourth seed scenario: create ten
// small files, delete five of them, and confirm the freed inodes and
// blocks are available for reuse.
func TestDeleteAndReuseInodes(t *testing.T) {
	fs, _ := newFormatted(t)
	defer fs.Unmount()

	for i := 0; i < 10; i++ {
		writeFile(t, fs, "/f"+string(rune('0'+i)), make([]byte, common.BlockSize))
	}
	statsBefore, err := fs.GetFsStats()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, fs.Unlink("/f"+string(rune('0'+i))))
	}
	statsAfterDelete, err := fs.GetFsStats()
	require.NoError(t, err)
	require.Greater(t, statsAfterDelete.FreeInodes, statsBefore.FreeInodes)
	require.Greater(t, statsAfterDelete.FreeBlocks, statsBefore.FreeBlocks)

	for i := 0; i < 5; i++ {
		writeFile(t, fs, "/g"+string(rune('0'+i)), make([]byte, common.BlockSize))
	}
	statsAfterReuse, err := fs.GetFsStats()
	require.NoError(t, err)
	require.Equal(t, statsBefore.FreeInodes, statsAfterReuse.FreeInodes)
	require.Equal(t, statsBefore.FreeBlocks, statsAfterReuse.FreeBlocks)
}

// TestUnmountMountIsAFixedPoint confirms unmount/mount round-trips the
// superblock, bitmap, and filesystem contents unchanged.
func TestUnmountMountIsAFixedPoint(t *testing.T) {
	fs, image := newFormatted(t)
	writeFile(t, fs, "/a.txt", []byte("hello"))
	statsBefore, err := fs.GetFsStats()
	require.NoError(t, err)
	require.NoError(t, fs.Unmount())

	require.NoError(t, fs.Mount(image, 32))
	statsAfter, err := fs.GetFsStats()
	require.NoError(t, err)
	require.Equal(t, statsBefore, statsAfter)
	require.Equal(t, []byte("hello"), readFile(t, fs, "/a.txt"))
	require.NoError(t, fs.Unmount())
}

// TestSnapshotRoundTrip matches the fifth seed scenario: snapshot a file
// at "v1", overwrite it with "v2", then restore the snapshot and observe
// "v1" again. Restore requires the filesystem to be unmounted.
func TestSnapshotRoundTrip(t *testing.T) {
	fs, image := newFormatted(t)

	writeFile(t, fs, "/doc.txt", []byte("v1 contents"))
	require.NoError(t, fs.CreateSnapshot("before-v2"))

	fd, err := fs.Open("/doc.txt", FlagWrite|FlagTruncate)
	require.NoError(t, err)
	_, err = fs.Write(fd, []byte("v2 contents padded"))
	require.NoError(t, err)
	require.NoError(t, fs.Close(fd))
	require.Equal(t, []byte("v2 contents padded"), readFile(t, fs, "/doc.txt"))

	require.NoError(t, fs.Unmount())
	require.NoError(t, fs.SetImage(image))
	require.NoError(t, fs.RestoreSnapshot("before-v2"))

	require.NoError(t, fs.Mount(image, 32))
	defer fs.Unmount()
	got := readFile(t, fs, "/doc.txt")
	require.Equal(t, "v1 contents", string(got[:len("v1 contents")]))
}

// TestJournalReplayOnRemount matches the sixth seed scenario at the
// integration level: writes leave journal records behind when the
// filesystem is not cleanly unmounted, and the next mount replays them.
func TestJournalReplayOnRemount(t *testing.T) {
	fs, image := newFormatted(t)
	writeFile(t, fs, "/recover.txt", []byte("durable"))
	// Simulate a crash: skip Unmount, so the journal is never truncated.

	fs2 := New()
	require.NoError(t, fs2.Mount(image, 32))
	defer fs2.Unmount()

	stats, err := fs2.GetJournalStats()
	require.NoError(t, err)
	require.Greater(t, stats.Replayed, uint64(0))
	require.Equal(t, []byte("durable"), readFile(t, fs2, "/recover.txt"))
}

// TestMkdirRmdirRequiresEmpty exercises directory creation/removal and
// the not-empty invariant.
func TestMkdirRmdirRequiresEmpty(t *testing.T) {
	fs, _ := newFormatted(t)
	defer fs.Unmount()

	require.NoError(t, fs.Mkdir("/sub", 0o755))
	isDir, err := fs.IsDirectory("/sub")
	require.NoError(t, err)
	require.True(t, isDir)

	writeFile(t, fs, "/sub/inner.txt", []byte("x"))
	require.Error(t, fs.Rmdir("/sub"))

	require.NoError(t, fs.Unlink("/sub/inner.txt"))
	require.NoError(t, fs.Rmdir("/sub"))
	require.False(t, fs.Exists("/sub"))
}

// TestCreateFileAlreadyExists confirms the duplicate-name invariant.
func TestCreateFileAlreadyExists(t *testing.T) {
	fs, _ := newFormatted(t)
	defer fs.Unmount()

	require.NoError(t, fs.CreateFile("/dup.txt", 0o644))
	require.Error(t, fs.CreateFile("/dup.txt", 0o644))
}

// TestOperationsRequireMount confirms that Readdir and CreateFile reject
// an unmounted filesystem.
func TestOperationsRequireMount(t *testing.T) {
	fs := New()
	_, err := fs.Readdir("/")
	require.Error(t, err)
	require.Error(t, fs.CreateFile("/a", 0o644))
}
