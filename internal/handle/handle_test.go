package handle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenGetClose(t *testing.T) {
	tbl := New()
	fd := tbl.Open(7)

	h, err := tbl.Get(fd)
	require.NoError(t, err)
	require.EqualValues(t, 7, h.Inum)
	require.EqualValues(t, 0, h.Offset)

	require.Equal(t, 1, tbl.Len())
	require.True(t, tbl.Close(fd))
	require.Equal(t, 0, tbl.Len())

	_, err = tbl.Get(fd)
	require.Error(t, err)
}

func TestDistinctHandlesGetDistinctFds(t *testing.T) {
	tbl := New()
	fd1 := tbl.Open(1)
	fd2 := tbl.Open(2)
	require.NotEqual(t, fd1, fd2)
}

func TestSeekRejectsNegativeOffset(t *testing.T) {
	tbl := New()
	fd := tbl.Open(1)
	_, err := tbl.Seek(fd, -1)
	require.Error(t, err)
}

func TestSeekAndAdvance(t *testing.T) {
	tbl := New()
	fd := tbl.Open(1)

	off, err := tbl.Seek(fd, 100)
	require.NoError(t, err)
	require.EqualValues(t, 100, off)

	tbl.Advance(fd, 50)
	h, err := tbl.Get(fd)
	require.NoError(t, err)
	require.EqualValues(t, 150, h.Offset)
}

func TestCloseUnknownFdReturnsFalse(t *testing.T) {
	tbl := New()
	require.False(t, tbl.Close(42))
}

func TestCloseAllClearsTable(t *testing.T) {
	tbl := New()
	tbl.Open(1)
	tbl.Open(2)
	require.Equal(t, 2, tbl.Len())
	tbl.CloseAll()
	require.Equal(t, 0, tbl.Len())
}
