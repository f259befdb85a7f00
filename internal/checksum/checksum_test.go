package checksum

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/reviewfs/common"
)

func TestCalcDeterministic(t *testing.T) {
	a := Calc([]byte("hello"))
	b := Calc([]byte("hello"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, Calc([]byte("hellp")))
}

func TestVerifyUnsetEntryAlwaysMatches(t *testing.T) {
	tbl := New(4)
	require.True(t, tbl.Verify(0, []byte("anything")))
}

func TestUpdateThenVerify(t *testing.T) {
	tbl := New(4)
	block := bytes.Repeat([]byte{0x42}, common.BlockSize)
	tbl.Update(2, block)
	require.True(t, tbl.Verify(2, block))

	corrupted := append([]byte(nil), block...)
	corrupted[0] ^= 0xFF
	require.False(t, tbl.Verify(2, corrupted))
}

func TestClearResetsEntry(t *testing.T) {
	tbl := New(4)
	block := []byte("data")
	tbl.Update(1, block)
	tbl.Clear(1)
	require.True(t, tbl.Verify(1, []byte("unrelated content")))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tbl := New(3)
	tbl.Update(0, []byte("a"))
	tbl.Update(1, []byte("bb"))

	var buf bytes.Buffer
	require.NoError(t, tbl.Save(&buf))

	loaded := New(3)
	require.NoError(t, loaded.Load(&buf, 3))
	require.True(t, loaded.Verify(0, []byte("a")))
	require.True(t, loaded.Verify(1, []byte("bb")))
}
