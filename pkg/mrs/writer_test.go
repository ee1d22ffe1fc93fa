package mrs

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteLayout walks the emitted bytes by hand: payloads preceded by
// their local headers, then the central directory, then the trailer.
func TestWriteLayout(t *testing.T) {
	a := newTestArchive(t)
	payload := []byte{0x42} // too small to deflate, stored verbatim
	_, err := a.AddBytes(payload, "x.bin")
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.Bytes()
	require.Equal(t, int64(len(raw)), n)

	// Trailer.
	var base BaseHeader
	require.NoError(t, base.DecodeFrom(DefaultDecrypt(raw[len(raw)-BaseHeaderSize:])))
	assert.Equal(t, BaseMagic1, base.Signature)
	assert.Equal(t, uint16(1), base.DirCount)
	assert.Equal(t, uint16(1), base.TotalDirCount)
	assert.Equal(t, uint16(0), base.CommentLength)

	// Central directory sits right before the trailer.
	dirEnd := len(raw) - BaseHeaderSize
	assert.Equal(t, int(base.DirOffset)+int(base.DirSize), dirEnd)
	dir := DefaultDecrypt(raw[base.DirOffset:dirEnd])

	var dh CentralDirHeader
	consumed, err := dh.DecodeFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, len(dir), consumed)
	assert.Equal(t, CentralMagic1, dh.Signature)
	assert.Equal(t, []byte("x.bin"), dh.Filename)
	assert.Equal(t, CompressionStore, dh.Compression)
	assert.Equal(t, uint32(1), dh.CompressedSize)

	// The local header record at the entry's offset, filename in the clear,
	// payload immediately after.
	var lh LocalHeader
	require.NoError(t, lh.DecodeFrom(DefaultDecrypt(raw[dh.Offset:dh.Offset+LocalHeaderSize])))
	assert.Equal(t, LocalMagic1, lh.Signature)
	assert.Equal(t, dh.CRC32, lh.CRC32)
	assert.Equal(t, dh.CompressedSize, lh.CompressedSize)

	filenameLen, extraLen := lh.VariableLengths()
	assert.Equal(t, len("x.bin"), filenameLen)
	assert.Equal(t, 0, extraLen)
	nameStart := int(dh.Offset) + LocalHeaderSize
	assert.Equal(t, []byte("x.bin"), raw[nameStart:nameStart+filenameLen])
	assert.Equal(t, payload, raw[nameStart+filenameLen:nameStart+filenameLen+1])
}

func TestWriteReadBackExtras(t *testing.T) {
	a := newTestArchive(t)
	_, err := a.AddBytes([]byte("data"), "e.bin")
	require.NoError(t, err)

	info, err := a.Entry(0)
	require.NoError(t, err)
	info.LocalExtra = []byte{0xDE, 0xAD}
	info.CentralExtra = []byte{0xBE}
	info.Comment = []byte("kept")
	require.NoError(t, a.SetEntry(0, info))

	path := t.TempDir() + "/extras.mrs"
	require.NoError(t, a.WriteFile(path))

	b := newTestArchive(t)
	require.NoError(t, b.AddArchive(path))

	got, err := b.Entry(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD}, got.LocalExtra)
	assert.Equal(t, []byte{0xBE}, got.CentralExtra)
	assert.Equal(t, []byte("kept"), got.Comment)
}

func TestWriteFileCreateError(t *testing.T) {
	a := newTestArchive(t)
	err := a.WriteFile(t.TempDir() + "/missing-dir/out.mrs")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
