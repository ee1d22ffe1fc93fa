package mrs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArchive builds an archive with the given name->payload entries and
// writes it to a temp file, returning the path.
func writeArchive(t *testing.T, files map[string][]byte, opts ...Option) string {
	t.Helper()
	a, err := New(opts...)
	require.NoError(t, err)
	defer a.Close()

	for name, data := range files {
		_, err := a.AddBytes(data, name)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "test.mrs")
	require.NoError(t, a.WriteFile(path))
	return path
}

func TestAddArchiveRoundTrip(t *testing.T) {
	big := make([]byte, 4096)
	for i := range big {
		big[i] = byte(i % 7)
	}
	files := map[string][]byte{
		"compressed.dat": big,
		"tiny.bin":       {0xFF},
		"empty.txt":      nil,
	}
	path := writeArchive(t, files)

	a := newTestArchive(t)
	require.NoError(t, a.AddArchive(path))
	require.Equal(t, 3, a.Len())

	for _, info := range a.Entries() {
		back, err := a.Read(info.Index)
		require.NoError(t, err)
		assert.Equal(t, files[info.Name], back, "entry %q", info.Name)
	}
}

func TestAddArchiveBasePath(t *testing.T) {
	path := writeArchive(t, map[string][]byte{"model.elu": []byte("geometry")})

	a := newTestArchive(t)
	require.NoError(t, a.AddArchive(path, WithBasePath("sub")))

	info, err := a.Entry(0)
	require.NoError(t, err)
	assert.Equal(t, "sub/model.elu", info.Name)

	back, err := a.Read(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("geometry"), back)
}

func TestAddArchiveDuplicates(t *testing.T) {
	path := writeArchive(t, map[string][]byte{"a.txt": []byte("foreign")})

	t.Run("KeepNew replaces", func(t *testing.T) {
		a := newTestArchive(t)
		_, err := a.AddBytes([]byte("local"), "a.txt")
		require.NoError(t, err)

		require.NoError(t, a.AddArchive(path, WithPolicy(KeepNew)))
		require.Equal(t, 1, a.Len())

		back, err := a.Read(0)
		require.NoError(t, err)
		assert.Equal(t, []byte("foreign"), back)
	})

	t.Run("KeepOld fails without committing", func(t *testing.T) {
		a := newTestArchive(t)
		_, err := a.AddBytes([]byte("local"), "a.txt")
		require.NoError(t, err)

		err = a.AddArchive(path, WithPolicy(KeepOld))
		assert.ErrorIs(t, err, ErrDuplicateName)
		assert.Equal(t, 1, a.Len())

		back, err := a.Read(0)
		require.NoError(t, err)
		assert.Equal(t, []byte("local"), back)
	})

	t.Run("KeepBoth renames", func(t *testing.T) {
		a := newTestArchive(t)
		_, err := a.AddBytes([]byte("local"), "a.txt")
		require.NoError(t, err)

		require.NoError(t, a.AddArchive(path, WithPolicy(KeepBoth)))
		require.Equal(t, 2, a.Len())

		info, err := a.Entry(1)
		require.NoError(t, err)
		assert.Equal(t, "a (2).txt", info.Name)
	})
}

func TestAddArchiveCustomHooks(t *testing.T) {
	xor := func(data []byte) []byte {
		out := make([]byte, len(data))
		for i, c := range data {
			out[i] = c ^ 0x5A
		}
		return out
	}

	writer, err := New()
	require.NoError(t, err)
	defer writer.Close()
	writer.SetEncryption(Hooks{BaseHeader: xor})
	_, err = writer.AddBytes([]byte("secret"), "s.txt")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "hooked.mrs")
	require.NoError(t, writer.WriteFile(path))

	t.Run("matching hooks read it back", func(t *testing.T) {
		a := newTestArchive(t)
		a.SetDecryption(Hooks{BaseHeader: xor}) // xor is its own inverse
		require.NoError(t, a.AddArchive(path))

		back, err := a.Read(0)
		require.NoError(t, err)
		assert.Equal(t, []byte("secret"), back)
	})

	t.Run("default hooks detect the wrong key", func(t *testing.T) {
		a := newTestArchive(t)
		err := a.AddArchive(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotArchive) || errors.Is(err, ErrBadDecryption), "got %v", err)
		assert.Equal(t, 0, a.Len())
	})
}

func TestAddArchiveNotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an archive, but long enough for a trailer"), 0644))

	a := newTestArchive(t)
	assert.ErrorIs(t, a.AddArchive(path), ErrNotArchive)
}

func TestAddArchiveRejectsTrailingComment(t *testing.T) {
	path := writeArchive(t, map[string][]byte{"a.txt": []byte("x")})
	tamperTrailer(t, path, func(h *BaseHeader) { h.CommentLength = 4 })

	a := newTestArchive(t)
	assert.ErrorIs(t, a.AddArchive(path), ErrArchiveComment)
}

func TestAddArchiveLeftoverDirectoryBytes(t *testing.T) {
	path := writeArchive(t, map[string][]byte{"a.txt": []byte("x"), "b.txt": []byte("y")})
	// Claiming one record fewer leaves the second record unconsumed.
	tamperTrailer(t, path, func(h *BaseHeader) { h.DirCount-- })

	a := newTestArchive(t)
	assert.ErrorIs(t, a.AddArchive(path), ErrBadDecryption)
}

func TestAddArchiveTruncatedDirectory(t *testing.T) {
	path := writeArchive(t, map[string][]byte{"a.txt": []byte("x")})
	tamperTrailer(t, path, func(h *BaseHeader) { h.DirSize += 64 })

	a := newTestArchive(t)
	assert.ErrorIs(t, a.AddArchive(path), ErrCorruptData)
}

// tamperTrailer rewrites the archive's base header through fn, preserving
// the default obfuscation.
func tamperTrailer(t *testing.T, path string, fn func(*BaseHeader)) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), BaseHeaderSize)

	trailer := DefaultDecrypt(raw[len(raw)-BaseHeaderSize:])
	var h BaseHeader
	require.NoError(t, h.DecodeFrom(trailer))
	fn(&h)
	h.EncodeTo(trailer)
	copy(raw[len(raw)-BaseHeaderSize:], DefaultEncrypt(trailer))
	require.NoError(t, os.WriteFile(path, raw, 0644))
}
