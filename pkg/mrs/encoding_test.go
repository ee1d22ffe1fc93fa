package mrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeName(t *testing.T) {
	t.Run("ascii uses the legacy codec", func(t *testing.T) {
		raw, codec, err := encodeName("file.txt")
		require.NoError(t, err)
		assert.Equal(t, EncodingLegacy, codec)
		assert.Equal(t, []byte("file.txt"), raw)
	})

	t.Run("korean stays in the legacy codec", func(t *testing.T) {
		raw, codec, err := encodeName("지도.xml") // "jido" (map)
		require.NoError(t, err)
		assert.Equal(t, EncodingLegacy, codec)
		assert.NotEqual(t, []byte("지도.xml"), raw)
	})

	t.Run("western falls through to 1252", func(t *testing.T) {
		// The euro sign postdates the legacy codec's repertoire.
		_, codec, err := encodeName("price€.txt")
		require.NoError(t, err)
		assert.Equal(t, EncodingWestern, codec)
	})

	t.Run("everything else lands in utf-8", func(t *testing.T) {
		raw, codec, err := encodeName("\U0001F4E6.bin")
		require.NoError(t, err)
		assert.Equal(t, EncodingUTF8, codec)
		assert.Equal(t, []byte("\U0001F4E6.bin"), raw)
	})
}

func TestDecodeNameRoundTrip(t *testing.T) {
	// The third name's UTF-8 bytes include 0x8D, which Windows-1252 leaves
	// undefined, so decoding falls all the way through to UTF-8. Names whose
	// raw bytes happen to decode cleanly under an earlier codec come back as
	// that codec's text instead; the chain is ordered, not self-describing.
	for _, name := range []string{"plain.txt", "지도.xml", "ऍ.bin"} {
		raw, codec, err := encodeName(name)
		require.NoError(t, err)

		got, gotCodec, err := decodeName(raw)
		require.NoError(t, err)
		assert.Equal(t, name, got)
		assert.Equal(t, codec, gotCodec)
	}
}

func TestEncodeNameAs(t *testing.T) {
	// A recorded codec is reused when it still fits.
	raw, codec, err := encodeNameAs("renamed.txt", EncodingWestern)
	require.NoError(t, err)
	assert.Equal(t, EncodingWestern, codec)
	assert.Equal(t, []byte("renamed.txt"), raw)

	// When it no longer fits, the chain runs again.
	_, codec, err = encodeNameAs("\U0001F4E6.bin", EncodingWestern)
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, codec)
}
