package mrs

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
)

// Filenames inside the headers are stored in whatever legacy codec first
// manages a lossless round trip. The chain mirrors the archives found in the
// wild: the game's locale codec first, then the fixed single-byte Western
// codec, then UTF-8. The codec that succeeded is recorded on the entry so a
// rename can re-encode the same way.
const (
	EncodingLegacy  = "euc-kr"
	EncodingWestern = "windows-1252"
	EncodingUTF8    = "utf-8"
)

type nameCodec struct {
	name string
	enc  encoding.Encoding // nil means UTF-8
}

var nameCodecs = []nameCodec{
	{EncodingLegacy, korean.EUCKR},
	{EncodingWestern, charmap.Windows1252},
	{EncodingUTF8, nil},
}

// encodeName encodes a display name into raw header bytes, returning the
// bytes and the codec name that produced them. A name no codec can encode
// wraps ErrInvalidName.
func encodeName(name string) ([]byte, string, error) {
	for _, c := range nameCodecs {
		if c.enc == nil {
			return []byte(name), c.name, nil
		}
		b, err := c.enc.NewEncoder().Bytes([]byte(name))
		if err != nil {
			continue
		}
		return b, c.name, nil
	}
	return nil, "", fmt.Errorf("%w: no codec encodes %q", ErrInvalidName, name)
}

// encodeNameAs re-encodes a display name with a previously recorded codec,
// falling back to the full chain if the codec no longer fits the text.
func encodeNameAs(name, codec string) ([]byte, string, error) {
	for _, c := range nameCodecs {
		if c.name != codec {
			continue
		}
		if c.enc == nil {
			return []byte(name), c.name, nil
		}
		if b, err := c.enc.NewEncoder().Bytes([]byte(name)); err == nil {
			return b, c.name, nil
		}
		break
	}
	return encodeName(name)
}

// decodeName decodes raw header bytes into a display name, returning the
// text and the codec that decoded it cleanly. x/text decoders substitute
// U+FFFD instead of failing, so a replacement rune in the output is treated
// as a decode failure and the chain advances.
func decodeName(raw []byte) (string, string, error) {
	for _, c := range nameCodecs {
		if c.enc == nil {
			if utf8.Valid(raw) {
				return string(raw), c.name, nil
			}
			continue
		}
		s, err := c.enc.NewDecoder().String(string(raw))
		if err != nil || strings.ContainsRune(s, utf8.RuneError) {
			continue
		}
		return s, c.name, nil
	}
	return "", "", fmt.Errorf("%w: unknown encoding for %q", ErrInvalidName, raw)
}
