package mrs

import "math/bits"

// HookPoint names an injection point for an encryption or decryption
// transform.
type HookPoint int

const (
	HookBaseHeader HookPoint = iota + 1
	HookLocalHeader
	HookCentralDirHeader
	HookBuffer
)

// String returns the hook point name for logging.
func (p HookPoint) String() string {
	switch p {
	case HookBaseHeader:
		return "base header"
	case HookLocalHeader:
		return "local header"
	case HookCentralDirHeader:
		return "central directory header"
	case HookBuffer:
		return "buffer"
	}
	return "unknown"
}

// Transform converts between the on-disk and in-memory representation of a
// record. It must return a slice of the same length as its input and must
// not retain the input slice.
type Transform func(data []byte) []byte

// SignatureFunc is a custom signature validator. It is consulted only after
// a signature fails the built-in magic tables.
type SignatureFunc func(point HookPoint, signature uint32) bool

// Hooks holds the optional transforms for one direction. A nil slot means
// the resolution fallback applies: the central directory and local header
// slots fall back to the base header slot, the base header slot falls back
// to the built-in obfuscation, and the buffer slot falls back to no
// transform at all.
//
// Two independent Hooks values exist per archive, one per direction; see
// Archive.SetDecryption and Archive.SetEncryption.
type Hooks struct {
	BaseHeader       Transform
	LocalHeader      Transform
	CentralDirHeader Transform
	Buffer           Transform

	// fallback is the built-in transform for this direction, DefaultDecrypt
	// or DefaultEncrypt.
	fallback Transform
}

// resolve returns the transform to apply at the given point, never nil for
// header points. For the buffer point a nil return means "copy verbatim".
func (h *Hooks) resolve(point HookPoint) Transform {
	base := h.BaseHeader
	if base == nil {
		base = h.fallback
	}
	switch point {
	case HookBaseHeader:
		return base
	case HookLocalHeader:
		if h.LocalHeader != nil {
			return h.LocalHeader
		}
		return base
	case HookCentralDirHeader:
		if h.CentralDirHeader != nil {
			return h.CentralDirHeader
		}
		return base
	case HookBuffer:
		return h.Buffer
	}
	return base
}

// apply runs the resolved transform for point over data, returning data
// unchanged when no transform applies.
func (h *Hooks) apply(point HookPoint, data []byte) []byte {
	t := h.resolve(point)
	if t == nil {
		return data
	}
	return t(data)
}

// DefaultDecrypt is the built-in obfuscation reader: each byte is rotated
// right by 3 and complemented. It is a fixed per-byte substitution meant to
// defeat casual inspection, not a cipher; substitute real cryptography
// through the hook slots for anything security-sensitive.
func DefaultDecrypt(data []byte) []byte {
	out := make([]byte, len(data))
	for i, c := range data {
		out[i] = ^bits.RotateLeft8(c, -3)
	}
	return out
}

// DefaultEncrypt is the exact inverse of DefaultDecrypt: complement, then
// rotate left by 3.
func DefaultEncrypt(data []byte) []byte {
	out := make([]byte, len(data))
	for i, c := range data {
		out[i] = bits.RotateLeft8(^c, 3)
	}
	return out
}

// defaultSignature reports whether signature is one of the known magic
// constants for the given record kind.
func defaultSignature(point HookPoint, signature uint32) bool {
	switch point {
	case HookBaseHeader:
		return signature == BaseMagic1 || signature == BaseMagic2 || signature == BaseMagic3
	case HookLocalHeader:
		return signature == LocalMagic1 || signature == LocalMagic2
	case HookCentralDirHeader:
		return signature == CentralMagic1 || signature == CentralMagic2
	}
	return false
}
