package mrs

import "errors"

// Sentinel errors returned by the archive engine. Callers should match with
// errors.Is; most are returned wrapped with the archive path, entry name or
// index that triggered them.
var (
	// ErrNotArchive is returned when a base header signature matches none of
	// the known magic constants and no custom signature check accepts it.
	// The file is either not an MRS archive or was written with a different
	// encryption; the two cases cannot be told apart at the base level.
	ErrNotArchive = errors.New("not an mrs archive or invalid decryption")

	// ErrBadDecryption is returned when the base header parsed but a local or
	// central directory record fails its signature check, or the central
	// directory walk ends with leftover or missing bytes. The file is an MRS
	// archive, the decryption hooks are wrong.
	ErrBadDecryption = errors.New("invalid decryption")

	// ErrCorruptData is returned when the declared directory size does not
	// match the bytes present, or a Deflate payload fails to inflate.
	ErrCorruptData = errors.New("corrupt archive data")

	// ErrInvalidName is returned for filenames containing reserved device
	// names, disallowed characters, or text that no supported codec encodes.
	ErrInvalidName = errors.New("invalid file name")

	// ErrDuplicateName is returned when an insertion or merge collides with
	// an existing entry under the KeepOld policy.
	ErrDuplicateName = errors.New("duplicate file name")

	// ErrIndexRange is returned for entry indexes at or past Len().
	ErrIndexRange = errors.New("entry index out of range")

	// ErrIsDirectory is returned when a source path names a directory where a
	// regular file was expected.
	ErrIsDirectory = errors.New("path is a directory")

	// ErrArchiveComment reports a base header with a non-zero comment length.
	// The trailer is located at a fixed distance from end of file, which only
	// works for comment-free archives; such files are rejected rather than
	// misparsed.
	ErrArchiveComment = errors.New("archives with a trailing comment are not supported")
)
