package mrs

import (
	"encoding/binary"
	"fmt"
)

// Record sizes of the fixed header prefixes. Local and central directory
// records are followed by variable-length filename, extra and comment fields
// whose sizes are given by the preceding length fields.
const (
	BaseHeaderSize       = 22
	LocalHeaderSize      = 30
	CentralDirHeaderSize = 46
)

// Known header signatures. The first base constant pair is format-specific;
// the third is shared with the well-known ZIP end-of-directory record.
const (
	BaseMagic1 uint32 = 0x05030207
	BaseMagic2 uint32 = 0x05030208
	BaseMagic3 uint32 = 0x06054b50

	LocalMagic1 uint32 = 0x04034b50
	LocalMagic2 uint32 = 0x85840000

	CentralMagic1 uint32 = 0x02014b50
	CentralMagic2 uint32 = 0x05024b80
)

// Version words written into new records.
const (
	LocalVersion         uint16 = 0x14
	CentralVersionMade   uint16 = 0x19
	CentralVersionNeeded uint16 = 0x14
)

// Compression methods supported by the container.
const (
	CompressionStore   uint16 = 0
	CompressionDeflate uint16 = 8
)

// BaseHeader is the fixed 22-byte trailer record naming the central
// directory's size, offset and entry counts.
type BaseHeader struct {
	Signature     uint32
	DiskNum       uint16
	DiskStart     uint16
	DirCount      uint16
	TotalDirCount uint16
	DirSize       uint32
	DirOffset     uint32
	CommentLength uint16
}

// EncodeTo writes the header to buf, which must be at least BaseHeaderSize
// bytes.
func (h *BaseHeader) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Signature)
	binary.LittleEndian.PutUint16(buf[4:6], h.DiskNum)
	binary.LittleEndian.PutUint16(buf[6:8], h.DiskStart)
	binary.LittleEndian.PutUint16(buf[8:10], h.DirCount)
	binary.LittleEndian.PutUint16(buf[10:12], h.TotalDirCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.DirSize)
	binary.LittleEndian.PutUint32(buf[16:20], h.DirOffset)
	binary.LittleEndian.PutUint16(buf[20:22], h.CommentLength)
}

// MarshalBinary encodes the header to binary format.
func (h *BaseHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, BaseHeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// DecodeFrom reads the header from data. It does not validate the signature;
// the raw bytes may still be obfuscated when a record is parsed, so magic
// checks are a separate step after decryption.
func (h *BaseHeader) DecodeFrom(data []byte) error {
	if len(data) < BaseHeaderSize {
		return fmt.Errorf("base header too short: need %d, got %d", BaseHeaderSize, len(data))
	}
	h.Signature = binary.LittleEndian.Uint32(data[0:4])
	h.DiskNum = binary.LittleEndian.Uint16(data[4:6])
	h.DiskStart = binary.LittleEndian.Uint16(data[6:8])
	h.DirCount = binary.LittleEndian.Uint16(data[8:10])
	h.TotalDirCount = binary.LittleEndian.Uint16(data[10:12])
	h.DirSize = binary.LittleEndian.Uint32(data[12:16])
	h.DirOffset = binary.LittleEndian.Uint32(data[16:20])
	h.CommentLength = binary.LittleEndian.Uint16(data[20:22])
	return nil
}

// LocalHeader is the per-entry record immediately preceding that entry's
// stored payload.
type LocalHeader struct {
	Signature        uint32
	Version          uint16
	Flags            uint16
	Compression      uint16
	ModTime          DosTime
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	Filename         []byte
	Extra            []byte

	// Declared variable-field lengths from the last DecodeFrom, kept before
	// the fields themselves have been read. EncodeTo derives lengths from
	// the actual slices so the two can never disagree on output.
	varFilename uint16
	varExtra    uint16
}

// Size returns the encoded byte size including variable fields.
func (h *LocalHeader) Size() int {
	return LocalHeaderSize + len(h.Filename) + len(h.Extra)
}

// EncodeTo writes the fixed prefix and variable fields to buf, which must be
// at least Size() bytes.
func (h *LocalHeader) EncodeTo(buf []byte) {
	h.encodePrefix(buf)
	copy(buf[LocalHeaderSize:], h.Filename)
	copy(buf[LocalHeaderSize+len(h.Filename):], h.Extra)
}

// encodePrefix writes only the fixed 30-byte prefix, with the length fields
// derived from the variable slices. The writer encrypts the prefix
// separately from the filename and extra bytes that follow it.
func (h *LocalHeader) encodePrefix(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Signature)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint16(buf[8:10], h.Compression)
	binary.LittleEndian.PutUint16(buf[10:12], h.ModTime.Time)
	binary.LittleEndian.PutUint16(buf[12:14], h.ModTime.Date)
	binary.LittleEndian.PutUint32(buf[14:18], h.CRC32)
	binary.LittleEndian.PutUint32(buf[18:22], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[22:26], h.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[26:28], uint16(len(h.Filename)))
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(h.Extra)))
}

// MarshalBinary encodes the header to binary format.
func (h *LocalHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, h.Size())
	h.EncodeTo(buf)
	return buf, nil
}

// DecodeFrom reads the fixed 30-byte prefix from data. Variable fields are
// not consumed: merge reads them straight off the foreign file after the
// prefix, so only FilenameLength/ExtraLength matter here and they are
// recoverable via VariableLengths.
func (h *LocalHeader) DecodeFrom(data []byte) error {
	if len(data) < LocalHeaderSize {
		return fmt.Errorf("local header too short: need %d, got %d", LocalHeaderSize, len(data))
	}
	h.Signature = binary.LittleEndian.Uint32(data[0:4])
	h.Version = binary.LittleEndian.Uint16(data[4:6])
	h.Flags = binary.LittleEndian.Uint16(data[6:8])
	h.Compression = binary.LittleEndian.Uint16(data[8:10])
	h.ModTime.Time = binary.LittleEndian.Uint16(data[10:12])
	h.ModTime.Date = binary.LittleEndian.Uint16(data[12:14])
	h.CRC32 = binary.LittleEndian.Uint32(data[14:18])
	h.CompressedSize = binary.LittleEndian.Uint32(data[18:22])
	h.UncompressedSize = binary.LittleEndian.Uint32(data[22:26])
	h.Filename = nil
	h.Extra = nil
	h.varFilename = binary.LittleEndian.Uint16(data[26:28])
	h.varExtra = binary.LittleEndian.Uint16(data[28:30])
	return nil
}

// VariableLengths returns the filename and extra lengths declared by the
// last decoded prefix.
func (h *LocalHeader) VariableLengths() (filename, extra int) {
	return int(h.varFilename), int(h.varExtra)
}

// CentralDirHeader is the per-entry record inside the central directory.
type CentralDirHeader struct {
	Signature        uint32
	VersionMade      uint16
	VersionNeeded    uint16
	Flags            uint16
	Compression      uint16
	ModTime          DosTime
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	DiskStart        uint16
	InternalAttr     uint16
	ExternalAttr     uint32
	Offset           uint32
	Filename         []byte
	Extra            []byte
	Comment          []byte
}

// Size returns the encoded byte size including variable fields.
func (h *CentralDirHeader) Size() int {
	return CentralDirHeaderSize + len(h.Filename) + len(h.Extra) + len(h.Comment)
}

// EncodeTo writes the fixed prefix and variable fields to buf, which must be
// at least Size() bytes.
func (h *CentralDirHeader) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Signature)
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionMade)
	binary.LittleEndian.PutUint16(buf[6:8], h.VersionNeeded)
	binary.LittleEndian.PutUint16(buf[8:10], h.Flags)
	binary.LittleEndian.PutUint16(buf[10:12], h.Compression)
	binary.LittleEndian.PutUint16(buf[12:14], h.ModTime.Time)
	binary.LittleEndian.PutUint16(buf[14:16], h.ModTime.Date)
	binary.LittleEndian.PutUint32(buf[16:20], h.CRC32)
	binary.LittleEndian.PutUint32(buf[20:24], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[24:28], h.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(h.Filename)))
	binary.LittleEndian.PutUint16(buf[30:32], uint16(len(h.Extra)))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(len(h.Comment)))
	binary.LittleEndian.PutUint16(buf[34:36], h.DiskStart)
	binary.LittleEndian.PutUint16(buf[36:38], h.InternalAttr)
	binary.LittleEndian.PutUint32(buf[38:42], h.ExternalAttr)
	binary.LittleEndian.PutUint32(buf[42:46], h.Offset)
	off := CentralDirHeaderSize
	off += copy(buf[off:], h.Filename)
	off += copy(buf[off:], h.Extra)
	copy(buf[off:], h.Comment)
}

// MarshalBinary encodes the header to binary format.
func (h *CentralDirHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, h.Size())
	h.EncodeTo(buf)
	return buf, nil
}

// DecodeFrom reads one full record, fixed prefix plus variable fields, from
// the front of data. It returns the number of bytes consumed. Signature
// validation is the caller's job.
func (h *CentralDirHeader) DecodeFrom(data []byte) (int, error) {
	if len(data) < CentralDirHeaderSize {
		return 0, fmt.Errorf("central directory record too short: need %d, got %d", CentralDirHeaderSize, len(data))
	}
	h.Signature = binary.LittleEndian.Uint32(data[0:4])
	h.VersionMade = binary.LittleEndian.Uint16(data[4:6])
	h.VersionNeeded = binary.LittleEndian.Uint16(data[6:8])
	h.Flags = binary.LittleEndian.Uint16(data[8:10])
	h.Compression = binary.LittleEndian.Uint16(data[10:12])
	h.ModTime.Time = binary.LittleEndian.Uint16(data[12:14])
	h.ModTime.Date = binary.LittleEndian.Uint16(data[14:16])
	h.CRC32 = binary.LittleEndian.Uint32(data[16:20])
	h.CompressedSize = binary.LittleEndian.Uint32(data[20:24])
	h.UncompressedSize = binary.LittleEndian.Uint32(data[24:28])
	filenameLen := int(binary.LittleEndian.Uint16(data[28:30]))
	extraLen := int(binary.LittleEndian.Uint16(data[30:32]))
	commentLen := int(binary.LittleEndian.Uint16(data[32:34]))
	h.DiskStart = binary.LittleEndian.Uint16(data[34:36])
	h.InternalAttr = binary.LittleEndian.Uint16(data[36:38])
	h.ExternalAttr = binary.LittleEndian.Uint32(data[38:42])
	h.Offset = binary.LittleEndian.Uint32(data[42:46])

	total := CentralDirHeaderSize + filenameLen + extraLen + commentLen
	if len(data) < total {
		return 0, fmt.Errorf("central directory record truncated: need %d, got %d", total, len(data))
	}
	off := CentralDirHeaderSize
	h.Filename = cloneBytes(data[off : off+filenameLen])
	off += filenameLen
	h.Extra = cloneBytes(data[off : off+extraLen])
	off += extraLen
	h.Comment = cloneBytes(data[off : off+commentLen])
	return total, nil
}

// cloneBytes copies b, mapping an empty slice to nil.
func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
