package mrs

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
)

// DuplicatePolicy selects what happens when an inserted or merged entry's
// name collides with an existing one.
type DuplicatePolicy int

const (
	// KeepNew overwrites the existing entry in place, keeping its index.
	KeepNew DuplicatePolicy = iota
	// KeepOld fails the operation with ErrDuplicateName.
	KeepOld
	// KeepBoth renames the incoming entry to the first collision-free
	// numbered name.
	KeepBoth
)

// entry is one archived file: mirrored local and central directory header
// copies plus the decoded display name and the payload's position in the
// scratch store. The local header copy of size, CRC, compression, filename
// and timestamp always mirrors the central directory copy.
type entry struct {
	lh    LocalHeader
	dh    CentralDirHeader
	name  string // decoded display name
	codec string // text codec that produced the encoded filename
	// storeOffset is the payload position in the archive's own scratch
	// store. dh.Offset is only meaningful on disk and is rewritten by the
	// writer.
	storeOffset int64
}

// setName updates both header copies with a freshly encoded filename.
func (e *entry) setName(name string, encoded []byte, codec string) {
	e.name = name
	e.codec = codec
	e.dh.Filename = encoded
	e.lh.Filename = encoded
}

// Archive is an in-memory MRS archive: the ordered entry directory plus an
// append-only scratch store for compressed payloads. It is not safe for
// concurrent use; callers needing shared access must serialize operations
// or use independent archives.
type Archive struct {
	entries  []*entry
	hdr      BaseHeader
	store    *contentStore
	decrypt  Hooks
	encrypt  Hooks
	sigCheck SignatureFunc
	logger   *slog.Logger
}

// Option configures a new Archive.
type Option func(*Archive)

// WithLogger sets the event logger. Without it the archive logs nowhere.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = l
	}
}

// New creates an empty archive with a fresh scratch store.
func New(opts ...Option) (*Archive, error) {
	store, err := newContentStore()
	if err != nil {
		return nil, err
	}
	a := &Archive{
		store:   store,
		decrypt: Hooks{fallback: DefaultDecrypt},
		encrypt: Hooks{fallback: DefaultEncrypt},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Close releases the scratch store. The archive must not be used afterwards.
func (a *Archive) Close() error {
	return a.store.Close()
}

// SetDecryption replaces the decryption hook slots. Nil slots keep the
// documented fallback: central directory and local header fall back to the
// base header slot, the base header slot falls back to the built-in
// obfuscation, the buffer slot to no transform. Changing hooks never
// affects already-loaded entries, only subsequent operations.
func (a *Archive) SetDecryption(h Hooks) {
	h.fallback = DefaultDecrypt
	a.decrypt = h
}

// SetEncryption replaces the encryption hook slots, mirroring SetDecryption.
func (a *Archive) SetEncryption(h Hooks) {
	h.fallback = DefaultEncrypt
	a.encrypt = h
}

// SetSignatureCheck installs a custom signature validator consulted when a
// signature matches none of the built-in magic constants. Pass nil to
// remove it.
func (a *Archive) SetSignatureCheck(fn SignatureFunc) {
	a.sigCheck = fn
}

// checkSignature accepts a signature if it matches a known magic constant
// for the record kind or the custom validator takes it.
func (a *Archive) checkSignature(point HookPoint, signature uint32) bool {
	if defaultSignature(point, signature) {
		return true
	}
	return a.sigCheck != nil && a.sigCheck(point, signature)
}

// Len returns the number of entries in the directory.
func (a *Archive) Len() int {
	return int(a.hdr.DirCount)
}

// names returns the display names in directory order, the input to
// duplicate resolution.
func (a *Archive) names() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.name
	}
	return out
}

// addConfig collects the options shared by the insertion operations.
type addConfig struct {
	name     string
	basePath string
	policy   DuplicatePolicy
	modTime  time.Time
}

// AddOption configures an insertion or merge operation.
type AddOption func(*addConfig)

// WithStoredName overrides the display name recorded for an added file.
// Without it, AddFile uses the source file's base name.
func WithStoredName(name string) AddOption {
	return func(c *addConfig) {
		c.name = name
	}
}

// WithBasePath prefixes the display names of entries added by AddFolder and
// AddArchive.
func WithBasePath(base string) AddOption {
	return func(c *addConfig) {
		c.basePath = base
	}
}

// WithPolicy selects the duplicate-name policy for the operation. The
// default is KeepNew.
func WithPolicy(p DuplicatePolicy) AddOption {
	return func(c *addConfig) {
		c.policy = p
	}
}

// WithModTime sets the modification timestamp recorded for an added entry.
// AddBytes defaults to the current time, AddFile to the source file's
// mtime. The stored resolution is 2 seconds.
func WithModTime(t time.Time) AddOption {
	return func(c *addConfig) {
		c.modTime = t
	}
}

// AddFile reads the file at path and inserts it as one entry. The returned
// index is the entry's handle; it stays valid until a later insertion or
// merge replaces the entry under KeepNew.
func (a *Archive) AddFile(path string, opts ...AddOption) (int, error) {
	cfg := applyAddOptions(opts)

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("add %q: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("add %q: %w", path, ErrIsDirectory)
	}

	name := cfg.name
	if name == "" {
		if i := strings.LastIndexAny(path, `/\`); i >= 0 {
			name = path[i+1:]
		} else {
			name = path
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("add %q: %w", path, err)
	}

	modTime := cfg.modTime
	if modTime.IsZero() {
		modTime = info.ModTime()
	}
	return a.AddBytes(data, name, WithPolicy(cfg.policy), WithModTime(modTime))
}

// AddBytes inserts one entry with the given payload and display name.
// Forward slashes in the name are normalized to the archive's backslash
// separator, the name is validated, duplicates are resolved under the
// chosen policy, and the payload is Deflate-compressed at maximum effort
// unless it is empty or compression does not shrink it, in which case it is
// stored verbatim.
func (a *Archive) AddBytes(data []byte, name string, opts ...AddOption) (int, error) {
	cfg := applyAddOptions(opts)

	name = strings.ReplaceAll(name, "/", `\`)
	if err := ValidateName(name); err != nil {
		return 0, err
	}

	dup := findDuplicate(name, a.names())
	if dup != nil {
		switch cfg.policy {
		case KeepOld:
			return 0, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		case KeepBoth:
			a.logger.Debug("duplicate resolved", "name", name, "renamed", dup.suggested)
			name = dup.suggested
		}
	}

	encoded, codec, err := encodeName(name)
	if err != nil {
		return 0, err
	}

	modTime := cfg.modTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	payload := data
	method := CompressionStore
	if len(data) > 0 {
		if c, err := deflate(data); err == nil && len(c) < len(data) {
			payload = c
			method = CompressionDeflate
		}
	}

	off, err := a.store.Append(payload)
	if err != nil {
		return 0, err
	}

	e := &entry{
		dh: CentralDirHeader{
			Signature:        CentralMagic1,
			VersionMade:      CentralVersionMade,
			VersionNeeded:    CentralVersionNeeded,
			Compression:      method,
			ModTime:          NewDosTime(modTime),
			CRC32:            crc32.ChecksumIEEE(data),
			CompressedSize:   uint32(len(payload)),
			UncompressedSize: uint32(len(data)),
		},
		storeOffset: off,
	}
	e.lh = localFromCentral(&e.dh)
	e.setName(name, encoded, codec)

	idx := a.commit(e, dup, cfg.policy)
	a.logger.Debug("entry added", "name", name, "index", idx,
		"method", method, "size", len(data), "compressed", len(payload))
	return idx, nil
}

// commit places a staged entry into the directory: in place of the exact
// match under KeepNew, appended otherwise. Counters only grow on append.
func (a *Archive) commit(e *entry, dup *duplicate, policy DuplicatePolicy) int {
	if dup != nil && policy == KeepNew {
		a.entries[dup.index] = e
		return dup.index
	}
	a.entries = append(a.entries, e)
	a.hdr.DirCount++
	a.hdr.TotalDirCount = a.hdr.DirCount
	return len(a.entries) - 1
}

// localFromCentral builds the mirrored local header copy for a directory
// record.
func localFromCentral(dh *CentralDirHeader) LocalHeader {
	return LocalHeader{
		Signature:        LocalMagic1,
		Version:          LocalVersion,
		Compression:      dh.Compression,
		ModTime:          dh.ModTime,
		CRC32:            dh.CRC32,
		CompressedSize:   dh.CompressedSize,
		UncompressedSize: dh.UncompressedSize,
		Filename:         dh.Filename,
	}
}

// AddFolder walks dir recursively and adds every regular file, preserving
// the relative path as the display name, optionally under WithBasePath.
// Symbolic links are not followed.
func (a *Archive) AddFolder(dir string, opts ...AddOption) error {
	cfg := applyAddOptions(opts)

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("add folder %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("add folder %q: not a directory", dir)
	}

	root := os.DirFS(dir)
	return fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		name := p
		if cfg.basePath != "" {
			name = cfg.basePath + "/" + p
		}
		_, err = a.AddFile(filepath.Join(dir, p), WithStoredName(name), WithPolicy(cfg.policy))
		return err
	})
}

// Read returns the uncompressed payload of the entry at index, byte
// identical to the source it was added from.
func (a *Archive) Read(index int) ([]byte, error) {
	if index < 0 || index >= a.Len() {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexRange, index, a.Len())
	}
	e := a.entries[index]
	if e.dh.CompressedSize == 0 {
		return nil, nil
	}
	b, err := a.store.ReadAt(e.storeOffset, int64(e.dh.CompressedSize))
	if err != nil {
		return nil, err
	}
	if e.dh.Compression == CompressionDeflate {
		out, err := inflate(b)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrCorruptData, e.name, err)
		}
		return out, nil
	}
	return b, nil
}

// EntryInfo is the mutable metadata view of one entry. Payload-determined
// fields (CRC, sizes, method) are read-only snapshots; SetEntry ignores
// them.
type EntryInfo struct {
	Index          int
	Name           string
	CRC32          uint32
	Size           uint32
	CompressedSize uint32
	Method         uint16
	ModTime        time.Time
	LocalExtra     []byte
	CentralExtra   []byte
	Comment        []byte
}

// Entry returns the metadata of the entry at index without touching the
// payload store.
func (a *Archive) Entry(index int) (EntryInfo, error) {
	if index < 0 || index >= a.Len() {
		return EntryInfo{}, fmt.Errorf("%w: %d of %d", ErrIndexRange, index, a.Len())
	}
	return a.entryInfo(index), nil
}

func (a *Archive) entryInfo(index int) EntryInfo {
	e := a.entries[index]
	return EntryInfo{
		Index:          index,
		Name:           e.name,
		CRC32:          e.dh.CRC32,
		Size:           e.dh.UncompressedSize,
		CompressedSize: e.dh.CompressedSize,
		Method:         e.dh.Compression,
		ModTime:        e.dh.ModTime.Value(),
		LocalExtra:     cloneBytes(e.lh.Extra),
		CentralExtra:   cloneBytes(e.dh.Extra),
		Comment:        cloneBytes(e.dh.Comment),
	}
}

// SetEntry writes back the mutable metadata of the entry at index: name
// (re-validated and re-encoded, but not re-run through duplicate
// resolution), timestamp, extra fields and comment.
func (a *Archive) SetEntry(index int, info EntryInfo) error {
	if index < 0 || index >= a.Len() {
		return fmt.Errorf("%w: %d of %d", ErrIndexRange, index, a.Len())
	}
	if err := ValidateName(info.Name); err != nil {
		return err
	}
	encoded, codec, err := encodeName(info.Name)
	if err != nil {
		return err
	}
	e := a.entries[index]
	e.setName(info.Name, encoded, codec)
	e.dh.ModTime = NewDosTime(info.ModTime)
	e.lh.ModTime = e.dh.ModTime
	e.lh.Extra = cloneBytes(info.LocalExtra)
	e.dh.Extra = cloneBytes(info.CentralExtra)
	e.dh.Comment = cloneBytes(info.Comment)
	return nil
}

// Entries returns a metadata snapshot of every entry in directory order.
func (a *Archive) Entries() []EntryInfo {
	out := make([]EntryInfo, a.Len())
	for i := range out {
		out[i] = a.entryInfo(i)
	}
	return out
}

func applyAddOptions(opts []AddOption) addConfig {
	var cfg addConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// deflate compresses data as a raw Deflate stream at maximum effort, with
// no container framing; the archive's own headers carry sizes and CRC.
func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inflate decompresses a raw Deflate stream.
func inflate(data []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	return io.ReadAll(fr)
}
