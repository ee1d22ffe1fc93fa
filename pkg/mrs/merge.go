package mrs

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// AddArchive opens a foreign archive and merges every entry into this one.
// Payloads are copied verbatim, without a decompress/recompress cycle, from
// the foreign file into this archive's scratch store. Display names can be
// prefixed with WithBasePath and collide under the WithPolicy rules exactly
// as in direct insertion.
//
// The foreign directory is walked and staged completely before anything is
// committed, so a failure mid-walk leaves this archive's directory in its
// prior state. Payload bytes already appended to the scratch store by a
// failed merge stay behind as unreferenced tail garbage; they are never
// reachable through the directory.
//
// Foreign payloads are re-verified before commit: Deflate streams must
// inflate and the result must match the recorded CRC-32. Archives written
// with different hooks than this archive's decryption slots fail with
// ErrNotArchive (trailer) or ErrBadDecryption (directory or local records),
// never by loading garbage entries.
func (a *Archive) AddArchive(path string, opts ...AddOption) error {
	cfg := applyAddOptions(opts)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("merge %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("merge %q: %w", path, ErrIsDirectory)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("merge %q: %w", path, err)
	}
	defer f.Close()

	hdr, err := a.readBaseHeader(f, path)
	if err != nil {
		return err
	}

	a.logger.Debug("merging archive", "path", path, "entries", hdr.DirCount)

	staged, err := a.walkDirectory(f, hdr, path, cfg)
	if err != nil {
		return err
	}

	for _, s := range staged {
		idx := a.commit(s.e, s.dup, cfg.policy)
		a.logger.Debug("entry merged", "name", s.e.name, "index", idx, "from", path)
	}
	return nil
}

// readBaseHeader reads and validates the trailer record at the fixed
// distance from end of file. The trailer location ignores any declared
// archive comment, so archives with a non-zero comment length are rejected
// outright rather than misparsed.
func (a *Archive) readBaseHeader(f *os.File, path string) (*BaseHeader, error) {
	if _, err := f.Seek(-BaseHeaderSize, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("%q: %w", path, ErrNotArchive)
	}
	buf := make([]byte, BaseHeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%q: %w", path, ErrNotArchive)
	}
	buf = a.decrypt.apply(HookBaseHeader, buf)

	hdr := &BaseHeader{}
	if err := hdr.DecodeFrom(buf); err != nil {
		return nil, fmt.Errorf("%q: %w", path, ErrNotArchive)
	}
	if !a.checkSignature(HookBaseHeader, hdr.Signature) {
		return nil, fmt.Errorf("%q: %w", path, ErrNotArchive)
	}
	if hdr.CommentLength != 0 {
		return nil, fmt.Errorf("%q: %w", path, ErrArchiveComment)
	}
	return hdr, nil
}

// stagedEntry is a fully validated incoming entry waiting for the commit
// pass.
type stagedEntry struct {
	e   *entry
	dup *duplicate
}

// walkDirectory reads the foreign central directory, validates every record
// and its local header, and copies the payloads into the scratch store. The
// directory buffer must come out exactly consumed; leftover or missing
// bytes mean the decryption scrambled the length fields.
func (a *Archive) walkDirectory(f *os.File, hdr *BaseHeader, path string, cfg addConfig) ([]stagedEntry, error) {
	if _, err := f.Seek(int64(hdr.DirOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("%q: seek central directory: %w", path, err)
	}
	dir := make([]byte, hdr.DirSize)
	if _, err := io.ReadFull(f, dir); err != nil {
		return nil, fmt.Errorf("%q: directory size %d not present: %w", path, hdr.DirSize, ErrCorruptData)
	}
	dir = a.decrypt.apply(HookCentralDirHeader, dir)

	staged := make([]stagedEntry, 0, hdr.DirCount)
	for i := 0; i < int(hdr.DirCount); i++ {
		var dh CentralDirHeader
		n, err := dh.DecodeFrom(dir)
		if err != nil {
			return nil, fmt.Errorf("%q: record %d: %w", path, i, ErrBadDecryption)
		}
		dir = dir[n:]

		if !a.checkSignature(HookCentralDirHeader, dh.Signature) {
			return nil, fmt.Errorf("%q: record %d: %w", path, i, ErrBadDecryption)
		}

		name, codec, err := decodeName(dh.Filename)
		if err != nil {
			return nil, fmt.Errorf("%q: record %d: %w", path, i, err)
		}
		if cfg.basePath != "" {
			name = cfg.basePath + "/" + name
		}
		if err := ValidateName(name); err != nil {
			return nil, fmt.Errorf("%q: %w", path, err)
		}

		lh, err := a.readLocalHeader(f, &dh, path, i)
		if err != nil {
			return nil, err
		}

		storeOffset, err := a.copyPayload(f, &dh, path, name)
		if err != nil {
			return nil, err
		}

		dup := findDuplicate(name, a.names())
		if dup != nil {
			switch cfg.policy {
			case KeepOld:
				return nil, fmt.Errorf("%q: %w: %q", path, ErrDuplicateName, name)
			case KeepBoth:
				a.logger.Debug("duplicate resolved", "name", name, "renamed", dup.suggested)
				name = dup.suggested
			}
		}
		encoded, codec, err := encodeNameAs(name, codec)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", path, err)
		}

		e := &entry{dh: dh, lh: *lh, storeOffset: storeOffset}
		e.setName(name, encoded, codec)
		staged = append(staged, stagedEntry{e: e, dup: dup})
	}

	if len(dir) != 0 {
		return nil, fmt.Errorf("%q: %d leftover directory bytes: %w", path, len(dir), ErrBadDecryption)
	}
	return staged, nil
}

// readLocalHeader reads the entry's local record at its stored offset,
// decrypts the fixed prefix with the resolved local hook, and positions the
// file at the payload. The foreign filename bytes are skipped; the extra
// field is carried over after the default obfuscation is undone, which is
// how it is written regardless of custom hooks.
func (a *Archive) readLocalHeader(f *os.File, dh *CentralDirHeader, path string, i int) (*LocalHeader, error) {
	if _, err := f.Seek(int64(dh.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("%q: record %d: seek local header: %w", path, i, err)
	}
	buf := make([]byte, LocalHeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%q: record %d: read local header: %w", path, i, ErrCorruptData)
	}
	buf = a.decrypt.apply(HookLocalHeader, buf)

	lh := &LocalHeader{}
	if err := lh.DecodeFrom(buf); err != nil {
		return nil, fmt.Errorf("%q: record %d: %w", path, i, ErrBadDecryption)
	}
	if !a.checkSignature(HookLocalHeader, lh.Signature) {
		return nil, fmt.Errorf("%q: record %d: %w", path, i, ErrBadDecryption)
	}

	filenameLen, extraLen := lh.VariableLengths()
	if _, err := f.Seek(int64(filenameLen), io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("%q: record %d: skip filename: %w", path, i, err)
	}
	if extraLen > 0 {
		extra := make([]byte, extraLen)
		if _, err := io.ReadFull(f, extra); err != nil {
			return nil, fmt.Errorf("%q: record %d: read extra: %w", path, i, ErrCorruptData)
		}
		lh.Extra = DefaultDecrypt(extra)
	}
	return lh, nil
}

// copyPayload appends the entry's compressed bytes, verbatim, to the scratch
// store, verifying first that they inflate (for Deflate entries) and that
// the result matches the directory's recorded CRC-32.
func (a *Archive) copyPayload(f *os.File, dh *CentralDirHeader, path, name string) (int64, error) {
	if dh.CompressedSize == 0 {
		return 0, nil
	}
	payload := make([]byte, dh.CompressedSize)
	if _, err := io.ReadFull(f, payload); err != nil {
		return 0, fmt.Errorf("%q: entry %q: read payload: %w", path, name, ErrCorruptData)
	}
	if a.decrypt.Buffer != nil {
		payload = a.decrypt.Buffer(payload)
	}

	raw := payload
	if dh.Compression == CompressionDeflate {
		var err error
		if raw, err = inflate(payload); err != nil {
			return 0, fmt.Errorf("%w: invalid deflate stream in %q for entry %q", ErrCorruptData, path, name)
		}
	}
	if crc32.ChecksumIEEE(raw) != dh.CRC32 {
		return 0, fmt.Errorf("%w: crc mismatch in %q for entry %q", ErrCorruptData, path, name)
	}

	return a.store.Append(payload)
}
