package mrs

import (
	"fmt"
	"io"
	"os"
)

// WriteTo emits the archive in its on-disk layout: for each entry a local
// header record immediately followed by that entry's payload bytes, then
// the central directory records back to back, then the fixed base header
// trailer. The resolved encryption hooks are applied to the 30-byte local
// prefixes, the whole directory blob and the 22-byte trailer; payloads go
// through the buffer hook when one is set. Local-header extra fields are
// written under the default obfuscation to mirror how they are read back.
//
// WriteTo implements io.WriterTo.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	var written int64

	emit := func(b []byte) error {
		n, err := w.Write(b)
		written += int64(n)
		return err
	}

	for _, e := range a.entries {
		e.dh.Offset = uint32(written)

		// Fixed prefix and variable fields get different treatment on the
		// way back in, so they are emitted separately here.
		prefix := make([]byte, LocalHeaderSize)
		e.lh.encodePrefix(prefix)
		if err := emit(a.encrypt.apply(HookLocalHeader, prefix)); err != nil {
			return written, fmt.Errorf("write local header %q: %w", e.name, err)
		}
		if err := emit(e.lh.Filename); err != nil {
			return written, fmt.Errorf("write filename %q: %w", e.name, err)
		}
		if len(e.lh.Extra) > 0 {
			if err := emit(DefaultEncrypt(e.lh.Extra)); err != nil {
				return written, fmt.Errorf("write extra %q: %w", e.name, err)
			}
		}

		payload, err := a.store.ReadAt(e.storeOffset, int64(e.dh.CompressedSize))
		if err != nil {
			return written, fmt.Errorf("write payload %q: %w", e.name, err)
		}
		if a.encrypt.Buffer != nil {
			payload = a.encrypt.Buffer(payload)
		}
		if err := emit(payload); err != nil {
			return written, fmt.Errorf("write payload %q: %w", e.name, err)
		}
	}

	dirOffset := written
	dir := make([]byte, 0, len(a.entries)*CentralDirHeaderSize)
	for _, e := range a.entries {
		rec := make([]byte, e.dh.Size())
		e.dh.EncodeTo(rec)
		dir = append(dir, rec...)
	}
	dirSize := len(dir)
	if err := emit(a.encrypt.apply(HookCentralDirHeader, dir)); err != nil {
		return written, fmt.Errorf("write central directory: %w", err)
	}

	hdr := BaseHeader{
		Signature:     BaseMagic1,
		DirCount:      a.hdr.DirCount,
		TotalDirCount: a.hdr.TotalDirCount,
		DirSize:       uint32(dirSize),
		DirOffset:     uint32(dirOffset),
	}
	trailer := make([]byte, BaseHeaderSize)
	hdr.EncodeTo(trailer)
	if err := emit(a.encrypt.apply(HookBaseHeader, trailer)); err != nil {
		return written, fmt.Errorf("write base header: %w", err)
	}

	a.logger.Debug("archive written", "entries", a.hdr.DirCount,
		"dir_offset", dirOffset, "dir_size", dirSize, "bytes", written)
	return written, nil
}

// WriteFile writes the archive to a new file at path.
func (a *Archive) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if _, err := a.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	return nil
}
