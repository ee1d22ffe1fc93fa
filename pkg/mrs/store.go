package mrs

import (
	"fmt"
	"io"
	"os"
)

// contentStore is the append-only byte arena holding compressed entry
// payloads. It is backed by an unlinked scratch file rather than memory so
// large archives do not have to fit in RAM. Allocation is "current end
// offset": freed space is never reused, replaced entries simply leave their
// old payload unreferenced at its old offset.
type contentStore struct {
	f   *os.File
	end int64
}

func newContentStore() (*contentStore, error) {
	f, err := os.CreateTemp("", "mrs-store-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch store: %w", err)
	}
	// The store is private to this archive; drop the directory entry so the
	// space is reclaimed even on abnormal exit.
	os.Remove(f.Name())
	return &contentStore{f: f}, nil
}

// Append writes data at the end of the store and returns the offset it was
// written at.
func (s *contentStore) Append(data []byte) (int64, error) {
	off := s.end
	if _, err := s.f.WriteAt(data, off); err != nil {
		return 0, fmt.Errorf("append to scratch store: %w", err)
	}
	s.end += int64(len(data))
	return off, nil
}

// ReadAt returns length bytes starting at off.
func (s *contentStore) ReadAt(off, length int64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if off+length > s.end {
		return nil, fmt.Errorf("scratch store read [%d:%d) past end %d", off, off+length, s.end)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(io.NewSectionReader(s.f, off, length), buf); err != nil {
		return nil, fmt.Errorf("read scratch store: %w", err)
	}
	return buf, nil
}

// Size returns the current end offset.
func (s *contentStore) Size() int64 {
	return s.end
}

func (s *contentStore) Close() error {
	return s.f.Close()
}
