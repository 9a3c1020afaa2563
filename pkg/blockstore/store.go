// Package blockstore implements the block I/O adapter (spec §4.C): a single
// capability interface over named, randomly-addressable byte stores. It is
// grounded on the teacher's pkg/store log_writer.go/log_reader.go (buffered
// os.File access, a mutex-guarded write path, and a fsync-on-timer idiom),
// reshaped from an append-only log into a random-access file, since a block
// store's callers (pkg/tree, pkg/treefile, pkg/meta) address arbitrary
// offsets rather than always appending.
package blockstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ssargent/kdforest/pkg/kderrors"
)

// Store is a single named random-access byte store (spec §4.C).
type Store interface {
	Len() (int64, error)
	Read(off int64, n int) ([]byte, error)
	Write(off int64, data []byte) error
	Truncate(size int64) error
	SyncAll() error
	IsEmpty() (bool, error)
	Close() error
}

// Adapter opens and removes named Stores. Two implementations ship: the
// file-backed Directory and the in-memory Memory (memory.go); the interface
// lets either, or a host-provided driver, back a forest, per spec
// §4.C's "may be backed by files, in-memory buffers, or a host-provided
// driver."
type Adapter interface {
	Open(name string) (Store, error)
	Remove(name string) error
}

// Directory is a filesystem-backed Adapter: each named store is a regular
// file under Dir.
type Directory struct {
	Dir string
}

// NewDirectory builds a Directory adapter rooted at dir, creating it if
// necessary (mirrors the teacher's NewLogWriter's os.MkdirAll step).
func NewDirectory(dir string) (*Directory, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, kderrors.Io("create blockstore directory", err)
	}
	return &Directory{Dir: dir}, nil
}

func (d *Directory) Open(name string) (Store, error) {
	path := filepath.Join(d.Dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, kderrors.Io("open store "+name, err)
	}
	return &fileStore{file: f, path: path}, nil
}

func (d *Directory) Remove(name string) error {
	path := filepath.Join(d.Dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return kderrors.Io("remove store "+name, err)
	}
	return nil
}

// fileStore is the *os.File-backed Store. Unlike the teacher's LogWriter,
// which tracked a monotonic append offset and buffered through bufio,
// fileStore has no natural append cursor (block stores are written at
// caller-chosen offsets by pkg/treefile's flush path), so every Write is a
// direct pwrite-style call guarded by mutex rather than going through a
// bufio.Writer.
type fileStore struct {
	mu   sync.Mutex
	file *os.File
	path string
}

func (s *fileStore) Len() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, err := s.file.Stat()
	if err != nil {
		return 0, kderrors.Io("stat store "+s.path, err)
	}
	return fi.Size(), nil
}

func (s *fileStore) Read(off int64, n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, n)
	read, err := s.file.ReadAt(buf, off)
	if err != nil {
		return nil, kderrors.Io("read store "+s.path, err)
	}
	return buf[:read], nil
}

func (s *fileStore) Write(off int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.WriteAt(data, off); err != nil {
		return kderrors.Io("write store "+s.path, err)
	}
	return nil
}

func (s *fileStore) Truncate(size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Truncate(size); err != nil {
		return kderrors.Io("truncate store "+s.path, err)
	}
	return nil
}

// SyncAll fsyncs the underlying file, mirroring the teacher's LogWriter.sync.
func (s *fileStore) SyncAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Sync(); err != nil {
		return kderrors.Io("sync store "+s.path, err)
	}
	return nil
}

func (s *fileStore) IsEmpty() (bool, error) {
	n, err := s.Len()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Close(); err != nil {
		return kderrors.Io("close store "+s.path, err)
	}
	return nil
}
