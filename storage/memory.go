// Package storage provides bundle.UnpackSink / bundle.PackSource adapters:
// an in-memory backend used for merging bundles, and a directory backend
// matching the engine's on-disk asset layout.
package storage

import (
	"io"

	"github.com/orcaman/writerseeker"
	"golang.org/x/xerrors"

	"github.com/vtmodding/sbundle/bundle"
)

// ErrNotFound is returned by ReadFile when a key has no stored record.
var ErrNotFound = xerrors.New("storage: file not found")

// Memory is an in-memory bundle backend. It implements both
// bundle.UnpackSink (to receive an unpacked bundle) and bundle.PackSource
// (to supply one for repacking), so the same value can round-trip a
// bundle without touching disk, and is the building block Merge uses to
// combine several bundles.
type Memory struct {
	Header  []byte
	Records map[bundle.FileKey][]byte

	source io.Reader
	size   int
	sink   writerseeker.WriterSeeker
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{Records: make(map[bundle.FileKey][]byte)}
}

// NewMemoryFromReader wraps an already-open byte source of the given size,
// so Memory can serve as the UnpackSink for a bundle that isn't itself
// in memory.
func NewMemoryFromReader(r io.Reader, size int) *Memory {
	return &Memory{Records: make(map[bundle.FileKey][]byte), source: r, size: size}
}

func (m *Memory) BundleReader() (io.Reader, int, error) {
	return m.source, m.size, nil
}

func (m *Memory) WriteHeader(data []byte) error {
	m.Header = append([]byte(nil), data...)
	return nil
}

func (m *Memory) WriteFile(key bundle.FileKey, record []byte) error {
	if m.Records == nil {
		m.Records = make(map[bundle.FileKey][]byte)
	}
	m.Records[key] = append([]byte(nil), record...)
	return nil
}

func (m *Memory) BundleWriter() (io.Writer, error) {
	return &m.sink, nil
}

// Bytes returns everything written via BundleWriter so far.
func (m *Memory) Bytes() ([]byte, error) {
	return io.ReadAll(m.sink.BytesReader())
}

func (m *Memory) Files() ([]bundle.FileKey, error) {
	keys := make([]bundle.FileKey, 0, len(m.Records))
	for k := range m.Records {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *Memory) ReadFile(key bundle.FileKey) ([]byte, error) {
	record, ok := m.Records[key]
	if !ok {
		return nil, xerrors.Errorf("%w: %016x/%016x", ErrNotFound, key.ExtHash, key.NameHash)
	}
	return record, nil
}

func (m *Memory) ReadHeader() ([]byte, error) {
	if m.Header == nil {
		return make([]byte, 256), nil
	}
	return m.Header, nil
}
