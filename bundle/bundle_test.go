package bundle

import (
	"bytes"
	"encoding/binary"
	"io"
)

// memSink is a minimal UnpackSink backed by an in-memory byte slice,
// recording everything handed to it in arrival order.
type memSink struct {
	data   []byte
	header []byte
	files  map[FileKey][]byte
	order  []FileKey
}

func newMemSink(data []byte) *memSink {
	return &memSink{data: data, files: make(map[FileKey][]byte)}
}

func (s *memSink) BundleReader() (io.Reader, int, error) {
	return bytes.NewReader(s.data), len(s.data), nil
}

func (s *memSink) WriteHeader(data []byte) error {
	s.header = append([]byte(nil), data...)
	return nil
}

func (s *memSink) WriteFile(key FileKey, record []byte) error {
	s.files[key] = append([]byte(nil), record...)
	s.order = append(s.order, key)
	return nil
}

// memSource is a minimal PackSource backed by in-memory records, and also
// captures the bytes written to it so a test can feed them back through
// decodeOuter/Unpack.
type memSource struct {
	header []byte
	files  map[FileKey][]byte
	order  []FileKey
	out    bytes.Buffer
}

func newMemSource(header []byte) *memSource {
	return &memSource{header: header, files: make(map[FileKey][]byte)}
}

func (s *memSource) add(key FileKey, record []byte) {
	if _, exists := s.files[key]; !exists {
		s.order = append(s.order, key)
	}
	s.files[key] = record
}

func (s *memSource) BundleWriter() (io.Writer, error) { return &s.out, nil }

func (s *memSource) Files() ([]FileKey, error) {
	return append([]FileKey(nil), s.order...), nil
}

func (s *memSource) ReadFile(key FileKey) ([]byte, error) { return s.files[key], nil }

func (s *memSource) ReadHeader() ([]byte, error) { return s.header, nil }

// encodeInflatedForTest chunks and compresses an already-assembled inner
// stream into full bundle bytes, sequentially, mirroring encodeOuter's
// on-disk framing without the worker pool. It exists so tests can build
// bundle fixtures directly from a known inflated buffer. The outer header
// always carries version 6, as writeOuterHeader writes it.
func encodeInflatedForTest(inflated []byte) []byte {
	var buf bytes.Buffer
	if err := writeOuterHeader(&buf, uint32(len(inflated))); err != nil {
		panic(err)
	}
	for off := 0; off < len(inflated); off += chunkSize {
		end := off + chunkSize
		if end > len(inflated) {
			end = len(inflated)
		}
		window := make([]byte, chunkSize)
		copy(window, inflated[off:end])
		data, stored, err := deflateWindow(window)
		if err != nil {
			panic(err)
		}
		if err := writeChunk(&buf, data, stored); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// buildIndexEntry builds one format-6, 24-byte index entry.
func buildIndexEntry(key FileKey, flags Flags, fileSize uint32) []byte {
	buf := make([]byte, recordHeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], key.ExtHash)
	binary.LittleEndian.PutUint64(buf[8:16], key.NameHash)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(flags))
	binary.LittleEndian.PutUint32(buf[20:24], fileSize)
	return buf
}
