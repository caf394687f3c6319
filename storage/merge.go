package storage

import (
	"bytes"
	"io"

	"golang.org/x/xerrors"

	"github.com/vtmodding/sbundle/bundle"
)

// Merge combines several bundles into one in-memory set: later bundles
// overwrite earlier ones file-for-file, and the result can be repacked as
// a single bundle. This lets several patch bundles be folded into one
// bundle before repacking.
type Merge struct {
	header    []byte
	headerSet bool
	records   map[bundle.FileKey][]byte
	opts      bundle.Options
}

// NewMerge returns an empty Merge, ready to accept bundles via UnpackFrom.
func NewMerge(opts bundle.Options) *Merge {
	return &Merge{records: make(map[bundle.FileKey][]byte), opts: opts}
}

// UnpackFrom unpacks one bundle and folds its files into the merge set.
// A file present in more than one source bundle ends up with the
// contents of the last bundle unpacked. If the archive headers of the
// merged bundles disagree, the merged header is zeroed rather than
// arbitrarily picking one.
func (mg *Merge) UnpackFrom(r io.Reader, size int) error {
	work := NewMemoryFromReader(r, size)
	if err := bundle.Unpack(work, mg.opts); err != nil {
		return err
	}

	for k, record := range work.Records {
		mg.records[k] = record
	}

	if !mg.headerSet {
		mg.header = work.Header
		mg.headerSet = true
	} else if !bytes.Equal(mg.header, work.Header) {
		mg.header = make([]byte, len(mg.header))
	}
	return nil
}

// RepackTo packs the merged file set as a single format-6 bundle.
func (mg *Merge) RepackTo(w io.Writer) error {
	source := &mergeSource{merge: mg, out: w}
	return bundle.Pack(source, mg.opts)
}

// mergeSource adapts a Merge to bundle.PackSource without exposing the
// writer-target plumbing on Merge itself.
type mergeSource struct {
	merge *Merge
	out   io.Writer
}

func (s *mergeSource) BundleWriter() (io.Writer, error) { return s.out, nil }

func (s *mergeSource) Files() ([]bundle.FileKey, error) {
	keys := make([]bundle.FileKey, 0, len(s.merge.records))
	for k := range s.merge.records {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *mergeSource) ReadFile(key bundle.FileKey) ([]byte, error) {
	record, ok := s.merge.records[key]
	if !ok {
		return nil, xerrors.Errorf("%w: %016x/%016x", ErrNotFound, key.ExtHash, key.NameHash)
	}
	return record, nil
}

func (s *mergeSource) ReadHeader() ([]byte, error) {
	if s.merge.header == nil {
		return make([]byte, 256), nil
	}
	return s.merge.header, nil
}
