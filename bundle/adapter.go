package bundle

import "io"

// UnpackSink is the capability a storage backend must provide to receive
// the result of unpacking a bundle.
type UnpackSink interface {
	// BundleReader returns a reader positioned at the start of the bundle
	// plus its total byte size.
	BundleReader() (io.Reader, int, error)

	// WriteHeader receives the 256-byte opaque archive header, verbatim.
	WriteHeader(data []byte) error

	// WriteFile receives one reconstructed FileRecord blob, in index order.
	WriteFile(key FileKey, record []byte) error
}

// PackSource is the capability a storage backend must provide to supply the
// contents of a bundle to be packed.
type PackSource interface {
	// BundleWriter returns the sink the packed bundle bytes are written to.
	BundleWriter() (io.Writer, error)

	// Files enumerates every FileKey this source can supply. The writer
	// sorts the full set before streaming, so there is
	// no benefit to a lazy/streaming iterator here.
	Files() ([]FileKey, error)

	// ReadFile resolves one FileKey to its canonical FileRecord blob.
	ReadFile(key FileKey) ([]byte, error)

	// ReadHeader returns the 256-byte opaque archive header to embed.
	ReadHeader() ([]byte, error)
}

// Options configures a single Unpack or Pack invocation.
type Options struct {
	// NumThreads is the size of the worker pool used for (de)compression.
	// Values below 1 are treated as 1.
	NumThreads int
}

func (o Options) numThreads() int {
	if o.NumThreads < 1 {
		return 1
	}
	return o.NumThreads
}
