package bundle

import "errors"

// Error kinds. All codec errors are fatal to the invocation: no
// partial results are produced, and the codec never retries. Check for a
// specific kind with errors.Is.
var (
	// ErrTruncated is returned when the bundle is shorter than the outer
	// header requires, or a chunk's declared length runs past EOF.
	ErrTruncated = errors.New("bundle: truncated")

	// ErrUnsupportedFormat is returned when the outer header's version
	// field is not one of 4, 5, 6.
	ErrUnsupportedFormat = errors.New("bundle: unsupported format")

	// ErrChunkTooLarge is returned when a chunk's compressed_len exceeds
	// the 65536-byte sentinel value.
	ErrChunkTooLarge = errors.New("bundle: chunk too large")

	// ErrDecodeFailed is returned for a Zlib error or an inflate size
	// mismatch, or a malformed index/variant table.
	ErrDecodeFailed = errors.New("bundle: decode failed")

	// ErrIndexRecordMismatch is returned when an index entry's key does
	// not match the key embedded in its variant table.
	ErrIndexRecordMismatch = errors.New("bundle: index/record key mismatch")

	// ErrUnknownExtension is returned by adapters (not the codec itself)
	// when an ext_hash has no entry in the static extension table.
	ErrUnknownExtension = errors.New("bundle: unknown extension hash")

	// ErrIoFailed wraps an underlying byte-source/sink error.
	ErrIoFailed = errors.New("bundle: I/O failed")
)
