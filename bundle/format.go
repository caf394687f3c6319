// Package bundle implements the Stingray engine's chunked, Zlib-compressed
// bundle archive format (formats 4, 5 and 6): the outer chunk codec, the
// inner logical stream, and the per-file index reader/writer.
package bundle

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// chunkSize is the fixed uncompressed size of one outer chunk, and the
// granularity the inner stream is cut into for compression.
const chunkSize = 0x10000

// storedSentinel is the compressed_len value meaning "the following
// chunkSize bytes are stored verbatim, uncompressed".
const storedSentinel = chunkSize

// headerSize is the size, in bytes, of the 12-byte outer header.
const headerSize = 12

// archiveHeaderSize is the size of the opaque per-bundle archive header
// that follows file_count in the inflated stream.
const archiveHeaderSize = 256

// FileKey uniquely identifies one asset inside a bundle.
type FileKey struct {
	NameHash uint64
	ExtHash  uint64
}

// BundleFormat is the on-disk revision of a bundle.
type BundleFormat int

const (
	FormatFour BundleFormat = iota + 4
	FormatFive
	FormatSix
)

// ParseBundleFormat validates a version field read from the outer header.
func ParseBundleFormat(version uint16) (BundleFormat, error) {
	switch version {
	case 4:
		return FormatFour, nil
	case 5:
		return FormatFive, nil
	case 6:
		return FormatSix, nil
	default:
		return 0, xerrors.Errorf("%w: version %d", ErrUnsupportedFormat, version)
	}
}

// IndexEntrySize returns the per-file index entry width for this format.
func (f BundleFormat) IndexEntrySize() int {
	switch f {
	case FormatFour:
		return 16
	case FormatFive:
		return 20
	case FormatSix:
		return 24
	default:
		return 0
	}
}

func (f BundleFormat) String() string {
	switch f {
	case FormatFour:
		return "four"
	case FormatFive:
		return "five"
	case FormatSix:
		return "six"
	default:
		return "unknown"
	}
}

// Flags holds the per-record flags field. Only two bits are defined; the
// rest are opaque and preserved verbatim.
type Flags uint32

const (
	// FlagTombstoneDeleted marks a record as deleted.
	FlagTombstoneDeleted Flags = 0x01
	// FlagTombstoneRemoved marks a record as removed.
	FlagTombstoneRemoved Flags = 0x02
)

// IsTombstone reports whether f equals exactly one of the two tombstone
// values; any other value, including both bits set together, is not a
// tombstone.
func (f Flags) IsTombstone() bool {
	return f == FlagTombstoneDeleted || f == FlagTombstoneRemoved
}

// recordHeaderSize is the size of the canonical 24-byte FileRecord header
// synthesized by the index reader and consumed by the index writer:
// ext_hash, name_hash, flags, file_size.
const recordHeaderSize = 24

// RecordExtHash reads the ext_hash field from a canonical FileRecord blob.
func RecordExtHash(record []byte) uint64 {
	return binary.LittleEndian.Uint64(record[0:8])
}

// RecordNameHash reads the name_hash field from a canonical FileRecord blob.
func RecordNameHash(record []byte) uint64 {
	return binary.LittleEndian.Uint64(record[8:16])
}

// RecordFlags reads the flags field from a canonical FileRecord blob.
func RecordFlags(record []byte) Flags {
	return Flags(binary.LittleEndian.Uint32(record[16:20]))
}

// RecordFileSize reads the (possibly unreliable) file_size
// field from a canonical FileRecord blob.
func RecordFileSize(record []byte) uint32 {
	return binary.LittleEndian.Uint32(record[20:24])
}

// RecordKey returns the FileKey encoded in a canonical FileRecord blob.
func RecordKey(record []byte) FileKey {
	return FileKey{NameHash: RecordNameHash(record), ExtHash: RecordExtHash(record)}
}

// variantTableHeaderSize is the size of the (ext_hash, name_hash,
// variant_count, unknown) header that precedes the variants themselves.
const variantTableHeaderSize = 24

// recomputeFileSize sums 24 (the variant-table header) plus 12+payload_len
// over every localization variant, per the FileRecord.file_size
// definition. variantTable is the raw bytes copied from the inflated
// buffer, starting at its own (ext_hash, name_hash, variant_count, unknown)
// header — i.e. record[24:] of a canonical FileRecord blob.
func recomputeFileSize(variantTable []byte) (uint32, error) {
	if len(variantTable) < variantTableHeaderSize {
		return 0, xerrors.Errorf("%w: variant table header truncated", ErrDecodeFailed)
	}
	variantCount := binary.LittleEndian.Uint32(variantTable[16:20])
	off := variantTableHeaderSize
	size := uint32(variantTableHeaderSize)
	for i := uint32(0); i < variantCount; i++ {
		if off+12 > len(variantTable) {
			return 0, xerrors.Errorf("%w: variant %d header truncated", ErrDecodeFailed, i)
		}
		payloadLen := binary.LittleEndian.Uint32(variantTable[off+4 : off+8])
		if off+12+int(payloadLen) > len(variantTable) {
			return 0, xerrors.Errorf("%w: variant %d payload truncated", ErrDecodeFailed, i)
		}
		size += 12 + payloadLen
		off += 12 + int(payloadLen)
	}
	return size, nil
}
