package bundle

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/xerrors"
)

// IndexEntry is one parsed index-table row, before seeking to its record.
// FileSize is the raw value stored in the index for formats that carry
// one; unlike the record reader, ExtractIndex never recomputes it from
// variant sub-records, so it is unreliable. Flags is read for formats
// Five/Six; FileSize only for format Six, and is zero otherwise.
type IndexEntry struct {
	Key      FileKey
	Flags    Flags
	FileSize uint32
}

// ExtractIndex implements the scan/index fast path: it
// decodes only as many outer chunks as are needed to cover the index
// table and then stops, instead of inflating the whole bundle.
func ExtractIndex(r io.Reader, totalSize int) (BundleFormat, []byte, []IndexEntry, error) {
	if totalSize <= headerSize+4 {
		return 0, nil, nil, xerrors.Errorf("%w: bundle size %d", ErrTruncated, totalSize)
	}

	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, nil, xerrors.Errorf("%w: reading outer header: %v", ErrTruncated, err)
	}
	format, err := ParseBundleFormat(binary.LittleEndian.Uint16(hdr[0:2]))
	if err != nil {
		return 0, nil, nil, err
	}
	uncompressedSize := int(binary.LittleEndian.Uint32(hdr[4:8]))

	var inflated []byte
	chunksRead := 0
	readChunk := func() error {
		start := chunksRead * chunkSize
		end := start + chunkSize
		if end > uncompressedSize {
			end = uncompressedSize
		}
		want := end - start
		if want <= 0 {
			return xerrors.Errorf("%w: index table not covered by declared uncompressed_size", ErrTruncated)
		}

		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return xerrors.Errorf("%w: reading chunk %d length prefix: %v", ErrTruncated, chunksRead, err)
		}
		compressedLen := binary.LittleEndian.Uint32(lenBuf[:])
		if compressedLen > storedSentinel {
			return xerrors.Errorf("%w: chunk %d declares length %d", ErrChunkTooLarge, chunksRead, compressedLen)
		}
		payload := make([]byte, compressedLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return xerrors.Errorf("%w: reading chunk %d payload: %v", ErrTruncated, chunksRead, err)
		}

		window := make([]byte, want)
		if compressedLen == storedSentinel {
			copy(window, payload)
		} else {
			zr, err := zlib.NewReader(bytes.NewReader(payload))
			if err != nil {
				return xerrors.Errorf("%w: opening chunk %d: %v", ErrDecodeFailed, chunksRead, err)
			}
			if _, err := io.ReadFull(zr, window); err != nil {
				return xerrors.Errorf("%w: chunk %d inflate size mismatch: %v", ErrDecodeFailed, chunksRead, err)
			}
		}
		inflated = append(inflated, window...)
		chunksRead++
		return nil
	}

	if err := readChunk(); err != nil {
		return 0, nil, nil, err
	}
	if len(inflated) < 4 {
		return 0, nil, nil, xerrors.Errorf("%w: inflated stream too small for file count", ErrTruncated)
	}
	fileCount := binary.LittleEndian.Uint32(inflated[0:4])

	entrySize := format.IndexEntrySize()
	indexEnd := 4 + archiveHeaderSize + int(fileCount)*entrySize
	neededChunks := (indexEnd + chunkSize - 1) / chunkSize
	if neededChunks < 1 {
		neededChunks = 1
	}

	for chunksRead < neededChunks {
		if err := readChunk(); err != nil {
			return 0, nil, nil, err
		}
	}
	if indexEnd > len(inflated) {
		return 0, nil, nil, xerrors.Errorf("%w: index table runs past decoded chunks", ErrTruncated)
	}

	header := inflated[4 : 4+archiveHeaderSize]
	indexStart := 4 + archiveHeaderSize
	entries := make([]IndexEntry, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		entry := inflated[indexStart+int(i)*entrySize : indexStart+(int(i)+1)*entrySize]
		e := IndexEntry{
			Key: FileKey{
				ExtHash:  binary.LittleEndian.Uint64(entry[0:8]),
				NameHash: binary.LittleEndian.Uint64(entry[8:16]),
			},
		}
		if entrySize >= 20 {
			e.Flags = Flags(binary.LittleEndian.Uint32(entry[16:20]))
		}
		if entrySize >= 24 {
			e.FileSize = binary.LittleEndian.Uint32(entry[20:24])
		}
		entries[i] = e
	}

	return format, header, entries, nil
}
