package bundle

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// Unpack reads a bundle from sink.BundleReader, decodes it, and delivers
// the archive header and every FileRecord to sink in index order. It
// performs a single pass over the inflated buffer; there is no recovery
// from a malformed index or a key mismatch between an index entry and its
// record.
func Unpack(sink UnpackSink, opts Options) error {
	r, totalSize, err := sink.BundleReader()
	if err != nil {
		return xerrors.Errorf("%w: opening bundle: %v", ErrIoFailed, err)
	}

	format, inflated, err := decodeOuter(r, totalSize, opts.numThreads())
	if err != nil {
		return err
	}

	if len(inflated) < 4+archiveHeaderSize {
		return xerrors.Errorf("%w: inflated stream too small for header", ErrTruncated)
	}
	fileCount := binary.LittleEndian.Uint32(inflated[0:4])
	archiveHeader := inflated[4 : 4+archiveHeaderSize]
	if err := sink.WriteHeader(archiveHeader); err != nil {
		return xerrors.Errorf("%w: writing archive header: %v", ErrIoFailed, err)
	}

	entrySize := format.IndexEntrySize()
	indexStart := 4 + archiveHeaderSize
	indexEnd := indexStart + int(fileCount)*entrySize
	if indexEnd > len(inflated) {
		return xerrors.Errorf("%w: index table runs past end of inflated stream", ErrTruncated)
	}

	offset := indexEnd
	for i := uint32(0); i < fileCount; i++ {
		entry := inflated[indexStart+int(i)*entrySize : indexStart+(int(i)+1)*entrySize]
		entryExt := binary.LittleEndian.Uint64(entry[0:8])
		entryName := binary.LittleEndian.Uint64(entry[8:16])
		var flags Flags
		if entrySize >= 20 {
			flags = Flags(binary.LittleEndian.Uint32(entry[16:20]))
		}

		if offset+variantTableHeaderSize > len(inflated) {
			return xerrors.Errorf("%w: record %d header runs past end of inflated stream", ErrTruncated, i)
		}
		recordExt := binary.LittleEndian.Uint64(inflated[offset : offset+8])
		recordName := binary.LittleEndian.Uint64(inflated[offset+8 : offset+16])
		if recordExt != entryExt || recordName != entryName {
			return xerrors.Errorf("%w: entry %d key %016x/%016x vs record key %016x/%016x",
				ErrIndexRecordMismatch, i, entryExt, entryName, recordExt, recordName)
		}

		fileSize, err := recomputeFileSize(inflated[offset:])
		if err != nil {
			return xerrors.Errorf("record %d: %w", i, err)
		}
		if offset+int(fileSize) > len(inflated) {
			return xerrors.Errorf("%w: record %d runs past end of inflated stream", ErrTruncated, i)
		}

		record := make([]byte, recordHeaderSize+int(fileSize))
		binary.LittleEndian.PutUint64(record[0:8], entryExt)
		binary.LittleEndian.PutUint64(record[8:16], entryName)
		binary.LittleEndian.PutUint32(record[16:20], uint32(flags))
		binary.LittleEndian.PutUint32(record[20:24], fileSize)
		copy(record[recordHeaderSize:], inflated[offset:offset+int(fileSize)])

		key := FileKey{NameHash: entryName, ExtHash: entryExt}
		if err := sink.WriteFile(key, record); err != nil {
			return xerrors.Errorf("%w: writing file %016x/%016x: %v", ErrIoFailed, entryExt, entryName, err)
		}

		offset += int(fileSize)
	}

	return nil
}
