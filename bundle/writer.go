package bundle

import (
	"encoding/binary"
	"sort"

	"golang.org/x/xerrors"
)

// Pack collects every file from source, sorts it, and writes a format-6
// bundle to source.BundleWriter. It always emits format 6
// regardless of what format the records originated from.
func Pack(source PackSource, opts Options) error {
	keys, err := source.Files()
	if err != nil {
		return xerrors.Errorf("%w: listing files: %v", ErrIoFailed, err)
	}

	type item struct {
		key          FileKey
		flags        Flags
		fileSize     uint32
		variantTable []byte
	}

	items := make([]item, 0, len(keys))
	for _, k := range keys {
		record, err := source.ReadFile(k)
		if err != nil {
			return xerrors.Errorf("%w: reading file %016x/%016x: %v", ErrIoFailed, k.ExtHash, k.NameHash, err)
		}
		if len(record) < recordHeaderSize {
			return xerrors.Errorf("%w: record for %016x/%016x shorter than header", ErrDecodeFailed, k.ExtHash, k.NameHash)
		}
		variantTable := record[recordHeaderSize:]
		fileSize, err := recomputeFileSize(variantTable)
		if err != nil {
			return xerrors.Errorf("record %016x/%016x: %w", k.ExtHash, k.NameHash, err)
		}
		items = append(items, item{
			key:          k,
			flags:        RecordFlags(record),
			fileSize:     fileSize,
			variantTable: variantTable[:fileSize],
		})
	}

	// Tombstone re-sort: live records sort
	// by (ext_hash low 32 bits, name_hash); tombstoned records are diverted
	// and appended after, sorted by (flags, ext_hash, name_hash).
	var live, tomb []item
	for _, it := range items {
		if it.flags.IsTombstone() {
			tomb = append(tomb, it)
		} else {
			live = append(live, it)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		hi, hj := uint32(live[i].key.ExtHash), uint32(live[j].key.ExtHash)
		if hi != hj {
			return hi < hj
		}
		return live[i].key.NameHash < live[j].key.NameHash
	})
	sort.Slice(tomb, func(i, j int) bool {
		if tomb[i].flags != tomb[j].flags {
			return tomb[i].flags < tomb[j].flags
		}
		if tomb[i].key.ExtHash != tomb[j].key.ExtHash {
			return tomb[i].key.ExtHash < tomb[j].key.ExtHash
		}
		return tomb[i].key.NameHash < tomb[j].key.NameHash
	})

	ordered := make([]item, 0, len(items))
	ordered = append(ordered, live...)
	ordered = append(ordered, tomb...)

	header, err := source.ReadHeader()
	if err != nil {
		return xerrors.Errorf("%w: reading archive header: %v", ErrIoFailed, err)
	}
	if len(header) != archiveHeaderSize {
		return xerrors.Errorf("%w: archive header is %d bytes, want %d", ErrDecodeFailed, len(header), archiveHeaderSize)
	}

	fileCount := len(ordered)
	entryTotal := 4 + archiveHeaderSize + fileCount*recordHeaderSize

	uncompressedSize := uint32(entryTotal)
	for _, it := range ordered {
		uncompressedSize += it.fileSize
	}

	w, err := source.BundleWriter()
	if err != nil {
		return xerrors.Errorf("%w: opening bundle writer: %v", ErrIoFailed, err)
	}
	if err := writeOuterHeader(w, uncompressedSize); err != nil {
		return xerrors.Errorf("%w: writing outer header: %v", ErrIoFailed, err)
	}

	numThreads := opts.numThreads()
	windows := make(chan indexedWindow, numThreads*2)
	assembler := newWindowAssembler(windows)

	encodeErr := make(chan error, 1)
	go func() {
		encodeErr <- encodeOuter(w, windows, numThreads)
	}()

	// Header, index and payload bytes flow through one continuous stream
	// in on-disk order; the partial window left over after the index
	// region is naturally filled by the first bytes of the payload
	// stream, which realizes the first-window reservation with no
	// special-cased diversion buffer needed.
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(fileCount))
	assembler.Write(countBuf[:])
	assembler.Write(header)

	var entryBuf [recordHeaderSize]byte
	for _, it := range ordered {
		binary.LittleEndian.PutUint64(entryBuf[0:8], it.key.ExtHash)
		binary.LittleEndian.PutUint64(entryBuf[8:16], it.key.NameHash)
		binary.LittleEndian.PutUint32(entryBuf[16:20], uint32(it.flags))
		binary.LittleEndian.PutUint32(entryBuf[20:24], it.fileSize)
		assembler.Write(entryBuf[:])
	}

	for _, it := range ordered {
		assembler.Write(it.variantTable)
	}

	assembler.Close()

	if err := <-encodeErr; err != nil {
		return err
	}
	return nil
}
