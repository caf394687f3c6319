package bundle

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// indexedWindow is one fixed-size window of the inner logical stream (the
// last one zero-padded to full size), tagged with its position so the outer encoder can
// emit chunks in the original order even though compression happens out of
// order across worker goroutines.
type indexedWindow struct {
	index int
	data  []byte // exactly chunkSize bytes
}

// decodeOuter reads the 12-byte outer header and the chunk stream that
// follows, inflating every chunk into one contiguous buffer sized to the
// declared uncompressed_size.
//
// Chunks are decompressed by a pool of workers, each writing into its own
// pre-assigned, disjoint slice of the output buffer — there is no reorder
// buffer on this path because output position is known before dispatch.
func decodeOuter(r io.Reader, totalSize int, numThreads int) (BundleFormat, []byte, error) {
	if totalSize <= headerSize+4 {
		return 0, nil, xerrors.Errorf("%w: bundle size %d", ErrTruncated, totalSize)
	}

	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, xerrors.Errorf("%w: reading outer header: %v", ErrTruncated, err)
	}
	format, err := ParseBundleFormat(binary.LittleEndian.Uint16(hdr[0:2]))
	if err != nil {
		return 0, nil, err
	}
	uncompressedSize := binary.LittleEndian.Uint32(hdr[4:8])

	inflated := make([]byte, uncompressedSize)
	numChunks := (len(inflated) + chunkSize - 1) / chunkSize

	type job struct {
		slot    []byte
		payload []byte
		stored  bool
	}
	jobs := make(chan job, numChunks)

	for i := 0; i < numChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(inflated) {
			end = len(inflated)
		}

		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return 0, nil, xerrors.Errorf("%w: reading chunk %d length prefix: %v", ErrTruncated, i, err)
		}
		compressedLen := binary.LittleEndian.Uint32(lenBuf[:])
		if compressedLen > storedSentinel {
			return 0, nil, xerrors.Errorf("%w: chunk %d declares length %d", ErrChunkTooLarge, i, compressedLen)
		}
		payload := make([]byte, compressedLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, xerrors.Errorf("%w: reading chunk %d payload: %v", ErrTruncated, i, err)
		}
		jobs <- job{slot: inflated[start:end], payload: payload, stored: compressedLen == storedSentinel}
	}
	close(jobs)

	workers := decodeWorkerCount(numThreads, len(inflated))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			for j := range jobs {
				select {
				case <-egCtx.Done():
					return egCtx.Err()
				default:
				}
				if j.stored {
					copy(j.slot, j.payload)
					continue
				}
				zr, err := zlib.NewReader(bytes.NewReader(j.payload))
				if err != nil {
					return xerrors.Errorf("%w: opening chunk: %v", ErrDecodeFailed, err)
				}
				if _, err := io.ReadFull(zr, j.slot); err != nil {
					return xerrors.Errorf("%w: chunk inflate size mismatch: %v", ErrDecodeFailed, err)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, nil, err
	}
	return format, inflated, nil
}

// decodeWorkerCount sizes the decode worker pool: min(numThreads,
// uncompressedSize/16MiB) workers, floored at 1, so tiny bundles don't pay
// goroutine overhead for a handful of chunks.
func decodeWorkerCount(numThreads, uncompressedSize int) int {
	if numThreads < 1 {
		numThreads = 1
	}
	upper := uncompressedSize / (16 << 20)
	if upper < 1 {
		upper = 1
	}
	if upper < numThreads {
		return upper
	}
	return numThreads
}

// encodeOuter writes the chunk stream (not the 12-byte outer header, which
// the caller writes directly) by compressing windows read from the windows
// channel and emitting them to w in ascending index order, regardless of
// the order in which the worker pool finishes compressing them. The caller
// is responsible for producing windows and closing the channel once done.
func encodeOuter(w io.Writer, windows <-chan indexedWindow, numThreads int) error {
	if numThreads < 1 {
		numThreads = 1
	}

	type result struct {
		index  int
		stored bool
		data   []byte
	}
	results := make(chan result, numThreads)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < numThreads; i++ {
		eg.Go(func() error {
			for {
				select {
				case <-egCtx.Done():
					return egCtx.Err()
				case win, ok := <-windows:
					if !ok {
						return nil
					}
					data, stored, err := deflateWindow(win.data)
					if err != nil {
						return xerrors.Errorf("%w: compressing chunk %d: %v", ErrDecodeFailed, win.index, err)
					}
					select {
					case results <- result{index: win.index, stored: stored, data: data}:
					case <-egCtx.Done():
						return egCtx.Err()
					}
				}
			}
		})
	}

	var workerErr error
	closed := make(chan struct{})
	go func() {
		workerErr = eg.Wait()
		close(results)
		close(closed)
	}()

	var writeErr error
	pending := make(map[int]result)
	next := 0
	for r := range results {
		pending[r.index] = r
		for {
			res, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if writeErr == nil {
				if err := writeChunk(w, res.data, res.stored); err != nil {
					writeErr = xerrors.Errorf("%w: writing chunk %d: %v", ErrIoFailed, next, err)
					cancel()
				}
			}
			next++
		}
	}
	<-closed

	if writeErr != nil {
		return writeErr
	}
	if workerErr != nil {
		return workerErr
	}
	if len(pending) != 0 {
		return xerrors.Errorf("%w: %d chunks never reached the writer", ErrIoFailed, len(pending))
	}
	return nil
}

// deflateWindow compresses exactly one chunkSize-byte window. If the
// compressed form would not be smaller than the window itself, it reports
// stored=true and the caller must emit the raw window instead, using the
// stored sentinel in the chunk's length prefix.
func deflateWindow(data []byte) (out []byte, stored bool, err error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, false, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, false, err
	}
	if err := zw.Close(); err != nil {
		return nil, false, err
	}
	if buf.Len() >= chunkSize {
		return data, true, nil
	}
	return buf.Bytes(), false, nil
}

func writeChunk(w io.Writer, data []byte, stored bool) error {
	var prefix [4]byte
	if stored {
		binary.LittleEndian.PutUint32(prefix[:], storedSentinel)
	} else {
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(data)))
	}
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// writeOuterHeader writes the 12-byte outer header.
func writeOuterHeader(w io.Writer, uncompressedSize uint32) error {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], 6)
	binary.LittleEndian.PutUint16(hdr[2:4], swapBytesU16(0x00f0))
	binary.LittleEndian.PutUint32(hdr[4:8], uncompressedSize)
	// bytes 8:12 are reserved and written as zero.
	_, err := w.Write(hdr[:])
	return err
}

func swapBytesU16(v uint16) uint16 {
	return v<<8 | v>>8
}
