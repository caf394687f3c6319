package bundle

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestDeflateWindowFallsBackToStoredWhenIncompressible(t *testing.T) {
	t.Parallel()

	// S5: a window of uniformly random bytes should not shrink under
	// deflate, so the encoder must fall back to storing it raw.
	window := make([]byte, chunkSize)
	rand.New(rand.NewSource(1)).Read(window)

	data, stored, err := deflateWindow(window)
	if err != nil {
		t.Fatalf("deflateWindow: %v", err)
	}
	if !stored {
		t.Fatal("deflateWindow did not fall back to stored for random data")
	}
	if !bytes.Equal(data, window) {
		t.Fatal("stored window does not match input bytes")
	}
}

func TestDeflateWindowCompressesRepetitiveData(t *testing.T) {
	t.Parallel()

	window := bytes.Repeat([]byte{0x00}, chunkSize)
	data, stored, err := deflateWindow(window)
	if err != nil {
		t.Fatalf("deflateWindow: %v", err)
	}
	if stored {
		t.Fatal("deflateWindow reported stored for highly compressible data")
	}
	if len(data) >= chunkSize {
		t.Fatalf("compressed len = %d, want < %d", len(data), chunkSize)
	}
}

func TestEncodeDecodeOuterRoundTrip(t *testing.T) {
	t.Parallel()

	sizes := []int{100, chunkSize, chunkSize + 1, chunkSize*3 + 3392}
	for _, size := range sizes {
		size := size
		t.Run("", func(t *testing.T) {
			t.Parallel()

			inflated := make([]byte, size)
			rand.New(rand.NewSource(int64(size))).Read(inflated)

			windows := make(chan indexedWindow, 4)
			assembler := newWindowAssembler(windows)

			var buf bytes.Buffer
			if err := writeOuterHeader(&buf, uint32(size)); err != nil {
				t.Fatalf("writeOuterHeader: %v", err)
			}

			encodeErr := make(chan error, 1)
			go func() {
				encodeErr <- encodeOuter(&buf, windows, 3)
			}()
			assembler.Write(inflated)
			assembler.Close()
			if err := <-encodeErr; err != nil {
				t.Fatalf("encodeOuter: %v", err)
			}

			format, decoded, err := decodeOuter(bytes.NewReader(buf.Bytes()), buf.Len(), 3)
			if err != nil {
				t.Fatalf("decodeOuter: %v", err)
			}
			if format != FormatSix {
				t.Fatalf("format = %v, want FormatSix", format)
			}
			if !bytes.Equal(decoded, inflated) {
				t.Fatalf("round trip mismatch for size %d", size)
			}

			// Chunk invariants (property 4): every declared compressed_len
			// is at most chunkSize, and the count matches ceil(size/chunkSize).
			wantChunks := (size + chunkSize - 1) / chunkSize
			gotChunks := countChunks(t, buf.Bytes())
			if wantChunks != gotChunks {
				t.Fatalf("chunk count = %d, want %d", gotChunks, wantChunks)
			}
		})
	}
}

// countChunks walks the outer framing and reports how many chunks it
// contains, validating that every declared compressed_len is <= chunkSize.
func countChunks(t *testing.T, bundleBytes []byte) int {
	t.Helper()
	off := headerSize
	count := 0
	for off < len(bundleBytes) {
		if off+4 > len(bundleBytes) {
			t.Fatalf("truncated length prefix at offset %d", off)
		}
		compressedLen := int(bundleBytes[off]) | int(bundleBytes[off+1])<<8 | int(bundleBytes[off+2])<<16 | int(bundleBytes[off+3])<<24
		if compressedLen > chunkSize {
			t.Fatalf("chunk %d declares length %d > %d", count, compressedLen, chunkSize)
		}
		off += 4 + compressedLen
		count++
	}
	return count
}
