package bundle

// windowAssembler accumulates writes into fixed chunkSize-byte windows and
// emits each full window to out as soon as it is complete. The
// final, possibly partial, window is zero-padded and flushed by Close.
//
// The writer uses one assembler for the whole inner stream: header, index
// and payload bytes all flow through the same Write calls in the order
// they appear on disk, so the tail of the index region's partial window is
// naturally filled by the first bytes of the payload stream — this is the
// first-window reservation, achieved here without any
// special-cased diversion buffer.
type windowAssembler struct {
	out   chan<- indexedWindow
	buf   [chunkSize]byte
	fill  int
	index int
}

func newWindowAssembler(out chan<- indexedWindow) *windowAssembler {
	return &windowAssembler{out: out}
}

func (a *windowAssembler) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := copy(a.buf[a.fill:], p)
		a.fill += n
		p = p[n:]
		written += n
		if a.fill == chunkSize {
			a.flush()
		}
	}
	return written, nil
}

func (a *windowAssembler) flush() {
	window := make([]byte, chunkSize)
	copy(window, a.buf[:a.fill])
	a.out <- indexedWindow{index: a.index, data: window}
	a.index++
	a.fill = 0
}

// Close flushes any remaining partial window (zero-padded) and closes the
// output channel. The total number of bytes is recoverable by the caller
// independently; Close does not return it.
func (a *windowAssembler) Close() {
	if a.fill > 0 {
		a.flush()
	}
	close(a.out)
}
