package virtio

import "io"

// This core is scoped to the SCSI command layer, not the vhost-user
// virtqueue negotiation itself (out of scope per spec.md §1), so
// descriptors are modeled directly as byte slices rather than through
// a GuestAddressSpace indirection: a Go slice already is the shared
// memory reference the transport would otherwise hand in.

// highWaterMark is the shared, cloneable "maximum bytes written" cell
// a ChainWriter and all of its clones update on every write or skip.
type highWaterMark struct {
	max int
}

// ChainWriter walks a sequence of writable descriptors in order,
// tracking the currently active descriptor and an offset within it.
// Write never spans descriptors in a single call — callers loop.
type ChainWriter struct {
	descs   [][]byte
	idx     int
	offset  int
	written int
	hw      *highWaterMark
}

// NewChainWriter builds a cursor over descs, the writable descriptors
// of one virtqueue chain in order.
func NewChainWriter(descs [][]byte) *ChainWriter {
	return &ChainWriter{descs: descs, hw: &highWaterMark{}}
}

// Clone returns an independent cursor over the same descriptor chain,
// positioned identically to w, but sharing w's high-water mark: every
// clone's writes bump the same maximum, the way the response-header
// writer and the skipped-ahead data-in writer both track progress
// against one request's overall descriptor chain.
func (w *ChainWriter) Clone() *ChainWriter {
	clone := *w
	return &clone
}

func (w *ChainWriter) current() []byte {
	if w.idx >= len(w.descs) {
		return nil
	}
	return w.descs[w.idx]
}

func (w *ChainWriter) addWritten(n int) {
	w.written += n
	if w.written > w.hw.max {
		w.hw.max = w.written
	}
}

// Write writes into the current descriptor only, advancing past it
// once full, and never spans into the next descriptor within one
// call. Per io.Writer's contract it reports a non-nil error whenever
// n < len(p) — callers that want a payload spread across several
// descriptors to succeed must loop, distinguishing "made some
// progress" (n > 0: call again) from "stuck" (n == 0: the chain is
// exhausted; give up).
func (w *ChainWriter) Write(p []byte) (int, error) {
	cur := w.current()
	if cur == nil {
		return 0, io.ErrShortWrite
	}
	leftInDescriptor := len(cur) - w.offset
	toWrite := len(p)
	if toWrite > leftInDescriptor {
		toWrite = leftInDescriptor
	}
	n := copy(cur[w.offset:], p[:toWrite])
	w.offset += n
	if w.offset == len(cur) {
		w.idx++
		w.offset = 0
	}
	w.addWritten(n)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Skip advances the cursor by n bytes without writing, the way the
// reserved response-header prefix is skipped before a command's
// data-in payload begins. It counts toward the high-water mark the
// same as a real write.
func (w *ChainWriter) Skip(n int) {
	w.addWritten(n)
	for n > 0 {
		cur := w.current()
		if cur == nil {
			return
		}
		leftInDescriptor := len(cur) - w.offset
		step := n
		if step > leftInDescriptor {
			step = leftInDescriptor
		}
		w.offset += step
		n -= step
		if w.offset == len(cur) {
			w.idx++
			w.offset = 0
		}
	}
}

// Residual walks to the end of the remaining writable descriptors,
// summing unused bytes, and leaves the cursor exhausted.
func (w *ChainWriter) Residual() int {
	total := 0
	for {
		cur := w.current()
		if cur == nil {
			break
		}
		total += len(cur) - w.offset
		w.offset = 0
		w.idx++
	}
	return total
}

// MaxWritten returns the high-water mark shared by this cursor and all
// of its clones: the furthest byte offset any of them has written to.
func (w *ChainWriter) MaxWritten() int {
	return w.hw.max
}

// ChainReader walks a sequence of readable descriptors in order. Read
// never spans descriptors in a single call.
type ChainReader struct {
	descs  [][]byte
	idx    int
	offset int
}

// NewChainReader builds a cursor over descs, the readable descriptors
// of one virtqueue chain in order.
func NewChainReader(descs [][]byte) *ChainReader {
	return &ChainReader{descs: descs}
}

func (r *ChainReader) current() []byte {
	if r.idx >= len(r.descs) {
		return nil
	}
	return r.descs[r.idx]
}

func (r *ChainReader) Read(p []byte) (int, error) {
	cur := r.current()
	if cur == nil {
		return 0, io.EOF
	}
	leftInDescriptor := len(cur) - r.offset
	toRead := len(p)
	if toRead > leftInDescriptor {
		toRead = leftInDescriptor
	}
	n := copy(p[:toRead], cur[r.offset:])
	r.offset += n
	if r.offset == len(cur) {
		r.idx++
		r.offset = 0
	}
	return n, nil
}
