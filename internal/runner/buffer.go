package runner

import "sync"

// Default retained-output sizing: the first headCap lines verbatim, then
// the most recent tailCap lines in a drop-oldest ring.
const (
	DefaultHeadLines = 200
	DefaultTailLines = 600
)

// outputBuffer retains game output under a single lock shared by the
// classifying writer and any reader.
type outputBuffer struct {
	mu        sync.Mutex
	headCap   int
	tailCap   int
	head      []string
	tail      []string
	tailStart int
	truncated bool
}

func newOutputBuffer(headCap, tailCap int) *outputBuffer {
	if headCap <= 0 {
		headCap = DefaultHeadLines
	}
	if tailCap <= 0 {
		tailCap = DefaultTailLines
	}
	return &outputBuffer{headCap: headCap, tailCap: tailCap}
}

// append stores a line and reports whether it landed in the head buffer.
// The truncation flag flips exactly once, on the first dropped line.
func (b *outputBuffer) append(line string) (inHead bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.head) < b.headCap {
		b.head = append(b.head, line)
		return true
	}
	if len(b.tail) < b.tailCap {
		b.tail = append(b.tail, line)
		return false
	}
	b.tail[b.tailStart] = line
	b.tailStart = (b.tailStart + 1) % b.tailCap
	b.truncated = true
	return false
}

// snapshot returns the retained lines in order plus the truncation flag.
func (b *outputBuffer) snapshot() ([]string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.head)+len(b.tail))
	out = append(out, b.head...)
	out = append(out, b.tail[b.tailStart:]...)
	out = append(out, b.tail[:b.tailStart]...)
	return out, b.truncated
}
