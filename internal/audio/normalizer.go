package audio

import "sync"

// NormalizerStats accumulates the throughput counters C8 taps from the
// normalizer: total chunks in, frames out, bytes in/out.
type NormalizerStats struct {
	ChunksIn  uint64
	FramesOut uint64
	BytesIn   uint64
	BytesOut  uint64
}

// Normalizer is a pure, non-blocking byte-stream-to-frame converter. One
// instance is owned per Session; it has no goroutines and performs no I/O —
// callers drive it directly from the chunk-receive path.
//
// Push, Flush and Stats take an internal mutex, so concurrent calls on the
// same Normalizer are safe; concurrent pushes are framed in the order they
// acquire it.
type Normalizer struct {
	// Strict, if true, makes Push return [ErrInvalidFrame] for malformed
	// chunks (odd length) instead of silently zero-padding them.
	Strict bool

	mu            sync.Mutex
	headerChecked bool
	accumulator   []byte
	nextSeq       uint64
	stats         NormalizerStats
}

// NewNormalizer returns a ready-to-use [Normalizer].
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Push normalizes one raw chunk, returning zero or more [Frame] values ready
// to forward to the recognizer stream adapter. It never blocks and never
// rejects input except in [Normalizer.Strict] mode.
func (n *Normalizer) Push(chunk []byte) ([]Frame, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stats.ChunksIn++
	n.stats.BytesIn += uint64(len(chunk))

	if !n.headerChecked {
		n.headerChecked = true
		if hasRIFFHeader(chunk) && len(chunk) >= riffHeaderLen {
			chunk = chunk[riffHeaderLen:]
		}
	}

	if n.Strict && len(chunk)%2 != 0 {
		return nil, ErrInvalidFrame
	}

	// Whether oddness is repaired happens at emit time, not here — padding
	// a chunk before deciding whether it even clears MinFrame would count
	// the pad byte towards a threshold the raw bytes never reached.
	hadAccumulator := len(n.accumulator) > 0
	combined := make([]byte, 0, len(n.accumulator)+len(chunk))
	combined = append(combined, n.accumulator...)
	combined = append(combined, chunk...)
	n.accumulator = nil

	var frames []Frame
	for len(combined) > MaxFrame {
		frames = append(frames, n.emit(combined[:OptimalFrame]))
		combined = combined[OptimalFrame:]
	}

	switch {
	case len(combined) == 0:
	case len(combined) < MinFrame:
		n.accumulator = combined
	case hadAccumulator:
		// Bytes carried over from a prior push plus this one cleared
		// MinFrame: forward exactly one MinFrame-sized frame and keep
		// the rest accumulating, rather than forwarding the whole
		// (possibly much larger) combined buffer in one shot.
		frames = append(frames, n.emit(combined[:MinFrame]))
		n.accumulator = combined[MinFrame:]
	default:
		// Nothing was carried over — this chunk alone already lands in
		// range, so forward it whole instead of fragmenting an
		// already well-sized push.
		frames = append(frames, n.emit(combined))
	}

	for _, f := range frames {
		n.stats.FramesOut++
		n.stats.BytesOut += uint64(f.Len())
	}
	return frames, nil
}

// Flush drains any residual accumulator content as a final, possibly short,
// frame. Call this once, when the owning session is closing. Returns nil if
// there is no residue.
func (n *Normalizer) Flush() []Frame {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.accumulator) == 0 {
		return nil
	}
	tail := n.accumulator
	n.accumulator = nil
	f := n.emit(tail)
	n.stats.FramesOut++
	n.stats.BytesOut += uint64(f.Len())
	return []Frame{f}
}

// Stats returns a snapshot of the normalizer's throughput counters.
func (n *Normalizer) Stats() NormalizerStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// emit builds a [Frame] from payload, assigning and advancing the sequence
// counter. payload is copied so callers can reuse their input buffers; an
// odd-length payload is zero-padded to the next even length in the copy.
func (n *Normalizer) emit(payload []byte) Frame {
	size := len(payload)
	if size%2 != 0 {
		size++
	}
	cp := make([]byte, size)
	copy(cp, payload)
	f := Frame{Seq: n.nextSeq, Payload: cp}
	n.nextSeq++
	return f
}
