package audio

import (
	"bytes"
	"testing"
)

func TestNormalizer_StripsRIFFHeaderOnce(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	header := make([]byte, riffHeaderLen)
	copy(header[0:4], "RIFF")
	copy(header[8:12], "WAVE")
	payload := bytes.Repeat([]byte{0x01, 0x02}, MinFrame/2)

	frames, err := n.Push(append(header, payload...))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}
	if !bytes.Equal(frames[0].Payload, payload) {
		t.Error("RIFF header was not stripped from the first chunk")
	}

	// A second chunk that happens to start with "RIFF" should pass through
	// untouched — the header is only stripped once, at session start.
	again, err := n.Push(append([]byte("RIFFWAVE...more"), bytes.Repeat([]byte{0xAA}, MinFrame)...))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(again) != 1 || !bytes.HasPrefix(again[0].Payload, []byte("RIFF")) {
		t.Error("header stripping should not reapply after the first chunk")
	}
}

func TestNormalizer_PadsOddLength(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	odd := bytes.Repeat([]byte{0x7F}, MinFrame+1)
	frames, err := n.Push(odd)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) == 0 {
		t.Fatal("expected at least one frame")
	}
	total := 0
	for _, f := range frames {
		if f.Len()%2 != 0 {
			t.Errorf("frame %d has odd length %d", f.Seq, f.Len())
		}
		total += f.Len()
	}
	if flushed := n.Flush(); len(flushed) > 0 {
		total += flushed[0].Len()
	}
	if total != len(odd)+1 {
		t.Errorf("total bytes emitted = %d, want %d (padded)", total, len(odd)+1)
	}
}

func TestNormalizer_StrictModeRejectsOddLength(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()
	n.Strict = true

	_, err := n.Push(make([]byte, MinFrame+1))
	if err != ErrInvalidFrame {
		t.Errorf("err = %v, want ErrInvalidFrame", err)
	}
}

func TestNormalizer_SplitsOversizedChunk(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	big := make([]byte, 2*MaxFrame+100)
	frames, err := n.Push(big)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	var total int
	for _, f := range frames {
		if f.Len() > MaxFrame {
			t.Errorf("frame %d len %d exceeds MaxFrame", f.Seq, f.Len())
		}
		if f.Len() < MinFrame {
			t.Errorf("frame %d len %d below MinFrame", f.Seq, f.Len())
		}
		if f.Len()%2 != 0 {
			t.Errorf("frame %d len %d is odd", f.Seq, f.Len())
		}
		total += f.Len()
	}
	residue := n.Flush()
	for _, f := range residue {
		total += f.Len()
	}
	if total != len(big) {
		t.Errorf("total bytes across frames+flush = %d, want %d", total, len(big))
	}
}

func TestNormalizer_AccumulatesSmallChunks(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	first := bytes.Repeat([]byte{0x01}, MinFrame-1)
	frames, err := n.Push(first)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames from a sub-MinFrame chunk, got %d", len(frames))
	}

	second := bytes.Repeat([]byte{0x02}, MinFrame-1)
	frames, err = n.Push(second)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}
	if frames[0].Len() != MinFrame {
		t.Errorf("emitted frame len = %d, want MinFrame (%d)", frames[0].Len(), MinFrame)
	}

	residue := n.Flush()
	if len(residue) != 1 {
		t.Fatalf("len(residue) = %d, want 1", len(residue))
	}
	wantResidue := (MinFrame - 1) + (MinFrame - 1) - MinFrame // MinFrame-2, already even
	if residue[0].Len() != wantResidue {
		t.Errorf("residue len = %d, want %d", residue[0].Len(), wantResidue)
	}
}

func TestNormalizer_PassesThroughInRangeChunk(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	chunk := bytes.Repeat([]byte{0x03}, OptimalFrame)
	frames, err := n.Push(chunk)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1 (an already-optimal chunk should not be fragmented)", len(frames))
	}
	if frames[0].Len() != OptimalFrame {
		t.Errorf("frame len = %d, want %d", frames[0].Len(), OptimalFrame)
	}
}

func TestNormalizer_FlushEmptyIsNil(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()
	if got := n.Flush(); got != nil {
		t.Errorf("Flush() on empty normalizer = %v, want nil", got)
	}
}

func TestNormalizer_SequenceNumbersMonotonic(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	big := make([]byte, 3*OptimalFrame)
	frames, err := n.Push(big)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	for i, f := range frames {
		if f.Seq != uint64(i) {
			t.Errorf("frame[%d].Seq = %d, want %d", i, f.Seq, i)
		}
	}
}

func TestNormalizer_StatsTrackThroughput(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	_, _ = n.Push(make([]byte, OptimalFrame))
	_, _ = n.Push(make([]byte, OptimalFrame))

	stats := n.Stats()
	if stats.ChunksIn != 2 {
		t.Errorf("ChunksIn = %d, want 2", stats.ChunksIn)
	}
	if stats.FramesOut != 2 {
		t.Errorf("FramesOut = %d, want 2", stats.FramesOut)
	}
	if stats.BytesIn != 2*OptimalFrame {
		t.Errorf("BytesIn = %d, want %d", stats.BytesIn, 2*OptimalFrame)
	}
}
