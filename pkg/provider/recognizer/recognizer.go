// Package recognizer defines the interface the session core uses to talk to
// an upstream streaming speech-recognition backend.
//
// The central abstraction is Stream: once opened, a stream accepts raw PCM
// audio frames and emits a single ordered stream of Event values carrying
// both interim and final recognition results — classification into
// interim/final state belongs to the result handler, not the transport.
//
// Implementations must be safe for concurrent use by one audio-feeding
// goroutine and one event-reading goroutine at a time.
package recognizer

import (
	"context"
	"time"
)

// Config describes the audio format and recognition hints for a new stream.
type Config struct {
	// SampleRate is the audio sample rate in Hz. The session core always
	// sends 16000 (see internal/audio's canonical format).
	SampleRate int

	// Language is an opaque BCP-47-style tag passed through to the backend
	// (e.g. "ja-JP"). Empty lets the backend pick a default.
	Language string

	// Model is an opaque backend-specific model identifier (e.g.
	// "latest_long"). Empty lets the backend pick a default.
	Model string
}

// WordTiming holds per-word timing/confidence detail when the backend
// reports it. May be omitted entirely by a given Event.
type WordTiming struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// Event is one recognition result emitted by a Stream.
type Event struct {
	Text       string
	IsFinal    bool
	Confidence float64
	Words      []WordTiming
	ReceivedAt time.Time
}

// Stream represents one open, bidirectional recognition session against the
// upstream backend.
//
// Callers must call Close when the session is no longer needed; failing to
// do so leaks the underlying transport connection and its goroutines.
type Stream interface {
	// SendAudio delivers one PCM frame to the backend. Returns an error if
	// the stream is closed or the transport rejects the write.
	SendAudio(frame []byte) error

	// Events returns a channel of recognition results in receipt order.
	// The channel is closed when the stream ends, for any reason.
	Events() <-chan Event

	// Close terminates the stream, flushing any pending audio within a
	// bounded grace period, and releases transport resources. Safe to call
	// more than once; only the first call has effect.
	Close() error
}

// Opener opens new recognition streams against a specific upstream backend.
type Opener interface {
	// Open establishes a new Stream. Returns an error if the backend cannot
	// be reached or rejects cfg.
	Open(ctx context.Context, cfg Config) (Stream, error)
}
