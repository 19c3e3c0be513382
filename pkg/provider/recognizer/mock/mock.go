// Package mock provides test doubles for the recognizer package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/slidestream/sessioncore/pkg/provider/recognizer"
)

// OpenCall records a single invocation of Opener.Open.
type OpenCall struct {
	Ctx context.Context
	Cfg recognizer.Config
}

// Opener is a mock implementation of recognizer.Opener.
type Opener struct {
	mu sync.Mutex

	// Stream is returned by Open. If nil, Open returns a new default
	// Stream with a buffered event channel.
	Stream recognizer.Stream

	// OpenErr, if non-nil, is returned as the error from Open.
	OpenErr error

	// OpenCalls records every call to Open.
	OpenCalls []OpenCall
}

// Open records the call and returns Stream, OpenErr.
func (o *Opener) Open(ctx context.Context, cfg recognizer.Config) (recognizer.Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.OpenCalls = append(o.OpenCalls, OpenCall{Ctx: ctx, Cfg: cfg})
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	if o.Stream != nil {
		return o.Stream, nil
	}
	return &Stream{EventsCh: make(chan recognizer.Event, 16)}, nil
}

// OpenCallCount returns the number of Open calls. Thread-safe.
func (o *Opener) OpenCallCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.OpenCalls)
}

var _ recognizer.Opener = (*Opener)(nil)

// SendAudioCall records a single invocation of Stream.SendAudio.
type SendAudioCall struct {
	Frame []byte
}

// Stream is a mock implementation of recognizer.Stream. Callers pre-populate
// EventsCh with the Event values they want the consumer to receive, then
// close it when done, simulating the upstream ending the session.
type Stream struct {
	mu sync.Mutex

	// EventsCh is the channel returned by Events(). Callers own it.
	EventsCh chan recognizer.Event

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	SendAudioCalls []SendAudioCall
	CloseCallCount int
}

// SendAudio records the call and returns SendAudioErr.
func (s *Stream) SendAudio(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	s.SendAudioCalls = append(s.SendAudioCalls, SendAudioCall{Frame: cp})
	return s.SendAudioErr
}

// Events returns EventsCh.
func (s *Stream) Events() <-chan recognizer.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.EventsCh
}

// SendAudioCallCount returns the number of SendAudio calls. Thread-safe.
func (s *Stream) SendAudioCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SendAudioCalls)
}

// Close records the call and returns CloseErr.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

var _ recognizer.Stream = (*Stream)(nil)
