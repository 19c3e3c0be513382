package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/slidestream/sessioncore/internal/audio"
	"github.com/slidestream/sessioncore/internal/observe"
	"github.com/slidestream/sessioncore/pkg/provider/recognizer"
)

// Timing constants from spec.md's concurrency model.
const (
	// SendTimeout bounds how long SendAudio waits to enqueue a frame before
	// dropping it and counting a backpressure drop.
	SendTimeout = time.Second

	// CloseGrace is the concurrency model's 5s drain bound. Session.Close does
	// not reference it: it waits for the reader goroutines without a timeout
	// of its own, relying on the recognizer Stream's Close to end its Events
	// channel (streamrec bounds its own drain by the same 5s).
	CloseGrace = 5 * time.Second

	// FinalDrain bounds how long a renewal waits for trailing events from
	// the old stream before opening the new one.
	FinalDrain = 500 * time.Millisecond

	// defaultAudioChannelCapacity sizes audio_channel so roughly 1s of
	// audio (at the smallest MIN_FRAME granularity) fits without blocking.
	defaultAudioChannelCapacity = audio.MaxFrame / audio.MinFrame * 3

	// renewalBufferCapacity bounds the renewal buffer B, grounded on
	// original_source's AudioBuffer(max_size=50).
	renewalBufferCapacity = 50
)

// Session orchestrates one logical transcription (C5): it owns a Chunk
// Normalizer, a Result Handler, and at most one active recognizer Stream,
// and coordinates the lifecycle state machine in spec.md §4.5.
type Session struct {
	ID             ID
	PresentationID string
	LectureID      int64
	Config         Config

	opener  recognizer.Opener
	metrics *observe.Metrics

	normalizer *audio.Normalizer
	results    *ResultHandler

	mu             sync.Mutex
	status         Status
	createdAt      time.Time
	streamOpenedAt time.Time
	lastAudioAt    time.Time
	lastRenewalAt  time.Time
	renewalCount   int
	framesSent     uint64
	bytesSent      uint64
	stream         recognizer.Stream
	audioCh        chan audio.Frame
	renewBuf       chan audio.Frame
	cachedSummary  *Summary

	ctx        context.Context
	cancel     context.CancelFunc
	eg         *errgroup.Group // tracks reader goroutines, one per stream opened over the session's lifetime
	writerDone chan struct{}   // closed when the single writer goroutine returns
	closeOnce  sync.Once
}

// New constructs a Session in [StatusInitializing]. onResult may be nil.
func New(id ID, presentationID string, lectureID int64, cfg Config, opener recognizer.Opener, matcher SlideMatcher, notifier WebhookNotifier, metrics *observe.Metrics, onResult func(Result)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	eg, _ := errgroup.WithContext(ctx)
	s := &Session{
		ID:             id,
		PresentationID: presentationID,
		LectureID:      lectureID,
		Config:         cfg,
		opener:         opener,
		metrics:        metrics,
		normalizer:     audio.NewNormalizer(),
		status:         StatusInitializing,
		createdAt:      time.Now(),
		audioCh:        make(chan audio.Frame, defaultAudioChannelCapacity),
		ctx:            ctx,
		cancel:         cancel,
		eg:             eg,
		writerDone:     make(chan struct{}),
	}
	s.results = NewResultHandler(id, presentationID, lectureID, matcher, notifier, metrics, onResult)
	if metrics != nil {
		metrics.ActiveSessions.Add(ctx, 1)
	}
	return s
}

// Status returns the session's current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start opens the recognizer stream and transitions Initializing -> Active.
// Frames accepted by SendAudio before Start are replayed by the writer
// goroutine once it begins draining audio_channel.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusInitializing {
		s.mu.Unlock()
		return fmt.Errorf("%w: Start from %s", ErrIllegalState, s.status)
	}
	s.mu.Unlock()

	stream, err := s.opener.Open(ctx, recognizer.Config{
		SampleRate: audio.SampleRateHz,
		Language:   s.Config.Language,
		Model:      s.Config.Model,
	})
	if err != nil {
		s.mu.Lock()
		s.status = StatusFailed
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordError(ctx, "upstream_transport")
			s.metrics.ActiveSessions.Add(ctx, -1)
		}
		return fmt.Errorf("%w: %v", ErrUpstreamTransport, err)
	}

	s.mu.Lock()
	s.stream = stream
	s.status = StatusActive
	s.streamOpenedAt = time.Now()
	s.mu.Unlock()

	go func() {
		defer close(s.writerDone)
		if err := s.writeLoop(); err != nil {
			slog.Error("writer loop exited with error", "session_id", s.ID, "error", err)
		}
	}()
	s.eg.Go(func() error { return s.readLoop(stream) })

	return nil
}

// SendAudio normalizes raw and enqueues the resulting frames. Accepted in
// Initializing, Active, and Renewing; rejected otherwise.
func (s *Session) SendAudio(raw []byte) error {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	if status != StatusInitializing && status != StatusActive && status != StatusRenewing {
		return fmt.Errorf("%w: SendAudio in %s", ErrIllegalState, status)
	}

	frames, err := s.normalizer.Push(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lastAudioAt = time.Now()
	s.mu.Unlock()

	for _, f := range frames {
		s.enqueueFrame(f)
	}
	return nil
}

// enqueueFrame routes f into audio_channel or, during a renewal swap, into
// the temporary buffer B, per spec.md §4.6.
func (s *Session) enqueueFrame(f audio.Frame) {
	s.mu.Lock()
	renewing := s.status == StatusRenewing
	audioCh := s.audioCh
	renewBuf := s.renewBuf
	s.mu.Unlock()

	if renewing && renewBuf != nil {
		select {
		case renewBuf <- f:
		default:
			slog.Warn("renewal buffer full, dropping frame", "session_id", s.ID)
			if s.metrics != nil {
				s.metrics.RenewalBufferOverflows.Add(s.ctx, 1)
			}
		}
		return
	}

	timer := time.NewTimer(SendTimeout)
	defer timer.Stop()
	select {
	case audioCh <- f:
	case <-timer.C:
		slog.Warn("backpressure drop", "session_id", s.ID)
		if s.metrics != nil {
			s.metrics.BackpressureDrops.Add(s.ctx, 1)
		}
	}
}

// writeLoop is the one writer goroutine per Session: it drains audio_channel
// and forwards frames to the currently active recognizer stream.
func (s *Session) writeLoop() error {
	for {
		select {
		case f, ok := <-s.audioCh:
			if !ok {
				return nil
			}
			s.mu.Lock()
			stream := s.stream
			s.mu.Unlock()
			if stream == nil {
				continue
			}
			if err := stream.SendAudio(f.Payload); err != nil {
				slog.Error("send audio to recognizer failed", "session_id", s.ID, "error", err)
				if s.metrics != nil {
					s.metrics.RecordError(s.ctx, "upstream_transport")
				}
				continue
			}
			s.mu.Lock()
			s.framesSent++
			s.bytesSent += uint64(len(f.Payload))
			s.mu.Unlock()
			if s.metrics != nil {
				s.metrics.FramesSent.Add(s.ctx, 1)
				s.metrics.BytesSent.Add(s.ctx, int64(len(f.Payload)))
			}
		case <-s.ctx.Done():
			return nil
		}
	}
}

// readLoop is the one reader goroutine per recognizer stream: it forwards
// every event to the Result Handler until the stream's event channel
// closes. A Session may have more than one readLoop goroutine alive briefly
// during a renewal swap, since the old stream's trailing events are still
// delivered to the same Result Handler in receipt order.
func (s *Session) readLoop(stream recognizer.Stream) error {
	for ev := range stream.Events() {
		s.results.HandleEvent(s.ctx, ev)
	}
	return nil
}

// Close transitions the Session to Closing, flushes the normalizer tail,
// drains the writer and reader, and returns a summary. Idempotent: calling
// Close again after it has completed returns the cached summary.
func (s *Session) Close(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	if s.status == StatusClosed && s.cachedSummary != nil {
		summary := *s.cachedSummary
		s.mu.Unlock()
		return summary, nil
	}
	if s.status == StatusFailed {
		s.mu.Unlock()
		return Summary{}, fmt.Errorf("%w: Close on failed session", ErrIllegalState)
	}
	s.status = StatusClosing
	s.mu.Unlock()

	for _, f := range s.normalizer.Flush() {
		s.enqueueFrame(f)
	}

	close(s.audioCh)
	<-s.writerDone // writer drains every buffered frame before the stream is told to close

	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream != nil {
		_ = stream.Close() // signals upstream; its Events() channel closing ends readLoop below
	}
	_ = s.eg.Wait() // waits for readLoop(s), including any still-draining trailing stream from a renewal
	s.cancel()
	s.results.Close()

	s.mu.Lock()
	s.status = StatusClosed
	summary := Summary{
		SessionID:       s.ID,
		PresentationID:  s.PresentationID,
		RenewalCount:    s.renewalCount,
		FramesSent:      s.framesSent,
		BytesSent:       s.bytesSent,
		FinalTranscript: s.results.FinalTranscript(),
		AvgConfidence:   s.results.AvgConfidence(),
		CreatedAt:       s.createdAt,
		ClosedAt:        time.Now(),
	}
	s.cachedSummary = &summary
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(context.Background(), -1)
	}
	return summary, nil
}

// streamAge returns how long the current recognizer stream has been open,
// used by the renewer to decide eligibility.
func (s *Session) streamAge() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.streamOpenedAt)
}

// eligibleForRenewal reports whether the renewer should attempt a renewal
// right now, per spec.md §4.6: Active, stream age at or past threshold, and
// outside the cooldown window since the last renewal attempt that completed
// or failed.
func (s *Session) eligibleForRenewal(threshold, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return false
	}
	if time.Since(s.streamOpenedAt) < threshold {
		return false
	}
	if !s.lastRenewalAt.IsZero() && time.Since(s.lastRenewalAt) < cooldown {
		return false
	}
	return true
}

// renew performs the six-step renewal handoff from spec.md §4.6, grounded
// on original_source's SessionRenewer._renew_session: allocate a bounded
// buffer, half-close the old stream, open a new one with the session's
// original config, drain the buffer into audio_channel ahead of newer
// frames, and record the outcome.
func (s *Session) renew(ctx context.Context, opener func(context.Context) (recognizer.Stream, error)) RenewalEvent {
	event := RenewalEvent{SessionID: s.ID, TriggerTime: time.Now()}

	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		event.Status = RenewalFailed
		event.Err = fmt.Errorf("%w: renew from %s", ErrIllegalState, s.status)
		event.CompleteTime = time.Now()
		return event
	}
	oldStream := s.stream
	oldOpenedAt := s.streamOpenedAt
	s.status = StatusRenewing
	s.renewBuf = make(chan audio.Frame, renewalBufferCapacity)
	s.mu.Unlock()

	event.OldStreamDuration = time.Since(oldOpenedAt)
	event.Status = RenewalInProgress

	if oldStream != nil {
		done := make(chan struct{})
		go func() {
			_ = oldStream.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(FinalDrain):
		}
	}

	newStream, err := opener(ctx)
	if err != nil {
		s.mu.Lock()
		s.status = StatusActive
		s.lastRenewalAt = time.Now() // next attempt waits out the cooldown
		buffered := s.drainRenewBufLocked()
		s.mu.Unlock()
		for _, f := range buffered {
			s.enqueueFrame(f)
		}
		event.Status = RenewalFailed
		event.Err = fmt.Errorf("%w: %v", ErrRenewalFailed, err)
		event.CompleteTime = time.Now()
		if s.metrics != nil {
			s.metrics.RecordRenewalOutcome(ctx, false, event.Duration().Seconds())
		}
		return event
	}

	s.mu.Lock()
	s.stream = newStream
	s.streamOpenedAt = time.Now()
	s.renewalCount++
	s.lastRenewalAt = time.Now()
	buffered := s.drainRenewBufLocked()
	event.BufferedFrames = len(buffered)
	for _, f := range buffered {
		select {
		case s.audioCh <- f:
		case <-ctx.Done():
		}
	}
	s.status = StatusActive
	s.mu.Unlock()

	s.eg.Go(func() error { return s.readLoop(newStream) })

	event.Status = RenewalCompleted
	event.CompleteTime = time.Now()
	if s.metrics != nil {
		s.metrics.RecordRenewalOutcome(ctx, true, event.Duration().Seconds())
	}
	return event
}

// drainRenewBufLocked empties the renewal buffer in FIFO order and clears
// the field so later enqueueFrame calls stop targeting it. The channel
// itself is deliberately never closed: a concurrent enqueueFrame may have
// already read the old reference and be about to send on it, and closing
// out from under that send would panic.
func (s *Session) drainRenewBufLocked() []audio.Frame {
	buf := s.renewBuf
	s.renewBuf = nil
	if buf == nil {
		return nil
	}
	frames := make([]audio.Frame, 0, len(buf))
	for {
		select {
		case f := <-buf:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}
