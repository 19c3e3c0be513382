package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/slidestream/sessioncore/internal/observe"
	"github.com/slidestream/sessioncore/pkg/provider/recognizer"
)

// WebhookNotifier is invoked by the Result Handler on every final result.
// Implementations must apply their own timeout and must never propagate
// failures back to the caller — see internal/webhook for the HTTP
// implementation; the default is a no-op.
type WebhookNotifier interface {
	Notify(ctx context.Context, payload WebhookPayload)
}

// NoopNotifier is the default [WebhookNotifier].
type NoopNotifier struct{}

// Notify does nothing.
func (NoopNotifier) Notify(context.Context, WebhookPayload) {}

// resultDispatchBuffer sizes the serialized callback-dispatch channel.
const resultDispatchBuffer = 64

// ResultHandler implements C2: it classifies incoming recognizer events
// into interim/final results, maintains the single outstanding interim and
// the append-only final log, delegates slide alignment to a [SlideMatcher],
// and serializes delivery to a single consumer callback.
//
// Grounded on the teacher's stt.SessionHandle Partials()/Finals() channel
// split: where the teacher exposed two channels for the caller to select
// over, this handler folds that classification into one serialized
// dispatch loop, matching the single unified RecognitionEvent this module's
// upstream contract uses.
type ResultHandler struct {
	sessionID      ID
	presentationID string
	lectureID      int64
	matcher        SlideMatcher
	notifier       WebhookNotifier
	metrics        *observe.Metrics
	onResult       func(Result)

	mu            sync.Mutex
	interim       *Result
	finalTexts    []string
	confidenceSum float64
	finalCount    int

	dispatch  chan Result
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewResultHandler constructs a [ResultHandler] and starts its serialized
// dispatch goroutine. onResult may be nil.
func NewResultHandler(sessionID ID, presentationID string, lectureID int64, matcher SlideMatcher, notifier WebhookNotifier, metrics *observe.Metrics, onResult func(Result)) *ResultHandler {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	h := &ResultHandler{
		sessionID:      sessionID,
		presentationID: presentationID,
		lectureID:      lectureID,
		matcher:        matcher,
		notifier:       notifier,
		metrics:        metrics,
		onResult:       onResult,
		dispatch:       make(chan Result, resultDispatchBuffer),
	}
	h.wg.Add(1)
	go h.dispatchLoop()
	return h
}

// HandleEvent classifies one recognizer event and, for finals, invokes the
// slide matcher and fires the webhook notifier. Never blocks on the
// consumer callback beyond the bounded dispatch channel.
func (h *ResultHandler) HandleEvent(ctx context.Context, ev recognizer.Event) {
	if !ev.IsFinal {
		h.handleInterim(ev)
		return
	}
	h.handleFinal(ctx, ev)
}

func (h *ResultHandler) handleInterim(ev recognizer.Event) {
	r := Result{
		Text:       ev.Text,
		IsFinal:    false,
		Confidence: ev.Confidence,
		Timestamp:  ev.ReceivedAt,
		SessionID:  h.sessionID,
	}
	h.mu.Lock()
	h.interim = &r
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.InterimResults.Add(context.Background(), 1)
	}
	h.enqueue(r)
}

func (h *ResultHandler) handleFinal(ctx context.Context, ev recognizer.Event) {
	r := Result{
		Text:       ev.Text,
		IsFinal:    true,
		Confidence: ev.Confidence,
		Timestamp:  ev.ReceivedAt,
		SessionID:  h.sessionID,
	}

	if h.matcher != nil {
		if m, ok := h.matcher.Match(ctx, h.sessionID, h.presentationID, ev.Text, ev.ReceivedAt); ok {
			mm := m
			r.Slide = &mm
		}
	}

	h.mu.Lock()
	h.interim = nil
	h.finalTexts = append(h.finalTexts, ev.Text)
	h.confidenceSum += ev.Confidence
	h.finalCount++
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.FinalResults.Add(context.Background(), 1)
		h.metrics.ConfidenceScore.Record(context.Background(), ev.Confidence)
	}

	h.enqueue(r)
	h.notify(ctx, r)
}

// enqueue delivers r to the serialized dispatch loop. Only called from the
// session's own single reader goroutine, which has always stopped before
// [ResultHandler.Close] runs (Session.Close waits on its errgroup first), so
// this never races a concurrent close of h.dispatch.
func (h *ResultHandler) enqueue(r Result) {
	h.dispatch <- r
}

// notify fires the webhook notifier in its own goroutine so a slow or
// failing backend never delays result delivery.
func (h *ResultHandler) notify(ctx context.Context, r Result) {
	payload := WebhookPayload{
		LectureID:      h.lectureID,
		SessionID:      string(r.SessionID),
		PresentationID: h.presentationID,
		Text:           r.Text,
		Confidence:     r.Confidence,
		Timestamp:      r.Timestamp.UnixMilli(),
		IsFinal:        r.IsFinal,
	}
	if r.Slide != nil {
		payload.SlideNumber = r.Slide.SlideID
		payload.SlideScore = r.Slide.Score
		payload.SlideConfidence = r.Slide.Confidence
		payload.MatchedKeywords = r.Slide.MatchedKeywords
	}
	go h.notifier.Notify(ctx, payload)
}

// dispatchLoop is the single consumer of h.dispatch, guaranteeing callback
// invocations for one session are strictly serialized and never run
// concurrently with each other. It exits only once h.dispatch is closed and
// drained, so a final result buffered right before Close is still delivered
// exactly once rather than dropped.
func (h *ResultHandler) dispatchLoop() {
	defer h.wg.Done()
	for r := range h.dispatch {
		h.invokeCallback(r)
	}
}

// invokeCallback calls onResult, recovering from panics and logging errors
// so a misbehaving consumer never breaks the reader loop.
func (h *ResultHandler) invokeCallback(r Result) {
	if h.onResult == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("result callback panicked", "session_id", h.sessionID, "recovered", rec)
			if h.metrics != nil {
				h.metrics.CallbackFailures.Add(context.Background(), 1)
			}
		}
	}()
	h.onResult(r)
}

// FinalTranscript returns the accumulated final transcript, space-joined.
func (h *ResultHandler) FinalTranscript() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return strings.Join(h.finalTexts, " ")
}

// AvgConfidence returns the rolling mean confidence across final results
// seen so far.
func (h *ResultHandler) AvgConfidence() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finalCount == 0 {
		return 0
	}
	return h.confidenceSum / float64(h.finalCount)
}

// Close stops the dispatch loop once any in-flight results have drained.
// Callers must stop feeding HandleEvent/enqueue before calling Close.
func (h *ResultHandler) Close() {
	h.closeOnce.Do(func() {
		close(h.dispatch)
	})
	h.wg.Wait()
}
