package session

import (
	"context"
	"time"
)

// ID is an opaque session identifier, unique process-wide for its lifetime.
type ID string

// Status is a Session's lifecycle state. Transitions form a DAG; illegal
// transitions return [ErrIllegalState].
type Status int

const (
	StatusInitializing Status = iota
	StatusActive
	StatusRenewing
	StatusClosing
	StatusClosed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusActive:
		return "active"
	case StatusRenewing:
		return "renewing"
	case StatusClosing:
		return "closing"
	case StatusClosed:
		return "closed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config carries a Session's recognition parameters. Language and Model are
// passed through to the recognizer on open and again on every renewal.
// EnableInterimResults is not forwarded: recognizer.Config has no such
// field, and the streamrec adapter always requests interim results.
type Config struct {
	Language             string
	Model                string
	EnableInterimResults bool
}

// MatchResult is C3's output for one final utterance, as reported by a
// [SlideMatcher].
type MatchResult struct {
	SlideID         string
	Score           float64
	Confidence      float64
	MatchedKeywords []string
}

// SlideMatcher aligns a final utterance to a slide. Implementations must be
// safe for concurrent use across Sessions but hold per-session temporal
// state (current_slide_id) internally, keyed by session id.
//
// This interface is defined here, on the consumer side, so internal/session
// does not import internal/slidematch — the dependency runs the other way,
// keeping the session package free of slide-matching internals it doesn't
// need to know about.
type SlideMatcher interface {
	Match(ctx context.Context, sessionID ID, presentationID, utterance string, at time.Time) (MatchResult, bool)
}

// Result is what the Result Handler (C2) emits to the consumer callback for
// both interim and final events.
type Result struct {
	Text       string
	IsFinal    bool
	Confidence float64
	Timestamp  time.Time
	SessionID  ID
	// Slide is populated only for final results that matched a slide.
	Slide *MatchResult
}

// Summary is returned by Session.Close and Manager.Close.
type Summary struct {
	SessionID      ID
	PresentationID string
	RenewalCount   int
	FramesSent     uint64
	BytesSent      uint64
	FinalTranscript string
	AvgConfidence   float64
	CreatedAt       time.Time
	ClosedAt        time.Time
}

// RenewalStatus records the outcome of one renewal attempt.
type RenewalStatus int

const (
	RenewalPreparing RenewalStatus = iota
	RenewalInProgress
	RenewalCompleted
	RenewalFailed
)

func (s RenewalStatus) String() string {
	switch s {
	case RenewalPreparing:
		return "preparing"
	case RenewalInProgress:
		return "in_progress"
	case RenewalCompleted:
		return "completed"
	case RenewalFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RenewalEvent records one renewal attempt for introspection and metrics.
type RenewalEvent struct {
	SessionID            ID
	TriggerTime          time.Time
	CompleteTime         time.Time
	OldStreamDuration     time.Duration
	BufferedFrames        int
	Status                RenewalStatus
	Err                   error
}

// Duration returns how long the renewal attempt took end to end.
func (e RenewalEvent) Duration() time.Duration {
	return e.CompleteTime.Sub(e.TriggerTime)
}
