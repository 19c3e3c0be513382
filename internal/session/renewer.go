package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/slidestream/sessioncore/internal/audio"
	"github.com/slidestream/sessioncore/internal/observe"
	"github.com/slidestream/sessioncore/pkg/provider/recognizer"
)

// Renewal thresholds from spec.md §4.6, grounded on original_source's
// SessionRenewer constants (RENEWAL_THRESHOLD_SECONDS, RENEWAL_COOLDOWN_SECONDS).
const (
	RenewThreshold = 270 * time.Second
	RenewCooldown  = 10 * time.Second
	ScanInterval   = time.Second

	// openRetryAttempts bounds the renewer's own retry of opening the
	// replacement stream, independent of whatever dial-level retry the
	// recognizer.Opener applies internally (e.g. streamrec's websocket
	// dial backoff). This guards against transient failures from Openers
	// that don't retry on their own, such as the in-memory mock used in
	// tests.
	openRetryAttempts = 3
)

// Lister is implemented by whatever owns the session table (C7's Manager)
// so the renewer can scan without owning the table itself.
type Lister interface {
	ListActive() []*Session
}

// Renewer is C6: a single background loop that scans every active Session
// at ScanInterval and proactively swaps its recognizer stream before the
// upstream's hard time limit, per spec.md §4.6.
type Renewer struct {
	lister  Lister
	metrics *observe.Metrics
	logger  *slog.Logger

	threshold time.Duration
	cooldown  time.Duration
	interval  time.Duration

	onEvent func(RenewalEvent)
}

// NewRenewer constructs a [Renewer] with the default thresholds. onEvent may
// be nil.
func NewRenewer(lister Lister, metrics *observe.Metrics, logger *slog.Logger, onEvent func(RenewalEvent)) *Renewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renewer{
		lister:    lister,
		metrics:   metrics,
		logger:    logger,
		threshold: RenewThreshold,
		cooldown:  RenewCooldown,
		interval:  ScanInterval,
		onEvent:   onEvent,
	}
}

// Run scans for eligible sessions until ctx is cancelled.
func (r *Renewer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.scanOnce(ctx)
		}
	}
}

func (r *Renewer) scanOnce(ctx context.Context) {
	for _, s := range r.lister.ListActive() {
		if !s.eligibleForRenewal(r.threshold, r.cooldown) {
			continue
		}
		r.renewOne(ctx, s)
	}
}

func (r *Renewer) renewOne(ctx context.Context, s *Session) {
	opener := func(openCtx context.Context) (recognizer.Stream, error) {
		return backoff.Retry(openCtx, func() (recognizer.Stream, error) {
			return s.opener.Open(openCtx, recognizer.Config{
				SampleRate: audio.SampleRateHz,
				Language:   s.Config.Language,
				Model:      s.Config.Model,
			})
		}, backoff.WithMaxTries(openRetryAttempts))
	}

	if r.metrics != nil {
		r.metrics.RenewalsStarted.Add(ctx, 1)
	}

	// session.renew records RenewalsCompleted/Failed and RenewalDuration
	// itself via Metrics.RecordRenewalOutcome; only log here.
	event := s.renew(ctx, opener)
	switch event.Status {
	case RenewalCompleted:
		r.logger.Info("session renewed", "session_id", s.ID, "duration", event.Duration(), "buffered_frames", event.BufferedFrames)
	case RenewalFailed:
		r.logger.Error("session renewal failed", "session_id", s.ID, "error", event.Err)
	}
	if r.onEvent != nil {
		r.onEvent(event)
	}
}
