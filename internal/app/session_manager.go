// Package app wires C1-C6 into a running multi-session service: a
// [Manager] owning every live [session.Session], backed by a
// [session.Renewer] that proactively swaps recognizer streams before they
// hit the upstream's hard connection ceiling.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/slidestream/sessioncore/internal/observe"
	"github.com/slidestream/sessioncore/internal/session"
	"github.com/slidestream/sessioncore/pkg/provider/recognizer"
)

// Manager owns the lifecycle of every active transcription session. A
// manager-wide mutex is held only for map mutation — Create/Close/Get/
// ListActive never hold it across a Session's own (independently
// synchronized) Start/SendAudio/Close calls.
//
// Grounded on the teacher's session_manager.go: same mutex-held-only-for-
// registration-state discipline, generalized from a single `active` bool
// and one SessionInfo to a real map of concurrently live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[session.ID]*session.Session

	opener   recognizer.Opener
	matcher  session.SlideMatcher
	notifier session.WebhookNotifier
	metrics  *observe.Metrics
	logger   *slog.Logger

	renewer *session.Renewer
}

// Forgetter is implemented by a SlideMatcher that keeps per-session state
// (e.g. [slidematch.Matcher]'s temporal-smoothing combiners) and needs to
// be told when a Session goes away, so that state doesn't accumulate for
// the life of the process.
type Forgetter interface {
	Forget(sessionID session.ID)
}

// ManagerConfig holds a Manager's fixed collaborators.
type ManagerConfig struct {
	Opener   recognizer.Opener
	Matcher  session.SlideMatcher
	Notifier session.WebhookNotifier
	Metrics  *observe.Metrics
	Logger   *slog.Logger
}

// NewManager constructs a Manager and its backing Renewer. Call Run to
// start the renewer's background scan loop.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = session.NoopNotifier{}
	}

	m := &Manager{
		sessions: make(map[session.ID]*session.Session),
		opener:   cfg.Opener,
		matcher:  cfg.Matcher,
		notifier: notifier,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
	m.renewer = session.NewRenewer(m, cfg.Metrics, logger, m.onRenewalEvent)
	return m
}

// Create opens a new recognizer stream and registers a Session under a
// freshly generated ID. onResult is invoked for every interim/final result
// the session produces; it may be nil.
//
// On failure to start the underlying stream, the Session is not
// registered — its Summary from a subsequent Get/Close would be
// meaningless since it never successfully opened.
func (m *Manager) Create(ctx context.Context, presentationID string, lectureID int64, cfg session.Config, onResult func(session.Result)) (*session.Session, error) {
	id := session.ID(uuid.NewString())
	sess := session.New(id, presentationID, lectureID, cfg, m.opener, m.matcher, m.notifier, m.metrics, onResult)

	if err := sess.Start(ctx); err != nil {
		return nil, fmt.Errorf("session manager: create %s: %w", id, err)
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", id, "presentation_id", presentationID)
	return sess, nil
}

// Get returns the Session registered under id, if any.
func (m *Manager) Get(id session.ID) (*session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close closes and unregisters the Session under id, returning its final
// Summary. Unregistration happens before the (potentially slow) underlying
// Close call completes, so a concurrent ListActive scan from the renewer
// never picks a session mid-teardown.
func (m *Manager) Close(ctx context.Context, id session.ID) (session.Summary, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return session.Summary{}, fmt.Errorf("session manager: close %s: %w", id, session.ErrSessionNotFound)
	}

	summary, err := sess.Close(ctx)
	if f, ok := m.matcher.(Forgetter); ok {
		f.Forget(id)
	}

	m.logger.Info("session closed", "session_id", id, "renewals", summary.RenewalCount, "frames_sent", summary.FramesSent)
	return summary, err
}

// ListActive implements [session.Lister] for the Renewer's scan loop.
func (m *Manager) ListActive() []*session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of currently registered sessions, for health
// checks and metrics.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run starts the renewer's background scan loop. It blocks until ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context) {
	m.renewer.Run(ctx)
}

// Shutdown closes every registered session. Errors from individual closes
// are logged, not aggregated — a partial teardown still releases every
// session it can reach.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	ids := make([]session.ID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if _, err := m.Close(ctx, id); err != nil {
			m.logger.Warn("session manager: shutdown close error", "session_id", id, "err", err)
		}
	}
}

func (m *Manager) onRenewalEvent(event session.RenewalEvent) {
	switch event.Status {
	case session.RenewalFailed:
		m.logger.Warn("session manager: renewal failed", "session_id", event.SessionID, "err", event.Err)
	}
}
