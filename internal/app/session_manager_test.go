package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slidestream/sessioncore/internal/session"
	"github.com/slidestream/sessioncore/pkg/provider/recognizer"
	recmock "github.com/slidestream/sessioncore/pkg/provider/recognizer/mock"
)

// forgetfulMatcher is a no-op SlideMatcher that also implements Forgetter,
// so Manager.Close's forget-on-close wiring can be exercised.
type forgetfulMatcher struct {
	forgotten []session.ID
}

func (m *forgetfulMatcher) Match(context.Context, session.ID, string, string, time.Time) (session.MatchResult, bool) {
	return session.MatchResult{}, false
}

func (m *forgetfulMatcher) Forget(id session.ID) {
	m.forgotten = append(m.forgotten, id)
}

func newManagerWithStream(t *testing.T, stream *recmock.Stream) (*Manager, *recmock.Opener) {
	t.Helper()
	opener := &recmock.Opener{Stream: stream}
	m := NewManager(ManagerConfig{Opener: opener})
	return m, opener
}

func TestManager_CreateRegistersSession(t *testing.T) {
	stream := &recmock.Stream{EventsCh: make(chan recognizer.Event)}
	m, _ := newManagerWithStream(t, stream)

	sess, err := m.Create(context.Background(), "pres-1", 1, session.Config{}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got, ok := m.Get(sess.ID); !ok || got != sess {
		t.Fatalf("Get() = (%v, %v), want the created session", got, ok)
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	close(stream.EventsCh)
	m.Close(context.Background(), sess.ID)
}

func TestManager_CreateFailureDoesNotRegister(t *testing.T) {
	opener := &recmock.Opener{OpenErr: errors.New("dial refused")}
	m := NewManager(ManagerConfig{Opener: opener})

	_, err := m.Create(context.Background(), "pres-1", 1, session.Config{}, nil)
	if err == nil {
		t.Fatal("Create() error = nil, want non-nil")
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after failed create", m.Count())
	}
}

func TestManager_CloseUnregistersAndReturnsSummary(t *testing.T) {
	stream := &recmock.Stream{EventsCh: make(chan recognizer.Event)}
	m, _ := newManagerWithStream(t, stream)

	sess, err := m.Create(context.Background(), "pres-1", 1, session.Config{}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	close(stream.EventsCh)

	summary, err := m.Close(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if summary.SessionID != sess.ID {
		t.Errorf("summary.SessionID = %v, want %v", summary.SessionID, sess.ID)
	}
	if _, ok := m.Get(sess.ID); ok {
		t.Error("Get() after Close should return ok=false")
	}
}

func TestManager_CloseUnknownSessionReturnsError(t *testing.T) {
	m := NewManager(ManagerConfig{})
	_, err := m.Close(context.Background(), session.ID("missing"))
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Close() error = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_ListActiveReflectsRegisteredSessions(t *testing.T) {
	stream1 := &recmock.Stream{EventsCh: make(chan recognizer.Event)}
	stream2 := &recmock.Stream{EventsCh: make(chan recognizer.Event)}

	m := NewManager(ManagerConfig{Opener: &recmock.Opener{Stream: stream1}})
	s1, err := m.Create(context.Background(), "pres-1", 1, session.Config{}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	m.opener = &recmock.Opener{Stream: stream2}
	s2, err := m.Create(context.Background(), "pres-2", 2, session.Config{}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	active := m.ListActive()
	if len(active) != 2 {
		t.Fatalf("ListActive() len = %d, want 2", len(active))
	}

	close(stream1.EventsCh)
	close(stream2.EventsCh)
	m.Close(context.Background(), s1.ID)
	m.Close(context.Background(), s2.ID)
}

func TestManager_CloseForgetsMatcherState(t *testing.T) {
	stream := &recmock.Stream{EventsCh: make(chan recognizer.Event)}
	matcher := &forgetfulMatcher{}
	m := NewManager(ManagerConfig{Opener: &recmock.Opener{Stream: stream}, Matcher: matcher})

	sess, err := m.Create(context.Background(), "pres-1", 1, session.Config{}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	close(stream.EventsCh)
	if _, err := m.Close(context.Background(), sess.ID); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if len(matcher.forgotten) != 1 || matcher.forgotten[0] != sess.ID {
		t.Errorf("matcher.forgotten = %v, want [%v]", matcher.forgotten, sess.ID)
	}
}

func TestManager_ShutdownClosesEverySession(t *testing.T) {
	stream1 := &recmock.Stream{EventsCh: make(chan recognizer.Event)}
	close(stream1.EventsCh)

	m := NewManager(ManagerConfig{Opener: &recmock.Opener{Stream: stream1}})
	if _, err := m.Create(context.Background(), "pres-1", 1, session.Config{}, nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	m.Shutdown(context.Background())

	if m.Count() != 0 {
		t.Errorf("Count() after Shutdown = %d, want 0", m.Count())
	}
}
