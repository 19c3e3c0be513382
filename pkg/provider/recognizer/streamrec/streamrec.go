// Package streamrec implements recognizer.Opener against a WebSocket-based
// streaming speech-recognition backend (the shape shared by Deepgram-style
// and Google Speech-to-Text-style streaming APIs: binary audio frames in,
// JSON result events out).
package streamrec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"

	"github.com/slidestream/sessioncore/internal/resilience"
	"github.com/slidestream/sessioncore/pkg/provider/recognizer"
)

const (
	defaultSampleRate = 16000

	// dialMaxAttempts bounds retries for the initial WebSocket handshake;
	// once a stream is open, the recognizer stream adapter (not this
	// package) owns reconnection via session renewal.
	dialMaxAttempts = 3
)

// Option configures an [Opener].
type Option func(*Opener)

// WithDialBackoff overrides the exponential backoff policy used for the
// initial WebSocket dial.
func WithDialBackoff(initial, max time.Duration) Option {
	return func(o *Opener) {
		o.dialInitial = initial
		o.dialMax = max
	}
}

// WithCircuitBreaker overrides the breaker guarding the dial. By default an
// Opener gets its own breaker with [resilience]'s standard defaults.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(o *Opener) {
		o.breaker = cb
	}
}

// Opener dials a WebSocket streaming recognition endpoint.
type Opener struct {
	endpoint    string
	apiKey      string
	dialInitial time.Duration
	dialMax     time.Duration
	breaker     *resilience.CircuitBreaker
}

// New creates an [Opener] targeting endpoint (a wss:// URL), authenticating
// with apiKey via a bearer-style Authorization header.
func New(endpoint, apiKey string, opts ...Option) (*Opener, error) {
	if endpoint == "" {
		return nil, errors.New("streamrec: endpoint must not be empty")
	}
	if apiKey == "" {
		return nil, errors.New("streamrec: apiKey must not be empty")
	}
	o := &Opener{
		endpoint:    endpoint,
		apiKey:      apiKey,
		dialInitial: 200 * time.Millisecond,
		dialMax:     5 * time.Second,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "recognizer-dial",
		}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Open establishes a new streaming recognition session, retrying the initial
// dial with exponential backoff up to dialMaxAttempts times. The dial is
// additionally guarded by a circuit breaker shared across all sessions this
// Opener creates: once the backend has been refusing connections long enough
// to trip the breaker, further Open calls fail fast with
// [resilience.ErrCircuitOpen] instead of each burning dialMaxAttempts
// retries against a backend that's already known to be down.
func (o *Opener) Open(ctx context.Context, cfg recognizer.Config) (recognizer.Stream, error) {
	wsURL, err := o.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("streamrec: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+o.apiKey)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.dialInitial
	bo.MaxInterval = o.dialMax

	var conn *websocket.Conn
	err = o.breaker.Execute(func() error {
		c, dialErr := backoff.Retry(ctx, func() (*websocket.Conn, error) {
			c, _, dialErr := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: headers})
			if dialErr != nil {
				return nil, dialErr
			}
			return c, nil
		},
			backoff.WithBackOff(bo),
			backoff.WithMaxTries(dialMaxAttempts),
		)
		if dialErr != nil {
			return dialErr
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("streamrec: dial: %w", err)
	}

	s := &stream{
		conn:   conn,
		events: make(chan recognizer.Event, 64),
		audio:  make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.writeLoop(ctx)
	return s, nil
}

func (o *Opener) buildURL(cfg recognizer.Config) (string, error) {
	u, err := url.Parse(o.endpoint)
	if err != nil {
		return "", err
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}
	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(sr))
	q.Set("interim_results", "true")
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	if cfg.Model != "" {
		q.Set("model", cfg.Model)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// wireEvent mirrors the JSON result shape common to streaming recognition
// APIs: a typed envelope around one channel's best alternative.
type wireEvent struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func parseWireEvent(data []byte) (recognizer.Event, bool) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return recognizer.Event{}, false
	}
	if w.Type != "Results" || len(w.Channel.Alternatives) == 0 {
		return recognizer.Event{}, false
	}
	alt := w.Channel.Alternatives[0]
	words := make([]recognizer.WordTiming, 0, len(alt.Words))
	for _, wd := range alt.Words {
		words = append(words, recognizer.WordTiming{
			Word:       wd.Word,
			Start:      time.Duration(wd.Start * float64(time.Second)),
			End:        time.Duration(wd.End * float64(time.Second)),
			Confidence: wd.Confidence,
		})
	}
	return recognizer.Event{
		Text:       alt.Transcript,
		IsFinal:    w.IsFinal,
		Confidence: alt.Confidence,
		Words:      words,
		ReceivedAt: time.Now(),
	}, true
}

// stream is a live WebSocket recognition session. It implements recognizer.Stream.
type stream struct {
	conn   *websocket.Conn
	events chan recognizer.Event
	audio  chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func (s *stream) SendAudio(frame []byte) error {
	select {
	case <-s.done:
		return errors.New("streamrec: stream is closed")
	default:
	}
	select {
	case s.audio <- frame:
		return nil
	case <-s.done:
		return errors.New("streamrec: stream is closed")
	}
}

func (s *stream) Events() <-chan recognizer.Event { return s.events }

// closeGrace bounds how long Close waits for the writer/reader goroutines to
// drain after signalling the backend, matching the session-wide CLOSE_GRACE.
const closeGrace = 5 * time.Second

func (s *stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))

		drained := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(closeGrace):
		}
		s.conn.Close(websocket.StatusNormalClosure, "stream closed")
	})
	return nil
}

func (s *stream) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

func (s *stream) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		ev, ok := parseWireEvent(msg)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

var _ recognizer.Stream = (*stream)(nil)
var _ recognizer.Opener = (*Opener)(nil)
