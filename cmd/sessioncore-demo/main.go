// Command sessioncore-demo wires every session-core collaborator — config,
// recognizer opener, slide matcher, webhook notifier, metrics, alerts, and
// health endpoints — into a runnable process. It does not itself terminate
// a WebSocket transport (that adapter is out of scope, per spec.md §6); it
// exposes the HTTP surface session-core needs to run standalone:
// /healthz, /readyz, and /metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/slidestream/sessioncore/internal/app"
	"github.com/slidestream/sessioncore/internal/config"
	"github.com/slidestream/sessioncore/internal/health"
	"github.com/slidestream/sessioncore/internal/observe"
	"github.com/slidestream/sessioncore/internal/slidematch"
	"github.com/slidestream/sessioncore/internal/slidematch/memindex"
	"github.com/slidestream/sessioncore/internal/webhook"
	"github.com/slidestream/sessioncore/pkg/provider/recognizer/streamrec"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	listenAddr := flag.String("listen-addr", ":8090", "address for the health/readiness/metrics HTTP server")
	flag.Parse()

	// .env is optional — most deployments inject these via the environment
	// directly, this just smooths local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "sessioncore: warning: failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sessioncore: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sessioncore: %v\n", err)
		}
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "sessioncore"})
	if err != nil {
		slog.Error("failed to init observability provider", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to build metrics", "err", err)
		return 1
	}

	opener, err := buildOpener(cfg)
	if err != nil {
		slog.Error("failed to build recognizer opener", "err", err)
		return 1
	}

	notifier := webhook.New(cfg.Backend.BaseURL, cfg.Backend.ServiceToken, cfg.Backend.CallbackTimeout)
	matcher := slidematch.NewMatcher(newDemoIndexProvider())

	manager := app.NewManager(app.ManagerConfig{
		Opener:   opener,
		Matcher:  matcher,
		Notifier: notifier,
		Metrics:  metrics,
		Logger:   logger,
	})

	alertCfg := observe.AlertConfig{
		CheckInterval:        cfg.Alerts.CheckInterval,
		LatencyP95Warn:       time.Duration(cfg.Alerts.LatencyP95WarnMS) * time.Millisecond,
		LatencyP95Critical:   time.Duration(cfg.Alerts.LatencyP95CriticalMS) * time.Millisecond,
		ErrorRateWarn:        cfg.Alerts.ErrorRateWarn,
		ErrorRateCritical:    cfg.Alerts.ErrorRateCritical,
		ConfidenceWarn:       cfg.Alerts.ConfidenceWarn,
		ConfidenceCritical:   cfg.Alerts.ConfidenceCritical,
		StuckSessionDuration: cfg.Alerts.StuckSessionDuration,
		CostPerHourLimitUSD:  cfg.Alerts.CostPerHourLimitUSD,
	}
	alerts := observe.NewAlertManager(alertCfg, demoSnapshotFunc(manager), logAlert(logger), logger)

	healthHandler := health.New(health.Checker{
		Name: "session_manager",
		Check: func(context.Context) error {
			return nil
		},
	})

	mux := http.NewServeMux()
	healthHandler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: *listenAddr, Handler: observe.Middleware(metrics)(mux)}

	go func() {
		slog.Info("http server listening", "addr", *listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "err", err)
		}
	}()

	go manager.Run(ctx)
	go alerts.Run(ctx)

	slog.Info("sessioncore ready — press Ctrl+C to shut down")
	<-ctx.Done()

	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Session.CloseGrace+5*time.Second)
	defer cancel()

	manager.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown error", "err", err)
	}

	slog.Info("goodbye")
	return 0
}

// buildOpener constructs the C4 recognizer Opener from configuration. The
// demo targets a Google Speech-to-Text-style streaming endpoint addressed
// by project ID, authenticating with the service-account key at
// credentials_path used as a bearer token — a real deployment would instead
// mint short-lived OAuth tokens from that key, which is outside this
// module's scope (the recognizer contract treats the backend as opaque).
func buildOpener(cfg *config.Config) (*streamrec.Opener, error) {
	key, err := os.ReadFile(cfg.Recognizer.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read recognizer credentials: %w", err)
	}
	endpoint := fmt.Sprintf("wss://speech.googleapis.com/v2/projects/%s/locations/global:streamingRecognize", cfg.Recognizer.ProjectID)
	return streamrec.New(endpoint, string(key))
}

// newDemoIndexProvider returns an [slidematch.IndexProvider] serving a
// single hard-coded presentation, enough to exercise the matcher end to end
// without a real slide-ingestion pipeline (out of this module's scope).
func newDemoIndexProvider() slidematch.IndexProvider {
	idx := memindex.New([]memindex.Slide{
		{ID: 1, Title: "Introduction", Body: "welcome to the course overview"},
		{ID: 2, Title: "Containers", Body: "containers, images, and orchestration with kubernetes"},
	}, nil)
	return staticProvider{"demo-presentation": idx}
}

type staticProvider map[string]slidematch.SlideIndex

func (p staticProvider) Index(presentationID string) (slidematch.SlideIndex, bool) {
	idx, ok := p[presentationID]
	return idx, ok
}

// demoSnapshotFunc builds an [observe.SnapshotFunc] from the live session
// count; the demo has no latency/confidence tracker wired to a specific
// session since that bookkeeping lives per-Session (C2's ResultHandler), not
// at the Manager level.
func demoSnapshotFunc(m *app.Manager) observe.SnapshotFunc {
	return func() observe.Snapshot {
		return observe.Snapshot{ActiveSessions: m.Count()}
	}
}

func logAlert(logger *slog.Logger) func(observe.Alert) {
	return func(a observe.Alert) {
		logger.Warn("alert fired", "severity", a.Severity, "kind", a.Kind, "message", a.Message, "value", a.Value, "threshold", a.Threshold)
	}
}
