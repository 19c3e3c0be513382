// Package config loads and validates sessioncore's YAML configuration:
// backend callback settings, recognizer defaults, session lifecycle
// timings, slide-matcher weights, and alert thresholds.
package config

import "time"

// Config is the root of sessioncore's configuration tree.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Session    SessionConfig    `yaml:"session"`
	SlideMatch SlideMatchConfig `yaml:"slidematch"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

// BackendConfig describes the LMS backend that receives final-transcript
// and slide-change webhook callbacks.
type BackendConfig struct {
	// BaseURL is the backend's root URL. Required.
	BaseURL string `yaml:"base_url"`
	// CallbackTimeout bounds a single webhook delivery attempt.
	CallbackTimeout time.Duration `yaml:"callback_timeout"`
	// ServiceToken authenticates outgoing webhook requests.
	ServiceToken string `yaml:"service_token"`
}

// RecognizerConfig holds defaults for opening a new recognizer stream.
type RecognizerConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	ProjectID       string `yaml:"project_id"`
	DefaultLanguage string `yaml:"default_language"`
	DefaultModel    string `yaml:"default_model"`
}

// SessionConfig controls a Session's lifecycle timings: how often it
// checks for a needed renewal, how close to the upstream's hard ceiling
// it waits before renewing, and how long it gives in-flight work to
// drain during shutdown.
type SessionConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RenewThreshold  time.Duration `yaml:"renew_threshold"`
	RenewCooldown   time.Duration `yaml:"renew_cooldown"`
	FinalDrain      time.Duration `yaml:"final_drain"`
	CloseGrace      time.Duration `yaml:"close_grace"`
	SendTimeout     time.Duration `yaml:"send_timeout"`
}

// SlideMatchConfig holds the three-signal combiner's tuning values:
// per-signal weights, the fuzzy/semantic acceptance thresholds, and the
// temporal-smoothing parameters. It is loaded, validated and diffed, but the
// slidematch package does not read it; the matcher uses its own built-in
// constants, which equal these defaults.
type SlideMatchConfig struct {
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold"`
	FuzzyDiscount     float64 `yaml:"fuzzy_discount"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	SemanticTopK      int     `yaml:"semantic_top_k"`
	WeightExact       float64 `yaml:"weight_exact"`
	WeightFuzzy       float64 `yaml:"weight_fuzzy"`
	WeightSemantic    float64 `yaml:"weight_semantic"`
	TitleBoost        float64 `yaml:"title_boost"`
	MinScore          float64 `yaml:"min_score"`
	SwitchMultiplier  float64 `yaml:"switch_multiplier"`
	TemporalBoost     float64 `yaml:"temporal_boost"`
}

// AlertsConfig holds the thresholds the alerting/observability layer
// compares live metrics against.
type AlertsConfig struct {
	CheckInterval        time.Duration `yaml:"check_interval"`
	LatencyP95WarnMS      int     `yaml:"latency_p95_warn_ms"`
	LatencyP95CriticalMS  int     `yaml:"latency_p95_critical_ms"`
	ErrorRateWarn         float64 `yaml:"error_rate_warn"`
	ErrorRateCritical     float64 `yaml:"error_rate_critical"`
	ConfidenceWarn        float64 `yaml:"confidence_warn"`
	ConfidenceCritical    float64 `yaml:"confidence_critical"`
	StuckSessionDuration  time.Duration `yaml:"stuck_session_duration"`
	CostPerHourLimitUSD   float64 `yaml:"cost_per_hour_limit_usd"`
}

// Default returns a Config populated with the values spec.md documents
// as defaults, before any file or environment override is applied.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			CallbackTimeout: 5 * time.Second,
		},
		Recognizer: RecognizerConfig{
			DefaultLanguage: "en-US",
			DefaultModel:    "latest_long",
		},
		Session: SessionConfig{
			RefreshInterval: time.Second,
			RenewThreshold:  270 * time.Second,
			RenewCooldown:   10 * time.Second,
			FinalDrain:      500 * time.Millisecond,
			CloseGrace:      5 * time.Second,
			SendTimeout:     time.Second,
		},
		SlideMatch: SlideMatchConfig{
			FuzzyThreshold:    0.8,
			FuzzyDiscount:     0.7,
			SemanticThreshold: 0.7,
			SemanticTopK:      5,
			WeightExact:       1.0,
			WeightFuzzy:       0.7,
			WeightSemantic:    0.7,
			TitleBoost:        2.0,
			MinScore:          1.5,
			SwitchMultiplier:  1.1,
			TemporalBoost:     0.05,
		},
		Alerts: AlertsConfig{
			CheckInterval:        30 * time.Second,
			LatencyP95WarnMS:     800,
			LatencyP95CriticalMS: 1500,
			ErrorRateWarn:        0.05,
			ErrorRateCritical:    0.10,
			ConfidenceWarn:       0.7,
			ConfidenceCritical:   0.5,
			StuckSessionDuration: 10 * time.Minute,
			CostPerHourLimitUSD:  0,
		},
	}
}
