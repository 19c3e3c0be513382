package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// Config, with environment variable overrides applied on top of it.
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default], applies
// environment overrides, and validates the result. Useful in tests where
// configs are constructed from string literals.
//
// Unlike the stricter decoder the rest of this codebase's ancestry uses,
// KnownFields is deliberately left unset: operators are expected to carry
// forward config files across releases that add fields this binary doesn't
// know about yet, and a typo in a rarely-used key should not take down the
// whole service.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies the environment variables spec.md §6 names,
// each overriding its corresponding file-or-default value when set.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("BACKEND_BASE_URL"); ok {
		cfg.Backend.BaseURL = v
	}
	if v, ok := os.LookupEnv("BACKEND_CALLBACK_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.CallbackTimeout = d
		}
	}
	if v, ok := os.LookupEnv("BACKEND_SERVICE_TOKEN"); ok {
		cfg.Backend.ServiceToken = v
	}
	if v, ok := os.LookupEnv("RECOGNIZER_CREDENTIALS_PATH"); ok {
		cfg.Recognizer.CredentialsPath = v
	}
	if v, ok := os.LookupEnv("RECOGNIZER_PROJECT_ID"); ok {
		cfg.Recognizer.ProjectID = v
	}
	if v, ok := os.LookupEnv("RECOGNIZER_DEFAULT_LANGUAGE"); ok {
		cfg.Recognizer.DefaultLanguage = v
	}
	if v, ok := os.LookupEnv("RECOGNIZER_DEFAULT_MODEL"); ok {
		cfg.Recognizer.DefaultModel = v
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing every validation failure found, rather than
// stopping at the first one.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if cfg.Backend.CallbackTimeout <= 0 {
		errs = append(errs, errors.New("backend.callback_timeout must be positive"))
	}

	if cfg.Recognizer.CredentialsPath == "" {
		errs = append(errs, errors.New("recognizer.credentials_path is required"))
	}
	if cfg.Recognizer.ProjectID == "" {
		errs = append(errs, errors.New("recognizer.project_id is required"))
	}

	if cfg.Session.RenewThreshold <= 0 {
		errs = append(errs, errors.New("session.renew_threshold must be positive"))
	}
	if cfg.Session.RefreshInterval <= 0 {
		errs = append(errs, errors.New("session.refresh_interval must be positive"))
	}
	if cfg.Session.RenewCooldown < 0 {
		errs = append(errs, errors.New("session.renew_cooldown must not be negative"))
	}

	for _, w := range []struct {
		name string
		val  float64
	}{
		{"slidematch.weight_exact", cfg.SlideMatch.WeightExact},
		{"slidematch.weight_fuzzy", cfg.SlideMatch.WeightFuzzy},
		{"slidematch.weight_semantic", cfg.SlideMatch.WeightSemantic},
	} {
		if w.val < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", w.name, strconv.FormatFloat(w.val, 'g', -1, 64)))
		}
	}
	if cfg.SlideMatch.FuzzyThreshold < 0 || cfg.SlideMatch.FuzzyThreshold > 1 {
		errs = append(errs, errors.New("slidematch.fuzzy_threshold must be in [0, 1]"))
	}
	if cfg.SlideMatch.SemanticThreshold < 0 || cfg.SlideMatch.SemanticThreshold > 1 {
		errs = append(errs, errors.New("slidematch.semantic_threshold must be in [0, 1]"))
	}
	if cfg.SlideMatch.SemanticTopK <= 0 {
		errs = append(errs, errors.New("slidematch.semantic_top_k must be positive"))
	}
	if cfg.SlideMatch.SwitchMultiplier < 1 {
		errs = append(errs, errors.New("slidematch.switch_multiplier must be >= 1, or the combiner would flip slides on equal scores"))
	}

	if cfg.Alerts.LatencyP95WarnMS > 0 && cfg.Alerts.LatencyP95CriticalMS > 0 &&
		cfg.Alerts.LatencyP95WarnMS >= cfg.Alerts.LatencyP95CriticalMS {
		errs = append(errs, errors.New("alerts.latency_p95_warn_ms must be less than alerts.latency_p95_critical_ms"))
	}
	if cfg.Alerts.ErrorRateWarn > 0 && cfg.Alerts.ErrorRateCritical > 0 &&
		cfg.Alerts.ErrorRateWarn >= cfg.Alerts.ErrorRateCritical {
		errs = append(errs, errors.New("alerts.error_rate_warn must be less than alerts.error_rate_critical"))
	}
	if cfg.Alerts.ConfidenceWarn > 0 && cfg.Alerts.ConfidenceCritical > 0 &&
		cfg.Alerts.ConfidenceWarn <= cfg.Alerts.ConfidenceCritical {
		errs = append(errs, errors.New("alerts.confidence_warn must be greater than alerts.confidence_critical (lower confidence is worse)"))
	}

	return errors.Join(errs...)
}
