package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/slidestream/sessioncore/internal/config"
)

func validYAML() string {
	return `
backend:
  base_url: "https://lms.example.com"
recognizer:
  credentials_path: "/etc/sessioncore/gcp.json"
  project_id: "my-project"
`
}

func TestLoadFromReader_AppliesDefaultsForUnsetFields(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML()))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.Recognizer.DefaultLanguage != "en-US" {
		t.Errorf("Recognizer.DefaultLanguage = %q, want en-US default", cfg.Recognizer.DefaultLanguage)
	}
	if cfg.Session.RenewThreshold != 270*time.Second {
		t.Errorf("Session.RenewThreshold = %v, want 270s default", cfg.Session.RenewThreshold)
	}
	if cfg.SlideMatch.TitleBoost != 2.0 {
		t.Errorf("SlideMatch.TitleBoost = %v, want 2.0 default", cfg.SlideMatch.TitleBoost)
	}
}

func TestLoadFromReader_FileValuesOverrideDefaults(t *testing.T) {
	t.Parallel()
	yaml := validYAML() + `
slidematch:
  title_boost: 3.5
session:
  renew_threshold: 200s
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.SlideMatch.TitleBoost != 3.5 {
		t.Errorf("SlideMatch.TitleBoost = %v, want 3.5", cfg.SlideMatch.TitleBoost)
	}
	if cfg.Session.RenewThreshold != 200*time.Second {
		t.Errorf("Session.RenewThreshold = %v, want 200s", cfg.Session.RenewThreshold)
	}
}

func TestLoadFromReader_UnknownKeysAreIgnored(t *testing.T) {
	t.Parallel()
	yaml := validYAML() + `
some_future_section:
  some_future_field: true
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("LoadFromReader() with unknown keys should not error, got %v", err)
	}
}

func TestLoadFromReader_MissingBaseURLFails(t *testing.T) {
	t.Parallel()
	yaml := `
recognizer:
  credentials_path: "/etc/sessioncore/gcp.json"
  project_id: "my-project"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing backend.base_url, got nil")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("error should mention base_url, got: %v", err)
	}
}

func TestLoadFromReader_MissingRecognizerFieldsFails(t *testing.T) {
	t.Parallel()
	yaml := `
backend:
  base_url: "https://lms.example.com"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing recognizer fields, got nil")
	}
	if !strings.Contains(err.Error(), "credentials_path") || !strings.Contains(err.Error(), "project_id") {
		t.Errorf("error should mention both missing fields, got: %v", err)
	}
}

func TestLoadFromReader_SwitchMultiplierBelowOneFails(t *testing.T) {
	t.Parallel()
	yaml := validYAML() + `
slidematch:
  switch_multiplier: 0.9
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for switch_multiplier < 1, got nil")
	}
	if !strings.Contains(err.Error(), "switch_multiplier") {
		t.Errorf("error should mention switch_multiplier, got: %v", err)
	}
}

func TestLoadFromReader_InvertedAlertThresholdsFails(t *testing.T) {
	t.Parallel()
	yaml := validYAML() + `
alerts:
  latency_p95_warn_ms: 1500
  latency_p95_critical_ms: 800
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for inverted latency thresholds, got nil")
	}
	if !strings.Contains(err.Error(), "latency_p95") {
		t.Errorf("error should mention latency_p95, got: %v", err)
	}
}

func TestLoadFromReader_EnvOverridesFileValue(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://override.example.com")
	t.Setenv("RECOGNIZER_DEFAULT_MODEL", "short")

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML()))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.Backend.BaseURL != "https://override.example.com" {
		t.Errorf("Backend.BaseURL = %q, want env override", cfg.Backend.BaseURL)
	}
	if cfg.Recognizer.DefaultModel != "short" {
		t.Errorf("Recognizer.DefaultModel = %q, want env override", cfg.Recognizer.DefaultModel)
	}
}

func TestLoad_OpenErrorIsWrapped(t *testing.T) {
	t.Parallel()
	_, err := config.Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent config path, got nil")
	}
}
