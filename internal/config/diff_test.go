package config_test

import (
	"testing"

	"github.com/slidestream/sessioncore/internal/config"
)

func TestDiffConfigs_NoChange(t *testing.T) {
	t.Parallel()
	base := config.Default()
	d := config.DiffConfigs(base, config.Default())
	if d.SlideMatchChanged || d.AlertsChanged {
		t.Errorf("DiffConfigs() = %+v, want no changes for two identical defaults", d)
	}
}

func TestDiffConfigs_DetectsSlideMatchChange(t *testing.T) {
	t.Parallel()
	old := config.Default()
	new := config.Default()
	new.SlideMatch.TitleBoost = 5.0

	d := config.DiffConfigs(old, new)
	if !d.SlideMatchChanged {
		t.Error("SlideMatchChanged = false, want true")
	}
	if d.NewSlideMatch.TitleBoost != 5.0 {
		t.Errorf("NewSlideMatch.TitleBoost = %v, want 5.0", d.NewSlideMatch.TitleBoost)
	}
	if d.AlertsChanged {
		t.Error("AlertsChanged = true, want false")
	}
}

func TestDiffConfigs_DetectsAlertsChange(t *testing.T) {
	t.Parallel()
	old := config.Default()
	new := config.Default()
	new.Alerts.ConfidenceWarn = 0.9

	d := config.DiffConfigs(old, new)
	if !d.AlertsChanged {
		t.Error("AlertsChanged = false, want true")
	}
	if d.SlideMatchChanged {
		t.Error("SlideMatchChanged = true, want false")
	}
}
