package config

// Diff describes what changed between two configs. Only the knobs that are
// safe to apply without restarting a session — slide-matcher weights and
// alert thresholds — are tracked; backend and recognizer settings require a
// process restart since they're read once when constructing long-lived
// collaborators.
type Diff struct {
	SlideMatchChanged bool
	NewSlideMatch     SlideMatchConfig
	AlertsChanged     bool
	NewAlerts         AlertsConfig
}

// DiffConfigs compares old and new and returns what changed.
func DiffConfigs(old, new *Config) Diff {
	d := Diff{}
	if old.SlideMatch != new.SlideMatch {
		d.SlideMatchChanged = true
		d.NewSlideMatch = new.SlideMatch
	}
	if old.Alerts != new.Alerts {
		d.AlertsChanged = true
		d.NewAlerts = new.Alerts
	}
	return d
}
