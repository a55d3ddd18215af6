package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// NarrationChanged is true when any narration setting differs.
	NarrationChanged bool

	// StoryboardChanged is true when language, temperature or aspect ratio differ.
	StoryboardChanged bool

	// ProvidersChanged is true when any provider entry differs. Provider
	// changes require a restart; the watcher only logs them.
	ProvidersChanged bool
}

// Any reports whether anything changed.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.NarrationChanged || d.StoryboardChanged || d.ProvidersChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.NarrationChanged = !reflect.DeepEqual(old.Narration, new.Narration)
	d.StoryboardChanged = !reflect.DeepEqual(old.Storyboard, new.Storyboard)
	d.ProvidersChanged = !reflect.DeepEqual(old.Providers, new.Providers)

	return d
}
