package config

// ConfigDiff describes what changed between two configs. Only fields that can be
// safely hot-reloaded are tracked; provider or deck changes need a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// TutorTimingChanged is true when any lecture timing knob changed.
	// Timing is captured at construction, so applying it needs a restart.
	TutorTimingChanged bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Tutor.AdvanceDelay != new.Tutor.AdvanceDelay ||
		old.Tutor.GraceDelay != new.Tutor.GraceDelay ||
		old.Tutor.OverlayCloseDelay != new.Tutor.OverlayCloseDelay ||
		old.Tutor.CollaboratorTimeout != new.Tutor.CollaboratorTimeout ||
		old.Tutor.ToolCallTimeout != new.Tutor.ToolCallTimeout ||
		old.Tutor.VADThreshold != new.Tutor.VADThreshold ||
		old.Tutor.VADDebounce != new.Tutor.VADDebounce {
		d.TutorTimingChanged = true
	}

	return d
}
