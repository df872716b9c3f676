package repository

import "time"

// IsValidTimeframe reports whether tf is one of the supported bar widths.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF5m, TF15m, TF1h, TF1d:
		return true
	default:
		return false
	}
}

// DefaultTimeframe is the width used when a caller does not name one.
func DefaultTimeframe() Timeframe { return TF1d }

// NormalizeTimeframe maps a raw string onto a supported timeframe, falling
// back to the default for anything unknown.
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	if tf := Timeframe(s); IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Duration returns the bucket width of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// Align truncates t to the start of its bucket. Daily bars align to UTC
// midnight regardless of the zone t carries.
func (tf Timeframe) Align(t time.Time) time.Time {
	if tf == TF1d {
		return t.UTC().Truncate(24 * time.Hour)
	}
	return t.Truncate(tf.Duration())
}
