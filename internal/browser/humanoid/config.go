// internal/browser/humanoid/config.go
package humanoid

import "time"

// Config holds the parameters of a drag.
type Config struct {
	// Steps is the number of interpolated positions for each move.
	Steps int `json:"steps" yaml:"steps"`
	// SettlePause is waited after the advancing move, before the piece is re-measured.
	SettlePause time.Duration `json:"settle_pause" yaml:"settle_pause"`
	// StepInterval is waited between interpolated positions.
	StepInterval time.Duration `json:"step_interval" yaml:"step_interval"`
	// VerticalBias places the corrected move at top + height*VerticalBias of the handle.
	VerticalBias float64 `json:"vertical_bias" yaml:"vertical_bias"`
	// ReleaseTimeout bounds the cleanup release issued after a failure.
	ReleaseTimeout time.Duration `json:"release_timeout" yaml:"release_timeout"`
}

// DefaultConfig returns the parameters the widget was tuned against.
func DefaultConfig() Config {
	return Config{
		Steps:          25,
		SettlePause:    100 * time.Millisecond,
		StepInterval:   0,
		VerticalBias:   1.0 / 3.0,
		ReleaseTimeout: 5 * time.Second,
	}
}

// normalized fills zero values with defaults.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Steps <= 0 {
		c.Steps = d.Steps
	}
	if c.SettlePause < 0 {
		c.SettlePause = 0
	}
	if c.VerticalBias <= 0 || c.VerticalBias > 1 {
		c.VerticalBias = d.VerticalBias
	}
	if c.ReleaseTimeout <= 0 {
		c.ReleaseTimeout = d.ReleaseTimeout
	}
	return c
}
