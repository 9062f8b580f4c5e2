package similarity

import "fmt"

const (
	// DefaultThreshold is the score a candidate must exceed to match.
	DefaultThreshold = 0.6
	// DefaultStrongBand is the lowest score labelled strong.
	DefaultStrongBand = 0.9
	// DefaultMediumBand is the lowest score labelled medium.
	DefaultMediumBand = 0.8
	// DefaultDimension is the embedding length produced by the diarization pipeline.
	DefaultDimension = 192
	// DefaultMaxCandidates is how many ranked candidates suggestions carry.
	DefaultMaxCandidates = 3
)

// Config holds matching thresholds. Loaded from the "matching" config key.
type Config struct {
	Threshold     float64 `mapstructure:"threshold" json:"threshold"`
	StrongBand    float64 `mapstructure:"strong_band" json:"strong_band"`
	MediumBand    float64 `mapstructure:"medium_band" json:"medium_band"`
	Dimension     int     `mapstructure:"dimension" json:"dimension"`
	MaxCandidates int     `mapstructure:"max_candidates" json:"max_candidates"`
}

// ApplyDefaults fills zero values with the package defaults. A zero
// threshold means unset; Validate only accepts thresholds in (0, 1).
func (c *Config) ApplyDefaults() {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.StrongBand == 0 {
		c.StrongBand = DefaultStrongBand
	}
	if c.MediumBand == 0 {
		c.MediumBand = DefaultMediumBand
	}
	if c.Dimension == 0 {
		c.Dimension = DefaultDimension
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = DefaultMaxCandidates
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("matching: threshold must be in (0, 1), got %v", c.Threshold)
	}
	if c.MediumBand > c.StrongBand {
		return fmt.Errorf("matching: medium_band (%v) must not exceed strong_band (%v)", c.MediumBand, c.StrongBand)
	}
	if c.StrongBand > 1 {
		return fmt.Errorf("matching: strong_band must be <= 1, got %v", c.StrongBand)
	}
	if c.Dimension < 1 {
		return fmt.Errorf("matching: dimension must be positive, got %d", c.Dimension)
	}
	if c.MaxCandidates < 1 {
		return fmt.Errorf("matching: max_candidates must be positive, got %d", c.MaxCandidates)
	}
	return nil
}
