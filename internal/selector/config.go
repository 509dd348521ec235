package selector

import "fmt"

// Strategy chooses how candidates are scored.
type Strategy string

const (
	// StrategyMaxInfo ranks purely by Fisher information at the current θ̂.
	StrategyMaxInfo Strategy = "max_info"

	// StrategyOwen blends normalized information with a content balance score.
	StrategyOwen Strategy = "owen"
)

// Config holds selector tuning. Zero-value fields are not defaulted; start
// from DefaultConfig.
type Config struct {
	Strategy        Strategy `yaml:"strategy" env:"STRATEGY"`
	InfoWeight      float64  `yaml:"info_weight" env:"INFO_WEIGHT"`
	BalanceWeight   float64  `yaml:"balance_weight" env:"BALANCE_WEIGHT"`
	ExposureCeiling float64  `yaml:"exposure_ceiling" env:"EXPOSURE_CEILING"`
	TopK            int      `yaml:"top_k" env:"TOP_K"`
}

// DefaultConfig returns the standard selector configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:        StrategyMaxInfo,
		InfoWeight:      0.7,
		BalanceWeight:   0.3,
		ExposureCeiling: 0.30,
		TopK:            3,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyMaxInfo, StrategyOwen:
	default:
		return fmt.Errorf("unknown selection strategy %q", c.Strategy)
	}
	if c.InfoWeight < 0 || c.BalanceWeight < 0 {
		return fmt.Errorf("selection weights must be non-negative")
	}
	if c.Strategy == StrategyOwen && c.InfoWeight+c.BalanceWeight == 0 {
		return fmt.Errorf("owen strategy needs a positive weight")
	}
	if !(c.ExposureCeiling > 0 && c.ExposureCeiling <= 1) {
		return fmt.Errorf("exposure ceiling must be in (0, 1], got %v", c.ExposureCeiling)
	}
	if c.TopK < 1 {
		return fmt.Errorf("top k must be >= 1, got %d", c.TopK)
	}
	return nil
}
