package estimate

import "fmt"

// Config holds estimator settings.
type Config struct {
	Method Method `yaml:"method" env:"METHOD"`

	// MLE settings.
	MaxIterations int     `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	Tolerance     float64 `yaml:"tolerance" env:"TOLERANCE"`

	// Ability range. MLE clamps to it, EAP integrates over it.
	MinTheta float64 `yaml:"min_theta" env:"MIN_THETA"`
	MaxTheta float64 `yaml:"max_theta" env:"MAX_THETA"`

	// EAP settings.
	QuadraturePoints int     `yaml:"quadrature_points" env:"QUADRATURE_POINTS"`
	PriorMean        float64 `yaml:"prior_mean" env:"PRIOR_MEAN"`
	PriorSD          float64 `yaml:"prior_sd" env:"PRIOR_SD"`

	// DefaultSE is reported when the history carries no information.
	DefaultSE float64 `yaml:"default_se" env:"DEFAULT_SE"`
}

// DefaultConfig returns EAP with a 61-point grid over [-4, 4].
func DefaultConfig() Config {
	return Config{
		Method:           MethodEAP,
		MaxIterations:    50,
		Tolerance:        0.001,
		MinTheta:         -4,
		MaxTheta:         4,
		QuadraturePoints: 61,
		PriorMean:        0,
		PriorSD:          1,
		DefaultSE:        1,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Method != MethodMLE && c.Method != MethodEAP:
		return fmt.Errorf("estimation method must be %q or %q, got %q", MethodMLE, MethodEAP, c.Method)
	case c.MaxIterations < 1:
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	case c.Tolerance <= 0:
		return fmt.Errorf("tolerance must be positive, got %v", c.Tolerance)
	case c.MinTheta >= c.MaxTheta:
		return fmt.Errorf("ability range [%v, %v] is empty", c.MinTheta, c.MaxTheta)
	case c.QuadraturePoints < 2:
		return fmt.Errorf("quadrature needs at least 2 points, got %d", c.QuadraturePoints)
	case c.PriorSD <= 0:
		return fmt.Errorf("prior SD must be positive, got %v", c.PriorSD)
	case c.DefaultSE <= 0:
		return fmt.Errorf("default SE must be positive, got %v", c.DefaultSE)
	}
	return nil
}
