package bytedist

import (
	"errors"
	"fmt"
	"math"
)

// Default acceptance thresholds. Content with less entropy, or with a byte
// spread outside the standard deviation range, is rejected.
const (
	DefaultMinEntropy = 7.0
	DefaultMinStdDev  = 40.0
	DefaultMaxStdDev  = 90.0
)

var ErrInvalidCriteria = errors.New("invalid criteria")

// Rule names a single check made by Criteria.Classify.
type Rule string

const (
	EntropyBelowMin Rule = "entropy_below_min"
	StdDevBelowMin  Rule = "std_dev_below_min"
	StdDevAboveMax  Rule = "std_dev_above_max"
)

// Criteria are the thresholds applied to an AnalysisResult to decide whether
// content is accepted. A zero threshold disables the corresponding rule.
type Criteria struct {
	MinEntropy float64 `yaml:"min_entropy" json:"min_entropy"`
	MinStdDev  float64 `yaml:"min_std_dev" json:"min_std_dev"`
	MaxStdDev  float64 `yaml:"max_std_dev" json:"max_std_dev"`
}

func DefaultCriteria() Criteria {
	return Criteria{
		MinEntropy: DefaultMinEntropy,
		MinStdDev:  DefaultMinStdDev,
		MaxStdDev:  DefaultMaxStdDev,
	}
}

// Validate checks that every threshold is a finite value inside the range
// the statistics can take, and that the standard deviation range is not empty.
func (c Criteria) Validate() error {
	checks := []struct {
		name  string
		value float64
		max   float64
	}{
		{"min_entropy", c.MinEntropy, MaxEntropy},
		{"min_std_dev", c.MinStdDev, MaxStdDev},
		{"max_std_dev", c.MaxStdDev, MaxStdDev},
	}
	for _, check := range checks {
		if math.IsNaN(check.value) || check.value < 0 || check.value > check.max {
			return fmt.Errorf("%w: %s = %v, must be in [0, %v]", ErrInvalidCriteria, check.name, check.value, check.max)
		}
	}
	if c.MaxStdDev != 0 && c.MinStdDev > c.MaxStdDev {
		return fmt.Errorf("%w: min_std_dev %v is larger than max_std_dev %v", ErrInvalidCriteria, c.MinStdDev, c.MaxStdDev)
	}
	return nil
}

// Verdict is the outcome of classifying an AnalysisResult.
type Verdict struct {
	Accepted bool
	// Violations lists the rules that failed, in a fixed order.
	Violations []Rule
}

func (v Verdict) String() string {
	if v.Accepted {
		return "accepted"
	}
	return fmt.Sprintf("rejected %v", v.Violations)
}

// Classify applies the criteria to r.
func (c Criteria) Classify(r AnalysisResult) Verdict {
	var violations []Rule
	if c.MinEntropy > 0 && r.Entropy < c.MinEntropy {
		violations = append(violations, EntropyBelowMin)
	}
	if c.MinStdDev > 0 && r.StdDev < c.MinStdDev {
		violations = append(violations, StdDevBelowMin)
	}
	if c.MaxStdDev > 0 && r.StdDev > c.MaxStdDev {
		violations = append(violations, StdDevAboveMax)
	}
	return Verdict{
		Accepted:   len(violations) == 0,
		Violations: violations,
	}
}
