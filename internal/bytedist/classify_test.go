package bytedist

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		result   AnalysisResult
		want     Verdict
	}{
		{
			name:     "accepted",
			criteria: DefaultCriteria(),
			result:   AnalysisResult{Entropy: 7.9, StdDev: 73.9},
			want:     Verdict{Accepted: true},
		},
		{
			name:     "boundaries are inclusive",
			criteria: DefaultCriteria(),
			result:   AnalysisResult{Entropy: DefaultMinEntropy, StdDev: DefaultMaxStdDev},
			want:     Verdict{Accepted: true},
		},
		{
			name:     "low entropy",
			criteria: DefaultCriteria(),
			result:   AnalysisResult{Entropy: 4.5, StdDev: 60},
			want:     Verdict{Violations: []Rule{EntropyBelowMin}},
		},
		{
			name:     "text",
			criteria: DefaultCriteria(),
			result:   AnalysisResult{Entropy: 4.2, StdDev: 25},
			want:     Verdict{Violations: []Rule{EntropyBelowMin, StdDevBelowMin}},
		},
		{
			name:     "spread too wide",
			criteria: DefaultCriteria(),
			result:   AnalysisResult{Entropy: 7.5, StdDev: 120},
			want:     Verdict{Violations: []Rule{StdDevAboveMax}},
		},
		{
			name:     "empty criteria accepts everything",
			criteria: Criteria{},
			result:   AnalysisResult{},
			want:     Verdict{Accepted: true},
		},
		{
			name:     "no upper bound",
			criteria: Criteria{MinEntropy: 1, MinStdDev: 10},
			result:   AnalysisResult{Entropy: 1, StdDev: MaxStdDev},
			want:     Verdict{Accepted: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.criteria.Classify(tt.result)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyAnalyzed(t *testing.T) {
	c := DefaultCriteria()
	if v := c.Classify(Analyze(allByteValues())); !v.Accepted {
		t.Errorf("uniform data rejected: %v", v)
	}
	if v := c.Classify(Analyze([]byte("plain old ascii text, nothing to see here"))); v.Accepted {
		t.Errorf("text accepted: %v", v)
	}
}

func TestCriteriaValidate(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		wantErr  bool
	}{
		{"default", DefaultCriteria(), false},
		{"zero", Criteria{}, false},
		{"negative entropy", Criteria{MinEntropy: -1}, true},
		{"entropy too large", Criteria{MinEntropy: 8.5}, true},
		{"nan", Criteria{MinStdDev: math.NaN()}, true},
		{"std dev too large", Criteria{MaxStdDev: 200}, true},
		{"empty range", Criteria{MinStdDev: 80, MaxStdDev: 40}, true},
		{"min only", Criteria{MinStdDev: 80}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCriteria) {
				t.Errorf("Validate() error = %v, want wrapping %v", err, ErrInvalidCriteria)
			}
		})
	}
}
