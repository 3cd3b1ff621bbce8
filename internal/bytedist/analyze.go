/*
Package bytedist computes summary statistics of the byte-value distribution
of a buffer: the Shannon entropy of the empirical distribution (in bits) and
the standard deviation of the byte values treated as numeric samples.

The two numbers are a cheap signal for classifying content. Compressed or
encrypted data sits close to 8 bits of entropy with a standard deviation near
that of a uniform distribution over [0, 255] (about 73.9), while text and
structured formats score much lower on both.
*/
package bytedist

import (
	"errors"
	"fmt"
	"math"
)

const (
	// NumSymbols is the size of the byte alphabet.
	NumSymbols = 256

	// MaxEntropy is the entropy of a uniform distribution over all byte values.
	MaxEntropy = 8.0

	// MaxStdDev is the largest possible standard deviation of byte values,
	// reached when half the bytes are 0x00 and half are 0xFF.
	MaxStdDev = 127.5
)

var (
	ErrNegativeLength      = errors.New("negative length")
	ErrLengthExceedsBuffer = errors.New("length exceeds buffer size")
)

// AnalysisResult holds the statistics computed for a single buffer.
// The field order is fixed: Entropy first, then StdDev.
type AnalysisResult struct {
	// Entropy is the Shannon entropy of the byte distribution, in bits.
	// It lies in [0, MaxEntropy].
	Entropy float64

	// StdDev is the population standard deviation of the byte values.
	// It lies in [0, MaxStdDev].
	StdDev float64
}

func (r AnalysisResult) String() string {
	return fmt.Sprintf("entropy: %.6f, std_dev: %.6f", r.Entropy, r.StdDev)
}

// Histogram counts the occurrences of each byte value.
type Histogram [NumSymbols]uint64

// Count builds the Histogram of data.
func Count(data []byte) Histogram {
	var h Histogram
	for _, b := range data {
		h[b]++
	}
	return h
}

// Total returns the number of bytes counted by h.
func (h *Histogram) Total() uint64 {
	var n uint64
	for _, c := range h {
		n += c
	}
	return n
}

// Distinct returns the number of byte values with a nonzero count.
func (h *Histogram) Distinct() int {
	n := 0
	for _, c := range h {
		if c > 0 {
			n++
		}
	}
	return n
}

// Analyze computes the entropy and standard deviation of the byte values in data.
// An empty buffer yields a zero result.
func Analyze(data []byte) AnalysisResult {
	if len(data) == 0 {
		return AnalysisResult{}
	}
	h := Count(data)
	return FromHistogram(&h)
}

/*
AnalyzeN analyzes the first length bytes of data.

It is the checked form of Analyze for callers that carry a buffer and a length
separately. A negative length, or a length larger than len(data), is rejected
with ErrNegativeLength or ErrLengthExceedsBuffer respectively.
*/
func AnalyzeN(data []byte, length int) (AnalysisResult, error) {
	if length < 0 {
		return AnalysisResult{}, fmt.Errorf("%w: %d", ErrNegativeLength, length)
	}
	if length > len(data) {
		return AnalysisResult{}, fmt.Errorf("%w: length %d, buffer %d", ErrLengthExceedsBuffer, length, len(data))
	}
	return Analyze(data[:length]), nil
}

/*
FromHistogram computes the statistics of the distribution described by h.

Entropy is computed as

	H = - sum(v in 0..255, c(v) > 0) { p(v) * log2(p(v)) },  p(v) = c(v) / n

where c(v) is the count of byte value v and n is the total count.

The variance is the population variance, computed around the mean over the
256 buckets rather than from the sum of squares, so it cannot go negative
through cancellation. It is still clamped to [0, MaxStdDev^2].
*/
func FromHistogram(h *Histogram) AnalysisResult {
	n := h.Total()
	if n == 0 {
		return AnalysisResult{}
	}
	total := float64(n)

	entropy := 0.0
	sum := 0.0
	for v, c := range h {
		if c == 0 {
			continue
		}
		count := float64(c)
		p := count / total
		entropy -= p * math.Log2(p)
		sum += float64(v) * count
	}
	mean := sum / total

	sqDev := 0.0
	for v, c := range h {
		if c == 0 {
			continue
		}
		d := float64(v) - mean
		sqDev += d * d * float64(c)
	}
	variance := sqDev / total

	return AnalysisResult{
		Entropy: clamp(entropy, 0, MaxEntropy),
		StdDev:  clamp(math.Sqrt(clamp(variance, 0, MaxStdDev*MaxStdDev)), 0, MaxStdDev),
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
