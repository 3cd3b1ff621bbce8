package bytedist

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ossf/byte-analysis/internal/utils"
)

func allByteValues() []byte {
	data := make([]byte, NumSymbols)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func alternating(a, b byte, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		if i%2 == 0 {
			data[i] = a
		} else {
			data[i] = b
		}
	}
	return data
}

func TestAnalyze(t *testing.T) {
	tolerance := 1e-9
	tests := []struct {
		name        string
		data        []byte
		wantEntropy float64
		wantStdDev  float64
	}{
		{
			name:        "nil",
			data:        nil,
			wantEntropy: 0,
			wantStdDev:  0,
		},
		{
			name:        "empty",
			data:        []byte{},
			wantEntropy: 0,
			wantStdDev:  0,
		},
		{
			name:        "single byte",
			data:        []byte{0x7f},
			wantEntropy: 0,
			wantStdDev:  0,
		},
		{
			name:        "repeated byte",
			data:        bytes.Repeat([]byte{0x41}, 100),
			wantEntropy: 0,
			wantStdDev:  0,
		},
		{
			name:        "uniform",
			data:        allByteValues(),
			wantEntropy: 8,
			wantStdDev:  math.Sqrt((256*256 - 1) / 12.0),
		},
		{
			name:        "alternating extremes",
			data:        alternating(0x00, 0xff, 1000),
			wantEntropy: 1,
			wantStdDev:  MaxStdDev,
		},
		{
			name:        "alternating neighbours",
			data:        alternating('a', 'b', 64),
			wantEntropy: 1,
			wantStdDev:  0.5,
		},
		{
			name:        "four symbols",
			data:        []byte("abcdabcdabcdabcd"),
			wantEntropy: 2,
			wantStdDev:  math.Sqrt(1.25),
		},
		{
			name:        "skewed",
			data:        []byte("aaab"),
			wantEntropy: -0.75*math.Log2(0.75) - 0.25*math.Log2(0.25),
			wantStdDev:  math.Sqrt(0.1875),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.data)
			if !utils.FloatEquals(tt.wantEntropy, got.Entropy, tolerance) {
				t.Errorf("Analyze() entropy = %f, want %f", got.Entropy, tt.wantEntropy)
			}
			if !utils.FloatEquals(tt.wantStdDev, got.StdDev, tolerance) {
				t.Errorf("Analyze() std dev = %f, want %f", got.StdDev, tt.wantStdDev)
			}
		})
	}
}

func TestAnalyzeRepeatedByteIsExact(t *testing.T) {
	for _, b := range []byte{0x00, 0x41, 0xff} {
		got := Analyze(bytes.Repeat([]byte{b}, 100))
		if got.Entropy != 0 || got.StdDev != 0 {
			t.Errorf("Analyze(100 x %#x) = %v, want exactly zero", b, got)
		}
		if math.Signbit(got.Entropy) || math.Signbit(got.StdDev) {
			t.Errorf("Analyze(100 x %#x) = %v, want positive zero", b, got)
		}
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, 1<<16)
	rng.Read(data)

	first := Analyze(data)
	second := Analyze(data)
	if math.Float64bits(first.Entropy) != math.Float64bits(second.Entropy) ||
		math.Float64bits(first.StdDev) != math.Float64bits(second.StdDev) {
		t.Errorf("Analyze() not deterministic: %v != %v", first, second)
	}
}

func TestAnalyzeDoesNotModifyInput(t *testing.T) {
	data := []byte("the quick brown fox")
	orig := bytes.Clone(data)
	Analyze(data)
	if !bytes.Equal(data, orig) {
		t.Errorf("Analyze() modified input: %q, want %q", data, orig)
	}
}

func TestAnalyzeBounds(t *testing.T) {
	const eps = 1e-9
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		n := rng.Intn(4096)
		data := make([]byte, n)
		switch i % 4 {
		case 0:
			rng.Read(data)
		case 1:
			// few symbols
			for j := range data {
				data[j] = byte(rng.Intn(3))
			}
		case 2:
			// extremes
			for j := range data {
				data[j] = byte(rng.Intn(2) * 0xff)
			}
		case 3:
			// near constant
			for j := range data {
				data[j] = 0xfe
			}
			if n > 0 {
				data[rng.Intn(n)] = 0xff
			}
		}

		got := Analyze(data)
		if got.Entropy < 0 || got.Entropy > MaxEntropy+eps {
			t.Errorf("case %d (len %d): entropy %f out of bounds", i, n, got.Entropy)
		}
		if got.StdDev < 0 || got.StdDev > MaxStdDev+eps {
			t.Errorf("case %d (len %d): std dev %f out of bounds", i, n, got.StdDev)
		}
		if math.IsNaN(got.Entropy) || math.IsNaN(got.StdDev) || math.IsInf(got.Entropy, 0) || math.IsInf(got.StdDev, 0) {
			t.Errorf("case %d (len %d): non-finite result %v", i, n, got)
		}
	}
}

func TestAnalyzeMatchesSumOfSquares(t *testing.T) {
	tolerance := 1e-9
	rng := rand.New(rand.NewSource(7))
	data := make([]byte, 10000)
	rng.Read(data)

	sum, sqSum := 0.0, 0.0
	for _, b := range data {
		v := float64(b)
		sum += v
		sqSum += v * v
	}
	n := float64(len(data))
	mean := sum / n
	variance := sqSum/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	got := Analyze(data)
	if !utils.FloatEquals(math.Sqrt(variance), got.StdDev, tolerance) {
		t.Errorf("Analyze() std dev = %f, want %f", got.StdDev, math.Sqrt(variance))
	}
}

func TestAnalyzeN(t *testing.T) {
	data := []byte("aabbccdd")
	tests := []struct {
		name    string
		length  int
		want    AnalysisResult
		wantErr error
	}{
		{
			name:   "zero length",
			length: 0,
			want:   AnalysisResult{},
		},
		{
			name:   "prefix",
			length: 2,
			want:   AnalysisResult{},
		},
		{
			name:   "full",
			length: len(data),
			want:   Analyze(data),
		},
		{
			name:    "negative",
			length:  -1,
			wantErr: ErrNegativeLength,
		},
		{
			name:    "too long",
			length:  len(data) + 1,
			wantErr: ErrLengthExceedsBuffer,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AnalyzeN(data, tt.length)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AnalyzeN() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("AnalyzeN() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHistogram(t *testing.T) {
	h := Count([]byte("hello"))
	if got := h.Total(); got != 5 {
		t.Errorf("Total() = %d, want 5", got)
	}
	if got := h.Distinct(); got != 4 {
		t.Errorf("Distinct() = %d, want 4", got)
	}
	if h['l'] != 2 {
		t.Errorf("count of 'l' = %d, want 2", h['l'])
	}

	var empty Histogram
	if got := FromHistogram(&empty); got != (AnalysisResult{}) {
		t.Errorf("FromHistogram(empty) = %v, want zero", got)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	data := make([]byte, 1<<20)
	rand.New(rand.NewSource(0)).Read(data)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Analyze(data)
	}
}
