package valuecounts

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// ValueCounts stores unordered counts of integer values. It is used to report
// sparse distributions, such as the nonzero buckets of a byte histogram, and
// serialises to JSON as an array of (value, count) pairs.
type ValueCounts struct {
	data map[int]int
}

// Pair stores a single value and associated count pair
type Pair struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// New creates a new empty ValueCounts object
func New() ValueCounts {
	return ValueCounts{
		data: map[int]int{},
	}
}

// FromMap creates a new ValueCounts object and initialises its counts from the given map.
// Values with a zero count are dropped.
func FromMap(data map[int]int) ValueCounts {
	vc := New()
	for value, count := range data {
		if count != 0 {
			vc.data[value] = count
		}
	}
	return vc
}

// Count produces a new ValueCounts by counting repetitions of values in the input data
func Count(data []int) ValueCounts {
	vc := New()
	for _, value := range data {
		vc.data[value] += 1
	}
	return vc
}

// Get returns the count stored for value, or 0 if it is absent.
func (vc ValueCounts) Get(value int) int {
	return vc.data[value]
}

// Len returns the number of distinct values stored by this ValueCounts.
func (vc ValueCounts) Len() int {
	return len(vc.data)
}

// Total returns the sum of all counts.
func (vc ValueCounts) Total() int {
	total := 0
	for _, count := range vc.data {
		total += count
	}
	return total
}

func (vc ValueCounts) String() string {
	pairStrings := make([]string, 0, len(vc.data))
	for _, pair := range vc.ToPairs() {
		pairStrings = append(pairStrings, fmt.Sprintf("%d: %d", pair.Value, pair.Count))
	}
	return "[" + strings.Join(pairStrings, ", ") + "]"
}

// ToPairs converts this ValueCounts into a list of (value, count) pairs.
// The values are sorted in increasing order so that the output is deterministic.
// If this ValueCounts is empty, returns an empty slice.
func (vc ValueCounts) ToPairs() []Pair {
	pairs := make([]Pair, 0, len(vc.data))
	for value, count := range vc.data {
		pairs = append(pairs, Pair{Value: value, Count: count})
	}

	slices.SortFunc(pairs, func(a, b Pair) int {
		return cmp.Compare(a.Value, b.Value)
	})

	return pairs
}

// FromPairs converts a list of (value, count) pairs back into ValueCounts.
// If the same value occurs multiple times in the list, an error is raised.
func FromPairs(pairs []Pair) (ValueCounts, error) {
	valueCounts := New()

	for _, item := range pairs {
		if _, seen := valueCounts.data[item.Value]; seen {
			return ValueCounts{}, fmt.Errorf("value occurs multiple times: %d", item.Value)
		}
		valueCounts.data[item.Value] = item.Count
	}

	return valueCounts, nil
}

// MarshalJSON serialises this ValueCounts into a JSON array of {value, count} pairs.
func (vc ValueCounts) MarshalJSON() ([]byte, error) {
	return json.Marshal(vc.ToPairs())
}

/*
UnmarshalJSON converts a JSON-serialised ValueCounts object, serialised
using MarshalJSON, back into a Go object. Existing counts are discarded.

If any value occurs more than once in the array, an error is returned and
vc is not modified.
*/
func (vc *ValueCounts) UnmarshalJSON(data []byte) error {
	var pairs []Pair

	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}

	valueCounts, err := FromPairs(pairs)
	if err != nil {
		return err
	}

	*vc = valueCounts
	return nil
}
