// Package formulas provides shared statistical helpers used by the scoring
// engines. All functions are pure and never mutate their inputs.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the population-style standard deviation used across the
// scoring engines. gonum's StdDev is sample-based (n-1); scoring thresholds
// were calibrated against it, so it is used as-is.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// CoefficientOfVariation returns stddev/|mean|. Returns 0 when the mean is
// zero (the ratio is undefined, and callers treat 0 as "not dispersed").
func CoefficientOfVariation(data []float64) float64 {
	m := Mean(data)
	if m == 0 {
		return 0
	}
	return StdDev(data) / math.Abs(m)
}

// SortedCopy returns an ascending-sorted copy of the input. Callers own
// their slices; scoring code must never sort in place (referential
// transparency).
func SortedCopy(data []float64) []float64 {
	out := make([]float64, len(data))
	copy(out, data)
	sort.Float64s(out)
	return out
}

// PercentileOfSorted returns sorted[floor(q*(n-1))] for q in [0,1].
// The input must already be sorted ascending and non-empty.
func PercentileOfSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(q * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// TrimmedMean returns the mean of the sample after removing fraction f of
// observations from each tail. When trimming would remove the whole sample
// it falls back to the plain median of the input.
func TrimmedMean(data []float64, f float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := SortedCopy(data)
	trim := int(math.Floor(f * float64(len(sorted))))
	lo, hi := trim, len(sorted)-trim
	if lo >= hi {
		return Median(data)
	}
	return Mean(sorted[lo:hi])
}

// Median returns the middle value (mean of the two middle values for even
// sample sizes).
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := SortedCopy(data)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
