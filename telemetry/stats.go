package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// FitnessSpread describes the fitness distribution of one generation.
type FitnessSpread struct {
	Mean float64
	Std  float64
	P10  float64
	P50  float64
	P90  float64
}

// ComputeFitnessSpread calculates mean, sample std and percentiles.
func ComputeFitnessSpread(values []float64) FitnessSpread {
	n := len(values)
	if n == 0 {
		return FitnessSpread{}
	}

	var spread FitnessSpread
	if n == 1 {
		spread.Mean = values[0]
	} else {
		spread.Mean, spread.Std = stat.MeanStdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	spread.P10 = Percentile(sorted, 0.10)
	spread.P50 = Percentile(sorted, 0.50)
	spread.P90 = Percentile(sorted, 0.90)
	return spread
}

// LogValue implements slog.LogValuer for structured logging.
func (s FitnessSpread) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("mean", s.Mean),
		slog.Float64("std", s.Std),
		slog.Float64("p10", s.P10),
		slog.Float64("p50", s.P50),
		slog.Float64("p90", s.P90),
	)
}
