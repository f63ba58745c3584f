package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/stockcorr-cli/internal/series"
)

// ColumnSummary describes one merged column.
type ColumnSummary struct {
	Name    string
	NonNull int
	Missing int
	Min     float64
	Max     float64
	Mean    float64
	Std     float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
}

func summarize(t *series.Table, threshold float64) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(t.ColumnNames()))
	for _, name := range t.ColumnNames() {
		vals, _ := t.Values(name)
		present := make([]float64, 0, len(vals))
		for _, v := range vals {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		cs := ColumnSummary{Name: name, NonNull: len(present), Missing: len(vals) - len(present)}
		cs.Min, cs.Max, cs.Mean, cs.Std = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		if len(present) > 0 {
			cs.Min = floats.Min(present)
			cs.Max = floats.Max(present)
			cs.Mean = stat.Mean(present, nil)
		}
		if len(present) > 1 {
			cs.Std = stat.StdDev(present, nil)
		}
		if threshold > 0 && len(present) >= 3 {
			cs.OutlierThreshold = threshold
			cs.OutliersCount, cs.OutliersMaxAbsZ = robustOutliers(present, threshold)
		}
		out = append(out, cs)
	}
	return out
}

// robustOutliers counts values whose modified z-score 0.6745*(x-median)/MAD
// exceeds threshold.
func robustOutliers(vals []float64, threshold float64) (int, float64) {
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	count, maxZ := 0, 0.0
	for _, v := range vals {
		z := math.Abs(0.6745 * (v - median) / mad)
		if z > threshold {
			count++
		}
		maxZ = math.Max(maxZ, z)
	}
	return count, maxZ
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = stat.Quantile(0.5, stat.Empirical, cp, nil)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = stat.Quantile(0.5, stat.Empirical, dev, nil)
	return
}
