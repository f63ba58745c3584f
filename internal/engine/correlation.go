package engine

import (
	"errors"
	"math"

	"github.com/KaramelBytes/stockcorr-cli/internal/series"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Reason explains why a correlation is undefined.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoOverlap         Reason = "no_overlap"
	ReasonInsufficientPairs Reason = "insufficient_pairs"
	ReasonZeroVariance      Reason = "zero_variance"
)

// Corr is a Pearson coefficient over the complete pairs of two columns.
// R is NaN whenever Defined is false.
type Corr struct {
	X, Y    string
	R       float64
	Pairs   int
	Defined bool
	Reason  Reason
}

// Format renders R with two decimals, or "undefined".
func (c Corr) Format() string {
	if !c.Defined {
		return "undefined"
	}
	return decimal.NewFromFloat(c.R).StringFixed(2)
}

var errNilTable = errors.New("nil table")

// Correlation computes Pearson's r between columns x and y using only rows
// where both values are present. Too few pairs or a constant column yield an
// undefined result rather than an error; unknown columns are an error.
func Correlation(t *series.Table, x, y string) (Corr, error) {
	res := Corr{X: x, Y: y, R: math.NaN()}
	xs, ys, err := completePairs(t, x, y)
	if err != nil {
		return res, err
	}
	res.Pairs = len(xs)
	switch {
	case t.Len() == 0:
		res.Reason = ReasonNoOverlap
		return res, nil
	case len(xs) < 2:
		res.Reason = ReasonInsufficientPairs
		return res, nil
	case constant(xs) || constant(ys):
		res.Reason = ReasonZeroVariance
		return res, nil
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		res.Reason = ReasonZeroVariance
		return res, nil
	}
	res.R = math.Max(-1, math.Min(1, r))
	res.Defined = true
	return res, nil
}

// completePairs returns the values of x and y for rows where both are present,
// in row order.
func completePairs(t *series.Table, x, y string) ([]float64, []float64, error) {
	if t == nil {
		return nil, nil, errNilTable
	}
	xv, ok := t.Values(x)
	if !ok {
		return nil, nil, &ColumnError{Table: t.Name(), Column: x}
	}
	yv, ok := t.Values(y)
	if !ok {
		return nil, nil, &ColumnError{Table: t.Name(), Column: y}
	}
	xs := make([]float64, 0, len(xv))
	ys := make([]float64, 0, len(yv))
	for i := range xv {
		if math.IsNaN(xv[i]) || math.IsNaN(yv[i]) {
			continue
		}
		xs = append(xs, xv[i])
		ys = append(ys, yv[i])
	}
	return xs, ys, nil
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
