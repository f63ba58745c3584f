package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/stockcorr-cli/internal/series"
	"gonum.org/v1/gonum/stat"
)

// MinTrendPairs is the smallest number of complete pairs a line can be fitted to.
const MinTrendPairs = 2

// ErrInsufficientData matches every InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data for trendline")

// InsufficientDataError reports how many complete pairs were available.
type InsufficientDataError struct {
	Pairs int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d paired observations, have %d", MinTrendPairs, e.Pairs)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// Trend is an ordinary least squares line target = Slope*predictor + Intercept.
type Trend struct {
	Predictor string
	Target    string
	Slope     float64
	Intercept float64
	// RSquared is NaN when the target is constant.
	RSquared float64
	Pairs    int
	// Degenerate is set when every predictor value is equal; the line is then
	// flat at the target mean.
	Degenerate bool
	// Predictions holds one fitted value per table row, in row order. Rows with
	// a missing predictor get NaN.
	Predictions []float64
}

// Predict evaluates the line at x.
func (tr *Trend) Predict(x float64) float64 {
	return tr.Slope*x + tr.Intercept
}

// FitTrend fits target on predictor over the complete pairs of the table.
func FitTrend(t *series.Table, predictor, target string) (*Trend, error) {
	xs, ys, err := completePairs(t, predictor, target)
	if err != nil {
		return nil, err
	}
	if len(xs) < MinTrendPairs {
		return nil, &InsufficientDataError{Pairs: len(xs)}
	}
	tr := &Trend{Predictor: predictor, Target: target, Pairs: len(xs)}
	if constant(xs) {
		tr.Degenerate = true
		tr.Intercept = stat.Mean(ys, nil)
		tr.RSquared = 0
	} else {
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		tr.Slope = beta
		tr.Intercept = alpha
		tr.RSquared = math.NaN()
		if !constant(ys) {
			tr.RSquared = stat.RSquared(xs, ys, nil, alpha, beta)
		}
	}

	xv, _ := t.Values(predictor)
	tr.Predictions = make([]float64, len(xv))
	for i, x := range xv {
		if math.IsNaN(x) {
			tr.Predictions[i] = math.NaN()
			continue
		}
		tr.Predictions[i] = tr.Predict(x)
	}
	return tr, nil
}
