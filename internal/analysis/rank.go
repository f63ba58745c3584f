package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/stockcorr-cli/internal/engine"
	"github.com/KaramelBytes/stockcorr-cli/internal/loader"
)

// Ranked is one stock's outcome in a batch comparison.
type Ranked struct {
	Stock string
	Path  string
	// Result is nil when Err is set.
	Result *Result
	Err    error
}

// Corr returns the stock's correlation, undefined when the stock failed.
func (r Ranked) Corr() engine.Corr {
	if r.Result == nil {
		return engine.Corr{R: math.NaN()}
	}
	return r.Result.Correlation
}

// Rank compares the industry column against every stock in turn. The industry
// workbook is loaded once; stocks are loaded one at a time and a stock that
// fails to load is recorded rather than stopping the batch. req.Stock supplies
// the column and sheet used for every stock whose own Source leaves them empty.
//
// Results are ordered by |r| descending, undefined coefficients and failures
// last, ties broken by stock name.
func Rank(ctx context.Context, req Request, stocks []Source, opt Options) ([]Ranked, error) {
	log := zerolog.Ctx(ctx)
	if err := req.validateIndustry(); err != nil {
		return nil, err
	}
	industry, err := load(ctx, req, req.Industry, IndustryLabel, opt)
	if err != nil {
		return nil, err
	}

	out := make([]Ranked, 0, len(stocks))
	for _, s := range stocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.Column == "" {
			s.Column = req.Stock.Column
		}
		if s.Sheet == "" && s.SheetIndex == 0 {
			s.Sheet, s.SheetIndex = req.Stock.Sheet, req.Stock.SheetIndex
		}
		r := Ranked{Stock: s.Label, Path: s.Path}
		stock, err := load(ctx, req, s, "", opt)
		if err != nil {
			log.Warn().Err(err).Str("path", s.Path).Msg("skipping stock")
			r.Err = err
			if r.Stock == "" {
				r.Stock = stockLabel(s)
			}
			out = append(out, r)
			continue
		}
		r.Stock = stock.src.Label
		sreq := req
		sreq.Stock = stock.src
		sreq.Extra = nil
		r.Result, r.Err = analyze(ctx, sreq, opt, []*loaded{industry, stock})
		if r.Err != nil {
			r.Result = nil
		}
		out = append(out, r)
	}
	sortRanked(out)
	return out, nil
}

func stockLabel(s Source) string {
	if s.Label != "" {
		return s.Label
	}
	return loader.StockID(s.Path)
}

func sortRanked(rs []Ranked) {
	sort.SliceStable(rs, func(i, j int) bool {
		ci, cj := rs[i].Corr(), rs[j].Corr()
		if ci.Defined != cj.Defined {
			return ci.Defined
		}
		if ci.Defined {
			ai, aj := math.Abs(ci.R), math.Abs(cj.R)
			if ai != aj {
				return ai > aj
			}
		}
		return rs[i].Stock < rs[j].Stock
	})
}
