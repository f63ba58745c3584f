// Package analysis runs one industry/stock comparison end to end: load each
// spreadsheet, filter the date window, align, correlate, fit the trendline and
// summarize the merged columns.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/stockcorr-cli/internal/engine"
	"github.com/KaramelBytes/stockcorr-cli/internal/loader"
	"github.com/KaramelBytes/stockcorr-cli/internal/series"
)

// IndustryLabel is the default label of the industry source.
const IndustryLabel = "industry"

// Source selects one column of one spreadsheet.
type Source struct {
	Path string
	// Column is the value column. Empty picks the first numeric column.
	Column string
	// Label names the source in collisions and reports. Defaults to the file
	// stem for stocks and "industry" for the industry workbook.
	Label      string
	Sheet      string
	SheetIndex int
}

// Request describes one analysis session.
type Request struct {
	Industry Source
	Stock    Source
	// Extra is an optional third series joined alongside the other two.
	Extra *Source
	// From and To bound the date window (inclusive). Zero leaves a side open.
	From, To time.Time
	// Predictor and Target name merged columns. They default to the stock
	// column and the industry column.
	Predictor string
	Target    string
	// KeyColumn is the date column shared by every source. Defaults to "Date".
	KeyColumn   string
	Granularity series.Granularity
}

// Options holds parsing and summary settings that are not part of a request.
type Options struct {
	DecimalSeparator   rune
	ThousandsSeparator rune
	// OutlierThreshold is the robust |z| above which a merged value counts as
	// an outlier. Zero disables outlier counting.
	OutlierThreshold float64
}

// DefaultOptions returns auto-detecting number parsing and a 3.5 outlier cutoff.
func DefaultOptions() Options {
	return Options{OutlierThreshold: 3.5}
}

// SourceStats reports how a source table was loaded.
type SourceStats struct {
	Label  string
	Path   string
	Column string
	Rows   int
	// InWindow counts rows left after the date filter.
	InWindow int
	series.Stats
}

// Result is everything a report or chart needs.
type Result struct {
	RunID       string
	CreatedAt   time.Time
	Key         string
	Predictor   string
	Target      string
	// Industry is the merged name of the industry column.
	Industry    string
	From, To    time.Time
	Sources     []SourceStats
	Merged      *series.Table
	Correlation engine.Corr
	// Trend is nil when no line could be fitted.
	Trend     *engine.Trend
	Summaries []ColumnSummary
	Notes     []string
}

// TargetLabel is the axis label of the target column. The industry column is
// marked as industry growth.
func (r *Result) TargetLabel() string {
	if r.Target == r.Industry {
		return r.Target + " (Industry Growth)"
	}
	return r.Target
}

// NoOverlap reports whether the sources shared no dates in the window.
func (r *Result) NoOverlap() bool { return engine.IsNoOverlap(r.Merged) }

type loaded struct {
	src   Source
	table *series.Table
	stats SourceStats
}

// Run executes a request. Load failures abort the run; missing overlap,
// undefined correlation and too few pairs degrade into notes on the result.
func Run(ctx context.Context, req Request, opt Options) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	industry, err := load(ctx, req, req.Industry, IndustryLabel, opt)
	if err != nil {
		return nil, err
	}
	rest := []Source{req.Stock}
	if req.Extra != nil {
		rest = append(rest, *req.Extra)
	}
	sources := []*loaded{industry}
	for _, s := range rest {
		l, err := load(ctx, req, s, "", opt)
		if err != nil {
			return nil, err
		}
		sources = append(sources, l)
	}
	return analyze(ctx, req, opt, sources)
}

func (req Request) validate() error {
	if strings.TrimSpace(req.Stock.Path) == "" {
		return errors.New("stock file is required")
	}
	return req.validateIndustry()
}

func (req Request) validateIndustry() error {
	if strings.TrimSpace(req.Industry.Path) == "" {
		return errors.New("industry file is required")
	}
	if strings.TrimSpace(req.Industry.Column) == "" {
		return errors.New("industry column is required")
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return fmt.Errorf("date range is empty: %s is after %s", req.From.Format(time.DateOnly), req.To.Format(time.DateOnly))
	}
	return nil
}

func (req Request) key() string {
	if strings.TrimSpace(req.KeyColumn) == "" {
		return loader.DefaultKeyColumn
	}
	return req.KeyColumn
}

// load reads one source fresh from disk and narrows it to a single column.
func load(ctx context.Context, req Request, src Source, defaultLabel string, opt Options) (*loaded, error) {
	log := zerolog.Ctx(ctx)
	if src.Label == "" {
		src.Label = defaultLabel
		if src.Label == "" {
			src.Label = loader.StockID(src.Path)
		}
	}
	lo := loader.Options{
		Name:               src.Label,
		KeyColumn:          req.key(),
		Sheet:              src.Sheet,
		SheetIndex:         src.SheetIndex,
		DecimalSeparator:   opt.DecimalSeparator,
		ThousandsSeparator: opt.ThousandsSeparator,
		Granularity:        req.Granularity,
	}
	if src.Column != "" {
		lo.Columns = []string{src.Column}
	}
	t, err := loader.Load(src.Path, lo)
	if err != nil {
		return nil, err
	}
	if src.Column == "" {
		cols := t.ColumnNames()
		if len(cols) == 0 {
			return nil, &loader.LoadError{Path: src.Path, Op: "select column", Err: errors.New("no numeric columns")}
		}
		src.Column = cols[0]
		log.Info().Str("source", src.Label).Str("column", src.Column).Msg("no column given, using first numeric column")
	} else {
		// the loader matches case-insensitively; adopt the header spelling
		src.Column = t.ColumnNames()[0]
	}

	st := t.Stats()
	ev := log.Debug()
	if st.DroppedKeys > 0 || st.Duplicates > 0 {
		ev = log.Warn()
	}
	ev.Str("source", src.Label).
		Str("path", src.Path).
		Int("rows", t.Len()).
		Int("dropped_keys", st.DroppedKeys).
		Int("duplicates", st.Duplicates).
		Msg("loaded")

	return &loaded{
		src:   src,
		table: t,
		stats: SourceStats{Label: src.Label, Path: src.Path, Column: src.Column, Rows: t.Len(), Stats: st},
	}, nil
}

// analyze runs filter, align, correlate and fit over already-loaded sources.
// sources[0] is the industry, sources[1] the stock, sources[2] the optional extra.
func analyze(ctx context.Context, req Request, opt Options, sources []*loaded) (*Result, error) {
	log := zerolog.Ctx(ctx)
	res := &Result{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Key:       req.key(),
		From:      req.From,
		To:        req.To,
	}

	// stock first so the merged table reads left to right as predictor, target
	order := []int{1, 0}
	if len(sources) > 2 {
		order = append(order, 2)
	}
	inputs := make([]engine.Input, 0, len(sources))
	for _, i := range order {
		s := sources[i]
		filtered := s.table.Between(req.From, req.To)
		s.stats.InWindow = filtered.Len()
		res.Sources = append(res.Sources, s.stats)
		inputs = append(inputs, engine.Input{Table: filtered, Columns: []string{s.src.Column}, Label: s.src.Label})
		if s.stats.DroppedKeys > 0 {
			res.Notes = append(res.Notes, fmt.Sprintf("%s: dropped %d row(s) with a missing or unparseable %s", s.src.Label, s.stats.DroppedKeys, res.Key))
		}
		if s.stats.Duplicates > 0 {
			res.Notes = append(res.Notes, fmt.Sprintf("%s: %d duplicate date(s), kept the first occurrence", s.src.Label, s.stats.Duplicates))
		}
	}

	names := engine.OutputNames(res.Key, inputs...)
	res.Predictor = req.Predictor
	if res.Predictor == "" {
		res.Predictor = names[0][0]
	}
	res.Industry = names[1][0]
	res.Target = req.Target
	if res.Target == "" {
		res.Target = res.Industry
	}

	merged, err := engine.Align(engine.AlignSpec{Key: res.Key, Name: "merged"}, inputs...)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	res.Merged = merged
	if res.NoOverlap() {
		res.Notes = append(res.Notes, "no data in range: the sources share no dates"+windowSuffix(req.From, req.To))
	}

	res.Correlation, err = engine.Correlation(merged, res.Predictor, res.Target)
	if err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}
	if !res.Correlation.Defined && !res.NoOverlap() {
		res.Notes = append(res.Notes, fmt.Sprintf("correlation undefined (%s) over %d pair(s)", res.Correlation.Reason, res.Correlation.Pairs))
	}

	res.Trend, err = engine.FitTrend(merged, res.Predictor, res.Target)
	var ide *engine.InsufficientDataError
	switch {
	case errors.As(err, &ide):
		res.Trend = nil
		res.Notes = append(res.Notes, "trendline omitted: "+ide.Error())
	case err != nil:
		return nil, fmt.Errorf("trendline: %w", err)
	case res.Trend.Degenerate:
		res.Notes = append(res.Notes, fmt.Sprintf("trendline is flat: every %s value is equal", res.Predictor))
	}

	res.Summaries = summarize(merged, opt.OutlierThreshold)
	log.Info().
		Str("run_id", res.RunID).
		Int("merged_rows", merged.Len()).
		Str("r", res.Correlation.Format()).
		Bool("trend", res.Trend != nil).
		Msg("analysis complete")
	return res, nil
}

func windowSuffix(from, to time.Time) string {
	switch {
	case from.IsZero() && to.IsZero():
		return ""
	case from.IsZero():
		return " up to " + to.Format(time.DateOnly)
	case to.IsZero():
		return " from " + from.Format(time.DateOnly)
	default:
		return fmt.Sprintf(" between %s and %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
}
