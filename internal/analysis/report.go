package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/KaramelBytes/stockcorr-cli/internal/utils"
)

// SampleRows is how many merged rows the Markdown report shows.
const SampleRows = 10

// Markdown renders a compact plain-text report.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[ANALYSIS]\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	b.WriteString(fmt.Sprintf("Predictor: %s\n", r.Predictor))
	b.WriteString(fmt.Sprintf("Target: %s\n", r.Target))
	b.WriteString(fmt.Sprintf("Window: %s\n", window(r.From, r.To)))
	b.WriteString(fmt.Sprintf("Merged rows: %d\n\n", r.Merged.Len()))

	b.WriteString("[SOURCES]\n")
	for _, s := range r.Sources {
		b.WriteString(fmt.Sprintf("- %s: %s (column %s) rows %d, in window %d", s.Label, s.Path, s.Column, s.Rows, s.InWindow))
		if s.DroppedKeys > 0 || s.Duplicates > 0 {
			b.WriteString(fmt.Sprintf("; dropped %d, duplicates %d", s.DroppedKeys, s.Duplicates))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[CORRELATION]\n")
	c := r.Correlation
	if c.Defined {
		b.WriteString(fmt.Sprintf("r = %s over %d pair(s) (%s)\n", c.Format(), c.Pairs, strength(c.R)))
	} else {
		b.WriteString(fmt.Sprintf("r = undefined (%s)\n", c.Reason))
	}

	b.WriteString("\n[TRENDLINE]\n")
	if t := r.Trend; t != nil {
		b.WriteString(fmt.Sprintf("%s = %.6g × %s %s %.6g\n", t.Target, t.Slope, t.Predictor, sign(t.Intercept), math.Abs(t.Intercept)))
		b.WriteString(fmt.Sprintf("R² = %s over %d pair(s)\n", fmtFloat(t.RSquared, "%.4f"), t.Pairs))
	} else {
		b.WriteString("omitted\n")
	}

	if len(r.Summaries) > 0 {
		b.WriteString("\n[MERGED SUMMARY]\n")
		for _, s := range r.Summaries {
			total := s.NonNull + s.Missing
			missPct := 0.0
			if total > 0 {
				missPct = float64(s.Missing) * 100.0 / float64(total)
			}
			b.WriteString(fmt.Sprintf("- %s: non-null %d, missing %.1f%%", s.Name, s.NonNull, missPct))
			if s.NonNull > 0 {
				b.WriteString(fmt.Sprintf(" | min %.4g, max %.4g, mean %.4g, std %s", s.Min, s.Max, s.Mean, fmtFloat(s.Std, "%.4g")))
			}
			if s.OutlierThreshold > 0 && s.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f (max |z|≈%.2f)", s.OutliersCount, s.OutlierThreshold, s.OutliersMaxAbsZ))
			}
			b.WriteString("\n")
		}
	}

	if n := r.Merged.Len(); n > 0 {
		b.WriteString("\n[MERGED ROWS]\n")
		cols := r.Merged.ColumnNames()
		b.WriteString("| " + r.Key)
		for _, c := range cols {
			b.WriteString(" | " + c)
		}
		if r.Trend != nil {
			b.WriteString(" | predicted " + r.Target)
		}
		b.WriteString(" |\n|" + strings.Repeat(" --- |", len(cols)+1))
		if r.Trend != nil {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for i := 0; i < n && i < SampleRows; i++ {
			b.WriteString("| " + r.Merged.Date(i).Format(time.DateOnly))
			for _, c := range cols {
				v, _ := r.Merged.Value(c, i)
				b.WriteString(" | " + fmtFloat(v, "%.4g"))
			}
			if r.Trend != nil {
				b.WriteString(" | " + fmtFloat(r.Trend.Predictions[i], "%.4g"))
			}
			b.WriteString(" |\n")
		}
		if n > SampleRows {
			b.WriteString(fmt.Sprintf("(%d more rows)\n", n-SampleRows))
		}
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

type jsonReport struct {
	RunID       string       `json:"run_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Key         string       `json:"key"`
	Predictor   string       `json:"predictor"`
	Target      string       `json:"target"`
	From        string       `json:"from,omitempty"`
	To          string       `json:"to,omitempty"`
	Sources     []jsonSource `json:"sources"`
	Correlation jsonCorr     `json:"correlation"`
	Trend       *jsonTrend   `json:"trend"`
	Summaries   []jsonSum    `json:"summaries"`
	Rows        []jsonRow    `json:"rows"`
	Notes       []string     `json:"notes,omitempty"`
}

type jsonSource struct {
	Label       string `json:"label"`
	Path        string `json:"path"`
	Column      string `json:"column"`
	Rows        int    `json:"rows"`
	InWindow    int    `json:"in_window"`
	SourceRows  int    `json:"source_rows"`
	DroppedKeys int    `json:"dropped_keys"`
	Duplicates  int    `json:"duplicates"`
}

type jsonCorr struct {
	R       *float64 `json:"r"`
	Display string   `json:"display"`
	Pairs   int      `json:"pairs"`
	Defined bool     `json:"defined"`
	Reason  string   `json:"reason,omitempty"`
}

type jsonTrend struct {
	Slope      float64  `json:"slope"`
	Intercept  float64  `json:"intercept"`
	RSquared   *float64 `json:"r_squared"`
	Pairs      int      `json:"pairs"`
	Degenerate bool     `json:"degenerate,omitempty"`
}

type jsonSum struct {
	Name     string   `json:"name"`
	NonNull  int      `json:"non_null"`
	Missing  int      `json:"missing"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Mean     *float64 `json:"mean"`
	Std      *float64 `json:"std"`
	Outliers int      `json:"outliers,omitempty"`
}

type jsonRow struct {
	Date      string              `json:"date"`
	Values    map[string]*float64 `json:"values"`
	Predicted *float64            `json:"predicted,omitempty"`
}

// JSON renders the full result, every merged row included. NaN values
// become null.
func (r *Result) JSON() ([]byte, error) {
	out := jsonReport{
		RunID:     r.RunID,
		CreatedAt: r.CreatedAt,
		Key:       r.Key,
		Predictor: r.Predictor,
		Target:    r.Target,
		Sources:   []jsonSource{},
		Summaries: []jsonSum{},
		Rows:      []jsonRow{},
		Notes:     r.Notes,
		Correlation: jsonCorr{
			R:       nullable(r.Correlation.R),
			Display: r.Correlation.Format(),
			Pairs:   r.Correlation.Pairs,
			Defined: r.Correlation.Defined,
			Reason:  string(r.Correlation.Reason),
		},
	}
	if !r.From.IsZero() {
		out.From = r.From.Format(time.DateOnly)
	}
	if !r.To.IsZero() {
		out.To = r.To.Format(time.DateOnly)
	}
	for _, s := range r.Sources {
		out.Sources = append(out.Sources, jsonSource{
			Label: s.Label, Path: s.Path, Column: s.Column, Rows: s.Rows, InWindow: s.InWindow,
			SourceRows: s.SourceRows, DroppedKeys: s.DroppedKeys, Duplicates: s.Duplicates,
		})
	}
	if t := r.Trend; t != nil {
		out.Trend = &jsonTrend{Slope: t.Slope, Intercept: t.Intercept, RSquared: nullable(t.RSquared), Pairs: t.Pairs, Degenerate: t.Degenerate}
	}
	for _, s := range r.Summaries {
		out.Summaries = append(out.Summaries, jsonSum{
			Name: s.Name, NonNull: s.NonNull, Missing: s.Missing,
			Min: nullable(s.Min), Max: nullable(s.Max), Mean: nullable(s.Mean), Std: nullable(s.Std),
			Outliers: s.OutliersCount,
		})
	}
	cols := r.Merged.ColumnNames()
	for i := 0; i < r.Merged.Len(); i++ {
		row := jsonRow{Date: r.Merged.Date(i).Format(time.DateOnly), Values: make(map[string]*float64, len(cols))}
		for _, c := range cols {
			v, _ := r.Merged.Value(c, i)
			row.Values[c] = nullable(v)
		}
		if r.Trend != nil {
			row.Predicted = nullable(r.Trend.Predictions[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return utils.PrettyJSON(out)
}

// RankMarkdown renders a batch comparison as a table, best |r| first.
func RankMarkdown(industry string, rs []Ranked) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[RANKING] %s\n", industry))
	b.WriteString("| # | Stock | r | Pairs | Slope | Note |\n| --- | --- | --- | --- | --- | --- |\n")
	for i, r := range rs {
		c := r.Corr()
		slope, note := "-", ""
		switch {
		case r.Err != nil:
			note = strings.ReplaceAll(r.Err.Error(), "|", "/")
		case r.Result.Trend != nil:
			slope = fmt.Sprintf("%.4g", r.Result.Trend.Slope)
		}
		if r.Err == nil && !c.Defined {
			note = string(c.Reason)
		}
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %s | %s |\n", i+1, r.Stock, c.Format(), c.Pairs, slope, note))
	}
	return b.String()
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fmtFloat(v float64, format string) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

func sign(v float64) string {
	if v < 0 {
		return "-"
	}
	return "+"
}

func window(from, to time.Time) string {
	f, t := "start", "end"
	if !from.IsZero() {
		f = from.Format(time.DateOnly)
	}
	if !to.IsZero() {
		t = to.Format(time.DateOnly)
	}
	return f + " .. " + t
}

// strength buckets |r| into a reading aid for the report.
func strength(r float64) string {
	a := math.Abs(r)
	dir := "positive"
	if r < 0 {
		dir = "negative"
	}
	switch {
	case a >= 0.7:
		return "strong " + dir
	case a >= 0.4:
		return "moderate " + dir
	case a >= 0.2:
		return "weak " + dir
	default:
		return "negligible"
	}
}
