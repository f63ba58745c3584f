package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/stockcorr-cli/internal/engine"
	"github.com/KaramelBytes/stockcorr-cli/internal/loader"
)

func writeCSV(t *testing.T, dir, name string, rows ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(rows, "\n")+"\n"), 0o644))
	return p
}

func quietCtx() context.Context {
	l := zerolog.New(io.Discard)
	return l.WithContext(context.Background())
}

func TestRunIndustryStockExample(t *testing.T) {
	dir := t.TempDir()
	iip := writeCSV(t, dir, "iip.csv",
		"Date,Mining,Power",
		"2024-01-01,5.0,1",
		"2024-02-01,6.0,2",
	)
	stock := writeCSV(t, dir, "TCS.csv",
		"Date,Close",
		"2024-01-01,100",
		"2024-02-01,110",
		"2024-03-01,120",
	)

	res, err := Run(quietCtx(), Request{
		Industry: Source{Path: iip, Column: "mining"},
		Stock:    Source{Path: stock},
	}, DefaultOptions())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Merged.Len())
	assert.Equal(t, "Close", res.Predictor)
	assert.Equal(t, "Mining", res.Target)
	assert.Equal(t, "Mining (Industry Growth)", res.TargetLabel())
	assert.Equal(t, []string{"Close", "Mining"}, res.Merged.ColumnNames())
	assert.Equal(t, "1.00", res.Correlation.Format())
	require.NotNil(t, res.Trend)
	assert.InDelta(t, 0.1, res.Trend.Slope, 1e-12)
	assert.InDelta(t, -5.0, res.Trend.Intercept, 1e-9)
	require.Len(t, res.Trend.Predictions, 2)
	assert.InDelta(t, 5.0, res.Trend.Predictions[0], 1e-9)
	assert.InDelta(t, 6.0, res.Trend.Predictions[1], 1e-9)

	require.Len(t, res.Sources, 2)
	assert.Equal(t, "TCS", res.Sources[0].Label)
	assert.Equal(t, 3, res.Sources[0].Rows)
	assert.Equal(t, IndustryLabel, res.Sources[1].Label)
	assert.Empty(t, res.Notes)

	md := res.Markdown()
	assert.Contains(t, md, "[CORRELATION]\nr = 1.00 over 2 pair(s)")
	assert.Contains(t, md, "| Date | Close | Mining | predicted Mining |")
	assert.Contains(t, md, "| 2024-02-01 | 110 | 6 | 6 |")
}

func TestRunDateWindowAndNotes(t *testing.T) {
	dir := t.TempDir()
	iip := writeCSV(t, dir, "iip.csv",
		"Date,Mining",
		"01/01/2024,5",
		"01/02/2024,6",
		"01/03/2024,7",
		"oops,8",
	)
	stock := writeCSV(t, dir, "INFY.csv",
		"Date,Total Revenue/Income",
		"2024-01-01,100",
		"2024-01-01,999",
		"2024-02-01,110",
		"2024-03-01,125",
	)

	res, err := Run(quietCtx(), Request{
		Industry: Source{Path: iip, Column: "Mining"},
		Stock:    Source{Path: stock, Column: "Total Revenue/Income"},
		From:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Merged.Len())
	assert.Equal(t, 3, res.Sources[0].Rows)
	assert.Equal(t, 2, res.Sources[0].InWindow)
	assert.Equal(t, 1, res.Sources[0].Duplicates)
	assert.Equal(t, 1, res.Sources[1].DroppedKeys)
	assert.Len(t, res.Notes, 2)
	assert.Contains(t, res.Notes[0], "kept the first occurrence")
	assert.Contains(t, res.Notes[1], "dropped 1 row(s)")
}

func TestRunNoOverlapDegrades(t *testing.T) {
	dir := t.TempDir()
	iip := writeCSV(t, dir, "iip.csv", "Date,Mining", "2023-01-01,5", "2023-02-01,6")
	stock := writeCSV(t, dir, "TCS.csv", "Date,Close", "2024-01-01,100", "2024-02-01,110")

	res, err := Run(quietCtx(), Request{
		Industry: Source{Path: iip, Column: "Mining"},
		Stock:    Source{Path: stock, Column: "Close"},
	}, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, res.NoOverlap())
	assert.False(t, res.Correlation.Defined)
	assert.Equal(t, engine.ReasonNoOverlap, res.Correlation.Reason)
	assert.Nil(t, res.Trend)
	require.Len(t, res.Notes, 2)
	assert.Contains(t, res.Notes[0], "no data in range")
	assert.Contains(t, res.Notes[1], "trendline omitted: need at least 2 paired observations, have 0")

	b, err := res.JSON()
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	corr := doc["correlation"].(map[string]any)
	assert.Nil(t, corr["r"])
	assert.Equal(t, "undefined", corr["display"])
	assert.Nil(t, doc["trend"])
	assert.Empty(t, doc["rows"])
}

func TestRunLoadErrorAborts(t *testing.T) {
	dir := t.TempDir()
	iip := writeCSV(t, dir, "iip.csv", "Date,Mining", "2024-01-01,5")

	_, err := Run(quietCtx(), Request{
		Industry: Source{Path: iip, Column: "Mining"},
		Stock:    Source{Path: filepath.Join(dir, "missing.csv")},
	}, DefaultOptions())
	var le *loader.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "open", le.Op)

	_, err = Run(quietCtx(), Request{
		Industry: Source{Path: iip, Column: "Agriculture"},
		Stock:    Source{Path: iip},
	}, DefaultOptions())
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "select column", le.Op)
}

func TestRunValidation(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want string
	}{
		{"no industry", Request{Stock: Source{Path: "a.csv"}}, "industry file is required"},
		{"no column", Request{Industry: Source{Path: "i.csv"}, Stock: Source{Path: "a.csv"}}, "industry column is required"},
		{"no stock", Request{Industry: Source{Path: "i.csv", Column: "x"}}, "stock file is required"},
		{"reversed window", Request{
			Industry: Source{Path: "i.csv", Column: "x"}, Stock: Source{Path: "a.csv"},
			From: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}, "date range is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Run(context.Background(), tc.req, DefaultOptions())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRunExtraSourceAndCollisions(t *testing.T) {
	dir := t.TempDir()
	iip := writeCSV(t, dir, "iip.csv", "Date,Close", "2024-01-01,5", "2024-02-01,6", "2024-03-01,9")
	stock := writeCSV(t, dir, "TCS.csv", "Date,Close", "2024-01-01,100", "2024-02-01,110", "2024-03-01,150")
	nifty := writeCSV(t, dir, "NIFTY.csv", "Date,Close", "2024-02-01,21000", "2024-03-01,22000")

	res, err := Run(quietCtx(), Request{
		Industry: Source{Path: iip, Column: "Close"},
		Stock:    Source{Path: stock},
		Extra:    &Source{Path: nifty},
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Close_TCS", "Close_industry", "Close_NIFTY"}, res.Merged.ColumnNames())
	assert.Equal(t, "Close_TCS", res.Predictor)
	assert.Equal(t, "Close_industry", res.Target)
	assert.Equal(t, "Close_industry (Industry Growth)", res.TargetLabel())
	assert.Equal(t, 2, res.Merged.Len())

	res, err = Run(quietCtx(), Request{
		Industry: Source{Path: iip, Column: "Close"},
		Stock:    Source{Path: stock},
		Extra:    &Source{Path: nifty},
		Target:   "Close_NIFTY",
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Close_industry", res.Industry)
	assert.Equal(t, "Close_NIFTY", res.TargetLabel())
}

func TestSummaries(t *testing.T) {
	dir := t.TempDir()
	rows := []string{"Date,Mining"}
	stockRows := []string{"Date,Close"}
	for i, v := range []string{"10", "11", "10.5", "9.8", "10.2", "", "95"} {
		d := time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
		rows = append(rows, d+","+v)
		stockRows = append(stockRows, d+",1")
	}
	iip := writeCSV(t, dir, "iip.csv", rows...)
	stock := writeCSV(t, dir, "S.csv", stockRows...)

	res, err := Run(quietCtx(), Request{
		Industry: Source{Path: iip, Column: "Mining"},
		Stock:    Source{Path: stock},
	}, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Summaries, 2)
	m := res.Summaries[1]
	assert.Equal(t, "Mining", m.Name)
	assert.Equal(t, 6, m.NonNull)
	assert.Equal(t, 1, m.Missing)
	assert.Equal(t, 9.8, m.Min)
	assert.Equal(t, 95.0, m.Max)
	assert.Equal(t, 1, m.OutliersCount)

	// stock column is constant
	assert.Equal(t, engine.ReasonZeroVariance, res.Correlation.Reason)
	require.NotNil(t, res.Trend)
	assert.True(t, res.Trend.Degenerate)
	assert.True(t, math.IsNaN(res.Correlation.R))
}

func TestRank(t *testing.T) {
	dir := t.TempDir()
	iip := writeCSV(t, dir, "iip.csv", "Date,Mining", "2024-01-01,5", "2024-02-01,6", "2024-03-01,8")
	stocks := filepath.Join(dir, "stocks")
	require.NoError(t, os.MkdirAll(stocks, 0o755))
	writeCSV(t, stocks, "B.csv", "Date,Close", "2024-01-01,9", "2024-02-01,7", "2024-03-01,8")
	writeCSV(t, stocks, "A.csv", "Date,Close", "2024-01-01,10", "2024-02-01,20", "2024-03-01,40")
	writeCSV(t, stocks, "D.csv", "Date,Close", "2020-01-01,1", "2020-02-01,2")
	writeCSV(t, stocks, "C.csv", "Day,Close", "2024-01-01,1")

	files, err := loader.ScanDir(stocks)
	require.NoError(t, err)
	var srcs []Source
	for _, f := range files {
		srcs = append(srcs, Source{Path: f.Path})
	}

	ranked, err := Rank(quietCtx(), Request{
		Industry: Source{Path: iip, Column: "Mining"},
		Stock:    Source{Column: "Close"},
	}, srcs, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	var order []string
	for _, r := range ranked {
		order = append(order, r.Stock)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
	assert.True(t, ranked[0].Corr().Defined)
	assert.Less(t, ranked[1].Corr().R, 0.0)

	var le *loader.LoadError
	assert.True(t, errors.As(ranked[2].Err, &le))
	assert.Nil(t, ranked[2].Result)
	require.NotNil(t, ranked[3].Result)
	assert.True(t, ranked[3].Result.NoOverlap())

	md := RankMarkdown("Mining", ranked)
	assert.Contains(t, md, "| 1 | A | 1.00 | 3 |")
	assert.Contains(t, md, "| 4 | D | undefined | 0 | - | no_overlap |")
}

func TestRankStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	iip := writeCSV(t, dir, "iip.csv", "Date,Mining", "2024-01-01,5")
	ctx, cancel := context.WithCancel(quietCtx())
	cancel()
	_, err := Rank(ctx, Request{Industry: Source{Path: iip, Column: "Mining"}}, []Source{{Path: iip}}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
