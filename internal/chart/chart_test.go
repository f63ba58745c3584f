package chart

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/plot/plotter"

	"github.com/KaramelBytes/stockcorr-cli/internal/engine"
	"github.com/KaramelBytes/stockcorr-cli/internal/series"
)

func merged(t *testing.T, xs, ys []float64) *series.Table {
	t.Helper()
	dates := make([]time.Time, len(xs))
	for i := range dates {
		dates[i] = time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
	}
	tbl, err := series.New("merged", "Date", series.GranularityDay, dates,
		series.Column{Name: "Close", Values: xs},
		series.Column{Name: "Mining", Values: ys})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return tbl
}

func TestRenderPNGAndSVG(t *testing.T) {
	tbl := merged(t, []float64{100, 110, math.NaN(), 130}, []float64{5, 6, 7, 7.5})
	c, err := engine.Correlation(tbl, "Close", "Mining")
	if err != nil {
		t.Fatalf("correlation: %v", err)
	}
	tr, err := engine.FitTrend(tbl, "Close", "Mining")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	dir := t.TempDir()
	for _, name := range []string{"chart.png", "chart.svg"} {
		out := filepath.Join(dir, name)
		if err := Render(out, Input{Merged: tbl, X: "Close", Y: "Mining", Correlation: c, Trend: tr}, Options{WidthIn: 4, HeightIn: 3}); err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		b, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(b) == 0 {
			t.Fatalf("%s is empty", name)
		}
		if name == "chart.png" && !bytes.HasPrefix(b, []byte("\x89PNG")) {
			t.Fatalf("chart.png is not a PNG")
		}
		if name == "chart.svg" && !bytes.Contains(b, []byte("Trendline Analysis")) {
			t.Fatalf("svg missing title")
		}
		if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
			t.Fatalf("temp file left behind for %s", name)
		}
	}
}

func TestRenderWithoutTrend(t *testing.T) {
	tbl := merged(t, []float64{100}, []float64{5})
	c, _ := engine.Correlation(tbl, "Close", "Mining")
	out := filepath.Join(t.TempDir(), "single.svg")
	if err := Render(out, Input{Merged: tbl, X: "Close", Y: "Mining", Correlation: c}, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, _ := os.ReadFile(out)
	if !bytes.Contains(b, []byte("Correlation: undefined")) {
		t.Fatalf("expected undefined correlation in title")
	}
}

func TestRenderAxisLabels(t *testing.T) {
	tbl := merged(t, []float64{130, 100, 110}, []float64{7.5, 5, 6})
	c, _ := engine.Correlation(tbl, "Close", "Mining")
	tr, err := engine.FitTrend(tbl, "Close", "Mining")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.svg")
	if err := Render(plain, Input{Merged: tbl, X: "Close", Y: "Mining", Correlation: c, Trend: tr}, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, _ := os.ReadFile(plain)
	if bytes.Contains(b, []byte("Industry Growth")) {
		t.Fatalf("default Y label should be the column name only")
	}

	labeled := filepath.Join(dir, "labeled.svg")
	in := Input{Merged: tbl, X: "Close", Y: "Mining", YLabel: "Mining (Industry Growth)", Correlation: c, Trend: tr}
	if err := Render(labeled, in, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, _ = os.ReadFile(labeled)
	if !bytes.Contains(b, []byte("Mining (Industry Growth)")) {
		t.Fatalf("svg missing Y label override")
	}
}

func TestTrendPointsSortedByX(t *testing.T) {
	xs := []float64{130, 100, math.NaN(), 110}
	preds := []float64{7.5, 5, math.NaN(), 5.5}
	got := trendPoints(xs, preds)
	want := plotter.XYs{{X: 100, Y: 5}, {X: 110, Y: 5.5}, {X: 130, Y: 7.5}}
	if len(got) != len(want) {
		t.Fatalf("points = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRenderNothingToPlot(t *testing.T) {
	tbl := merged(t, []float64{math.NaN()}, []float64{5})
	out := filepath.Join(t.TempDir(), "empty.png")
	err := Render(out, Input{Merged: tbl, X: "Close", Y: "Mining"}, Options{})
	if !errors.Is(err, ErrNothingToPlot) {
		t.Fatalf("expected ErrNothingToPlot, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("no file should be written")
	}
}

func TestFormat(t *testing.T) {
	cases := map[string]string{"a.PNG": "png", "dir/b.svg": "svg", "c.pdf": "pdf"}
	for in, want := range cases {
		got, err := Format(in)
		if err != nil || got != want {
			t.Errorf("Format(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := Format("chart.bmp"); err == nil {
		t.Errorf("expected error for .bmp")
	}
	if _, err := Format("chart"); err == nil {
		t.Errorf("expected error for missing extension")
	}
}

func TestTitle(t *testing.T) {
	if got := Title(engine.Corr{R: 0.8712, Defined: true}); got != "Correlation: 0.87 | Trendline Analysis" {
		t.Errorf("Title = %q", got)
	}
}
