// Package chart draws the correlation scatter and its trendline.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/stockcorr-cli/internal/engine"
	"github.com/KaramelBytes/stockcorr-cli/internal/series"
	"github.com/KaramelBytes/stockcorr-cli/internal/utils"
)

// ErrNothingToPlot is returned when the merged table has no complete pairs.
var ErrNothingToPlot = errors.New("nothing to plot: no complete pairs")

// Input is what the renderer draws. It performs no computation of its own.
type Input struct {
	Merged      *series.Table
	X, Y        string
	// YLabel overrides the Y axis label, which defaults to Y.
	YLabel      string
	Correlation engine.Corr
	// Trend may be nil; the legend then says the line was omitted.
	Trend *engine.Trend
}

// Options sets the canvas size in inches. Zero values use 10x6.
type Options struct {
	WidthIn  float64
	HeightIn float64
}

// Formats lists the supported output extensions.
var Formats = []string{"png", "svg", "pdf", "jpg", "jpeg", "tif", "tiff", "eps"}

// Format returns the image format for path, based on its extension.
func Format(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, f := range Formats {
		if ext == f {
			return ext, nil
		}
	}
	return "", fmt.Errorf("unsupported chart format %q (use %s)", ext, strings.Join(Formats, ", "))
}

// Title is the chart heading for a correlation.
func Title(c engine.Corr) string {
	return fmt.Sprintf("Correlation: %s | Trendline Analysis", c.Format())
}

// Plot builds the chart without writing it.
func Plot(in Input) (*plot.Plot, error) {
	xv, ok := in.Merged.Values(in.X)
	if !ok {
		return nil, &engine.ColumnError{Table: in.Merged.Name(), Column: in.X}
	}
	yv, ok := in.Merged.Values(in.Y)
	if !ok {
		return nil, &engine.ColumnError{Table: in.Merged.Name(), Column: in.Y}
	}
	pts := make(plotter.XYs, 0, len(xv))
	for i := range xv {
		if math.IsNaN(xv[i]) || math.IsNaN(yv[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: xv[i], Y: yv[i]})
	}
	if len(pts) == 0 {
		return nil, ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = Title(in.Correlation)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = in.X
	p.Y.Label.Text = in.Y
	if in.YLabel != "" {
		p.Y.Label.Text = in.YLabel
	}
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)
	p.Legend.Add("Data points", scatter)

	if in.Trend != nil {
		if line := trendPoints(xv, in.Trend.Predictions); len(line) > 0 {
			l, err := plotter.NewLine(line)
			if err != nil {
				return nil, fmt.Errorf("trendline: %w", err)
			}
			l.Color = color.RGBA{R: 255, A: 255}
			l.Width = vg.Points(1.5)
			p.Add(l)
			p.Legend.Add("Trendline", l)
		}
	} else {
		p.Legend.Add("Trendline omitted: insufficient data")
	}
	p.Legend.Top = true
	return p, nil
}

// trendPoints pairs predictor values with predictions, skipping missing ones,
// ordered by X.
func trendPoints(xv, predictions []float64) plotter.XYs {
	line := make(plotter.XYs, 0, len(predictions))
	for i, y := range predictions {
		if i >= len(xv) || math.IsNaN(xv[i]) || math.IsNaN(y) {
			continue
		}
		line = append(line, plotter.XY{X: xv[i], Y: y})
	}
	sort.Slice(line, func(i, j int) bool { return line[i].X < line[j].X })
	return line
}

// Render draws the chart and writes it to path atomically. The image format
// follows the file extension.
func Render(path string, in Input, opt Options) error {
	format, err := Format(path)
	if err != nil {
		return err
	}
	p, err := Plot(in)
	if err != nil {
		return err
	}
	w, h := opt.WidthIn, opt.HeightIn
	if w <= 0 {
		w = 10
	}
	if h <= 0 {
		h = 6
	}
	wt, err := p.WriterTo(vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
