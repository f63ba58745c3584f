package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stockcorr-cli/internal/analysis"
	"github.com/KaramelBytes/stockcorr-cli/internal/chart"
	"github.com/KaramelBytes/stockcorr-cli/internal/utils"
)

var (
	anaIndustryFile  string
	anaIndustry      string
	anaIndustrySheet string
	anaStockFile     string
	anaStock         string
	anaStockColumn   string
	anaStockSheet    string
	anaExtraFile     string
	anaExtraColumn   string
	anaPredictor     string
	anaTarget        string
	anaChartPath     string
	anaOutputPath    string
	anaFormat        string
	anaData          dataFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Correlate one stock with one industry and fit a trendline",
	Example: `  stockcorr analyze --industry-file "IIP Data.xlsx" --industry Mining --stock TCS --chart tcs.png
  stockcorr analyze --industry-file iip.csv --industry Manufacturing --stock-file data/INFY.csv --stock-column Close --from 2020-01-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		key, g, opt, from, to, err := anaData.resolve(c)
		if err != nil {
			return err
		}

		req := analysis.Request{
			Industry:    analysis.Source{Path: anaIndustryFile, Column: anaIndustry},
			Stock:       analysis.Source{Path: anaStockFile, Column: anaStockColumn},
			From:        from,
			To:          to,
			Predictor:   anaPredictor,
			Target:      anaTarget,
			KeyColumn:   key,
			Granularity: g,
		}
		if req.Industry.Path == "" {
			req.Industry.Path = c.IndustryFile
		}
		if req.Stock.Column == "" {
			req.Stock.Column = c.StockColumn
		}
		if req.Stock.Path == "" && anaStock != "" {
			p, err := findStock(c.StockDir, anaStock)
			if err != nil {
				return err
			}
			req.Stock.Path = p
		}
		applySheet(&req.Industry, anaIndustrySheet)
		applySheet(&req.Stock, anaStockSheet)
		if anaExtraFile != "" {
			req.Extra = &analysis.Source{Path: anaExtraFile, Column: anaExtraColumn}
		}

		format := strings.ToLower(anaFormat)
		if format == "" {
			format = c.OutputFormat
		}
		if format != "markdown" && format != "md" && format != "json" {
			return fmt.Errorf("unsupported --format: %s (use markdown or json)", format)
		}
		if anaChartPath != "" {
			if _, err := chart.Format(anaChartPath); err != nil {
				return err
			}
		}

		res, err := analysis.Run(cmd.Context(), req, opt)
		if err != nil {
			return err
		}

		var out []byte
		if format == "json" {
			if out, err = res.JSON(); err != nil {
				return err
			}
		} else {
			out = []byte(res.Markdown())
		}

		if anaChartPath != "" {
			err := chart.Render(anaChartPath, chart.Input{
				Merged:      res.Merged,
				X:           res.Predictor,
				Y:           res.Target,
				YLabel:      res.TargetLabel(),
				Correlation: res.Correlation,
				Trend:       res.Trend,
			}, chart.Options{WidthIn: c.ChartWidthIn, HeightIn: c.ChartHeightIn})
			switch {
			case errors.Is(err, chart.ErrNothingToPlot):
				zerolog.Ctx(cmd.Context()).Warn().Str("chart", anaChartPath).Msg("chart skipped: no complete pairs to plot")
				fmt.Fprintf(cmd.OutOrStdout(), "⚠ Chart skipped: no data in range\n")
			case err != nil:
				return fmt.Errorf("render chart: %w", err)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote chart to %s\n", anaChartPath)
			}
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			fmt.Fprintln(cmd.OutOrStdout(), chart.Title(res.Correlation))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	f := analyzeCmd.Flags()
	f.StringVar(&anaIndustryFile, "industry-file", "", "industry growth workbook (default from config industry_file)")
	f.StringVar(&anaIndustry, "industry", "", "industry column to compare against")
	f.StringVar(&anaIndustrySheet, "industry-sheet", "", "XLSX: industry sheet name or 1-based index")
	f.StringVar(&anaStockFile, "stock-file", "", "stock spreadsheet")
	f.StringVar(&anaStock, "stock", "", "stock identifier looked up in stock_dir (used if --stock-file not provided)")
	f.StringVar(&anaStockColumn, "stock-column", "", "stock value column (default from config stock_column)")
	f.StringVar(&anaStockSheet, "stock-sheet", "", "XLSX: stock sheet name or 1-based index")
	f.StringVar(&anaExtraFile, "extra-file", "", "optional third series joined on the same key")
	f.StringVar(&anaExtraColumn, "extra-column", "", "value column of --extra-file (first numeric column if omitted)")
	f.StringVar(&anaPredictor, "predictor", "", "merged column used as X (default: the stock column)")
	f.StringVar(&anaTarget, "target", "", "merged column used as Y (default: the industry column)")
	f.StringVar(&anaData.key, "key", "", "date key column (default from config key_column)")
	f.StringVar(&anaData.granularity, "granularity", "", "date key granularity: exact|day|month")
	f.StringVar(&anaData.from, "from", "", "start of the date window (inclusive)")
	f.StringVar(&anaData.to, "to", "", "end of the date window (inclusive)")
	f.StringVar(&anaData.decimal, "decimal", "", "decimal separator for numbers (auto-detect if omitted)")
	f.StringVar(&anaData.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	f.StringVar(&anaChartPath, "chart", "", "write a scatter + trendline chart (.png, .svg, .pdf)")
	f.StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	f.StringVar(&anaFormat, "format", "", "report format: markdown|json (default from config output_format)")
}
