package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stockcorr-cli/internal/analysis"
	"github.com/KaramelBytes/stockcorr-cli/internal/loader"
	"github.com/KaramelBytes/stockcorr-cli/internal/utils"
)

var (
	scIndustryFile  string
	scIndustry      string
	scIndustrySheet string
	scStockDir      string
	scStockColumn   string
	scStockSheet    string
	scTop           int
	scOutputPath    string
	scData          dataFlags
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rank every stock in a folder by correlation with one industry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		key, g, opt, from, to, err := scData.resolve(c)
		if err != nil {
			return err
		}
		dir := scStockDir
		if dir == "" {
			dir = c.StockDir
		}
		files, err := loader.ScanDir(dir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no stock spreadsheets in %s", dir)
		}

		req := analysis.Request{
			Industry:    analysis.Source{Path: scIndustryFile, Column: scIndustry},
			Stock:       analysis.Source{Column: scStockColumn},
			From:        from,
			To:          to,
			KeyColumn:   key,
			Granularity: g,
		}
		if req.Industry.Path == "" {
			req.Industry.Path = c.IndustryFile
		}
		if req.Stock.Column == "" {
			req.Stock.Column = c.StockColumn
		}
		applySheet(&req.Industry, scIndustrySheet)
		applySheet(&req.Stock, scStockSheet)

		stocks := make([]analysis.Source, len(files))
		for i, f := range files {
			stocks[i] = analysis.Source{Path: f.Path, Label: f.ID}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scanning %d stock(s) in %s...\n", len(stocks), dir)
		ranked, err := analysis.Rank(cmd.Context(), req, stocks, opt)
		if err != nil {
			return err
		}

		top := scTop
		if !cmd.Flags().Changed("top") {
			top = c.ScanTop
		}
		shown := ranked
		if top > 0 && len(shown) > top {
			shown = shown[:top]
		}
		failed := 0
		for _, r := range ranked {
			if r.Err != nil {
				failed++
			}
		}
		md := analysis.RankMarkdown(req.Industry.Column, shown)
		if scOutputPath != "" {
			if err := utils.SafeWriteFile(scOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote ranking to %s\n", scOutputPath)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), md)
		}
		if failed > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠ %d stock(s) could not be loaded\n", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	f := scanCmd.Flags()
	f.StringVar(&scIndustryFile, "industry-file", "", "industry growth workbook (default from config industry_file)")
	f.StringVar(&scIndustry, "industry", "", "industry column to compare against")
	f.StringVar(&scIndustrySheet, "industry-sheet", "", "XLSX: industry sheet name or 1-based index")
	f.StringVar(&scStockDir, "stock-dir", "", "folder of stock spreadsheets (default from config stock_dir)")
	f.StringVar(&scStockColumn, "stock-column", "", "stock value column (default from config stock_column)")
	f.StringVar(&scStockSheet, "stock-sheet", "", "XLSX: stock sheet name or 1-based index")
	f.IntVar(&scTop, "top", 10, "show only the N strongest correlations (0 = all)")
	f.StringVarP(&scOutputPath, "output", "o", "", "optional path to write the ranking")
	f.StringVar(&scData.key, "key", "", "date key column (default from config key_column)")
	f.StringVar(&scData.granularity, "granularity", "", "date key granularity: exact|day|month")
	f.StringVar(&scData.from, "from", "", "start of the date window (inclusive)")
	f.StringVar(&scData.to, "to", "", "end of the date window (inclusive)")
	f.StringVar(&scData.decimal, "decimal", "", "decimal separator for numbers (auto-detect if omitted)")
	f.StringVar(&scData.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
}
