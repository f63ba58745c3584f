package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stockcorr-cli/internal/loader"
)

var stocksCmd = &cobra.Command{
	Use:   "stocks [dir]",
	Short: "List stock identifiers found in a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		} else {
			c, err := config()
			if err != nil {
				return err
			}
			dir = c.StockDir
		}
		files, err := loader.ScanDir(dir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no stocks)")
			return nil
		}
		for _, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s (%s)\n", f.ID, f.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stocksCmd)
}
