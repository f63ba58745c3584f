package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stockcorr-cli/internal/loader"
)

var (
	colKey   string
	colSheet string
)

var columnsCmd = &cobra.Command{
	Use:   "columns <file>",
	Short: "List the columns of a spreadsheet and their inferred kinds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c, err := config()
		if err != nil {
			return err
		}
		opt := loader.Options{KeyColumn: colKey}
		if opt.KeyColumn == "" {
			opt.KeyColumn = c.KeyColumn
		}
		opt.Sheet, opt.SheetIndex = parseSheet(colSheet)

		out := cmd.OutOrStdout()
		if loader.IsWorkbook(path) {
			names, err := loader.SheetNames(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Sheets: %s\n", strings.Join(names, ", "))
		}
		cols, err := loader.Inventory(path, opt)
		if err != nil {
			return err
		}
		keyFound := false
		for _, ci := range cols {
			line := fmt.Sprintf("- %s: %s (non-null %d, missing %d)", ci.Name, ci.Kind, ci.NonNull, ci.Missing)
			if ci.IsKey {
				line += " [key]"
				keyFound = true
			}
			fmt.Fprintln(out, line)
		}
		if !keyFound {
			fmt.Fprintf(out, "⚠ Key column %q not found\n", opt.KeyColumn)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.Flags().StringVar(&colKey, "key", "", "date key column (default from config key_column)")
	columnsCmd.Flags().StringVar(&colSheet, "sheet", "", "XLSX: sheet name or 1-based index")
}
