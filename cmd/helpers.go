package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/stockcorr-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/stockcorr-cli/internal/config"
	"github.com/KaramelBytes/stockcorr-cli/internal/loader"
	"github.com/KaramelBytes/stockcorr-cli/internal/series"
)

// parseDateFlag accepts the same layouts as spreadsheet date keys. Empty is the zero time.
func parseDateFlag(name, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, ok := loader.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid --%s date: %q (use YYYY-MM-DD)", name, s)
	}
	return t, nil
}

// parseSheet reads a sheet flag value: a 1-based index or a name.
func parseSheet(v string) (name string, index int) {
	v = strings.TrimSpace(v)
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return "", i
	}
	return v, 0
}

func applySheet(src *analysis.Source, v string) {
	src.Sheet, src.SheetIndex = parseSheet(v)
}

// dataFlags are the parsing flags shared by analyze and scan.
type dataFlags struct {
	key         string
	granularity string
	decimal     string
	thousands   string
	from, to    string
}

// resolve fills empty flags from configuration and parses them.
func (f dataFlags) resolve(c *cfgpkg.Global) (key string, g series.Granularity, opt analysis.Options, from, to time.Time, err error) {
	opt = analysis.DefaultOptions()
	key = f.key
	if key == "" {
		key = c.KeyColumn
	}
	gs := f.granularity
	if gs == "" {
		gs = c.Granularity
	}
	if g, err = series.ParseGranularity(gs); err != nil {
		return
	}
	dec, thou := f.decimal, f.thousands
	if dec == "" {
		dec = c.DecimalSeparator
	}
	if thou == "" {
		thou = c.ThousandsSeparator
	}
	if opt.DecimalSeparator, err = cfgpkg.ParseSeparator(dec); err != nil {
		err = fmt.Errorf("invalid --decimal: %w", err)
		return
	}
	if opt.ThousandsSeparator, err = cfgpkg.ParseSeparator(thou); err != nil {
		err = fmt.Errorf("invalid --thousands: %w", err)
		return
	}
	if from, err = parseDateFlag("from", f.from); err != nil {
		return
	}
	to, err = parseDateFlag("to", f.to)
	return
}

// findStock resolves a stock identifier to a spreadsheet in dir.
func findStock(dir, id string) (string, error) {
	files, err := loader.ScanDir(dir)
	if err != nil {
		return "", err
	}
	var ids []string
	for _, f := range files {
		if strings.EqualFold(f.ID, id) {
			return f.Path, nil
		}
		ids = append(ids, f.ID)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no stock spreadsheets in %s", dir)
	}
	return "", fmt.Errorf("stock %q not found in %s; available: %s", id, dir, strings.Join(ids, ", "))
}
