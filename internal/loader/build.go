package loader

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/stockcorr-cli/internal/series"
)

// buildTable turns raw rows (header first) into a series table. Rows whose key
// cannot be parsed as a date are dropped and counted in the table stats.
func buildTable(path, name string, sh *Sheet, opt Options) (*series.Table, error) {
	header, body := splitHeader(sh.Rows)
	if header == nil {
		return nil, &LoadError{Path: path, Op: "read header", Err: ErrNoRows}
	}
	keyIdx := findColumn(header, opt.keyColumn())
	if keyIdx < 0 {
		return nil, &LoadError{Path: path, Op: "find key column", Err: fmt.Errorf("column %q not found; available: %s",
			opt.keyColumn(), strings.Join(nonEmpty(header), ", "))}
	}

	var idxs []int
	if len(opt.Columns) > 0 {
		for _, c := range opt.Columns {
			j := findColumn(header, c)
			if j < 0 {
				return nil, &LoadError{Path: path, Op: "select column", Err: fmt.Errorf("column %q not found; available: %s",
					c, strings.Join(nonEmpty(header), ", "))}
			}
			idxs = append(idxs, j)
		}
	} else {
		for _, inf := range inferColumns(header, body, keyIdx, sh.Date1904, opt) {
			if inf.Kind == KindNumeric {
				idxs = append(idxs, inf.index)
			}
		}
	}

	names := make([]string, len(idxs))
	used := map[string]struct{}{}
	for i, j := range idxs {
		n := strings.TrimSpace(header[j])
		if n == "" {
			n = fmt.Sprintf("column_%d", j+1)
		}
		if _, ok := used[n]; ok {
			return nil, &LoadError{Path: path, Op: "select column", Err: fmt.Errorf("column %q selected twice", n)}
		}
		used[n] = struct{}{}
		names[i] = n
	}

	b := series.NewBuilder(name, strings.TrimSpace(header[keyIdx]), opt.granularity(), names...)
	vals := make([]float64, len(idxs))
	for _, row := range body {
		if blankRow(row) {
			continue
		}
		d, ok := parseKey(cell(row, keyIdx), sh.Date1904)
		if !ok {
			b.DropKey()
			continue
		}
		for i, j := range idxs {
			vals[i] = numericCell(cell(row, j), opt)
		}
		b.Add(d, vals...)
	}
	return b.Build(), nil
}

func numericCell(s string, opt Options) float64 {
	if isMissing(s) {
		return math.NaN()
	}
	f, ok := parseNumber(s, opt.DecimalSeparator, opt.ThousandsSeparator)
	if !ok {
		return math.NaN()
	}
	return f
}

// splitHeader treats the first non-blank row as the header.
func splitHeader(rows [][]string) ([]string, [][]string) {
	for i, r := range rows {
		if !blankRow(r) {
			return r, rows[i+1:]
		}
	}
	return nil, nil
}

func findColumn(header []string, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func nonEmpty(header []string) []string {
	out := make([]string, 0, len(header))
	for _, h := range header {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
