package loader

import "strings"

// Kind is the inferred type of a spreadsheet column.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindDatetime Kind = "datetime"
	KindText     Kind = "text"
	KindEmpty    Kind = "empty"
)

// ColumnInfo describes one header column of a spreadsheet.
type ColumnInfo struct {
	Name    string
	Kind    Kind
	NonNull int
	Missing int
	IsKey   bool

	index int
}

// Inventory reads the header and body of a spreadsheet and infers the kind of
// every column. The key column is flagged but still reported.
func Inventory(path string, opt Options) ([]ColumnInfo, error) {
	sh, err := readSheet(path, opt)
	if err != nil {
		return nil, err
	}
	header, body := splitHeader(sh.Rows)
	if header == nil {
		return nil, &LoadError{Path: path, Op: "read header", Err: ErrNoRows}
	}
	keyIdx := findColumn(header, opt.keyColumn())
	return inferColumns(header, body, keyIdx, sh.Date1904, opt), nil
}

// inferColumns decides each column's kind by the predominant parsed type of its
// non-missing cells. Ties between numeric and datetime go to numeric, except for
// the key column which is always datetime when any of its cells parse as dates.
func inferColumns(header []string, body [][]string, keyIdx int, date1904 bool, opt Options) []ColumnInfo {
	out := make([]ColumnInfo, 0, len(header))
	for j, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		info := ColumnInfo{Name: name, IsKey: j == keyIdx, index: j}
		var numCnt, dtCnt, txtCnt int
		for _, row := range body {
			if blankRow(row) {
				continue
			}
			v := cell(row, j)
			if isMissing(v) {
				info.Missing++
				continue
			}
			info.NonNull++
			if j != keyIdx {
				if _, ok := parseNumber(v, opt.DecimalSeparator, opt.ThousandsSeparator); ok {
					numCnt++
					continue
				}
			}
			if _, ok := parseKey(v, date1904); ok {
				dtCnt++
				continue
			}
			txtCnt++
		}
		switch {
		case info.NonNull == 0:
			info.Kind = KindEmpty
		case info.IsKey && dtCnt > 0:
			info.Kind = KindDatetime
		case numCnt >= dtCnt && numCnt >= txtCnt:
			info.Kind = KindNumeric
		case dtCnt >= txtCnt:
			info.Kind = KindDatetime
		default:
			info.Kind = KindText
		}
		out = append(out, info)
	}
	return out
}
