package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/stockcorr-cli/internal/series"
)

// DefaultKey is the join key used when AlignSpec.Key is empty.
const DefaultKey = "Date"

// ErrInputCount is returned when Align receives fewer than two or more than three inputs.
var ErrInputCount = errors.New("align requires two or three inputs")

// AlignSpec configures a join.
type AlignSpec struct {
	// Key names the date column every input must be keyed on (case-insensitive).
	Key string
	// Name labels the merged table.
	Name string
}

// Input is one side of a join.
type Input struct {
	Table *series.Table
	// Columns selects value columns; empty selects all of them.
	Columns []string
	// Label disambiguates colliding column names. Defaults to t1, t2, t3.
	Label string
}

// ColumnError reports a column name that does not exist in a table.
type ColumnError struct {
	Table  string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q not found in %s", e.Column, e.Table)
}

func (in Input) label(i int) string {
	if strings.TrimSpace(in.Label) != "" {
		return in.Label
	}
	return fmt.Sprintf("t%d", i+1)
}

func (in Input) columns() []string {
	if len(in.Columns) > 0 {
		return in.Columns
	}
	return in.Table.ColumnNames()
}

// OutputNames returns the merged column name of every selected input column,
// indexed like inputs. A name selected from more than one input, or equal to
// the join key, becomes "<column>_<label>".
func OutputNames(key string, inputs ...Input) [][]string {
	if key == "" {
		key = DefaultKey
	}
	count := map[string]int{}
	for _, in := range inputs {
		if in.Table == nil {
			continue
		}
		for _, c := range in.columns() {
			count[c]++
		}
	}
	used := map[string]struct{}{strings.ToLower(key): {}}
	out := make([][]string, len(inputs))
	for i, in := range inputs {
		if in.Table == nil {
			continue
		}
		for _, c := range in.columns() {
			name := c
			if count[c] > 1 || strings.EqualFold(c, key) {
				name = c + "_" + in.label(i)
			}
			base := name
			for n := 2; ; n++ {
				if _, taken := used[strings.ToLower(name)]; !taken {
					break
				}
				name = fmt.Sprintf("%s_%d", base, n)
			}
			used[strings.ToLower(name)] = struct{}{}
			out[i] = append(out[i], name)
		}
	}
	return out
}

// Align inner-joins two or three tables on their date key. The result holds
// only dates present in every input, in ascending order, with the key kept
// once. Inputs keyed on a different column or sharing no dates produce an
// empty table and no error.
func Align(spec AlignSpec, inputs ...Input) (*series.Table, error) {
	if len(inputs) < 2 || len(inputs) > 3 {
		return nil, ErrInputCount
	}
	key := spec.Key
	if key == "" {
		key = DefaultKey
	}
	for i, in := range inputs {
		if in.Table == nil {
			return nil, fmt.Errorf("align input %s: nil table", in.label(i))
		}
		for _, c := range in.columns() {
			if !in.Table.HasColumn(c) {
				return nil, &ColumnError{Table: in.Table.Name(), Column: c}
			}
		}
	}

	names := OutputNames(key, inputs...)
	var flat []string
	for _, n := range names {
		flat = append(flat, n...)
	}
	b := series.NewBuilder(spec.Name, key, series.GranularityExact, flat...)
	if err := b.Err(); err != nil {
		return nil, err
	}
	for _, in := range inputs {
		if !strings.EqualFold(in.Table.Key(), key) {
			return b.Build(), nil
		}
	}

	// row index of every date, per input after the first
	lookups := make([]map[int64]int, len(inputs))
	for i, in := range inputs[1:] {
		m := make(map[int64]int, in.Table.Len())
		for r := 0; r < in.Table.Len(); r++ {
			m[in.Table.Date(r).UnixNano()] = r
		}
		lookups[i+1] = m
	}

	row := make([]float64, 0, len(flat))
	base := inputs[0].Table
	for r := 0; r < base.Len(); r++ {
		d := base.Date(r)
		rows := make([]int, len(inputs))
		rows[0] = r
		found := true
		for i := 1; i < len(inputs); i++ {
			idx, ok := lookups[i][d.UnixNano()]
			if !ok {
				found = false
				break
			}
			rows[i] = idx
		}
		if !found {
			continue
		}
		row = row[:0]
		for i, in := range inputs {
			for _, c := range in.columns() {
				v, _ := in.Table.Value(c, rows[i])
				row = append(row, v)
			}
		}
		b.Add(d, row...)
	}
	return b.Build(), nil
}

// IsNoOverlap reports whether an aligned table is the explicit "no data in
// range" result.
func IsNoOverlap(t *series.Table) bool {
	return t.Len() == 0
}
