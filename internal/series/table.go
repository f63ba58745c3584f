// Package series holds the date-keyed numeric tables that every stage of an
// analysis passes around. Tables are immutable once built: filters and joins
// always return a new table.
package series

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Granularity controls how date keys are normalized before they are compared.
type Granularity string

const (
	GranularityExact Granularity = "exact"
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// ParseGranularity accepts exact|day|month (case-insensitive). Empty means day.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day", "daily", "d":
		return GranularityDay, nil
	case "exact", "none":
		return GranularityExact, nil
	case "month", "monthly", "m":
		return GranularityMonth, nil
	default:
		return "", fmt.Errorf("unsupported granularity %q (use exact|day|month)", s)
	}
}

// Normalize truncates t to the granularity. Day and month keys use the
// calendar date as written, whatever its offset, and are returned in UTC.
// Exact keys are converted to UTC.
func (g Granularity) Normalize(t time.Time) time.Time {
	switch g {
	case GranularityExact:
		return t.UTC()
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Column is a named numeric column. NaN marks a missing value.
type Column struct {
	Name   string
	Values []float64
}

// Stats records what happened to source rows while a table was built.
type Stats struct {
	// SourceRows counts data rows offered to the builder.
	SourceRows int
	// DroppedKeys counts rows whose key was missing or unparseable.
	DroppedKeys int
	// Duplicates counts rows dropped because an earlier row had the same key.
	Duplicates int
}

// Table is an ordered-by-date collection of rows with unique date keys.
type Table struct {
	name    string
	key     string
	dates   []time.Time
	columns []Column
	index   map[string]int
	stats   Stats
}

// Name returns the table label (usually the source file or stock identifier).
func (t *Table) Name() string { return t.name }

// Key returns the name of the date key column.
func (t *Table) Key() string { return t.key }

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.dates)
}

// Stats returns load statistics for the table.
func (t *Table) Stats() Stats { return t.stats }

// Date returns the key of row i.
func (t *Table) Date(i int) time.Time { return t.dates[i] }

// Dates returns a copy of the row keys in ascending order.
func (t *Table) Dates() []time.Time {
	out := make([]time.Time, len(t.dates))
	copy(out, t.dates)
	return out
}

// ColumnNames returns the value column names in table order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// HasColumn reports whether a value column with the exact name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Values returns a copy of the named column.
func (t *Table) Values(name string) ([]float64, bool) {
	idx, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(t.columns[idx].Values))
	copy(out, t.columns[idx].Values)
	return out, true
}

// Value returns the cell at row i of the named column.
func (t *Table) Value(name string, i int) (float64, bool) {
	idx, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.dates) {
		return math.NaN(), false
	}
	return t.columns[idx].Values[i], true
}

// Between returns the rows whose key lies in [start, end]. A zero start or end
// leaves that side of the window open.
func (t *Table) Between(start, end time.Time) *Table {
	b := NewBuilder(t.name, t.key, GranularityExact, t.ColumnNames()...)
	row := make([]float64, len(t.columns))
	for i, d := range t.dates {
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			continue
		}
		for j, c := range t.columns {
			row[j] = c.Values[i]
		}
		b.Add(d, row...)
	}
	out := b.Build()
	out.stats = t.stats
	return out
}

// New builds a table from parallel slices. Duplicate keys keep the first row.
func New(name, key string, g Granularity, dates []time.Time, columns ...Column) (*Table, error) {
	names := make([]string, len(columns))
	for i, c := range columns {
		if len(c.Values) != len(dates) {
			return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, len(c.Values), len(dates))
		}
		names[i] = c.Name
	}
	b := NewBuilder(name, key, g, names...)
	if err := b.Err(); err != nil {
		return nil, err
	}
	row := make([]float64, len(columns))
	for i, d := range dates {
		for j, c := range columns {
			row[j] = c.Values[i]
		}
		b.Add(d, row...)
	}
	return b.Build(), nil
}

// Builder accumulates rows and enforces the keep-first policy for duplicate keys.
type Builder struct {
	name  string
	key   string
	g     Granularity
	names []string
	seen  map[int64]struct{}
	rows  []builderRow
	stats Stats
	err   error
}

type builderRow struct {
	date   time.Time
	values []float64
}

// NewBuilder starts a table with the given value columns.
func NewBuilder(name, key string, g Granularity, columns ...string) *Builder {
	b := &Builder{name: name, key: key, g: g, names: columns, seen: map[int64]struct{}{}}
	dup := map[string]struct{}{}
	for _, c := range columns {
		if _, ok := dup[c]; ok {
			b.err = fmt.Errorf("duplicate column name %q", c)
			break
		}
		dup[c] = struct{}{}
	}
	return b
}

// Err reports a construction problem such as duplicate column names.
func (b *Builder) Err() error { return b.err }

// Add appends a row. Missing trailing values are NaN; extra values are ignored.
// A row whose normalized key was already added is counted and dropped.
func (b *Builder) Add(date time.Time, values ...float64) {
	b.stats.SourceRows++
	d := b.g.Normalize(date)
	k := d.UnixNano()
	if _, ok := b.seen[k]; ok {
		b.stats.Duplicates++
		return
	}
	b.seen[k] = struct{}{}
	row := make([]float64, len(b.names))
	for i := range row {
		if i < len(values) {
			row[i] = values[i]
		} else {
			row[i] = math.NaN()
		}
	}
	b.rows = append(b.rows, builderRow{date: d, values: row})
}

// DropKey records a source row that was skipped because its key was unusable.
func (b *Builder) DropKey() {
	b.stats.SourceRows++
	b.stats.DroppedKeys++
}

// Build sorts rows by key and returns the table.
func (b *Builder) Build() *Table {
	rows := make([]builderRow, len(b.rows))
	copy(rows, b.rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })
	t := &Table{
		name:    b.name,
		key:     b.key,
		dates:   make([]time.Time, len(rows)),
		columns: make([]Column, len(b.names)),
		index:   make(map[string]int, len(b.names)),
		stats:   b.stats,
	}
	for j, n := range b.names {
		t.columns[j] = Column{Name: n, Values: make([]float64, len(rows))}
		if _, ok := t.index[n]; !ok {
			t.index[n] = j
		}
	}
	for i, r := range rows {
		t.dates[i] = r.date
		for j := range b.names {
			t.columns[j].Values[i] = r.values[j]
		}
	}
	return t
}
