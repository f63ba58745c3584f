// Package loader reads spreadsheet files (XLSX, CSV, TSV) into date-keyed
// series tables.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/stockcorr-cli/internal/series"
)

// DefaultKeyColumn is the date column name used when Options.KeyColumn is empty.
const DefaultKeyColumn = "Date"

// Options controls how a spreadsheet is turned into a table.
type Options struct {
	// Name labels the resulting table. Defaults to the file base name without extension.
	Name string
	// KeyColumn names the date column (case-insensitive). Defaults to "Date".
	KeyColumn string
	// Columns selects value columns (case-insensitive). Empty selects every
	// predominantly numeric column other than the key.
	Columns []string
	// Sheet selects an XLSX sheet by name; SheetIndex (1-based) is used when Sheet is empty.
	Sheet      string
	SheetIndex int
	// Delimiter for CSV. If 0, picked from the extension (',' or '\t').
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Granularity normalizes date keys before deduplication. Defaults to day.
	Granularity series.Granularity
}

func (o Options) keyColumn() string {
	if strings.TrimSpace(o.KeyColumn) == "" {
		return DefaultKeyColumn
	}
	return o.KeyColumn
}

func (o Options) granularity() series.Granularity {
	if o.Granularity == "" {
		return series.GranularityDay
	}
	return o.Granularity
}

// LoadError reports a spreadsheet that could not be turned into a table.
type LoadError struct {
	Path string
	Op   string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", filepath.Base(e.Path), e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrUnsupported indicates a file extension no registered loader handles.
var ErrUnsupported = errors.New("unsupported spreadsheet format")

// ErrNoRows indicates a sheet without a header row.
var ErrNoRows = errors.New("no header row")

// Sheet holds the raw cell text of one worksheet, header row included.
type Sheet struct {
	Rows [][]string
	// Date1904 is set for workbooks whose serial dates count from 1904.
	Date1904 bool
}

// Loader reads one spreadsheet format.
type Loader interface {
	CanLoad(path string) bool
	Read(path string, opt Options) (*Sheet, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func lookup(path string) (Loader, bool) {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l, true
		}
	}
	return nil, false
}

// Supported reports whether some registered loader handles the path's extension.
func Supported(path string) bool {
	_, ok := lookup(path)
	return ok
}

// Load reads path with the loader registered for its extension and builds a table.
func Load(path string, opt Options) (*series.Table, error) {
	sh, err := readSheet(path, opt)
	if err != nil {
		return nil, err
	}
	name := opt.Name
	if name == "" {
		name = StockID(path)
	}
	return buildTable(path, name, sh, opt)
}

func readSheet(path string, opt Options) (*Sheet, error) {
	l, ok := lookup(path)
	if !ok {
		return nil, &LoadError{Path: path, Op: "detect format", Err: ErrUnsupported}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Path: path, Op: "open", Err: err}
	}
	sh, err := l.Read(path, opt)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &LoadError{Path: path, Op: "read", Err: err}
	}
	return sh, nil
}

// StockID derives a stock identifier from a file path ("Stock Data/TCS.xlsx" -> "TCS").
func StockID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func init() {
	Register(xlsxLoader{})
	Register(csvLoader{})
}
