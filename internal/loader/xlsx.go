package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".xlsx" || ext == ".xlsm"
}

// Read returns raw cell values of the selected sheet. Sheet name wins over
// SheetIndex; with neither set the first sheet is used. Raw values keep dates
// as serial numbers and percentages as fractions.
func (xlsxLoader) Read(path string, opt Options) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open xlsx", Err: err}
	}
	defer f.Close()

	sheet, err := resolveSheet(f, opt.Sheet, opt.SheetIndex)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "select sheet", Err: err}
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &LoadError{Path: path, Op: "read sheet " + sheet, Err: err}
	}
	sh := &Sheet{Rows: rows}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		sh.Date1904 = *props.Date1904
	}
	return sh, nil
}

func resolveSheet(f *excelize.File, name string, index int) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if name != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, name) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found; available sheets: %s", name, strings.Join(sheets, ", "))
	}
	if index <= 0 {
		index = 1
	}
	if index > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", index, len(sheets))
	}
	return sheets[index-1], nil
}

// IsWorkbook reports whether path is read by the XLSX loader and so has sheets.
func IsWorkbook(path string) bool {
	return xlsxLoader{}.CanLoad(path)
}

// SheetNames lists the worksheets of an XLSX workbook in order.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open xlsx", Err: err}
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
