package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// StockFile is a spreadsheet found in a stock folder.
type StockFile struct {
	ID   string
	Path string
}

// ScanDir lists supported spreadsheets directly inside dir, sorted by stock id.
// Office lock files ("~$...") and hidden files are skipped.
func ScanDir(dir string) ([]StockFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan stock folder: %w", err)
	}
	var out []StockFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		p := filepath.Join(dir, name)
		if !Supported(p) {
			continue
		}
		out = append(out, StockFile{ID: StockID(p), Path: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID == out[j].ID {
			return out[i].Path < out[j].Path
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
