package loader

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Layouts tried for text date keys, in order. Day-first wins over month-first
// for ambiguous slash dates.
var keyLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05-07:00", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"02-01-2006", "2-Jan-2006", "02-Jan-06", "01-02-06", "2006-01", "Jan-06", "Jan-2006",
	"Jan 2006", "January 2006", "Jan 2, 2006", "2006",
}

// Serial day numbers accepted from spreadsheets: 1900-01-01 .. 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseDate parses a date written in any layout accepted for key cells.
func ParseDate(s string) (time.Time, bool) {
	t, ok := parseKey(s, false)
	if !ok {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseKey(s string, date1904 bool) (time.Time, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, false
	}
	for _, l := range keyLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, true
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < minExcelSerial || f > maxExcelSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var missingMarkers = map[string]struct{}{
	"": {}, "-": {}, "--": {}, "na": {}, "n/a": {}, "#n/a": {}, "nan": {}, "null": {}, "none": {},
}

func isMissing(s string) bool {
	_, ok := missingMarkers[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// parseNumber parses locale-formatted numbers such as "1.234,5", "12.5%",
// "₹ 1,200" or "(350)".
func parseNumber(s string, dec, thou rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	neg := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		neg = true
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.TrimLeft(raw, "₹$€£ ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0 && strings.Count(raw, ",") == 1 && len(raw)-cpos-1 != 3:
			dec = ','
		case dpos >= 0 && strings.Count(raw, ".") > 1:
			dec, thou = ',', '.'
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' ', '\''} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
		raw = strings.ReplaceAll(raw, " ", "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}
