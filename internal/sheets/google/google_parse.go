package google

import (
	"fmt"
	"strconv"
	"strings"

	"painel/internal/core"
)

// parseValues converts a values matrix (as returned by Sheets API) into a
// table. The first non-empty row is the header; blank rows are skipped and
// every row is padded to the header width.
func parseValues(values [][]interface{}) core.Table {
	var t core.Table
	i := 0
	for i < len(values) && isBlank(values[i]) {
		i++
	}
	if i == len(values) {
		return t
	}

	header := toStrings(values[i])
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	t.Header = header

	for _, raw := range values[i+1:] {
		if isBlank(raw) {
			continue
		}
		row := make([]string, len(header))
		copy(row, toStrings(raw))
		t.Rows = append(t.Rows, row)
	}
	return t
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

// cellString renders a JSON-decoded cell. Numbers keep full precision
// without exponent so amounts and date serials parse downstream.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}

func isBlank(row []interface{}) bool {
	for _, v := range row {
		if strings.TrimSpace(cellString(v)) != "" {
			return false
		}
	}
	return true
}
