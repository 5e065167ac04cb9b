package google

import (
	"fmt"
	"strings"

	ports "salesboard/internal/sheets"
)

// parseTable converts a values matrix (as returned by Sheets API) into a
// Table. Leading blank rows are dropped; the API omits trailing empty cells,
// so rows may be shorter than the header.
func parseTable(name string, values [][]interface{}) ports.Table {
	out := ports.Table{Name: name}
	for _, row := range values {
		cols := toStrings(row)
		if len(out.Values) == 0 && isBlank(cols) {
			continue
		}
		out.Values = append(out.Values, cols)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
