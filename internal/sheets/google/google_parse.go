package google

import (
	"fmt"
	"strings"

	"expensebot/internal/core"
)

// parseRows converts a values matrix (as returned by Sheets API) for the
// range A:D into records. A first row whose amount cell is not numeric is
// treated as the header. Rows with fewer than three cells, or with an amount
// or category that fails validation, are skipped and counted.
func parseRows(values [][]interface{}) (records []core.Record, skipped int) {
	for i, row := range values {
		cols := toStrings(row)
		if i == 0 && len(cols) >= 3 {
			if _, err := core.ParseStoredAmount(cols[2]); err != nil {
				continue
			}
		}
		if len(cols) < 3 {
			if !isBlank(cols) {
				skipped++
			}
			continue
		}
		amount, err := core.ParseStoredAmount(cols[2])
		if err != nil {
			skipped++
			continue
		}
		r := core.Record{
			Date:     cols[0],
			Category: cols[1],
			Amount:   amount,
			Note:     safeGet(cols, 3),
		}
		if err := r.Validate(); err != nil {
			skipped++
			continue
		}
		records = append(records, r)
	}
	return records, skipped
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
