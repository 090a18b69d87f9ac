package grid

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseValue attempts to parse a string value as a typed scalar.
// Returns nil for empty cells, int64 for integers, float64 for decimals,
// bool for TRUE/FALSE, or the original string.
func parseValue(s string) any {
	if s == "" {
		return nil
	}
	// Try integer first
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	// Try float
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return s
}

// Text renders a cell scalar the way it is compared and reported.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}

// IsBlank reports whether a cell holds nothing but whitespace.
func IsBlank(v any) bool {
	return strings.TrimSpace(Text(v)) == ""
}

// At returns row[col], or nil when the row is shorter.
func At(row []any, col int) any {
	if col < 0 || col >= len(row) {
		return nil
	}
	return row[col]
}

// RowIsEmpty reports whether every cell in row is blank.
func RowIsEmpty(row []any) bool {
	for _, v := range row {
		if !IsBlank(v) {
			return false
		}
	}
	return true
}

// Headers returns the texts of the header row; blank headers become Column_N.
func Headers(row []any) []string {
	headers := make([]string, len(row))
	for i, v := range row {
		h := strings.TrimSpace(Text(v))
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}
	return headers
}
