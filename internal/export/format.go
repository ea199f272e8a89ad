package export

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// formatFloat formats with exactly 2 decimal places so BI tools see a stable shape
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatOptional renders a missing value as an empty cell
func formatOptional(v *float64, places int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', places, 64)
}

func formatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
