package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatRupiah renders an amount in minor units as "Rp 1.234.567".
func FormatRupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(d)
	}

	if neg {
		return fmt.Sprintf("Rp -%s", sb.String())
	}
	return fmt.Sprintf("Rp %s", sb.String())
}

// ParseAmount parses user-typed amounts like "10.000" or "10,000".
func ParseAmount(text string) (int64, error) {
	cleaned := strings.NewReplacer(".", "", ",", "", " ", "").Replace(strings.TrimSpace(text))
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	return strconv.ParseInt(cleaned, 10, 64)
}
