package pricelist

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount parses a price in either European ("1.234,56") or dot
// ("1234.56") notation. A currency suffix or prefix is ignored.
func parseAmount(s string) (float64, error) {
	clean := strings.TrimSpace(strings.Trim(s, "€ EUR"))

	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, err
	}

	return d.Round(2).InexactFloat64(), nil
}
