package symbolspec

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseScaledInt parses a positive decimal string into a fixed-scale int64.
// Example: value=12.34, scale=4 => 123400.
func ParseScaledInt(value string, scale int32) (int64, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	if scale < 0 || scale > MaxScale {
		return 0, fmt.Errorf("scale must be within 0..%d", MaxScale)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal format")
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("value must be positive")
	}

	scaled := d.Shift(scale)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("too many decimal places: max %d", scale)
	}
	n := scaled.BigInt()
	if !n.IsInt64() {
		return 0, fmt.Errorf("value overflow")
	}
	return n.Int64(), nil
}

// FormatScaledInt formats a scaled int64 to decimal and trims trailing zeros.
func FormatScaledInt(v int64, scale int32) string {
	return decimal.New(v, -scale).String()
}
