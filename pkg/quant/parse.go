package quant

import (
	"errors"
	"strconv"
	"strings"
)

// ParsePriceMicros parses a string decimal (e.g. "123.45") to PriceMicros.
// It avoids float64 entirely for safety.
func ParsePriceMicros(s string) (PriceMicros, error) {
	v, err := parseFixedPoint(s, 6)
	return PriceMicros(v), err
}

// ParseQtySats parses a string decimal (e.g. "0.00123") to QtySats.
// It avoids float64 entirely for safety.
func ParseQtySats(s string) (QtySats, error) {
	v, err := parseFixedPoint(s, 8)
	return QtySats(v), err
}

// parseFixedPoint parses a string representation of a decimal into an
// integer scaled by 10^decimals. Example: "1.23", decimals=6 -> 1230000.
// Extra fractional precision is truncated (floor).
func parseFixedPoint(s string, decimals int) (int64, error) {
	if s == "" {
		return 0, nil
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, errors.New("invalid decimal format: multiple dots")
	}

	integerPart := parts[0]
	fractionalPart := ""
	if len(parts) == 2 {
		fractionalPart = parts[1]
	}

	sign := int64(1)
	if strings.HasPrefix(integerPart, "-") {
		sign = -1
		integerPart = integerPart[1:]
	}

	var intVal int64
	if integerPart != "" {
		var err error
		intVal, err = strconv.ParseInt(integerPart, 10, 64)
		if err != nil {
			return 0, err
		}
	}

	if len(fractionalPart) > decimals {
		fractionalPart = fractionalPart[:decimals]
	} else {
		fractionalPart = fractionalPart + strings.Repeat("0", decimals-len(fractionalPart))
	}

	var fracVal int64
	if fractionalPart != "" {
		var err error
		fracVal, err = strconv.ParseInt(fractionalPart, 10, 64)
		if err != nil {
			return 0, err
		}
	}

	multiplier := int64(1)
	for i := 0; i < decimals; i++ {
		multiplier *= 10
	}

	return (intVal*multiplier + fracVal) * sign, nil
}
