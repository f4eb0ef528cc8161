package utils

import (
	"math"
	"strconv"
)

// ParseFloat converts a string to a float64, returning 0 if the string is empty
func ParseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return value, nil
}

// ParseTokenValue converts a raw integer token amount (as reported by block
// explorers, e.g. "10000000" for 10 USDT) into a float using the token's
// decimal count.
func ParseTokenValue(raw string, decimals int) (float64, error) {
	value, err := ParseFloat(raw)
	if err != nil {
		return 0, err
	}
	if decimals <= 0 {
		return value, nil
	}
	return value / math.Pow10(decimals), nil
}
