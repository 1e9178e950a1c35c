// Package core provides money parsing and handling utilities.
//
// This file contains helpers for amounts that travel through textual stores
// (spreadsheet cells, chat replies) and must come back as numbers.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseStoredAmount converts an amount read back from a store into a float.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading currency symbol. Negative, NaN, infinite or malformed
// values return ErrInvalidAmount.
//
// Examples:
//
//	ParseStoredAmount("12.5")   -> 12.5, nil
//	ParseStoredAmount("12,50")  -> 12.5, nil
//	ParseStoredAmount("$7")     -> 7, nil
//	ParseStoredAmount("-1")     -> 0, ErrInvalidAmount
func ParseStoredAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, DefaultCurrency)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders v with exactly two decimal places.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
