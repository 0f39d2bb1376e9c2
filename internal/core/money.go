// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from extract cells
// and formatting cents as Brazilian reais.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseDecimalToCents converts a decimal string to signed cents with proper rounding.
//
// It accepts raw decimals (1234.5) and BRL strings (R$ 1.234,56). When both
// separators appear the last one is the decimal separator; a lone separator
// repeated more than once is a thousands separator. In a value carrying the
// R$ prefix a lone dot always groups thousands. Half-up rounding is applied
// on the third decimal place. Scientific notation falls back to float parsing.
//
// Examples:
//
//	ParseDecimalToCents("12.34")        -> 1234, nil
//	ParseDecimalToCents("R$ 1.234,56")  -> 123456, nil
//	ParseDecimalToCents("-1.234,567")   -> -123457, nil
//	ParseDecimalToCents("1.234.567")    -> 123456700, nil
//	ParseDecimalToCents("R$ 1.234")     -> 123400, nil
func ParseDecimalToCents(s string) (int64, error) {
	// unicode.IsSpace also covers the NBSP spreadsheets put after "R$"
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s, brl := strings.CutPrefix(s, "R$")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return parseFloatCents(s)
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	// "-R$ 10,00" is as common as "R$ -10,00"
	if rest, ok := strings.CutPrefix(s, "R$"); ok {
		s, brl = rest, true
	}
	if s == "" {
		return 0, ErrInvalidAmount
	}

	intPart, fracPart, err := splitDecimal(s, brl)
	if err != nil {
		return 0, err
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv >= maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if negative {
		cents = -cents
	}
	return cents, nil
}

// splitDecimal separates the integer digits from the fractional digits,
// dropping thousands separators. brl marks Brazilian formatting, where the
// comma is the only decimal separator.
func splitDecimal(s string, brl bool) (string, string, error) {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	var decimalSep, thousandSep string
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			decimalSep, thousandSep = ",", "."
		} else {
			decimalSep, thousandSep = ".", ","
		}
		if strings.Count(s, decimalSep) > 1 {
			return "", "", ErrInvalidAmount
		}
	case commas == 1:
		decimalSep = ","
	case commas > 1:
		thousandSep = ","
	case dots == 1 && !brl:
		decimalSep = "."
	case dots > 0:
		thousandSep = "."
	}

	if thousandSep != "" {
		s = strings.ReplaceAll(s, thousandSep, "")
	}
	if decimalSep == "" {
		return s, "", nil
	}
	intPart, fracPart, _ := strings.Cut(s, decimalSep)
	return intPart, fracPart, nil
}

func parseFloatCents(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	cents := math.Round(f * 100)
	if math.Abs(cents) >= math.MaxInt64/2 {
		return 0, ErrInvalidAmount
	}
	return int64(cents), nil
}

// ParseMoney parses an extract cell into Money. Empty cells are zero.
func ParseMoney(s string) (Money, error) {
	if strings.TrimSpace(s) == "" {
		return Money{}, nil
	}
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", err, s)
	}
	return Money{Cents: cents}, nil
}

// FormatBRL renders cents as "R$ 1.234,56"; negative values become "R$ -1.234,56".
func FormatBRL(cents int64) string {
	sign, abs := splitSign(cents)
	whole := strings.ReplaceAll(humanize.Comma(int64(abs/100)), ",", ".")
	return fmt.Sprintf("R$ %s%s,%02d", sign, whole, abs%100)
}

// splitSign returns the sign prefix and magnitude of cents. The magnitude is
// unsigned so math.MinInt64 does not overflow.
func splitSign(cents int64) (string, uint64) {
	if cents < 0 {
		return "-", uint64(-(cents + 1)) + 1
	}
	return "", uint64(cents)
}
