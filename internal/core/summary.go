package core

import "fmt"

// DueBucketRow is one line of the due-date table.
type DueBucketRow struct {
	Label string `json:"label"`
	Total string `json:"total"`
	Count int    `json:"count"`
}

// NamedAmount represents an amount aggregated by a grouping key.
type NamedAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
	Count  int    `json:"count"`
}

// NamedPercent is a percentage aggregated by a grouping key.
type NamedPercent struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
}

// MonthAmount is a total for a calendar month (YYYY-MM).
type MonthAmount struct {
	Month  string `json:"month"`
	Amount Money  `json:"amount"`
}

// MarshalJSON renders Money as a decimal number of reais.
func (m Money) MarshalJSON() ([]byte, error) {
	sign, cents := splitSign(m.Cents)
	return fmt.Appendf(nil, "%s%d.%02d", sign, cents/100, cents%100), nil
}
