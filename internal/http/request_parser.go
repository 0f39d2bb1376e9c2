package http

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"painel/internal/core"
	"painel/internal/filter"
)

const isoDate = "2006-01-02"

// Query parameter names of the global selection.
const (
	paramGroup        = "group"
	paramCompany      = "company"
	paramExpenseGroup = "expense_group"
	paramCategory     = "category"
	paramStart        = "start"
	paramEnd          = "end"
)

// ParseSelection reads the global selection from query parameters. Missing
// parameters select everything; a malformed date is an error.
func ParseSelection(q url.Values) (filter.Selection, error) {
	sel := filter.DefaultSelection()

	if v := strings.TrimSpace(q.Get(paramGroup)); v != "" {
		sel.CompanyGroup = v
	}
	if v := strings.TrimSpace(q.Get(paramCompany)); v != "" {
		sel.Company = v
	}
	sel.ExpenseGroups = multiValue(q, paramExpenseGroup)
	sel.Categories = multiValue(q, paramCategory)

	var err error
	if sel.DateStart, err = parseISODate(q.Get(paramStart)); err != nil {
		return filter.Selection{}, fmt.Errorf("%s: %w", paramStart, err)
	}
	if sel.DateEnd, err = parseISODate(q.Get(paramEnd)); err != nil {
		return filter.Selection{}, fmt.Errorf("%s: %w", paramEnd, err)
	}
	return sel, nil
}

// multiValue collects a repeated parameter, skipping blanks. Values may
// contain commas, so lists are never split.
func multiValue(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseISODate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return core.DateOf(t), nil
}
