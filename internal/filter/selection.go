// Package filter narrows the loaded record sets by the dashboard's global
// selection: company group, company, expense groups, categories and period.
package filter

import (
	"fmt"
	"strings"

	"painel/internal/core"
)

// AllOption is the sentinel meaning "do not filter on this criterion".
const AllOption = "All"

// maxDescribed caps how many multi-select values Describe lists.
const maxDescribed = 3

// Selection is the user's current filter choice.
type Selection struct {
	CompanyGroup  string
	Company       string
	ExpenseGroups []string
	Categories    []string
	DateStart     core.Date
	DateEnd       core.Date
}

// DefaultSelection selects everything.
func DefaultSelection() Selection {
	return Selection{CompanyGroup: AllOption, Company: AllOption}
}

func isAll(v string) bool {
	return v == "" || v == AllOption
}

func (s Selection) filtersCompanyGroup() bool { return !isAll(s.CompanyGroup) }
func (s Selection) filtersCompany() bool      { return !isAll(s.Company) }

// HasDateRange reports whether the period filter is active. Both bounds are
// required; a single bound is ignored.
func (s Selection) HasDateRange() bool {
	return !s.DateStart.IsEmpty() && !s.DateEnd.IsEmpty()
}

// IsEmpty reports whether no criterion is active.
func (s Selection) IsEmpty() bool {
	return !s.filtersCompanyGroup() && !s.filtersCompany() &&
		len(s.ExpenseGroups) == 0 && len(s.Categories) == 0 && !s.HasDateRange()
}

// Describe lists the active criteria in a human-readable form.
func (s Selection) Describe() []string {
	var out []string
	if s.filtersCompanyGroup() {
		out = append(out, "Group: "+s.CompanyGroup)
	}
	if s.filtersCompany() {
		out = append(out, "Company: "+s.Company)
	}
	if len(s.ExpenseGroups) > 0 {
		out = append(out, "Groups: "+truncateList(s.ExpenseGroups))
	}
	if len(s.Categories) > 0 {
		out = append(out, "Categories: "+truncateList(s.Categories))
	}
	if s.HasDateRange() {
		out = append(out, fmt.Sprintf("Period: %s to %s", s.DateStart.BR(), s.DateEnd.BR()))
	}
	return out
}

func truncateList(values []string) string {
	if len(values) <= maxDescribed {
		return strings.Join(values, ", ")
	}
	return strings.Join(values[:maxDescribed], ", ") + "..."
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
