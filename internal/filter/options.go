package filter

import (
	"sort"

	"painel/internal/core"
)

// Options are the choices offered for each selection criterion.
type Options struct {
	CompanyGroups []string  `json:"company_groups"`
	Companies     []string  `json:"companies"`
	ExpenseGroups []string  `json:"expense_groups"`
	Categories    []string  `json:"categories"`
	DateMin       core.Date `json:"date_min"`
	DateMax       core.Date `json:"date_max"`
}

// BuildOptions computes the option universes from the raw record sets.
// Companies are only listed once a company group is chosen.
func BuildOptions(ds *core.Dataset, companyGroup string) Options {
	groups := newCollector()
	companies := newCollector()
	expenseGroups := newCollector()
	categories := newCollector()
	var bounds dateBounds

	collect := func(kind core.Kind, schema core.Schema, rec core.Record) {
		if schema.Has(core.FieldCompanyGroup) {
			groups.add(rec.Text(core.FieldCompanyGroup))
		}
		if !isAll(companyGroup) && schema.HasAll(core.FieldCompanyGroup, kind.CompanyField()) &&
			rec.Text(core.FieldCompanyGroup) == companyGroup {
			companies.add(rec.Text(kind.CompanyField()))
		}
		if schema.Has(core.FieldExpenseGroup) {
			expenseGroups.add(rec.Text(core.FieldExpenseGroup))
		}
		if schema.Has(core.FieldCategory) {
			categories.add(rec.Text(core.FieldCategory))
		}
		if f := kind.FilterDateField(); schema.Has(f) {
			bounds.add(rec.DateOf(f))
		}
	}

	for _, r := range ds.Realized.Records {
		collect(ds.Realized.Kind, ds.Realized.Schema, r)
	}
	for _, r := range ds.Receivables.Records {
		collect(ds.Receivables.Kind, ds.Receivables.Schema, r)
	}
	for _, r := range ds.Scheduled.Records {
		collect(ds.Scheduled.Kind, ds.Scheduled.Schema, r)
	}

	return Options{
		CompanyGroups: append([]string{AllOption}, groups.sorted()...),
		Companies:     append([]string{AllOption}, companies.sorted()...),
		ExpenseGroups: expenseGroups.sorted(),
		Categories:    categories.sorted(),
		DateMin:       bounds.min,
		DateMax:       bounds.max,
	}
}

type collector map[string]struct{}

func newCollector() collector { return collector{} }

// add ignores empty cells.
func (c collector) add(v string) {
	if v != "" {
		c[v] = struct{}{}
	}
}

func (c collector) sorted() []string {
	out := make([]string, 0, len(c))
	for v := range c {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type dateBounds struct {
	min, max core.Date
}

func (b *dateBounds) add(d core.Date) {
	if d.IsEmpty() {
		return
	}
	if b.min.IsEmpty() || d.Before(b.min.Time) {
		b.min = d
	}
	if b.max.IsEmpty() || d.After(b.max.Time) {
		b.max = d
	}
}
