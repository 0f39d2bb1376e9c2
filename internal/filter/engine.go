package filter

import "painel/internal/core"

// Result holds the narrowed record sets together with the selection that
// produced them.
type Result struct {
	Realized    core.RecordSet[core.RealizedPayment]
	Receivables core.RecordSet[core.Receivable]
	Scheduled   core.RecordSet[core.ScheduledPayment]
	Selection   Selection
}

// Apply narrows the realized, receivable and scheduled sets of ds. Each
// criterion applies only to sets whose schema carries the relevant column.
// With an empty selection the input sets are returned as they are.
// The forecast is never filtered.
func Apply(ds *core.Dataset, sel Selection) Result {
	return Result{
		Realized:    narrow(ds.Realized, sel),
		Receivables: narrow(ds.Receivables, sel),
		Scheduled:   narrow(ds.Scheduled, sel),
		Selection:   sel,
	}
}

func narrow[R core.Record](set core.RecordSet[R], sel Selection) core.RecordSet[R] {
	preds := predicates[R](set, sel)
	if len(preds) == 0 {
		return set
	}
	return set.Where(func(r R) bool {
		for _, keep := range preds {
			if !keep(r) {
				return false
			}
		}
		return true
	})
}

// predicates builds one predicate per active criterion the set can honor.
func predicates[R core.Record](set core.RecordSet[R], sel Selection) []func(R) bool {
	var preds []func(R) bool

	if sel.filtersCompanyGroup() && set.Schema.Has(core.FieldCompanyGroup) {
		group := sel.CompanyGroup
		preds = append(preds, func(r R) bool { return r.Text(core.FieldCompanyGroup) == group })
	}

	companyField := set.Kind.CompanyField()
	if sel.filtersCompany() && set.Schema.Has(companyField) {
		company := sel.Company
		preds = append(preds, func(r R) bool { return r.Text(companyField) == company })
	}

	if len(sel.ExpenseGroups) > 0 && set.Schema.Has(core.FieldExpenseGroup) {
		groups := toSet(sel.ExpenseGroups)
		preds = append(preds, func(r R) bool {
			_, ok := groups[r.Text(core.FieldExpenseGroup)]
			return ok
		})
	}

	if len(sel.Categories) > 0 && set.Schema.Has(core.FieldCategory) {
		categories := toSet(sel.Categories)
		preds = append(preds, func(r R) bool {
			_, ok := categories[r.Text(core.FieldCategory)]
			return ok
		})
	}

	dateField := set.Kind.FilterDateField()
	if sel.HasDateRange() && set.Schema.Has(dateField) {
		start, end := sel.DateStart, sel.DateEnd
		preds = append(preds, func(r R) bool {
			d := r.DateOf(dateField)
			if d.IsEmpty() {
				return false
			}
			return !d.Before(start.Time) && !d.After(end.Time)
		})
	}

	return preds
}
