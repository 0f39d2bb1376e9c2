package services

import (
	"sort"

	"painel/internal/core"
	"painel/internal/filter"
)

const (
	// TopN is the length of every ranking.
	TopN = 10
	// listLimit caps the unreconciled and non-compliant record lists.
	listLimit = 20
)

// Overview holds the headline indicators of the filtered data.
type Overview struct {
	TotalRevenue             core.Money         `json:"total_revenue"`
	TotalExpenses            core.Money         `json:"total_expenses"`
	PendingExpenses          core.Money         `json:"pending_expenses"`
	RealizedCount            int                `json:"realized_count"`
	ReceivablesCount         int                `json:"receivables_count"`
	ScheduledCount           int                `json:"scheduled_count"`
	TotalRecords             int                `json:"total_records"`
	RealizedReconciledPct    float64            `json:"realized_reconciled_pct"`
	ReceivablesReconciledPct float64            `json:"receivables_reconciled_pct"`
	TopExpenseCategories     []core.NamedAmount `json:"top_expense_categories"`
	TopRevenueCategories     []core.NamedAmount `json:"top_revenue_categories"`
	TopPendingCategories     []core.NamedAmount `json:"top_pending_categories"`
	TopSuppliers             []core.NamedAmount `json:"top_suppliers"`
	TopPendingSuppliers      []core.NamedAmount `json:"top_pending_suppliers"`
	TopClients               []core.NamedAmount `json:"top_clients"`
	RevenueByCompany         []core.NamedAmount `json:"revenue_by_company"`
	MonthlyExpenses          []core.MonthAmount `json:"monthly_expenses"`
	MonthlyRevenue           []core.MonthAmount `json:"monthly_revenue"`
	ActiveFilters            []string           `json:"active_filters"`
}

// RecordLine is a record summarized for the unreconciled and non-compliant
// lists.
type RecordLine struct {
	Row          int        `json:"row"`
	Counterparty string     `json:"counterparty"`
	Category     string     `json:"category,omitempty"`
	Amount       core.Money `json:"amount"`
	Issued       core.Date  `json:"issued"`
	Registered   core.Date  `json:"registered"`
}

// ReconciliationStatus summarizes the Conciliado column of a set.
type ReconciliationStatus struct {
	Total              int          `json:"total"`
	Reconciled         int          `json:"reconciled"`
	Unreconciled       int          `json:"unreconciled"`
	ReconciledAmount   core.Money   `json:"reconciled_amount"`
	UnreconciledAmount core.Money   `json:"unreconciled_amount"`
	Percent            float64      `json:"percent"`
	Pending            []RecordLine `json:"pending"`
}

type ReconciliationReport struct {
	Realized    ReconciliationStatus `json:"realized"`
	Receivables ReconciliationStatus `json:"receivables"`
	ByCompany   []core.NamedPercent  `json:"by_company"`
}

// ComplianceStatus counts records whose issue month matches their
// registration month.
type ComplianceStatus struct {
	Total        int          `json:"total"`
	Compliant    int          `json:"compliant"`
	NonCompliant int          `json:"non_compliant"`
	Percent      float64      `json:"percent"`
	Offenders    []RecordLine `json:"offenders"`
}

type ComplianceReport struct {
	Realized          ComplianceStatus    `json:"realized"`
	Scheduled         ComplianceStatus    `json:"scheduled"`
	OverallPercent    float64             `json:"overall_percent"`
	TotalNonCompliant int                 `json:"total_non_compliant"`
	ByCompany         []core.NamedPercent `json:"by_company"`
}

// BuildOverview computes the headline indicators and rankings.
func BuildOverview(res filter.Result) Overview {
	realized, receivables, scheduled := res.Realized, res.Receivables, res.Scheduled
	return Overview{
		TotalRevenue:             receivables.Sum(core.FieldPaidOrReceived),
		TotalExpenses:            realized.Sum(core.FieldPaidOrReceived),
		PendingExpenses:          scheduled.Sum(core.FieldNetAmount),
		RealizedCount:            realized.Len(),
		ReceivablesCount:         receivables.Len(),
		ScheduledCount:           scheduled.Len(),
		TotalRecords:             realized.Len() + receivables.Len() + scheduled.Len(),
		RealizedReconciledPct:    reconciledPercent(realized),
		ReceivablesReconciledPct: reconciledPercent(receivables),
		TopExpenseCategories:     TopBy(realized, core.FieldCategory, core.FieldPaidOrReceived, TopN),
		TopRevenueCategories:     TopBy(receivables, core.FieldCategory, core.FieldPaidOrReceived, TopN),
		TopPendingCategories:     TopBy(scheduled, core.FieldCategory, core.FieldNetAmount, TopN),
		TopSuppliers:             TopBy(realized, core.FieldSupplier, core.FieldPaidOrReceived, TopN),
		TopPendingSuppliers:      TopBy(scheduled, core.FieldSupplierLegalName, core.FieldNetAmount, TopN),
		TopClients:               TopBy(receivables, core.FieldCustomer, core.FieldPaidOrReceived, TopN),
		RevenueByCompany:         TopBy(receivables, core.FieldLegalName, core.FieldPaidOrReceived, 0),
		MonthlyExpenses:          MonthlyTotals(realized, core.FieldRegisteredAt, core.FieldPaidOrReceived),
		MonthlyRevenue:           MonthlyTotals(receivables, core.FieldStatementDate, core.FieldPaidOrReceived),
		ActiveFilters:            res.Selection.Describe(),
	}
}

// TopBy groups the set by a text column and returns the largest totals first,
// with ties broken by name. n <= 0 returns every group. Records with an empty
// key are skipped.
func TopBy[R core.Record](set core.RecordSet[R], keyField, amountField core.Field, n int) []core.NamedAmount {
	if !set.Schema.HasAll(keyField, amountField) {
		return []core.NamedAmount{}
	}
	byName := make(map[string]*core.NamedAmount)
	for _, r := range set.Records {
		name := r.Text(keyField)
		if name == "" {
			continue
		}
		acc, ok := byName[name]
		if !ok {
			acc = &core.NamedAmount{Name: name}
			byName[name] = acc
		}
		acc.Amount = acc.Amount.Add(r.AmountOf(amountField))
		acc.Count++
	}

	out := make([]core.NamedAmount, 0, len(byName))
	for _, acc := range byName {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MonthlyTotals sums the amount column per calendar month of the date
// column, in ascending month order. Records without a date are skipped.
func MonthlyTotals[R core.Record](set core.RecordSet[R], dateField, amountField core.Field) []core.MonthAmount {
	if !set.Schema.HasAll(dateField, amountField) {
		return []core.MonthAmount{}
	}
	byMonth := make(map[string]core.Money)
	for _, r := range set.Records {
		month := r.DateOf(dateField).MonthKey()
		if month == "" {
			continue
		}
		byMonth[month] = byMonth[month].Add(r.AmountOf(amountField))
	}

	out := make([]core.MonthAmount, 0, len(byMonth))
	for month, amount := range byMonth {
		out = append(out, core.MonthAmount{Month: month, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func isReconciled[R core.Record](r R) bool {
	return r.Text(core.FieldReconciled) == core.ReconciledYes
}

func reconciledPercent[R core.Record](set core.RecordSet[R]) float64 {
	if !set.Schema.Has(core.FieldReconciled) {
		return 0
	}
	n := 0
	for _, r := range set.Records {
		if isReconciled(r) {
			n++
		}
	}
	return percent(n, set.Len())
}

// BuildReconciliation reports reconciled and pending records for realized
// payments and receivables.
func BuildReconciliation(res filter.Result) ReconciliationReport {
	return ReconciliationReport{
		Realized:    reconciliationStatus(res.Realized, core.FieldSupplier),
		Receivables: reconciliationStatus(res.Receivables, core.FieldCustomer),
		ByCompany:   percentByCompany(res.Realized, core.FieldReconciled, isReconciled[core.RealizedPayment]),
	}
}

func reconciliationStatus[R core.Record](set core.RecordSet[R], counterpartyField core.Field) ReconciliationStatus {
	status := ReconciliationStatus{Pending: []RecordLine{}}
	if !set.Schema.Has(core.FieldReconciled) {
		return status
	}
	amountField := set.Kind.AmountField()
	for _, r := range set.Records {
		status.Total++
		amount := r.AmountOf(amountField)
		if isReconciled(r) {
			status.Reconciled++
			status.ReconciledAmount = status.ReconciledAmount.Add(amount)
			continue
		}
		status.Unreconciled++
		status.UnreconciledAmount = status.UnreconciledAmount.Add(amount)
		if len(status.Pending) < listLimit {
			status.Pending = append(status.Pending, RecordLine{
				Row:          r.RowID(),
				Counterparty: r.Text(counterpartyField),
				Category:     r.Text(core.FieldCategory),
				Amount:       amount,
			})
		}
	}
	status.Percent = percent(status.Reconciled, status.Total)
	return status
}

// percentByCompany returns, per company, the share of records satisfying ok,
// highest first. The set must carry the company column and the column ok reads.
func percentByCompany[R core.Record](set core.RecordSet[R], requires core.Field, ok func(R) bool) []core.NamedPercent {
	companyField := set.Kind.CompanyField()
	if !set.Schema.HasAll(companyField, requires) {
		return []core.NamedPercent{}
	}
	type tally struct{ hits, total int }
	byCompany := make(map[string]*tally)
	for _, r := range set.Records {
		name := r.Text(companyField)
		if name == "" {
			continue
		}
		t, found := byCompany[name]
		if !found {
			t = &tally{}
			byCompany[name] = t
		}
		t.total++
		if ok(r) {
			t.hits++
		}
	}

	out := make([]core.NamedPercent, 0, len(byCompany))
	for name, t := range byCompany {
		out = append(out, core.NamedPercent{Name: name, Percent: percent(t.hits, t.total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// IsCompliant reports whether issue and registration fall in the same
// calendar month. A missing date is never compliant.
func IsCompliant(issued, registered core.Date) bool {
	if issued.IsEmpty() || registered.IsEmpty() {
		return false
	}
	return issued.MonthKey() == registered.MonthKey()
}

// BuildCompliance checks realized payments (Emissão vs Data de Registro) and
// scheduled payments (Emissão vs Registro).
func BuildCompliance(res filter.Result) ComplianceReport {
	realized := complianceStatus(res.Realized, core.FieldRegisteredAt, core.FieldSupplier)
	scheduled := complianceStatus(res.Scheduled, core.FieldRegistration, core.FieldSupplierLegalName)

	realizedCompliant := func(r core.RealizedPayment) bool {
		return IsCompliant(r.IssuedAt, r.RegisteredAt)
	}
	var byCompany []core.NamedPercent
	if res.Realized.Schema.Has(core.FieldIssuedAt) {
		byCompany = percentByCompany(res.Realized, core.FieldRegisteredAt, realizedCompliant)
	} else {
		byCompany = []core.NamedPercent{}
	}

	return ComplianceReport{
		Realized:          realized,
		Scheduled:         scheduled,
		OverallPercent:    percent(realized.Compliant+scheduled.Compliant, realized.Total+scheduled.Total),
		TotalNonCompliant: realized.NonCompliant + scheduled.NonCompliant,
		ByCompany:         byCompany,
	}
}

func complianceStatus[R core.Record](set core.RecordSet[R], registeredField, counterpartyField core.Field) ComplianceStatus {
	status := ComplianceStatus{Offenders: []RecordLine{}}
	if !set.Schema.HasAll(core.FieldIssuedAt, registeredField) {
		return status
	}
	amountField := set.Kind.AmountField()
	for _, r := range set.Records {
		status.Total++
		issued, registered := r.DateOf(core.FieldIssuedAt), r.DateOf(registeredField)
		if IsCompliant(issued, registered) {
			status.Compliant++
			continue
		}
		status.NonCompliant++
		if len(status.Offenders) < listLimit {
			status.Offenders = append(status.Offenders, RecordLine{
				Row:          r.RowID(),
				Counterparty: r.Text(counterpartyField),
				Amount:       r.AmountOf(amountField),
				Issued:       issued,
				Registered:   registered,
			})
		}
	}
	status.Percent = percent(status.Compliant, status.Total)
	return status
}
