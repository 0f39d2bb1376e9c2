package services

import (
	"math"
	"reflect"
	"testing"

	"painel/internal/core"
	"painel/internal/filter"
)

func realizedFixture() core.RecordSet[core.RealizedPayment] {
	schema := core.NewSchema(core.FieldCompanyGroup, core.FieldTradeName, core.FieldExpenseGroup,
		core.FieldCategory, core.FieldPaidOrReceived, core.FieldReconciled, core.FieldRegisteredAt,
		core.FieldIssuedAt, core.FieldSupplier)
	return core.NewRecordSet(core.KindRealized, schema, []core.RealizedPayment{
		{Row: 0, Company: "Loja A", Category: "Aluguel", Supplier: "Imobiliária", Amount: core.Money{Cents: 50000},
			Reconciled: "Sim", IssuedAt: core.NewDate(2024, 1, 5), RegisteredAt: core.NewDate(2024, 1, 20)},
		{Row: 1, Company: "Loja A", Category: "Energia", Supplier: "Enel", Amount: core.Money{Cents: 20000},
			Reconciled: "Não", IssuedAt: core.NewDate(2023, 12, 28), RegisteredAt: core.NewDate(2024, 1, 3)},
		{Row: 2, Company: "Loja B", Category: "Aluguel", Supplier: "Imobiliária", Amount: core.Money{Cents: 30000},
			Reconciled: "Sim", IssuedAt: core.NewDate(2024, 2, 1), RegisteredAt: core.NewDate(2024, 2, 2)},
		{Row: 3, Company: "Loja B", Category: "", Supplier: "Enel", Amount: core.Money{Cents: 5000},
			Reconciled: "", RegisteredAt: core.NewDate(2024, 2, 9)},
	})
}

func receivablesFixture() core.RecordSet[core.Receivable] {
	schema := core.NewSchema(core.FieldCompanyGroup, core.FieldLegalName, core.FieldCategory,
		core.FieldPaidOrReceived, core.FieldReconciled, core.FieldStatementDate, core.FieldCustomer)
	return core.NewRecordSet(core.KindReceivables, schema, []core.Receivable{
		{Row: 0, Company: "Loja A Ltda", Category: "Vendas", Customer: "Cliente X", Amount: core.Money{Cents: 100000},
			Reconciled: "Sim", StatementDate: core.NewDate(2024, 1, 10)},
		{Row: 1, Company: "Loja A Ltda", Category: "Vendas", Customer: "Cliente Y", Amount: core.Money{Cents: 40000},
			Reconciled: "Não", StatementDate: core.NewDate(2024, 2, 10)},
		{Row: 2, Company: "Loja B SA", Category: "Serviços", Customer: "Cliente X", Amount: core.Money{Cents: 60000},
			Reconciled: "Sim"},
	})
}

func scheduledFixture() core.RecordSet[core.ScheduledPayment] {
	schema := core.NewSchema(core.FieldCompanyGroup, core.FieldLegalName, core.FieldExpenseGroup,
		core.FieldCategory, core.FieldNetAmount, core.FieldDueDate, core.FieldIssuedAt,
		core.FieldRegistration, core.FieldSupplierLegalName)
	return core.NewRecordSet(core.KindScheduled, schema, []core.ScheduledPayment{
		{Row: 0, Supplier: "Fornecedor Z", Category: "Impostos", NetAmount: core.Money{Cents: 7000},
			IssuedAt: core.NewDate(2024, 3, 1), RegisteredAt: core.NewDate(2024, 3, 31), DueDate: core.NewDate(2024, 4, 10)},
		{Row: 1, Supplier: "Fornecedor W", Category: "Impostos", NetAmount: core.Money{Cents: 3000},
			IssuedAt: core.NewDate(2024, 3, 1), RegisteredAt: core.NewDate(2024, 4, 1)},
	})
}

func resultFixture() filter.Result {
	return filter.Result{
		Realized:    realizedFixture(),
		Receivables: receivablesFixture(),
		Scheduled:   scheduledFixture(),
		Selection:   filter.DefaultSelection(),
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBuildOverview(t *testing.T) {
	ov := BuildOverview(resultFixture())

	if ov.TotalRevenue.Cents != 200000 || ov.TotalExpenses.Cents != 105000 || ov.PendingExpenses.Cents != 10000 {
		t.Fatalf("unexpected totals: %+v", ov)
	}
	if ov.TotalRecords != 9 || ov.RealizedCount != 4 || ov.ReceivablesCount != 3 || ov.ScheduledCount != 2 {
		t.Fatalf("unexpected counts: %+v", ov)
	}
	if !almostEqual(ov.RealizedReconciledPct, 50) {
		t.Errorf("realized reconciled = %v", ov.RealizedReconciledPct)
	}
	if !almostEqual(ov.ReceivablesReconciledPct, 200.0/3) {
		t.Errorf("receivables reconciled = %v", ov.ReceivablesReconciledPct)
	}

	wantCategories := []core.NamedAmount{
		{Name: "Aluguel", Amount: core.Money{Cents: 80000}, Count: 2},
		{Name: "Energia", Amount: core.Money{Cents: 20000}, Count: 1},
	}
	if !reflect.DeepEqual(ov.TopExpenseCategories, wantCategories) {
		t.Errorf("top categories: got %+v", ov.TopExpenseCategories)
	}
	wantClients := []core.NamedAmount{
		{Name: "Cliente X", Amount: core.Money{Cents: 160000}, Count: 2},
		{Name: "Cliente Y", Amount: core.Money{Cents: 40000}, Count: 1},
	}
	if !reflect.DeepEqual(ov.TopClients, wantClients) {
		t.Errorf("top clients: got %+v", ov.TopClients)
	}
	wantMonths := []core.MonthAmount{
		{Month: "2024-01", Amount: core.Money{Cents: 70000}},
		{Month: "2024-02", Amount: core.Money{Cents: 35000}},
	}
	if !reflect.DeepEqual(ov.MonthlyExpenses, wantMonths) {
		t.Errorf("monthly expenses: got %+v", ov.MonthlyExpenses)
	}
	if len(ov.MonthlyRevenue) != 2 {
		t.Errorf("undated receivables must be skipped, got %+v", ov.MonthlyRevenue)
	}
	if len(ov.ActiveFilters) != 0 {
		t.Errorf("no filters expected, got %v", ov.ActiveFilters)
	}
}

func TestBuildOverviewEmpty(t *testing.T) {
	ov := BuildOverview(filter.Result{})
	if ov.TotalRecords != 0 || ov.RealizedReconciledPct != 0 || len(ov.TopSuppliers) != 0 {
		t.Fatalf("empty result should give zero overview, got %+v", ov)
	}
}

func TestTopByLimitAndTies(t *testing.T) {
	schema := core.NewSchema(core.FieldCategory, core.FieldPaidOrReceived)
	var records []core.Receivable
	for i, name := range []string{"d", "c", "b", "a"} {
		records = append(records, core.Receivable{Row: i, Category: name, Amount: core.Money{Cents: 100}})
	}
	set := core.NewRecordSet(core.KindReceivables, schema, records)

	got := TopBy(set, core.FieldCategory, core.FieldPaidOrReceived, 3)
	var names []string
	for _, g := range got {
		names = append(names, g.Name)
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Fatalf("got %v", names)
	}
	if got := TopBy(set, core.FieldCustomer, core.FieldPaidOrReceived, 3); len(got) != 0 {
		t.Fatalf("missing key column should give no rows, got %v", got)
	}
}

func TestBuildReconciliation(t *testing.T) {
	rep := BuildReconciliation(resultFixture())

	r := rep.Realized
	if r.Total != 4 || r.Reconciled != 2 || r.Unreconciled != 2 || !almostEqual(r.Percent, 50) {
		t.Fatalf("unexpected realized status %+v", r)
	}
	if r.ReconciledAmount.Cents != 80000 || r.UnreconciledAmount.Cents != 25000 {
		t.Fatalf("unexpected amounts %+v", r)
	}
	wantPending := []RecordLine{
		{Row: 1, Counterparty: "Enel", Category: "Energia", Amount: core.Money{Cents: 20000}},
		{Row: 3, Counterparty: "Enel", Amount: core.Money{Cents: 5000}},
	}
	if !reflect.DeepEqual(r.Pending, wantPending) {
		t.Fatalf("pending: got %+v", r.Pending)
	}

	if rep.Receivables.Pending[0].Counterparty != "Cliente Y" {
		t.Fatalf("receivables pending should name the client, got %+v", rep.Receivables.Pending)
	}

	wantByCompany := []core.NamedPercent{{Name: "Loja A", Percent: 50}, {Name: "Loja B", Percent: 50}}
	if !reflect.DeepEqual(rep.ByCompany, wantByCompany) {
		t.Fatalf("by company: got %+v", rep.ByCompany)
	}
}

func TestReconciliationPendingIsCapped(t *testing.T) {
	schema := core.NewSchema(core.FieldReconciled, core.FieldPaidOrReceived)
	records := make([]core.RealizedPayment, 30)
	for i := range records {
		records[i] = core.RealizedPayment{Row: i, Reconciled: "Não"}
	}
	res := filter.Result{Realized: core.NewRecordSet(core.KindRealized, schema, records)}

	rep := BuildReconciliation(res)
	if rep.Realized.Unreconciled != 30 || len(rep.Realized.Pending) != 20 {
		t.Fatalf("got %d unreconciled, %d listed", rep.Realized.Unreconciled, len(rep.Realized.Pending))
	}
	if rep.Realized.Pending[19].Row != 19 {
		t.Fatalf("list should keep the first records in order")
	}
}

func TestIsCompliant(t *testing.T) {
	tests := []struct {
		name       string
		issued     core.Date
		registered core.Date
		want       bool
	}{
		{"same month", core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31), true},
		{"next month", core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 1), false},
		{"same month other year", core.NewDate(2023, 1, 10), core.NewDate(2024, 1, 10), false},
		{"missing issue", core.Date{}, core.NewDate(2024, 1, 1), false},
		{"missing registration", core.NewDate(2024, 1, 1), core.Date{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCompliant(tt.issued, tt.registered); got != tt.want {
				t.Errorf("IsCompliant() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildCompliance(t *testing.T) {
	rep := BuildCompliance(resultFixture())

	if rep.Realized.Total != 4 || rep.Realized.Compliant != 2 || rep.Realized.NonCompliant != 2 {
		t.Fatalf("realized: %+v", rep.Realized)
	}
	if rep.Scheduled.Total != 2 || rep.Scheduled.Compliant != 1 {
		t.Fatalf("scheduled: %+v", rep.Scheduled)
	}
	if !almostEqual(rep.OverallPercent, 50) || rep.TotalNonCompliant != 3 {
		t.Fatalf("overall: %v %d", rep.OverallPercent, rep.TotalNonCompliant)
	}
	if got := rep.Scheduled.Offenders; len(got) != 1 || got[0].Counterparty != "Fornecedor W" || got[0].Amount.Cents != 3000 {
		t.Fatalf("scheduled offenders: %+v", got)
	}
	wantByCompany := []core.NamedPercent{{Name: "Loja A", Percent: 50}, {Name: "Loja B", Percent: 50}}
	if !reflect.DeepEqual(rep.ByCompany, wantByCompany) {
		t.Fatalf("by company: %+v", rep.ByCompany)
	}
}

func TestBuildComplianceMissingColumns(t *testing.T) {
	res := resultFixture()
	res.Scheduled.Schema = core.NewSchema(core.FieldIssuedAt)

	rep := BuildCompliance(res)
	if rep.Scheduled.Total != 0 || rep.Scheduled.Percent != 0 {
		t.Fatalf("set without Registro should report zeros, got %+v", rep.Scheduled)
	}
	if !almostEqual(rep.OverallPercent, 50) {
		t.Fatalf("overall should only count realized, got %v", rep.OverallPercent)
	}
}
