package dataset

import (
	"errors"
	"reflect"
	"testing"

	"golang.org/x/text/unicode/norm"

	"painel/internal/core"
)

func TestNormalizeHeader(t *testing.T) {
	decomposed := norm.NFD.String("Emissão")
	got := NormalizeHeader([]string{" grupo ", "Categoria", "Grupo", decomposed, "Extra", "Extra", ""})
	want := []core.Field{
		core.FieldCompanyGroup,
		core.FieldCategory,
		core.FieldExpenseGroup,
		core.FieldIssuedAt,
		"Extra",
		"Extra.1",
		"",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeHeader = %q, want %q", got, want)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want core.Date
	}{
		{"45306", core.NewDate(2024, 1, 15)},
		{"45306.75", core.NewDate(2024, 1, 15)},
		{"2024-01-15", core.NewDate(2024, 1, 15)},
		{"2024-01-15 13:45:00", core.NewDate(2024, 1, 15)},
		{"2024-01-15T13:45:00", core.NewDate(2024, 1, 15)},
		{"2024-01-15T13:45:00Z", core.NewDate(2024, 1, 15)},
		{"15/01/2024", core.NewDate(2024, 1, 15)},
		{"15/01/2024 08:00:00", core.NewDate(2024, 1, 15)},
		{"", core.Date{}},
		{"0", core.Date{}},
		{"NaN", core.Date{}},
		{"amanhã", core.Date{}},
		{"31/02/2024", core.Date{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDate(tt.in)
			if !got.Equal(tt.want.Time) || got.IsEmpty() != tt.want.IsEmpty() {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeRealized(t *testing.T) {
	table := core.Table{
		Header: []string{"Grupo", "Minha Empresa (Nome Fantasia)", "Grupo", "Categoria",
			"Pago ou Recebido", "Conciliado", "Data de Registro (completa)", "Emissão", "Fornecedor"},
		Rows: [][]string{
			{"Alpha", "Alpha Foods", "Impostos", "PIS", "-1.234,56", "Sim", "45306", "2024-01-10", "Receita Federal"},
			{"Beta", "Beta Log", "Operacionais", "Frete", "", "Não", "lixo"},
		},
	}

	set, err := DecodeRealized(table)
	if err != nil {
		t.Fatal(err)
	}
	if set.Kind != core.KindRealized || set.Len() != 2 {
		t.Fatalf("unexpected set %+v", set)
	}
	if !set.Schema.HasAll(core.FieldCompanyGroup, core.FieldExpenseGroup, core.FieldIssuedAt) {
		t.Fatalf("schema missing fields: %v", set.Schema.Fields())
	}

	first := set.Records[0]
	if first.ExpenseGroup != "Impostos" || first.Amount.Cents != -123456 || !first.IsReconciled() {
		t.Errorf("first = %+v", first)
	}
	if first.RegisteredAt.ISO() != "2024-01-15" || first.IssuedAt.ISO() != "2024-01-10" {
		t.Errorf("dates = %s, %s", first.RegisteredAt.ISO(), first.IssuedAt.ISO())
	}

	second := set.Records[1]
	if second.Row != 1 || second.Amount.Cents != 0 || !second.RegisteredAt.IsEmpty() || second.Supplier != "" {
		t.Errorf("short row decoded as %+v", second)
	}
}

func TestDecodeInvalidAmount(t *testing.T) {
	table := core.Table{
		Header: []string{"Valor Líquido"},
		Rows:   [][]string{{"10,00"}, {"dez reais"}},
	}
	_, err := DecodeScheduled(table)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDecodeCompanyColumns(t *testing.T) {
	header := []string{"Minha Empresa (Nome Fantasia)", "Minha Empresa (Razão Social)"}
	rows := [][]string{{"Loja", "Loja Ltda"}}

	rec, err := DecodeReceivables(core.Table{Header: header, Rows: rows})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Records[0].Company != "Loja Ltda" {
		t.Errorf("receivables should use the legal name, got %q", rec.Records[0].Company)
	}

	sched, err := DecodeScheduled(core.Table{Header: header, Rows: rows})
	if err != nil {
		t.Fatal(err)
	}
	if sched.Records[0].Company != "Loja Ltda" {
		t.Errorf("scheduled should use the legal name, got %q", sched.Records[0].Company)
	}
}

func TestDecodeForecast(t *testing.T) {
	table := core.Table{
		Header: []string{"Minha Empresa (Nome Fantasia)", "45292", "2024-02-01", "Observação"},
		Rows: [][]string{
			{"Loja A", "1000", ""},
			{"Loja B", "R$ 2.500,00"},
		},
	}

	f, err := DecodeForecast(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Periods) != 3 {
		t.Fatalf("periods = %+v", f.Periods)
	}
	if f.Periods[0].Date.ISO() != "2024-01-01" || f.Periods[1].Date.ISO() != "2024-02-01" || !f.Periods[2].Date.IsEmpty() {
		t.Errorf("period dates = %+v", f.Periods)
	}
	if f.Len() != 2 {
		t.Fatalf("rows = %d", f.Len())
	}
	a := f.Rows[0].Amounts
	if !a[0].Present || a[0].Amount.Cents != 100000 || a[1].Present {
		t.Errorf("Loja A amounts = %+v", a)
	}
	b := f.Rows[1].Amounts
	if len(b) != 3 || b[0].Amount.Cents != 250000 || b[1].Present || b[2].Present {
		t.Errorf("Loja B amounts = %+v", b)
	}

	// Cells under undated columns still have to parse as amounts.
	table.Rows = [][]string{{"Loja A", "1000", "", "x"}}
	if _, err := DecodeForecast(table); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for a non-numeric cell, got %v", err)
	}
}

func TestDecodeForecastWithoutCompanyColumn(t *testing.T) {
	f, err := DecodeForecast(core.Table{Header: []string{"2024-01-01"}, Rows: [][]string{{"10"}}})
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 0 || len(f.Periods) != 0 {
		t.Errorf("expected empty forecast, got %+v", f)
	}
}

func TestDecodeEmptyTables(t *testing.T) {
	ds, err := Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Realized.Len() != 0 || ds.Receivables.Len() != 0 || ds.Scheduled.Len() != 0 || ds.Forecast.Len() != 0 {
		t.Errorf("expected empty dataset, got %+v", ds)
	}
	if ds.Scheduled.Schema.Has(core.FieldDueDate) {
		t.Error("empty extract should carry an empty schema")
	}
}
