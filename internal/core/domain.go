package core

import (
	"errors"
	"math"
	"time"
)

// Kinds of record sets loaded by the dashboard.
const (
	KindRealized    Kind = "realized"
	KindReceivables Kind = "receivables"
	KindScheduled   Kind = "scheduled"
	KindForecast    Kind = "forecast"
)

// Column names as they appear in the source extracts.
const (
	FieldCompanyGroup      Field = "Grupo"
	FieldTradeName         Field = "Minha Empresa (Nome Fantasia)"
	FieldLegalName         Field = "Minha Empresa (Razão Social)"
	FieldExpenseGroup      Field = "Grupo.1"
	FieldCategory          Field = "Categoria"
	FieldPaidOrReceived    Field = "Pago ou Recebido"
	FieldReconciled        Field = "Conciliado"
	FieldRegisteredAt      Field = "Data de Registro (completa)"
	FieldIssuedAt          Field = "Emissão"
	FieldSupplier          Field = "Fornecedor"
	FieldStatementDate     Field = "Data de Crédito ou Débito (No Extrato)"
	FieldCustomer          Field = "Cliente"
	FieldNetAmount         Field = "Valor Líquido"
	FieldDueDate           Field = "Vencimento"
	FieldRegistration      Field = "Registro"
	FieldSupplierLegalName Field = "Razão Social"
)

// ReconciledYes is the only value of Conciliado that counts as reconciled.
const ReconciledYes = "Sim"

type (
	Kind  string
	Field string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Table is a raw extract: a header row plus string cells.
	Table struct {
		Header []string
		Rows   [][]string
	}

	RealizedPayment struct {
		Row          int    `json:"row"`
		CompanyGroup string `json:"company_group"`
		Company      string `json:"company"`
		ExpenseGroup string `json:"expense_group"`
		Category     string `json:"category"`
		Amount       Money  `json:"amount"`
		Reconciled   string `json:"reconciled"`
		RegisteredAt Date   `json:"registered_at"`
		IssuedAt     Date   `json:"issued_at"`
		Supplier     string `json:"supplier"`
	}

	Receivable struct {
		Row           int    `json:"row"`
		CompanyGroup  string `json:"company_group"`
		Company       string `json:"company"`
		Category      string `json:"category"`
		Amount        Money  `json:"amount"`
		Reconciled    string `json:"reconciled"`
		StatementDate Date   `json:"statement_date"`
		Customer      string `json:"customer"`
	}

	ScheduledPayment struct {
		Row          int    `json:"row"`
		CompanyGroup string `json:"company_group"`
		Company      string `json:"company"`
		ExpenseGroup string `json:"expense_group"`
		Category     string `json:"category"`
		NetAmount    Money  `json:"net_amount"`
		DueDate      Date   `json:"due_date"`
		IssuedAt     Date   `json:"issued_at"`
		RegisteredAt Date   `json:"registered_at"`
		Supplier     string `json:"supplier"`
	}

	// ForecastPeriod is a period column of the forecast extract. Date is
	// empty when the header is not a date.
	ForecastPeriod struct {
		Label string `json:"label"`
		Date  Date   `json:"date"`
	}

	ForecastAmount struct {
		Amount  Money `json:"amount"`
		Present bool  `json:"present"`
	}

	// ForecastRow holds one company's amounts, aligned with Forecast.Periods.
	ForecastRow struct {
		Row     int              `json:"row"`
		Company string           `json:"company"`
		Amounts []ForecastAmount `json:"amounts"`
	}

	Forecast struct {
		Schema  Schema           `json:"-"`
		Periods []ForecastPeriod `json:"periods"`
		Rows    []ForecastRow    `json:"rows"`
	}

	Dataset struct {
		Realized    RecordSet[RealizedPayment]
		Receivables RecordSet[Receivable]
		Scheduled   RecordSet[ScheduledPayment]
		Forecast    Forecast
		LoadedAt    time.Time
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrMissingSheet   = errors.New("missing sheet")
)

// Kinds returns the four dataset kinds in load order.
func Kinds() []Kind {
	return []Kind{KindRealized, KindReceivables, KindScheduled, KindForecast}
}

// ParseKind maps a dataset name to its kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownDataset
}

// CompanyField is the company-name column for the kind.
func (k Kind) CompanyField() Field {
	switch k {
	case KindRealized, KindForecast:
		return FieldTradeName
	default:
		return FieldLegalName
	}
}

// FilterDateField is the column the period filter compares for the kind.
func (k Kind) FilterDateField() Field {
	switch k {
	case KindRealized:
		return FieldRegisteredAt
	case KindReceivables:
		return FieldStatementDate
	case KindScheduled:
		return FieldDueDate
	default:
		return ""
	}
}

// AmountField is the monetary column summed by reports for the kind.
func (k Kind) AmountField() Field {
	if k == KindScheduled {
		return FieldNetAmount
	}
	return FieldPaidOrReceived
}

func (r RealizedPayment) RowID() int { return r.Row }

func (r RealizedPayment) Text(f Field) string {
	switch f {
	case FieldCompanyGroup:
		return r.CompanyGroup
	case FieldTradeName:
		return r.Company
	case FieldExpenseGroup:
		return r.ExpenseGroup
	case FieldCategory:
		return r.Category
	case FieldReconciled:
		return r.Reconciled
	case FieldSupplier:
		return r.Supplier
	}
	return ""
}

func (r RealizedPayment) DateOf(f Field) Date {
	switch f {
	case FieldRegisteredAt:
		return r.RegisteredAt
	case FieldIssuedAt:
		return r.IssuedAt
	}
	return Date{}
}

func (r RealizedPayment) AmountOf(f Field) Money {
	if f == FieldPaidOrReceived {
		return r.Amount
	}
	return Money{}
}

// IsReconciled reports whether the payment was matched against a statement.
func (r RealizedPayment) IsReconciled() bool { return r.Reconciled == ReconciledYes }

func (r Receivable) RowID() int { return r.Row }

func (r Receivable) Text(f Field) string {
	switch f {
	case FieldCompanyGroup:
		return r.CompanyGroup
	case FieldLegalName:
		return r.Company
	case FieldCategory:
		return r.Category
	case FieldReconciled:
		return r.Reconciled
	case FieldCustomer:
		return r.Customer
	}
	return ""
}

func (r Receivable) DateOf(f Field) Date {
	if f == FieldStatementDate {
		return r.StatementDate
	}
	return Date{}
}

func (r Receivable) AmountOf(f Field) Money {
	if f == FieldPaidOrReceived {
		return r.Amount
	}
	return Money{}
}

func (r Receivable) IsReconciled() bool { return r.Reconciled == ReconciledYes }

func (p ScheduledPayment) RowID() int { return p.Row }

func (p ScheduledPayment) Text(f Field) string {
	switch f {
	case FieldCompanyGroup:
		return p.CompanyGroup
	case FieldLegalName:
		return p.Company
	case FieldExpenseGroup:
		return p.ExpenseGroup
	case FieldCategory:
		return p.Category
	case FieldSupplierLegalName:
		return p.Supplier
	}
	return ""
}

func (p ScheduledPayment) DateOf(f Field) Date {
	switch f {
	case FieldDueDate:
		return p.DueDate
	case FieldIssuedAt:
		return p.IssuedAt
	case FieldRegistration:
		return p.RegisteredAt
	}
	return Date{}
}

func (p ScheduledPayment) AmountOf(f Field) Money {
	if f == FieldNetAmount {
		return p.NetAmount
	}
	return Money{}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping its calendar day in t's location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// IsEmpty returns true if the date is missing or could not be parsed
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// DaysSince returns the whole days from other to d (negative when d is earlier).
func (d Date) DaysSince(other Date) int {
	return int(d.Sub(other.Time).Hours() / 24)
}

// MonthKey returns the calendar month as YYYY-MM, or "" for a missing date.
func (d Date) MonthKey() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01")
}

// BR formats the date as dd/mm/yyyy.
func (d Date) BR() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("02/01/2006")
}

// ISO formats the date as yyyy-mm-dd.
func (d Date) ISO() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MarshalText renders ISO dates, or an empty string for a missing one.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.ISO()), nil
}

// Add returns m+o, saturating at the int64 bounds.
func (m Money) Add(o Money) Money {
	sum := m.Cents + o.Cents
	switch {
	case o.Cents > 0 && sum < m.Cents:
		sum = math.MaxInt64
	case o.Cents < 0 && sum > m.Cents:
		sum = math.MinInt64
	}
	return Money{Cents: sum}
}

// Reais returns the value as a float64 for display purposes.
// Use cents for calculations.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) String() string {
	return FormatBRL(m.Cents)
}
