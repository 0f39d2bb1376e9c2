// Package dataset turns raw extracts into typed record sets and keeps the
// decoded dataset in an application-scoped cache.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"painel/internal/core"
)

var knownFields = []core.Field{
	core.FieldCompanyGroup,
	core.FieldTradeName,
	core.FieldLegalName,
	core.FieldExpenseGroup,
	core.FieldCategory,
	core.FieldPaidOrReceived,
	core.FieldReconciled,
	core.FieldRegisteredAt,
	core.FieldIssuedAt,
	core.FieldSupplier,
	core.FieldStatementDate,
	core.FieldCustomer,
	core.FieldNetAmount,
	core.FieldDueDate,
	core.FieldRegistration,
	core.FieldSupplierLegalName,
}

var canonical = func() map[string]core.Field {
	m := make(map[string]core.Field, len(knownFields))
	for _, f := range knownFields {
		m[foldHeader(string(f))] = f
	}
	return m
}()

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

func foldHeader(h string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(h)))
}

// NormalizeHeader maps a header cell to its column name. Known columns match
// regardless of Unicode normalization form, case and surrounding spaces.
// Repeated names get a ".1", ".2" suffix, so the second "Grupo" of an
// expense extract becomes "Grupo.1".
func NormalizeHeader(header []string) []core.Field {
	out := make([]core.Field, len(header))
	seen := make(map[core.Field]int, len(header))
	for i, h := range header {
		f, ok := canonical[foldHeader(h)]
		if !ok {
			f = core.Field(norm.NFC.String(strings.TrimSpace(h)))
		}
		if n := seen[f]; n > 0 && f != "" {
			seen[f] = n + 1
			f = core.Field(fmt.Sprintf("%s.%d", f, n))
		} else {
			seen[f] = 1
		}
		out[i] = f
	}
	return out
}

// columns locates fields within a table's rows.
type columns struct {
	index  map[core.Field]int
	schema core.Schema
}

func newColumns(header []string) columns {
	fields := NormalizeHeader(header)
	c := columns{index: make(map[core.Field]int, len(fields))}
	present := make([]core.Field, 0, len(fields))
	for i, f := range fields {
		if f == "" {
			continue
		}
		if _, dup := c.index[f]; dup {
			continue
		}
		c.index[f] = i
		present = append(present, f)
	}
	c.schema = core.NewSchema(present...)
	return c
}

func (c columns) text(row []string, f core.Field) string {
	i, ok := c.index[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) date(row []string, f core.Field) core.Date {
	return ParseDate(c.text(row, f))
}

func (c columns) amount(row []string, rowNum int, f core.Field) (core.Money, error) {
	m, err := core.ParseMoney(c.text(row, f))
	if err != nil {
		return core.Money{}, fmt.Errorf("row %d, %s: %w", rowNum+1, f, err)
	}
	return m, nil
}

// ParseDate reads a date cell. Excel serial numbers and the usual ISO and
// Brazilian layouts are accepted; anything else yields an empty date.
func ParseDate(s string) core.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return core.Date{}
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return core.Date{}
		}
		return core.DateOf(t)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t)
		}
	}
	return core.Date{}
}

func DecodeRealized(t core.Table) (core.RecordSet[core.RealizedPayment], error) {
	c := newColumns(t.Header)
	records := make([]core.RealizedPayment, 0, len(t.Rows))
	for i, row := range t.Rows {
		amount, err := c.amount(row, i, core.FieldPaidOrReceived)
		if err != nil {
			return core.RecordSet[core.RealizedPayment]{}, err
		}
		records = append(records, core.RealizedPayment{
			Row:          i,
			CompanyGroup: c.text(row, core.FieldCompanyGroup),
			Company:      c.text(row, core.FieldTradeName),
			ExpenseGroup: c.text(row, core.FieldExpenseGroup),
			Category:     c.text(row, core.FieldCategory),
			Amount:       amount,
			Reconciled:   c.text(row, core.FieldReconciled),
			RegisteredAt: c.date(row, core.FieldRegisteredAt),
			IssuedAt:     c.date(row, core.FieldIssuedAt),
			Supplier:     c.text(row, core.FieldSupplier),
		})
	}
	return core.NewRecordSet(core.KindRealized, c.schema, records), nil
}

func DecodeReceivables(t core.Table) (core.RecordSet[core.Receivable], error) {
	c := newColumns(t.Header)
	records := make([]core.Receivable, 0, len(t.Rows))
	for i, row := range t.Rows {
		amount, err := c.amount(row, i, core.FieldPaidOrReceived)
		if err != nil {
			return core.RecordSet[core.Receivable]{}, err
		}
		records = append(records, core.Receivable{
			Row:           i,
			CompanyGroup:  c.text(row, core.FieldCompanyGroup),
			Company:       c.text(row, core.FieldLegalName),
			Category:      c.text(row, core.FieldCategory),
			Amount:        amount,
			Reconciled:    c.text(row, core.FieldReconciled),
			StatementDate: c.date(row, core.FieldStatementDate),
			Customer:      c.text(row, core.FieldCustomer),
		})
	}
	return core.NewRecordSet(core.KindReceivables, c.schema, records), nil
}

func DecodeScheduled(t core.Table) (core.RecordSet[core.ScheduledPayment], error) {
	c := newColumns(t.Header)
	records := make([]core.ScheduledPayment, 0, len(t.Rows))
	for i, row := range t.Rows {
		amount, err := c.amount(row, i, core.FieldNetAmount)
		if err != nil {
			return core.RecordSet[core.ScheduledPayment]{}, err
		}
		records = append(records, core.ScheduledPayment{
			Row:          i,
			CompanyGroup: c.text(row, core.FieldCompanyGroup),
			Company:      c.text(row, core.FieldLegalName),
			ExpenseGroup: c.text(row, core.FieldExpenseGroup),
			Category:     c.text(row, core.FieldCategory),
			NetAmount:    amount,
			DueDate:      c.date(row, core.FieldDueDate),
			IssuedAt:     c.date(row, core.FieldIssuedAt),
			RegisteredAt: c.date(row, core.FieldRegistration),
			Supplier:     c.text(row, core.FieldSupplierLegalName),
		})
	}
	return core.NewRecordSet(core.KindScheduled, c.schema, records), nil
}

// DecodeForecast reads the wide forecast extract: one company column plus
// one column per period. Without the company column the forecast is empty.
func DecodeForecast(t core.Table) (core.Forecast, error) {
	c := newColumns(t.Header)
	f := core.Forecast{Schema: c.schema, Periods: []core.ForecastPeriod{}, Rows: []core.ForecastRow{}}

	companyCol, ok := c.index[core.FieldTradeName]
	if !ok {
		return f, nil
	}

	var periodCols []int
	for i, h := range t.Header {
		label := strings.TrimSpace(h)
		if i == companyCol || label == "" {
			continue
		}
		periodCols = append(periodCols, i)
		f.Periods = append(f.Periods, core.ForecastPeriod{Label: label, Date: ParseDate(label)})
	}

	for i, row := range t.Rows {
		fr := core.ForecastRow{
			Row:     i,
			Company: c.text(row, core.FieldTradeName),
			Amounts: make([]core.ForecastAmount, len(periodCols)),
		}
		for j, col := range periodCols {
			var cell string
			if col < len(row) {
				cell = strings.TrimSpace(row[col])
			}
			if cell == "" {
				continue
			}
			m, err := core.ParseMoney(cell)
			if err != nil {
				return core.Forecast{}, fmt.Errorf("row %d, %s: %w", i+1, f.Periods[j].Label, err)
			}
			fr.Amounts[j] = core.ForecastAmount{Amount: m, Present: true}
		}
		f.Rows = append(f.Rows, fr)
	}
	return f, nil
}

// Decode builds a dataset from the four raw extracts.
func Decode(tables map[core.Kind]core.Table) (*core.Dataset, error) {
	var (
		ds  core.Dataset
		err error
	)
	if ds.Realized, err = DecodeRealized(tables[core.KindRealized]); err != nil {
		return nil, fmt.Errorf("decode %s: %w", core.KindRealized, err)
	}
	if ds.Receivables, err = DecodeReceivables(tables[core.KindReceivables]); err != nil {
		return nil, fmt.Errorf("decode %s: %w", core.KindReceivables, err)
	}
	if ds.Scheduled, err = DecodeScheduled(tables[core.KindScheduled]); err != nil {
		return nil, fmt.Errorf("decode %s: %w", core.KindScheduled, err)
	}
	if ds.Forecast, err = DecodeForecast(tables[core.KindForecast]); err != nil {
		return nil, fmt.Errorf("decode %s: %w", core.KindForecast, err)
	}
	return &ds, nil
}
