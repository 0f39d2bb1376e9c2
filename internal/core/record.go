package core

import "slices"

// Record is a row of one of the loaded extracts.
type Record interface {
	RowID() int
	Text(f Field) string
	DateOf(f Field) Date
	AmountOf(f Field) Money
}

// Schema records which columns an extract actually carries. It is detected
// once when the extract is decoded.
type Schema struct {
	fields map[Field]struct{}
}

// RecordSet is an ordered, homogeneous sequence of records plus its schema.
type RecordSet[R Record] struct {
	Kind    Kind
	Schema  Schema
	Records []R
}

func NewSchema(fields ...Field) Schema {
	s := Schema{fields: make(map[Field]struct{}, len(fields))}
	for _, f := range fields {
		s.fields[f] = struct{}{}
	}
	return s
}

// Has reports whether the column is present.
func (s Schema) Has(f Field) bool {
	if f == "" {
		return false
	}
	_, ok := s.fields[f]
	return ok
}

func (s Schema) HasAll(fields ...Field) bool {
	for _, f := range fields {
		if !s.Has(f) {
			return false
		}
	}
	return true
}

// Fields returns the present columns in sorted order.
func (s Schema) Fields() []Field {
	out := make([]Field, 0, len(s.fields))
	for f := range s.fields {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func NewRecordSet[R Record](kind Kind, schema Schema, records []R) RecordSet[R] {
	return RecordSet[R]{Kind: kind, Schema: schema, Records: records}
}

func (rs RecordSet[R]) Len() int { return len(rs.Records) }

// Where returns a record set with the same kind and schema holding only the
// records for which keep returns true. Order is preserved.
func (rs RecordSet[R]) Where(keep func(R) bool) RecordSet[R] {
	out := make([]R, 0, len(rs.Records))
	for _, r := range rs.Records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return RecordSet[R]{Kind: rs.Kind, Schema: rs.Schema, Records: out}
}

// Sum adds up the amount column, or returns zero when the column is absent.
func (rs RecordSet[R]) Sum(f Field) Money {
	var total Money
	if !rs.Schema.Has(f) {
		return total
	}
	for _, r := range rs.Records {
		total = total.Add(r.AmountOf(f))
	}
	return total
}

// Len returns the number of companies in the forecast.
func (f Forecast) Len() int { return len(f.Rows) }
