// Package services provides the reporting logic behind the dashboard.
//
// This file classifies scheduled payments into due-date buckets. Each bucket
// owns a rule over the day distance between the due date and today; the rules
// are evaluated in table order and the first match wins.
package services

import (
	"sort"
	"time"

	"painel/internal/core"
)

// Bucket is a due-date situation with its display order.
type Bucket struct {
	Label string
	Order int
}

var (
	BucketNoDueDate     = Bucket{"No due date", 99}
	BucketToday         = Bucket{"Due today", 1}
	BucketTomorrow      = Bucket{"Due tomorrow", 2}
	BucketNextDays      = Bucket{"Due in the next few days", 3}
	BucketWithin30      = Bucket{"Due within 30 days", 4}
	BucketIn31To60      = Bucket{"Due in 31–60 days", 5}
	BucketIn61To90      = Bucket{"Due in 61–90 days", 6}
	BucketOverdue30     = Bucket{"Overdue up to 30 days", 7}
	BucketOverdue31To60 = Bucket{"Overdue 31–60 days", 8}
	BucketOverdue90     = Bucket{"Overdue more than 90 days", 9}
	BucketLater         = Bucket{"Due later (more than 90 days)", 10}
)

// bucketRule matches a day distance (due - today) to a bucket.
type bucketRule struct {
	bucket  Bucket
	matches func(days int) bool
}

func between(lo, hi int) func(int) bool {
	return func(d int) bool { return d >= lo && d <= hi }
}

// bucketRules is evaluated in order. Distances between -90 and -61 match no
// rule and land in BucketLater.
var bucketRules = []bucketRule{
	{BucketToday, between(0, 0)},
	{BucketTomorrow, between(1, 1)},
	{BucketNextDays, between(2, 7)},
	{BucketWithin30, between(8, 30)},
	{BucketIn31To60, between(31, 60)},
	{BucketIn61To90, between(61, 90)},
	{BucketOverdue30, between(-30, -1)},
	{BucketOverdue31To60, between(-60, -31)},
	{BucketOverdue90, func(d int) bool { return d < -90 }},
}

// Classify places a due date relative to today. Both dates are compared as
// calendar days.
func Classify(due, today core.Date) Bucket {
	if due.IsEmpty() {
		return BucketNoDueDate
	}
	days := core.DateOf(due.Time).DaysSince(core.DateOf(today.Time))
	for _, rule := range bucketRules {
		if rule.matches(days) {
			return rule.bucket
		}
	}
	return BucketLater
}

// SummarizeDue groups the set by due bucket, summing the amount column and
// counting records. Rows come back ordered by bucket order with the total
// already formatted as BRL. A set lacking either column yields no rows.
func SummarizeDue[R core.Record](set core.RecordSet[R], dueField, amountField core.Field, today core.Date) []core.DueBucketRow {
	if !set.Schema.HasAll(dueField, amountField) {
		return []core.DueBucketRow{}
	}

	type acc struct {
		bucket Bucket
		total  core.Money
		count  int
	}
	byBucket := make(map[Bucket]*acc)
	for _, r := range set.Records {
		b := Classify(r.DateOf(dueField), today)
		a, ok := byBucket[b]
		if !ok {
			a = &acc{bucket: b}
			byBucket[b] = a
		}
		a.total = a.total.Add(r.AmountOf(amountField))
		a.count++
	}

	accs := make([]*acc, 0, len(byBucket))
	for _, a := range byBucket {
		accs = append(accs, a)
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].bucket.Order < accs[j].bucket.Order })

	rows := make([]core.DueBucketRow, 0, len(accs))
	for _, a := range accs {
		rows = append(rows, core.DueBucketRow{
			Label: a.bucket.Label,
			Total: core.FormatBRL(a.total.Cents),
			Count: a.count,
		})
	}
	return rows
}

// DueBucketer summarizes scheduled payments against the current day in a
// fixed time zone.
type DueBucketer struct {
	now func() time.Time
	loc *time.Location
}

// NewDueBucketer creates a bucketer. A nil now uses time.Now; a nil location
// uses UTC.
func NewDueBucketer(now func() time.Time, loc *time.Location) *DueBucketer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DueBucketer{now: now, loc: loc}
}

// Today returns the current calendar day in the bucketer's location.
func (b *DueBucketer) Today() core.Date {
	return core.DateOf(b.now().In(b.loc))
}

// Summarize buckets scheduled payments by Vencimento, summing Valor Líquido.
func (b *DueBucketer) Summarize(set core.RecordSet[core.ScheduledPayment]) []core.DueBucketRow {
	return SummarizeDue(set, core.FieldDueDate, core.FieldNetAmount, b.Today())
}
