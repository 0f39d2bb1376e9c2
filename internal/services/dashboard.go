package services

import (
	"context"
	"errors"
	"fmt"

	"painel/internal/core"
	"painel/internal/filter"
)

// ErrLoad wraps every failure to obtain the dataset.
var ErrLoad = errors.New("failed to load data")

// DatasetSource provides the cached dataset.
type DatasetSource interface {
	Load(ctx context.Context) (*core.Dataset, error)
}

// Dashboard answers the dashboard's queries: it loads the cached dataset,
// applies the selection and builds the requested report.
type Dashboard struct {
	source   DatasetSource
	bucketer *DueBucketer
}

func NewDashboard(source DatasetSource, bucketer *DueBucketer) *Dashboard {
	if bucketer == nil {
		bucketer = NewDueBucketer(nil, nil)
	}
	return &Dashboard{source: source, bucketer: bucketer}
}

// RecordsPage is the filtered content of one record set.
type RecordsPage struct {
	Dataset core.Kind    `json:"dataset"`
	Columns []core.Field `json:"columns"`
	Count   int          `json:"count"`
	Total   core.Money   `json:"total"`
	Records any          `json:"records"`
}

// DueReport is the due-date table of the filtered scheduled payments.
type DueReport struct {
	Today   core.Date           `json:"today"`
	Buckets []core.DueBucketRow `json:"buckets"`
}

func (d *Dashboard) load(ctx context.Context) (*core.Dataset, error) {
	ds, err := d.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return ds, nil
}

func (d *Dashboard) filtered(ctx context.Context, sel filter.Selection) (filter.Result, *core.Dataset, error) {
	ds, err := d.load(ctx)
	if err != nil {
		return filter.Result{}, nil, err
	}
	return filter.Apply(ds, sel), ds, nil
}

// Ready reports whether the dataset can be loaded.
func (d *Dashboard) Ready(ctx context.Context) error {
	_, err := d.load(ctx)
	return err
}

func (d *Dashboard) Options(ctx context.Context, companyGroup string) (filter.Options, error) {
	ds, err := d.load(ctx)
	if err != nil {
		return filter.Options{}, err
	}
	return filter.BuildOptions(ds, companyGroup), nil
}

func (d *Dashboard) Overview(ctx context.Context, sel filter.Selection) (Overview, error) {
	res, _, err := d.filtered(ctx, sel)
	if err != nil {
		return Overview{}, err
	}
	return BuildOverview(res), nil
}

func (d *Dashboard) DueBuckets(ctx context.Context, sel filter.Selection) (DueReport, error) {
	res, _, err := d.filtered(ctx, sel)
	if err != nil {
		return DueReport{}, err
	}
	return DueReport{Today: d.bucketer.Today(), Buckets: d.bucketer.Summarize(res.Scheduled)}, nil
}

func (d *Dashboard) Reconciliation(ctx context.Context, sel filter.Selection) (ReconciliationReport, error) {
	res, _, err := d.filtered(ctx, sel)
	if err != nil {
		return ReconciliationReport{}, err
	}
	return BuildReconciliation(res), nil
}

func (d *Dashboard) Compliance(ctx context.Context, sel filter.Selection) (ComplianceReport, error) {
	res, _, err := d.filtered(ctx, sel)
	if err != nil {
		return ComplianceReport{}, err
	}
	return BuildCompliance(res), nil
}

func (d *Dashboard) Forecast(ctx context.Context, sel filter.Selection) (ForecastReport, error) {
	res, ds, err := d.filtered(ctx, sel)
	if err != nil {
		return ForecastReport{}, err
	}
	return BuildForecast(ds.Forecast, res.Receivables), nil
}

// Records returns the filtered records of one set. The forecast is returned
// as loaded.
func (d *Dashboard) Records(ctx context.Context, kind core.Kind, sel filter.Selection) (RecordsPage, error) {
	res, ds, err := d.filtered(ctx, sel)
	if err != nil {
		return RecordsPage{}, err
	}
	switch kind {
	case core.KindRealized:
		return page(res.Realized), nil
	case core.KindReceivables:
		return page(res.Receivables), nil
	case core.KindScheduled:
		return page(res.Scheduled), nil
	case core.KindForecast:
		return RecordsPage{
			Dataset: kind,
			Columns: ds.Forecast.Schema.Fields(),
			Count:   ds.Forecast.Len(),
			Records: ds.Forecast,
		}, nil
	}
	return RecordsPage{}, fmt.Errorf("%w: %q", core.ErrUnknownDataset, kind)
}

func page[R core.Record](set core.RecordSet[R]) RecordsPage {
	return RecordsPage{
		Dataset: set.Kind,
		Columns: set.Schema.Fields(),
		Count:   set.Len(),
		Total:   set.Sum(set.Kind.AmountField()),
		Records: set.Records,
	}
}
