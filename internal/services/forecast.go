package services

import (
	"math"
	"sort"

	"painel/internal/core"
)

// PeriodAmount is the forecast total for one period.
type PeriodAmount struct {
	Period core.Date  `json:"period"`
	Amount core.Money `json:"amount"`
}

// CompanyForecast aggregates one company's forecast amounts.
type CompanyForecast struct {
	Company string     `json:"company"`
	Total   core.Money `json:"total"`
	Mean    core.Money `json:"mean"`
	Count   int        `json:"count"`
}

type ForecastReport struct {
	TotalForecast   core.Money         `json:"total_forecast"`
	MeanPerPeriod   core.Money         `json:"mean_per_period"`
	Companies       int                `json:"companies"`
	Periods         int                `json:"periods"`
	ByPeriod        []PeriodAmount     `json:"by_period"`
	ByCompany       []core.NamedAmount `json:"by_company"`
	CompanySummary  []CompanyForecast  `json:"company_summary"`
	Realized        core.Money         `json:"realized"`
	Difference      core.Money         `json:"difference"`
	RealizedPercent float64            `json:"realized_percent"`
}

// forecastEntry is one (company, period, amount) cell of the forecast.
type forecastEntry struct {
	company string
	period  core.Date
	amount  core.Money
	present bool
}

// melt flattens the forecast into one entry per company and dated period.
// Periods whose header is not a date are left out; empty cells are kept with
// present unset so their period still counts.
func melt(f core.Forecast) []forecastEntry {
	var entries []forecastEntry
	for _, row := range f.Rows {
		for i, cell := range row.Amounts {
			if i >= len(f.Periods) {
				continue
			}
			period := f.Periods[i].Date
			if period.IsEmpty() {
				continue
			}
			entries = append(entries, forecastEntry{
				company: row.Company,
				period:  period,
				amount:  cell.Amount,
				present: cell.Present,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].period.Before(entries[j].period.Time) })
	return entries
}

// BuildForecast summarizes the revenue forecast and compares it with the
// realized revenue of the (filtered) receivables.
func BuildForecast(f core.Forecast, receivables core.RecordSet[core.Receivable]) ForecastReport {
	entries := melt(f)

	report := ForecastReport{
		Periods:        len(f.Periods),
		ByPeriod:       []PeriodAmount{},
		ByCompany:      []core.NamedAmount{},
		CompanySummary: []CompanyForecast{},
		Realized:       receivables.Sum(core.FieldPaidOrReceived),
	}

	companies := make(map[string]struct{})
	for _, row := range f.Rows {
		if row.Company != "" {
			companies[row.Company] = struct{}{}
		}
	}
	report.Companies = len(companies)

	byPeriod := make(map[core.Date]core.Money)
	var periodOrder []core.Date
	byCompany := make(map[string]*CompanyForecast)
	for _, e := range entries {
		report.TotalForecast = report.TotalForecast.Add(e.amount)

		if _, seen := byPeriod[e.period]; !seen {
			periodOrder = append(periodOrder, e.period)
		}
		byPeriod[e.period] = byPeriod[e.period].Add(e.amount)

		if !e.present || e.company == "" {
			continue
		}
		c, ok := byCompany[e.company]
		if !ok {
			c = &CompanyForecast{Company: e.company}
			byCompany[e.company] = c
		}
		c.Total = c.Total.Add(e.amount)
		c.Count++
	}

	for _, p := range periodOrder {
		report.ByPeriod = append(report.ByPeriod, PeriodAmount{Period: p, Amount: byPeriod[p]})
	}
	if len(periodOrder) > 0 {
		report.MeanPerPeriod = meanMoney(report.TotalForecast, len(periodOrder))
	}

	for _, c := range byCompany {
		c.Mean = meanMoney(c.Total, c.Count)
		report.CompanySummary = append(report.CompanySummary, *c)
		report.ByCompany = append(report.ByCompany, core.NamedAmount{Name: c.Company, Amount: c.Total, Count: c.Count})
	}
	sort.Slice(report.CompanySummary, func(i, j int) bool {
		a, b := report.CompanySummary[i], report.CompanySummary[j]
		if a.Total.Cents != b.Total.Cents {
			return a.Total.Cents > b.Total.Cents
		}
		return a.Company < b.Company
	})
	sort.Slice(report.ByCompany, func(i, j int) bool {
		a, b := report.ByCompany[i], report.ByCompany[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})

	report.Difference = core.Money{Cents: report.Realized.Cents - report.TotalForecast.Cents}
	if report.TotalForecast.Cents != 0 {
		report.RealizedPercent = float64(report.Realized.Cents) / float64(report.TotalForecast.Cents) * 100
	}
	return report
}

// meanMoney divides rounding half away from zero to the cent.
func meanMoney(total core.Money, n int) core.Money {
	if n == 0 {
		return core.Money{}
	}
	return core.Money{Cents: int64(math.Round(float64(total.Cents) / float64(n)))}
}
