package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

type ChartKind string

const (
	BarChart ChartKind = "bar"
	PieChart ChartKind = "pie"
)

// Chart ID suffixes, appended to the month key.
const (
	BarSuffix       = "_bar"
	CreditPieSuffix = "_credit_pie"
	DebitPieSuffix  = "_debit_pie"
)

// ChartSpec describes a chart to render: what to draw, not how.
type ChartSpec struct {
	ID     string
	Kind   ChartKind
	Title  string
	Labels []string
	Values []decimal.Decimal
}

// MonthReport pairs an aggregate with the charts requested for it.
type MonthReport struct {
	MonthlyAggregate
	Charts []ChartSpec
}

// ChartIDs lists the chart identifiers of the month in render order.
func (m MonthReport) ChartIDs() []string {
	ids := make([]string, len(m.Charts))
	for i, c := range m.Charts {
		ids[i] = c.ID
	}
	return ids
}

// HasChart reports whether the month requested a chart with the given ID.
func (m MonthReport) HasChart(id string) bool {
	for _, c := range m.Charts {
		if c.ID == id {
			return true
		}
	}
	return false
}

type Report struct {
	Months []MonthReport
}

// Assemble orders the aggregates by month and attaches their chart specs.
// The input slice is not modified.
func Assemble(aggs []MonthlyAggregate) Report {
	sorted := make([]MonthlyAggregate, len(aggs))
	copy(sorted, aggs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Month < sorted[j].Month })

	r := Report{Months: make([]MonthReport, len(sorted))}
	for i, agg := range sorted {
		r.Months[i] = MonthReport{MonthlyAggregate: agg, Charts: ChartsFor(agg)}
	}
	return r
}

// ChartsFor returns the credit/debit bar chart and, when the respective
// category sum is positive, the credit and debit split pies.
func ChartsFor(agg MonthlyAggregate) []ChartSpec {
	specs := []ChartSpec{{
		ID:     agg.Month + BarSuffix,
		Kind:   BarChart,
		Title:  "Total Credit vs Debit - " + agg.Month,
		Labels: []string{"Credit", "Debit"},
		Values: []decimal.Decimal{agg.TotalCredit, agg.TotalDebit},
	}}
	if pie, ok := splitPie(agg, CreditCategories(), CreditPieSuffix, "Credit Split - "); ok {
		specs = append(specs, pie)
	}
	if pie, ok := splitPie(agg, DebitCategories(), DebitPieSuffix, "Debit Split - "); ok {
		specs = append(specs, pie)
	}
	return specs
}

func splitPie(agg MonthlyAggregate, cats []Category, suffix, title string) (ChartSpec, bool) {
	if !agg.Categories.Sum(cats).IsPositive() {
		return ChartSpec{}, false
	}
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = c.String()
	}
	return ChartSpec{
		ID:     agg.Month + suffix,
		Kind:   PieChart,
		Title:  title + agg.Month,
		Labels: labels,
		Values: agg.Categories.Values(cats),
	}, true
}

// Month returns the report for one month key.
func (r Report) Month(key string) (MonthReport, bool) {
	for _, m := range r.Months {
		if m.Month == key {
			return m, true
		}
	}
	return MonthReport{}, false
}

// MonthKeys lists the months in order.
func (r Report) MonthKeys() []string {
	keys := make([]string, len(r.Months))
	for i, m := range r.Months {
		keys[i] = m.Month
	}
	return keys
}

// Charts flattens every month's chart specs.
func (r Report) Charts() []ChartSpec {
	var out []ChartSpec
	for _, m := range r.Months {
		out = append(out, m.Charts...)
	}
	return out
}

// Mismatches lists "<month> <side>" for every unreconciled side.
func (r Report) Mismatches() []string {
	var out []string
	for _, m := range r.Months {
		if !m.CreditReconciled {
			out = append(out, m.Month+" "+CreditSide.String())
		}
		if !m.DebitReconciled {
			out = append(out, m.Month+" "+DebitSide.String())
		}
	}
	return out
}
