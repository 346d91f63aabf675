package sheets

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"bankreport/internal/core"
)

// SummaryRow is one month of one report as exported to a spreadsheet.
type SummaryRow struct {
	ReportID         string
	Source           string
	Month            string
	Categories       core.CategoryAmounts
	TotalCredit      decimal.Decimal
	TotalDebit       decimal.Decimal
	CreditReconciled bool
	DebitReconciled  bool
	LastBalance      core.Amount
}

// Ports for outbound adapters.
type (
	// SummaryWriter appends monthly summaries to an external sheet.
	SummaryWriter interface {
		AppendSummary(ctx context.Context, rows []SummaryRow) (ref string, err error)
	}
)

// SummaryRowFromAggregate builds the exported row of one monthly aggregate.
func SummaryRowFromAggregate(reportID, source string, m core.MonthlyAggregate) SummaryRow {
	return SummaryRow{
		ReportID:         reportID,
		Source:           source,
		Month:            m.Month,
		Categories:       m.Categories,
		TotalCredit:      m.TotalCredit,
		TotalDebit:       m.TotalDebit,
		CreditReconciled: m.CreditReconciled,
		DebitReconciled:  m.DebitReconciled,
		LastBalance:      m.LastBalance,
	}
}

// SummaryHeader is the header written above the first summary row.
func SummaryHeader() []string {
	h := []string{"Report", "Source", "Month"}
	for _, c := range core.AllCategories() {
		h = append(h, c.String())
	}
	return append(h, "Credit", "Debit", "Credit Match Status", "Debit Match Status", "Last Balance")
}

// Values renders the row in SummaryHeader order. Amounts are plain strings
// with two decimals so the sheet does not reinterpret them.
func (r SummaryRow) Values() []string {
	v := []string{r.ReportID, r.Source, r.Month}
	for _, c := range core.AllCategories() {
		v = append(v, r.Categories.Get(c).StringFixed(2))
	}
	return append(v,
		r.TotalCredit.StringFixed(2),
		r.TotalDebit.StringFixed(2),
		strconv.FormatBool(r.CreditReconciled),
		strconv.FormatBool(r.DebitReconciled),
		r.LastBalance.Fixed(),
	)
}
