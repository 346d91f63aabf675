// Package storage indexes processed statement reports: which exports belong
// to a run, the per-month totals and reconciliation outcome, and the alerts
// raised for mismatched months.
package storage

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("report not found")

type (
	// Report is one processed upload.
	Report struct {
		ID               string
		SourceName       string
		TransactionsFile string
		MonthlyFile      string
		RowCount         int
		CreatedAt        time.Time
		Months           []Month
	}

	// Month is the indexed summary of one monthly aggregate.
	Month struct {
		Month            string
		TotalCredit      decimal.Decimal
		TotalDebit       decimal.Decimal
		CreditReconciled bool
		DebitReconciled  bool
		Charts           []string
	}

	// Alert records one unreconciled side of a month.
	Alert struct {
		ID        int64
		ReportID  string
		Month     string
		Side      string
		Expected  decimal.Decimal
		Actual    decimal.Decimal
		CreatedAt time.Time
	}
)

// Reconciled reports whether both sides of the month balanced.
func (m Month) Reconciled() bool {
	return m.CreditReconciled && m.DebitReconciled
}
