package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MonthlyAggregate is the per-month summary of a statement.
type MonthlyAggregate struct {
	Month            string
	Categories       CategoryAmounts
	TotalDebit       decimal.Decimal
	TotalCredit      decimal.Decimal
	LastBalance      Amount
	CreditReconciled bool
	DebitReconciled  bool

	// UnparsedDebit and UnparsedCredit count non-empty cells of the month
	// that could not be read as amounts. A side with any such cell never
	// reconciles.
	UnparsedDebit  int
	UnparsedCredit int
}

// CreditCategorySum is the rounded total of the credit-side categories.
func (m MonthlyAggregate) CreditCategorySum() decimal.Decimal {
	return Round2(m.Categories.Sum(CreditCategories()))
}

// DebitCategorySum is the rounded total of the debit-side categories.
func (m MonthlyAggregate) DebitCategorySum() decimal.Decimal {
	return Round2(m.Categories.Sum(DebitCategories()))
}

type monthAcc struct {
	categories  CategoryAmounts
	debit       decimal.Decimal
	credit      decimal.Decimal
	balance     Amount
	balanceDate Date
	badDebit    int
	badCredit   int
}

// Aggregate groups classified transactions by month.
//
// Rows without a valid date are left out. Sums are rounded to two decimals
// once per month, not per row. Missing debit/credit cells do not contribute to
// the totals; unparsable ones are also counted so Reconcile can reject the side. LastBalance is the balance of the latest-dated row that has one;
// rows sharing that date resolve to the one appearing last in the input.
// The result is ordered by month ascending and carries no reconciliation flags;
// see Reconcile.
func Aggregate(txs []Transaction) []MonthlyAggregate {
	groups := map[string]*monthAcc{}
	for _, tx := range txs {
		key := tx.MonthKey()
		if key == "" {
			continue
		}
		acc, ok := groups[key]
		if !ok {
			acc = &monthAcc{}
			groups[key] = acc
		}
		acc.categories.Add(tx.Categories)
		acc.debit = acc.debit.Add(tx.Debit.OrZero())
		acc.credit = acc.credit.Add(tx.Credit.OrZero())
		if tx.DebitUnparsed {
			acc.badDebit++
		}
		if tx.CreditUnparsed {
			acc.badCredit++
		}
		if tx.Balance.Valid && (!acc.balanceDate.Valid || !tx.Date.Before(acc.balanceDate.Time)) {
			acc.balance = tx.Balance
			acc.balanceDate = tx.Date
		}
	}

	months := make([]string, 0, len(groups))
	for k := range groups {
		months = append(months, k)
	}
	sort.Strings(months)

	out := make([]MonthlyAggregate, 0, len(months))
	for _, k := range months {
		acc := groups[k]
		out = append(out, MonthlyAggregate{
			Month:       k,
			Categories:  acc.categories.Rounded(),
			TotalDebit:  Round2(acc.debit),
			TotalCredit: Round2(acc.credit),
			LastBalance: acc.balance,

			UnparsedDebit:  acc.badDebit,
			UnparsedCredit: acc.badCredit,
		})
	}
	return out
}
