package core

// Reconcile checks that each side's categories account for the reported total.
// Both sides are rounded to two decimals before an exact comparison. A side
// with an unparsable amount cell is never reconciled, whatever its sums.
func Reconcile(m MonthlyAggregate) (credit, debit bool) {
	credit = m.UnparsedCredit == 0 && m.CreditCategorySum().Equal(Round2(m.TotalCredit))
	debit = m.UnparsedDebit == 0 && m.DebitCategorySum().Equal(Round2(m.TotalDebit))
	return credit, debit
}

// ReconcileAll sets the reconciliation flags on every aggregate in place.
func ReconcileAll(aggs []MonthlyAggregate) {
	for i := range aggs {
		aggs[i].CreditReconciled, aggs[i].DebitReconciled = Reconcile(aggs[i])
	}
}

// Summarize runs the whole pure pipeline over decoded rows and returns the
// classified transactions together with the reconciled monthly aggregates.
func Summarize(rows []RawRow) ([]Transaction, []MonthlyAggregate) {
	txs := NormalizeAll(rows)
	ClassifyAll(txs)
	aggs := Aggregate(txs)
	ReconcileAll(aggs)
	return txs, aggs
}
