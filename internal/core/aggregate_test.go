package core

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleRows() []RawRow {
	return []RawRow{
		{Line: 2, Date: "03/01/2024", Description: "Inward Transfer Talabat", Credit: "100.10", Balance: "1100.10"},
		{Line: 3, Date: "15/01/2024", Description: "POS Purchase Store", Debit: "20.05", Balance: "1080.05"},
		{Line: 4, Date: "31/01/2024", Description: "Monthly Fee", Debit: "5", Balance: "1075.05"},
		{Line: 5, Date: "10/01/2024", Description: "Cash deposit", Credit: "50", Balance: "1125.05"},
		{Line: 6, Date: "02/02/2024", Description: "ATM Cash Withdrawal", Debit: "200", Balance: "875.05"},
		{Line: 7, Date: "garbage", Description: "Inward Transfer Talabat", Credit: "999", Balance: "1"},
	}
}

func TestAggregateGroupsByMonth(t *testing.T) {
	txs := NormalizeAll(sampleRows())
	ClassifyAll(txs)
	aggs := Aggregate(txs)

	if len(aggs) != 2 || aggs[0].Month != "2024-01" || aggs[1].Month != "2024-02" {
		t.Fatalf("unexpected months: %+v", aggs)
	}
	jan := aggs[0]
	if !jan.Categories.Get(TalabatCredit).Equal(dec("100.10")) {
		t.Errorf("Talabat credit = %s", jan.Categories.Get(TalabatCredit))
	}
	if !jan.Categories.Get(CashDeposit).Equal(dec("50")) {
		t.Errorf("Cash deposit = %s", jan.Categories.Get(CashDeposit))
	}
	if !jan.TotalCredit.Equal(dec("150.10")) || !jan.TotalDebit.Equal(dec("25.05")) {
		t.Errorf("totals credit=%s debit=%s", jan.TotalCredit, jan.TotalDebit)
	}
	if !jan.LastBalance.Equal(AmountFromString("1075.05")) {
		t.Errorf("last balance = %s", jan.LastBalance)
	}
	// The undated row is excluded from every month.
	for _, a := range aggs {
		if a.TotalCredit.Equal(dec("999")) || a.Categories.Get(TalabatCredit).GreaterThan(dec("100.10")) {
			t.Fatalf("undated row leaked into %s", a.Month)
		}
	}
}

func TestAggregateOrderInvariant(t *testing.T) {
	rows := sampleRows()
	base := Aggregate(classifyRows(rows))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]RawRow(nil), rows...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Aggregate(classifyRows(shuffled))
		if len(got) != len(base) {
			t.Fatalf("month count changed: %d vs %d", len(got), len(base))
		}
		for m := range base {
			if !sameAmounts(got[m].Categories, base[m].Categories) {
				t.Fatalf("category sums changed for %s", base[m].Month)
			}
			if !got[m].TotalDebit.Equal(base[m].TotalDebit) || !got[m].TotalCredit.Equal(base[m].TotalCredit) {
				t.Fatalf("totals changed for %s", base[m].Month)
			}
			if !got[m].LastBalance.Equal(base[m].LastBalance) {
				t.Fatalf("last balance for %s = %s, want %s", base[m].Month, got[m].LastBalance, base[m].LastBalance)
			}
		}
	}
}

func sameAmounts(a, b CategoryAmounts) bool {
	for _, c := range AllCategories() {
		if !a.Get(c).Equal(b.Get(c)) {
			return false
		}
	}
	return true
}

func classifyRows(rows []RawRow) []Transaction {
	txs := NormalizeAll(rows)
	ClassifyAll(txs)
	return txs
}

func TestAggregateLastBalanceTieBreak(t *testing.T) {
	rows := []RawRow{
		{Date: "05/03/2024", Balance: "10"},
		{Date: "20/03/2024", Balance: "30"},
		{Date: "20/03/2024", Balance: "40"},
		{Date: "01/03/2024", Balance: "50"},
		{Date: "25/03/2024", Balance: ""},
	}
	aggs := Aggregate(classifyRows(rows))
	if len(aggs) != 1 {
		t.Fatalf("months = %d", len(aggs))
	}
	// Same max date: the later row wins. The row without a balance is skipped.
	if !aggs[0].LastBalance.Equal(AmountFromString("40")) {
		t.Fatalf("last balance = %q", aggs[0].LastBalance)
	}
}

func TestAggregateMissingBalance(t *testing.T) {
	aggs := Aggregate(classifyRows([]RawRow{{Date: "01/01/2024", Debit: "1"}}))
	if !aggs[0].LastBalance.IsMissing() {
		t.Fatalf("expected missing balance, got %s", aggs[0].LastBalance)
	}
}

func TestAggregateLastBalanceSkipsMissing(t *testing.T) {
	aggs := Aggregate(classifyRows([]RawRow{
		{Date: "10/01/2024", Debit: "1", Balance: "90"},
		{Date: "20/01/2024", Debit: "1", Balance: "n/a"},
	}))
	if !aggs[0].LastBalance.Equal(AmountFromString("90")) {
		t.Fatalf("last balance = %q", aggs[0].LastBalance)
	}
}

func TestAggregateRoundsOnce(t *testing.T) {
	rows := []RawRow{
		{Date: "01/01/2024", Description: "POS a", Debit: "0.004"},
		{Date: "02/01/2024", Description: "POS b", Debit: "0.004"},
		{Date: "03/01/2024", Description: "POS c", Debit: "0.004"},
	}
	aggs := Aggregate(classifyRows(rows))
	// Per-row rounding would give 0.00; rounding the sum gives 0.01.
	if !aggs[0].Categories.Get(CardPurchases).Equal(dec("0.01")) {
		t.Fatalf("card purchases = %s", aggs[0].Categories.Get(CardPurchases))
	}
	if !aggs[0].TotalDebit.Equal(dec("0.01")) {
		t.Fatalf("total debit = %s", aggs[0].TotalDebit)
	}
}

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate(nil); len(got) != 0 {
		t.Fatalf("expected no months, got %d", len(got))
	}
}
