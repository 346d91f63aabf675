package core

import "strings"

type (
	// RawRow is one spreadsheet data row, cells as decoded text.
	RawRow struct {
		Line        int // 1-based sheet row, header is line 1
		Date        string
		Description string
		Debit       string
		Credit      string
		Balance     string
	}

	// Transaction is a normalized, and after Classify, categorized row.
	Transaction struct {
		Line             int
		Date             Date
		Description      string
		DescriptionLower string
		Debit            Amount
		Credit           Amount
		Balance          Amount
		Categories       CategoryAmounts

		// DebitUnparsed and CreditUnparsed mark a non-empty cell that did
		// not parse as a number.
		DebitUnparsed  bool
		CreditUnparsed bool
	}
)

// Normalize coerces a raw row into typed fields. It never fails: cells that
// cannot be parsed become missing markers and the row is kept.
func Normalize(raw RawRow) Transaction {
	tx := Transaction{
		Line:             raw.Line,
		Date:             ParseDate(raw.Date),
		Description:      raw.Description,
		DescriptionLower: strings.ToLower(raw.Description),
		Debit:            ParseAmount(raw.Debit),
		Credit:           ParseAmount(raw.Credit),
		Balance:          ParseAmount(raw.Balance),
	}
	tx.DebitUnparsed = unparsed(raw.Debit, tx.Debit)
	tx.CreditUnparsed = unparsed(raw.Credit, tx.Credit)
	return tx
}

func unparsed(cell string, a Amount) bool {
	return a.IsMissing() && strings.TrimSpace(cell) != ""
}

// NormalizeAll normalizes rows in order.
func NormalizeAll(rows []RawRow) []Transaction {
	out := make([]Transaction, len(rows))
	for i, r := range rows {
		out[i] = Normalize(r)
	}
	return out
}

// MonthKey is the grouping key of the row, "" when the date is missing.
func (t Transaction) MonthKey() string {
	return t.Date.MonthKey()
}
