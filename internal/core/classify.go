package core

import "strings"

// rule assigns the side amount of a row to category when match holds.
type rule struct {
	category Category
	match    func(desc string) bool
}

// rules are independent; a row may populate several categories.
var rules = []rule{
	{TalabatCredit, containsAll("inward", "talabat")},
	{SnoonuCredit, containsAll("inward", "snoon")},
	{CashDeposit, containsAll("cash", "deposit")},
	{CardPayout, containsAll("internal", "transfer", "fullpayout")},
	{CardPurchases, func(desc string) bool { return strings.HasPrefix(desc, "pos") }},
	{BankCharges, containsAny("charge", "fee", "fees", "pos rental")},
	{ATMWithdrawal, containsAll("atm cash withdrawal")},
	{WPSTransfer, containsAll("wps salary")},
	{Transfer, containsAll("outward qatch")},
}

func containsAll(keywords ...string) func(string) bool {
	return func(desc string) bool {
		for _, k := range keywords {
			if !strings.Contains(desc, k) {
				return false
			}
		}
		return true
	}
}

func containsAny(keywords ...string) func(string) bool {
	return func(desc string) bool {
		for _, k := range keywords {
			if strings.Contains(desc, k) {
				return true
			}
		}
		return false
	}
}

// Classify fills tx.Categories from the folded description.
//
// A matching credit-side category takes the row's credit, a debit-side one the
// row's debit. A missing debit or credit contributes zero: the category has
// nothing to absorb, so the bucket stays empty for that row.
func Classify(tx *Transaction) {
	var amounts CategoryAmounts
	for _, r := range rules {
		if !r.match(tx.DescriptionLower) {
			continue
		}
		side := tx.Credit
		if r.category.Side() == DebitSide {
			side = tx.Debit
		}
		amounts.Set(r.category, side.OrZero())
	}
	tx.Categories = amounts
}

// ClassifyAll classifies every transaction in place.
func ClassifyAll(txs []Transaction) {
	for i := range txs {
		Classify(&txs[i])
	}
}

// Matches returns the categories whose predicate matches desc, which must
// already be lower-cased.
func Matches(desc string) []Category {
	var out []Category
	for _, r := range rules {
		if r.match(desc) {
			out = append(out, r.category)
		}
	}
	return out
}
