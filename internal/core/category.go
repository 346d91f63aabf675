package core

import "github.com/shopspring/decimal"

// Side tells which raw column a category draws its amount from.
type Side int

const (
	CreditSide Side = iota
	DebitSide
)

func (s Side) String() string {
	if s == DebitSide {
		return "debit"
	}
	return "credit"
}

// Category is one of the fixed transaction buckets.
type Category int

const (
	TalabatCredit Category = iota
	SnoonuCredit
	CashDeposit
	CardPayout
	CardPurchases
	BankCharges
	ATMWithdrawal
	WPSTransfer
	Transfer

	numCategories
)

var categoryNames = [numCategories]string{
	TalabatCredit: "Talabat credit",
	SnoonuCredit:  "Snoonu credit",
	CashDeposit:   "Cash deposit",
	CardPayout:    "Card Payout",
	CardPurchases: "Card Purchases",
	BankCharges:   "Bank charges",
	ATMWithdrawal: "ATM Withdrawal",
	WPSTransfer:   "WPS Transfer",
	Transfer:      "Transfer",
}

// String returns the display and export name, e.g. "Talabat credit".
func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "unknown"
	}
	return categoryNames[c]
}

// Side returns CreditSide for the first four categories and DebitSide otherwise.
func (c Category) Side() Side {
	if c <= CardPayout {
		return CreditSide
	}
	return DebitSide
}

// CategoryByName looks a category up by its export name.
func CategoryByName(name string) (Category, bool) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), true
		}
	}
	return 0, false
}

// AllCategories lists the categories in export order.
func AllCategories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// CreditCategories lists the credit-side categories in export order.
func CreditCategories() []Category {
	return []Category{TalabatCredit, SnoonuCredit, CashDeposit, CardPayout}
}

// DebitCategories lists the debit-side categories in export order.
func DebitCategories() []Category {
	return []Category{CardPurchases, BankCharges, ATMWithdrawal, WPSTransfer, Transfer}
}

// CategoryAmounts holds one amount per category; the zero value is all zeros.
type CategoryAmounts [numCategories]decimal.Decimal

func (a CategoryAmounts) Get(c Category) decimal.Decimal {
	return a[c]
}

func (a *CategoryAmounts) Set(c Category, d decimal.Decimal) {
	a[c] = d
}

// Add accumulates b into a.
func (a *CategoryAmounts) Add(b CategoryAmounts) {
	for i := range a {
		a[i] = a[i].Add(b[i])
	}
}

// Sum totals the given categories.
func (a CategoryAmounts) Sum(cats []Category) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cats {
		total = total.Add(a[c])
	}
	return total
}

// Values returns the amounts of cats in the given order.
func (a CategoryAmounts) Values(cats []Category) []decimal.Decimal {
	out := make([]decimal.Decimal, len(cats))
	for i, c := range cats {
		out[i] = a[c]
	}
	return out
}

// Rounded returns a copy with every amount rounded to two decimals.
func (a CategoryAmounts) Rounded() CategoryAmounts {
	var out CategoryAmounts
	for i := range a {
		out[i] = Round2(a[i])
	}
	return out
}
