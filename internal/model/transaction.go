// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a transaction, derived from the sign of its amount.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Default categories applied when none is supplied.
const (
	CategoryOtherIncome  = "Other Income"
	CategoryOtherExpense = "Other Expense"
)

// IsValid checks if the kind is one of the known values.
func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction is a single immutable ledger entry.
// A negative amount is an expense; zero and positive amounts are income.
type Transaction struct {
	ID        string
	UserID    string
	Text      string
	Amount    decimal.Decimal
	Kind      Kind
	Category  string
	CreatedAt time.Time
}

// IsIncome reports whether the transaction adds to the balance.
func (t *Transaction) IsIncome() bool {
	return !t.Amount.IsNegative()
}

// Totals holds the aggregated figures of a ledger.
// Expense is reported as a positive magnitude.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// Ledger is a user's full, insertion-ordered transaction list with its totals.
type Ledger struct {
	Transactions []*Transaction
	Totals       Totals
}
