// Package ledger holds the pure rules of the transaction ledger:
// categorization on create, amount coercion and balance aggregation.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tallybook/tally/internal/model"
)

// Resolve derives the kind of a transaction from the sign of its amount
// and picks its category. A zero amount is income.
// A non-empty supplied category is used as-is; there is no allow-list.
func Resolve(amount decimal.Decimal, supplied string) (model.Kind, string) {
	kind := model.KindIncome
	if amount.IsNegative() {
		kind = model.KindExpense
	}

	if strings.TrimSpace(supplied) != "" {
		return kind, supplied
	}

	if kind == model.KindIncome {
		return kind, model.CategoryOtherIncome
	}
	return kind, model.CategoryOtherExpense
}

// Aggregate computes income, expense and balance for a list of transactions.
// Expense is the sum of absolute values of negative amounts.
func Aggregate(txs []*model.Transaction) model.Totals {
	income := decimal.Zero
	expense := decimal.Zero

	for _, tx := range txs {
		if tx.Amount.IsNegative() {
			expense = expense.Add(tx.Amount.Abs())
		} else {
			income = income.Add(tx.Amount)
		}
	}

	return model.Totals{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}
}
