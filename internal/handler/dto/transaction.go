package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallybook/tally/internal/model"
)

// CreateTransactionRequest represents the request body for recording a transaction.
// Amount stays untyped so numeric strings are accepted alongside numbers.
type CreateTransactionRequest struct {
	Text     string `json:"text"`
	Amount   any    `json:"amount"`
	Category string `json:"category,omitempty"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID        string      `json:"_id"`
	Text      string      `json:"text"`
	Amount    json.Number `json:"amount"`
	Type      string      `json:"type"`
	Category  string      `json:"category"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CreateTransactionResponse is returned by POST /expenses.
type CreateTransactionResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Expense *TransactionResponse `json:"expense"`
}

// LedgerResponse is returned by GET /expenses.
type LedgerResponse struct {
	Success  bool                  `json:"success"`
	Expenses []TransactionResponse `json:"expenses"`
	Balance  json.Number           `json:"balance"`
	Income   json.Number           `json:"income"`
	Expense  json.Number           `json:"expense"`
}

// ToTransactionResponse converts a Transaction model to its DTO.
func ToTransactionResponse(tx *model.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:        tx.ID,
		Text:      tx.Text,
		Amount:    number(tx.Amount),
		Type:      string(tx.Kind),
		Category:  tx.Category,
		CreatedAt: tx.CreatedAt,
	}
}

// ToLedgerResponse converts a Ledger to the list response.
func ToLedgerResponse(l *model.Ledger) *LedgerResponse {
	expenses := make([]TransactionResponse, len(l.Transactions))
	for i, tx := range l.Transactions {
		expenses[i] = *ToTransactionResponse(tx)
	}
	return &LedgerResponse{
		Success:  true,
		Expenses: expenses,
		Balance:  number(l.Totals.Balance),
		Income:   number(l.Totals.Income),
		Expense:  number(l.Totals.Expense),
	}
}

// number renders a decimal as a JSON number without float rounding.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
