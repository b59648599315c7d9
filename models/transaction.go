package models

import "time"

// DefaultCategory is assigned to transactions that no source column or rule
// categorizes.
const DefaultCategory = "Uncategorized"

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Account     string    `json:"account,omitempty"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TypeForAmount derives the transaction type from the amount sign. A zero
// amount counts as an expense.
func TypeForAmount(amount float64) string {
	if amount > 0 {
		return TypeIncome
	}
	return TypeExpense
}

// TransactionFilter narrows a user's transaction set for listing and reports.
// Dates are YYYY-MM-DD strings; empty fields are ignored.
type TransactionFilter struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Category  string `json:"category,omitempty"`
	Account   string `json:"account,omitempty"`
}
