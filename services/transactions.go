package services

import (
	"fmt"
	"time"

	"finhealth/backend/database"
	"finhealth/backend/models"
)

// parseFilterDates validates the filter's date range up front so reports
// reject bad input before any computation.
func parseFilterDates(f models.TransactionFilter) (start, end time.Time, err error) {
	if f.StartDate != "" {
		start, err = time.Parse("2006-01-02", f.StartDate)
		if err != nil {
			return start, end, &AggregationInputError{Reason: fmt.Sprintf("bad start date %q", f.StartDate)}
		}
	}
	if f.EndDate != "" {
		end, err = time.Parse("2006-01-02", f.EndDate)
		if err != nil {
			return start, end, &AggregationInputError{Reason: fmt.Sprintf("bad end date %q", f.EndDate)}
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, &AggregationInputError{Reason: "end date before start date"}
	}
	return start, end, nil
}

// FetchTransactions returns the user's transactions matching the filter,
// oldest first.
func FetchTransactions(userID string, f models.TransactionFilter) ([]models.Transaction, error) {
	start, end, err := parseFilterDates(f)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, date, description, amount, category, account, type, created_at, updated_at
		FROM transactions
		WHERE user_id = ?
	`
	args := []interface{}{userID}

	if !start.IsZero() {
		query += " AND date >= ?"
		args = append(args, start)
	}
	if !end.IsZero() {
		query += " AND date <= ?"
		args = append(args, end)
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Account != "" {
		query += " AND account = ?"
		args = append(args, f.Account)
	}
	query += " ORDER BY date, created_at"

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.Date, &t.Description, &t.Amount, &t.Category,
			&t.Account, &t.Type, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// DeleteTransaction removes one transaction by id, scoped to its owner.
func DeleteTransaction(userID, id string) (int64, error) {
	result, err := database.DB.Exec(`
		DELETE FROM transactions WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transaction: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAllTransactions clears the user's ledger and returns the count
// removed.
func DeleteAllTransactions(userID string) (int64, error) {
	result, err := database.DB.Exec(`
		DELETE FROM transactions WHERE user_id = ?
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return result.RowsAffected()
}

// UpdateTransactionCategory sets one transaction's category by hand,
// overriding whatever the rules assigned.
func UpdateTransactionCategory(userID, id, category string) error {
	if category == "" {
		category = models.DefaultCategory
	}
	result, err := database.DB.Exec(`
		UPDATE transactions SET category = ?, updated_at = ? WHERE id = ? AND user_id = ?
	`, category, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transaction not found")
	}
	return nil
}

// GetCategories lists the distinct categories present in the user's ledger.
func GetCategories(userID string) ([]string, error) {
	rows, err := database.DB.Query(`
		SELECT DISTINCT category FROM transactions WHERE user_id = ? ORDER BY category
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
