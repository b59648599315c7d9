package migrations

import (
	"database/sql"
	"fmt"
)

// AddTransactionIndexes creates the natural-key unique index used for
// row-level deduplication plus the lookup indexes reports rely on.
func AddTransactionIndexes(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_natural_key
			ON transactions(user_id, date, description, amount, account);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_date
			ON transactions(user_id, date);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_category
			ON transactions(user_id, category);
	`)
	if err != nil {
		return fmt.Errorf("failed to create transaction indexes: %w", err)
	}
	return nil
}

// AddUploadHashIndex enforces one upload record per (user, content hash) so
// repeated uploads of identical bytes resolve to a single outcome.
func AddUploadHashIndex(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_uploads_user_hash
			ON uploads(user_id, content_hash);
	`)
	if err != nil {
		return fmt.Errorf("failed to create upload hash index: %w", err)
	}
	return nil
}

// AddRulePriorityIndex supports fetching a user's rules in evaluation order.
func AddRulePriorityIndex(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_rules_user_priority
			ON categorization_rules(user_id, priority);
	`)
	if err != nil {
		return fmt.Errorf("failed to create rule priority index: %w", err)
	}
	return nil
}
