package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finhealth/backend/database"
	"finhealth/backend/models"
)

// ValidateRule checks a rule's shape at creation time. Invalid field/operator
// combinations are rejected here rather than at evaluation time.
func ValidateRule(rule *models.CategorizationRule) error {
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if rule.Category == "" {
		return fmt.Errorf("rule category is required")
	}
	if len(rule.Conditions) == 0 {
		return fmt.Errorf("rule needs at least one condition")
	}
	for _, c := range rule.Conditions {
		if err := validateCondition(c); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(c models.RuleCondition) error {
	switch c.Field {
	case models.RuleFieldDescription, models.RuleFieldAccount:
		switch c.Operator {
		case models.OperatorContains, models.OperatorEquals,
			models.OperatorStartsWith, models.OperatorEndsWith:
			return nil
		default:
			return &RuleConditionError{Field: c.Field, Operator: c.Operator,
				Reason: "operator not valid for a text field"}
		}
	case models.RuleFieldAmount:
		switch c.Operator {
		case models.OperatorEquals, models.OperatorGreaterThan, models.OperatorLessThan:
		default:
			return &RuleConditionError{Field: c.Field, Operator: c.Operator,
				Reason: "operator not valid for the amount field"}
		}
		if _, err := decimal.NewFromString(strings.TrimSpace(c.Value)); err != nil {
			return &RuleConditionError{Field: c.Field, Operator: c.Operator,
				Reason: fmt.Sprintf("value %q is not numeric", c.Value)}
		}
		return nil
	default:
		return &RuleConditionError{Field: c.Field, Operator: c.Operator,
			Reason: "unknown field"}
	}
}

// conditionMatches evaluates a single condition against a transaction.
func conditionMatches(c models.RuleCondition, t models.Transaction) (bool, error) {
	switch c.Field {
	case models.RuleFieldDescription, models.RuleFieldAccount:
		subject := t.Description
		if c.Field == models.RuleFieldAccount {
			subject = t.Account
		}
		value := c.Value
		if !c.CaseSensitive {
			subject = strings.ToLower(subject)
			value = strings.ToLower(value)
		}
		switch c.Operator {
		case models.OperatorContains:
			return strings.Contains(subject, value), nil
		case models.OperatorEquals:
			return subject == value, nil
		case models.OperatorStartsWith:
			return strings.HasPrefix(subject, value), nil
		case models.OperatorEndsWith:
			return strings.HasSuffix(subject, value), nil
		}
	case models.RuleFieldAmount:
		d, err := decimal.NewFromString(strings.TrimSpace(c.Value))
		if err != nil {
			return false, &RuleConditionError{Field: c.Field, Operator: c.Operator,
				Reason: fmt.Sprintf("value %q is not numeric", c.Value)}
		}
		value := d.InexactFloat64()
		switch c.Operator {
		case models.OperatorEquals:
			return t.Amount == value, nil
		case models.OperatorGreaterThan:
			return t.Amount > value, nil
		case models.OperatorLessThan:
			return t.Amount < value, nil
		}
	}
	return false, &RuleConditionError{Field: c.Field, Operator: c.Operator,
		Reason: "unknown field or operator"}
}

// ruleMatches reports whether any one condition matches (OR semantics). A
// malformed condition skips the whole rule instead of aborting
// categorization.
func ruleMatches(rule *models.CategorizationRule, t models.Transaction) bool {
	for _, c := range rule.Conditions {
		ok, err := conditionMatches(c, t)
		if err != nil {
			log.Printf("Skipping rule %s: %v", rule.Name, err)
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// MatchCategory returns the first enabled rule, in priority order, matching
// the transaction. Evaluation stops at the first match.
func MatchCategory(rules []models.CategorizationRule, t models.Transaction) (*models.CategorizationRule, bool) {
	for i := range rules {
		if !rules[i].Enabled {
			continue
		}
		if ruleMatches(&rules[i], t) {
			return &rules[i], true
		}
	}
	return nil, false
}

// GetRules returns a user's rules in evaluation order.
func GetRules(userID string) ([]models.CategorizationRule, error) {
	rows, err := database.DB.Query(`
		SELECT id, user_id, name, category, conditions, enabled, priority, matches_count, created_at, updated_at
		FROM categorization_rules
		WHERE user_id = ?
		ORDER BY priority, created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []models.CategorizationRule
	for rows.Next() {
		var rule models.CategorizationRule
		var conditions string
		err := rows.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Category, &conditions,
			&rule.Enabled, &rule.Priority, &rule.MatchesCount, &rule.CreatedAt, &rule.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode rule conditions: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ActiveRules returns the user's enabled rules in evaluation order.
func ActiveRules(userID string) ([]models.CategorizationRule, error) {
	rules, err := GetRules(userID)
	if err != nil {
		return nil, err
	}
	active := rules[:0]
	for _, r := range rules {
		if r.Enabled {
			active = append(active, r)
		}
	}
	return active, nil
}

// CreateRule validates and persists a new rule. A zero priority places the
// rule after the user's existing ones.
func CreateRule(userID string, rule *models.CategorizationRule) (*models.CategorizationRule, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}

	if rule.Priority == 0 {
		var maxPriority sql.NullInt64
		err := database.DB.QueryRow(`
			SELECT MAX(priority) FROM categorization_rules WHERE user_id = ?
		`, userID).Scan(&maxPriority)
		if err != nil {
			return nil, fmt.Errorf("failed to determine rule priority: %w", err)
		}
		rule.Priority = int(maxPriority.Int64) + 1
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule conditions: %w", err)
	}

	now := time.Now()
	rule.ID = uuid.New().String()
	rule.UserID = userID
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err = database.DB.Exec(`
		INSERT INTO categorization_rules (id, user_id, name, category, conditions, enabled, priority, matches_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, rule.ID, userID, rule.Name, rule.Category, string(conditions), rule.Enabled, rule.Priority, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rule: %w", err)
	}

	return rule, nil
}

// UpdateRule validates and replaces an existing rule's definition.
func UpdateRule(userID, id string, rule *models.CategorizationRule) (*models.CategorizationRule, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule conditions: %w", err)
	}

	now := time.Now()
	result, err := database.DB.Exec(`
		UPDATE categorization_rules
		SET name = ?, category = ?, conditions = ?, enabled = ?, priority = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, rule.Name, rule.Category, string(conditions), rule.Enabled, rule.Priority, now, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("rule not found")
	}

	rule.ID = id
	rule.UserID = userID
	rule.UpdatedAt = now
	return rule, nil
}

// DeleteRule removes a rule. Categories it already assigned are untouched.
func DeleteRule(userID, id string) error {
	result, err := database.DB.Exec(`
		DELETE FROM categorization_rules WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("rule not found")
	}
	return nil
}

// ReapplyRules re-evaluates the user's enabled rules against their full
// transaction set inside one database transaction, so concurrent readers see
// either the old categories or the new ones, never a mix. Returns the number
// of transactions whose category changed.
func ReapplyRules(ctx context.Context, userID string) (int, error) {
	rules, err := ActiveRules(userID)
	if err != nil {
		return 0, err
	}

	tx, err := database.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT id, date, description, amount, category, account
		FROM transactions
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to query transactions: %w", err)
	}

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.Description, &t.Amount, &t.Category, &t.Account); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	updated := 0
	matchCounts := make(map[string]int)
	now := time.Now()
	for _, t := range txns {
		rule, ok := MatchCategory(rules, t)
		if !ok {
			continue
		}
		matchCounts[rule.ID]++
		if t.Category == rule.Category {
			continue
		}
		_, err := tx.Exec(`
			UPDATE transactions SET category = ?, updated_at = ? WHERE id = ?
		`, rule.Category, now, t.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to recategorize transaction: %w", err)
		}
		updated++
	}

	// A bulk re-apply recomputes each rule's match count from the full
	// ledger, so repeated invocations do not inflate the counters.
	for i := range rules {
		_, err := tx.Exec(`
			UPDATE categorization_rules SET matches_count = ? WHERE id = ?
		`, matchCounts[rules[i].ID], rules[i].ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update rule match count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit recategorization: %w", err)
	}
	return updated, nil
}
