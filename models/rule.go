package models

import "time"

// Fields a rule condition can test.
const (
	RuleFieldDescription = "description"
	RuleFieldAmount      = "amount"
	RuleFieldAccount     = "account"
)

// Condition operators. The numeric operators apply to the amount field only;
// that combination is enforced when the rule is created.
const (
	OperatorContains    = "contains"
	OperatorEquals      = "equals"
	OperatorStartsWith  = "starts_with"
	OperatorEndsWith    = "ends_with"
	OperatorGreaterThan = "greater_than"
	OperatorLessThan    = "less_than"
)

// RuleCondition is one field/operator/value test. String comparisons are
// case-insensitive unless CaseSensitive is set.
type RuleCondition struct {
	Field         string `json:"field"`
	Operator      string `json:"operator"`
	Value         string `json:"value"`
	CaseSensitive bool   `json:"caseSensitive"`
}

// CategorizationRule assigns its Category to transactions matching any one of
// its conditions. Rules are owned by a single user and evaluated in priority
// order; the first enabled match wins.
type CategorizationRule struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Conditions   []RuleCondition `json:"conditions"`
	Enabled      bool            `json:"enabled"`
	Priority     int             `json:"priority"`
	MatchesCount int             `json:"matchesCount"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
