package services

import "strings"

// Canonical field names columns are mapped to.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldCredit      = "credit"
	FieldDebit       = "debit"
	FieldCategory    = "category"
	FieldAccount     = "account"
)

// minLayoutScore is how many registry tokens must appear in the header before
// a layout is considered a candidate match.
const minLayoutScore = 3

// InstitutionLayout describes one known CSV export format. Tokens are scored
// against the header row; FieldTokens locates the column for each canonical
// field, tried in order.
type InstitutionLayout struct {
	Name        string
	Tokens      []string
	FieldTokens map[string][]string
}

// layoutRegistry lists the known institution exports in declaration order.
// Ties in detection scoring break toward the earlier entry. Adding an
// institution is a data change, not a code change.
var layoutRegistry = []InstitutionLayout{
	{
		Name:   "chase",
		Tokens: []string{"transaction date", "post date", "description", "category", "type", "amount"},
		FieldTokens: map[string][]string{
			FieldDate:        {"transaction date", "post date"},
			FieldDescription: {"description"},
			FieldAmount:      {"amount"},
			FieldCategory:    {"category"},
		},
	},
	{
		Name:   "bank_of_america",
		Tokens: []string{"date", "description", "amount", "running bal"},
		FieldTokens: map[string][]string{
			FieldDate:        {"date"},
			FieldDescription: {"description"},
			FieldAmount:      {"amount"},
		},
	},
	{
		Name:   "amex",
		Tokens: []string{"date", "description", "card member", "account #", "amount"},
		FieldTokens: map[string][]string{
			FieldDate:        {"date"},
			FieldDescription: {"description"},
			FieldAmount:      {"amount"},
			FieldAccount:     {"account #"},
		},
	},
	{
		Name:   "capital_one",
		Tokens: []string{"transaction date", "posted date", "card no", "description", "category", "debit", "credit"},
		FieldTokens: map[string][]string{
			FieldDate:        {"transaction date", "posted date"},
			FieldDescription: {"description"},
			FieldCategory:    {"category"},
			FieldDebit:       {"debit"},
			FieldCredit:      {"credit"},
			FieldAccount:     {"card no"},
		},
	},
	{
		Name:   "discover",
		Tokens: []string{"trans. date", "post date", "description", "amount", "category"},
		FieldTokens: map[string][]string{
			FieldDate:        {"trans. date", "post date"},
			FieldDescription: {"description"},
			FieldAmount:      {"amount"},
			FieldCategory:    {"category"},
		},
	},
	{
		Name:   "fidelity",
		Tokens: []string{"run date", "account", "action", "symbol", "amount"},
		FieldTokens: map[string][]string{
			FieldDate:        {"run date"},
			FieldDescription: {"action"},
			FieldAmount:      {"amount"},
			FieldAccount:     {"account"},
		},
	},
}

// DetectFormat scores the header row against the layout registry. The
// highest-scoring layout with at least minLayoutScore matching tokens wins;
// ties break by declaration order. When no layout qualifies, a generic
// heuristic looks for date-like, amount-like, and description-like columns.
func DetectFormat(header []string) (*InstitutionLayout, error) {
	lower := lowerAll(header)

	var best *InstitutionLayout
	bestScore := 0
	for i := range layoutRegistry {
		score := layoutScore(layoutRegistry[i].Tokens, lower)
		if score >= minLayoutScore && score > bestScore {
			best = &layoutRegistry[i]
			bestScore = score
		}
	}
	if best != nil {
		return best, nil
	}

	if generic := genericLayout(lower); generic != nil {
		return generic, nil
	}

	return nil, &FormatDetectionError{Header: header}
}

// layoutScore counts layout tokens appearing as a substring of some header
// cell.
func layoutScore(tokens, lowerHeader []string) int {
	score := 0
	for _, tok := range tokens {
		for _, cell := range lowerHeader {
			if strings.Contains(cell, tok) {
				score++
				break
			}
		}
	}
	return score
}

// genericLayout is the fallback for headers no registry entry recognizes. It
// requires a date-like and an amount-like column; anything else is optional.
func genericLayout(lowerHeader []string) *InstitutionLayout {
	hasDate := anyCellContains(lowerHeader, "date")
	hasAmount := anyCellContains(lowerHeader, "amount", "credit", "debit")
	if !hasDate || !hasAmount {
		return nil
	}
	return &InstitutionLayout{
		Name: "generic",
		FieldTokens: map[string][]string{
			FieldDate:        {"date"},
			FieldDescription: {"description", "payee", "memo", "details"},
			FieldAmount:      {"amount"},
			FieldCredit:      {"credit"},
			FieldDebit:       {"debit"},
			FieldCategory:    {"category"},
			FieldAccount:     {"account"},
		},
	}
}

func lowerAll(cells []string) []string {
	lower := make([]string, len(cells))
	for i, c := range cells {
		lower[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return lower
}

func anyCellContains(lowerHeader []string, tokens ...string) bool {
	for _, tok := range tokens {
		for _, cell := range lowerHeader {
			if strings.Contains(cell, tok) {
				return true
			}
		}
	}
	return false
}
