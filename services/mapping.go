package services

import "strings"

// FieldMapping resolves canonical fields to column indices in the source
// file.
type FieldMapping struct {
	Columns map[string]int `json:"columns"`
}

func (m FieldMapping) Has(field string) bool {
	_, ok := m.Columns[field]
	return ok
}

// SplitAmount reports whether the amount must be computed from separate
// credit and debit columns.
func (m FieldMapping) SplitAmount() bool {
	return !m.Has(FieldAmount) && (m.Has(FieldCredit) || m.Has(FieldDebit))
}

// ResolveMapping locates each of the layout's canonical fields in the header
// by case-insensitive substring match, then validates required coverage.
func ResolveMapping(layout *InstitutionLayout, header []string) (FieldMapping, error) {
	lower := lowerAll(header)
	cols := make(map[string]int)
	for field, tokens := range layout.FieldTokens {
		for _, tok := range tokens {
			if idx := findColumn(lower, tok); idx >= 0 {
				cols[field] = idx
				break
			}
		}
	}
	m := FieldMapping{Columns: cols}
	return m, ValidateMapping(m)
}

// OverrideMapping builds a mapping from caller-supplied column indexes,
// bypassing detection entirely. Used by interactive mapping flows.
func OverrideMapping(columns map[string]int) (FieldMapping, error) {
	cols := make(map[string]int, len(columns))
	for field, idx := range columns {
		cols[field] = idx
	}
	m := FieldMapping{Columns: cols}
	return m, ValidateMapping(m)
}

// ValidateMapping checks the minimum canonical coverage: date, description,
// and either a single amount column or a credit/debit pair.
func ValidateMapping(m FieldMapping) error {
	var missing []string
	if !m.Has(FieldDate) {
		missing = append(missing, FieldDate)
	}
	if !m.Has(FieldDescription) {
		missing = append(missing, FieldDescription)
	}
	if !m.Has(FieldAmount) && !m.Has(FieldCredit) && !m.Has(FieldDebit) {
		missing = append(missing, FieldAmount)
	}
	if len(missing) > 0 {
		return &FieldMappingError{Missing: missing}
	}
	return nil
}

// HeaderlessMapping recognizes exports that begin directly with data rows:
// column 0 holds a date, column 1 a label serving as both description and
// category, column 2 the amount.
func HeaderlessMapping(first []string) (FieldMapping, bool) {
	if len(first) < 3 {
		return FieldMapping{}, false
	}
	if _, err := ParseDate(first[0]); err != nil {
		return FieldMapping{}, false
	}
	return FieldMapping{Columns: map[string]int{
		FieldDate:        0,
		FieldDescription: 1,
		FieldCategory:    1,
		FieldAmount:      2,
	}}, true
}

func findColumn(lowerHeader []string, token string) int {
	for i, cell := range lowerHeader {
		if strings.Contains(cell, token) {
			return i
		}
	}
	return -1
}
