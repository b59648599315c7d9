package services

import (
	"fmt"
	"strings"
)

// FormatDetectionError means no institution layout or generic heuristic could
// make sense of the header row. The whole batch is aborted.
type FormatDetectionError struct {
	Header []string
}

func (e *FormatDetectionError) Error() string {
	if len(e.Header) == 0 {
		return "unrecognized file format: empty file"
	}
	return fmt.Sprintf("unrecognized CSV header: %s", strings.Join(e.Header, ", "))
}

// FieldMappingError means one or more required canonical fields could not be
// resolved to a column. The whole batch is aborted.
type FieldMappingError struct {
	Missing []string
}

func (e *FieldMappingError) Error() string {
	return fmt.Sprintf("required field(s) not mapped: %s", strings.Join(e.Missing, ", "))
}

// RowParseError rejects a single row without failing the batch. Row is the
// 1-based line number in the source file.
type RowParseError struct {
	Row    int
	Field  string
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %d: invalid %s: %s", e.Row, e.Field, e.Reason)
}

// RuleConditionError marks a malformed or type-mismatched rule condition. At
// creation time it rejects the rule; at evaluation time the rule is skipped.
type RuleConditionError struct {
	Field    string
	Operator string
	Reason   string
}

func (e *RuleConditionError) Error() string {
	return fmt.Sprintf("invalid condition %s %s: %s", e.Field, e.Operator, e.Reason)
}

// AggregationInputError rejects a report request before any computation.
type AggregationInputError struct {
	Reason string
}

func (e *AggregationInputError) Error() string {
	return "invalid report input: " + e.Reason
}
