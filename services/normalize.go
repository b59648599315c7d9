package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finhealth/backend/models"
)

// dateFormats is tried in order, ISO first, then common locale variants.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"01/02/06",
	"1/2/2006",
	"2006/01/02",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// ParseDate normalizes a date cell to a calendar date, trying each known
// format in order.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", s)
}

// currencyCleaner strips currency symbols and separators before numeric
// parsing.
var currencyCleaner = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "")

// ParseAmount converts an amount cell to a signed value. Parenthesized
// values are negative; an empty cell is zero.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		neg = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = currencyCleaner.Replace(cleaned)
	if cleaned == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", s)
	}
	if neg {
		d = d.Neg()
	}
	return d.InexactFloat64(), nil
}

// NormalizedRow pairs a parsed transaction with its source line number.
type NormalizedRow struct {
	Line        int
	Transaction models.Transaction
}

// NormalizeRows parses data rows in parallel. Results preserve source order
// so error reporting and duplicate checks stay deterministic. Unparseable
// rows become RowParseErrors without failing the batch; firstLine is the
// 1-based line number of rows[0] in the source file.
func NormalizeRows(ctx context.Context, rows [][]string, m FieldMapping, firstLine int) ([]NormalizedRow, []*RowParseError, error) {
	parsed := make([]*models.Transaction, len(rows))
	failed := make([]*RowParseError, len(rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range rows {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := normalizeRow(rows[i], m)
			if err != nil {
				var rowErr *RowParseError
				if errors.As(err, &rowErr) {
					rowErr.Row = firstLine + i
					failed[i] = rowErr
					return nil
				}
				return err
			}
			parsed[i] = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []NormalizedRow
	var rowErrs []*RowParseError
	for i := range rows {
		if failed[i] != nil {
			rowErrs = append(rowErrs, failed[i])
			continue
		}
		if parsed[i] != nil {
			out = append(out, NormalizedRow{Line: firstLine + i, Transaction: *parsed[i]})
		}
	}
	return out, rowErrs, nil
}

// normalizeRow converts one source row into the canonical transaction shape.
// The transaction type is always derived from the amount sign, never from a
// source column.
func normalizeRow(row []string, m FieldMapping) (models.Transaction, error) {
	cell := func(field string) string {
		idx, ok := m.Columns[field]
		if !ok || idx < 0 || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	date, err := ParseDate(cell(FieldDate))
	if err != nil {
		return models.Transaction{}, &RowParseError{Field: "date", Reason: err.Error()}
	}

	var amount float64
	if m.SplitAmount() {
		credit, err := ParseAmount(cell(FieldCredit))
		if err != nil {
			return models.Transaction{}, &RowParseError{Field: "credit", Reason: err.Error()}
		}
		debit, err := ParseAmount(cell(FieldDebit))
		if err != nil {
			return models.Transaction{}, &RowParseError{Field: "debit", Reason: err.Error()}
		}
		// Credit is positive, debit is a magnitude to subtract.
		amount = credit - debit
	} else {
		amount, err = ParseAmount(cell(FieldAmount))
		if err != nil {
			return models.Transaction{}, &RowParseError{Field: "amount", Reason: err.Error()}
		}
	}

	category := collapseWhitespace(cell(FieldCategory))
	if category == "" {
		category = models.DefaultCategory
	}

	return models.Transaction{
		Date:        date,
		Description: collapseWhitespace(cell(FieldDescription)),
		Amount:      amount,
		Category:    category,
		Account:     collapseWhitespace(cell(FieldAccount)),
		Type:        models.TypeForAmount(amount),
	}, nil
}

// collapseWhitespace trims and squeezes interior runs of whitespace.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
