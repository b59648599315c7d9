package services

import (
	"fmt"
	"sort"
	"time"

	"finhealth/backend/models"
)

// The aggregation functions are pure: they read a transaction set and
// compute, never touching storage, so they can run concurrently with
// ingestion and each other.

func validMetric(metric string) bool {
	switch metric {
	case models.MetricIncome, models.MetricExpenses, models.MetricNet:
		return true
	}
	return false
}

// metricValue is a transaction's contribution to the given metric. Expenses
// are reported as positive magnitudes.
func metricValue(metric string, t models.Transaction) float64 {
	switch metric {
	case models.MetricIncome:
		if t.Amount > 0 {
			return t.Amount
		}
		return 0
	case models.MetricExpenses:
		if t.Amount <= 0 {
			return -t.Amount
		}
		return 0
	default:
		return t.Amount
	}
}

// CalculateSummary computes the headline figures for a transaction set.
func CalculateSummary(txns []models.Transaction) models.Summary {
	var s models.Summary
	var minDate, maxDate time.Time

	for _, t := range txns {
		if t.Amount > 0 {
			s.TotalIncome += t.Amount
			if t.Amount > s.LargestIncome {
				s.LargestIncome = t.Amount
			}
		} else {
			magnitude := -t.Amount
			s.TotalExpenses += magnitude
			if magnitude > s.LargestExpense {
				s.LargestExpense = magnitude
			}
		}
		if minDate.IsZero() || t.Date.Before(minDate) {
			minDate = t.Date
		}
		if maxDate.IsZero() || t.Date.After(maxDate) {
			maxDate = t.Date
		}
	}

	s.Net = s.TotalIncome - s.TotalExpenses
	if s.TotalIncome > 0 {
		s.SavingsRate = s.Net / s.TotalIncome * 100
		s.ExpenseToIncomeRatio = s.TotalExpenses / s.TotalIncome
	}

	months := float64(monthSpan(minDate, maxDate))
	s.AverageMonthlyIncome = s.TotalIncome / months
	s.AverageMonthlyExpenses = s.TotalExpenses / months
	s.TransactionCount = len(txns)
	return s
}

// monthSpan counts the calendar months between two dates, inclusive, with a
// minimum of one.
func monthSpan(min, max time.Time) int {
	if min.IsZero() || max.IsZero() {
		return 1
	}
	span := (max.Year()*12 + int(max.Month())) - (min.Year()*12 + int(min.Month())) + 1
	if span < 1 {
		return 1
	}
	return span
}

// CalculateCategoryBreakdown groups expense transactions by category, sorted
// by amount descending. The amounts sum to the summary's total expenses.
func CalculateCategoryBreakdown(txns []models.Transaction) []models.CategoryBreakdown {
	amounts := make(map[string]float64)
	counts := make(map[string]int)
	var total float64
	for _, t := range txns {
		if t.Amount > 0 {
			continue
		}
		magnitude := -t.Amount
		amounts[t.Category] += magnitude
		counts[t.Category]++
		total += magnitude
	}

	breakdown := make([]models.CategoryBreakdown, 0, len(amounts))
	for category, amount := range amounts {
		entry := models.CategoryBreakdown{
			Category:         category,
			Amount:           amount,
			TransactionCount: counts[category],
		}
		if total > 0 {
			entry.Percentage = amount / total * 100
		}
		breakdown = append(breakdown, entry)
	}

	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Amount != breakdown[j].Amount {
			return breakdown[i].Amount > breakdown[j].Amount
		}
		return breakdown[i].Category < breakdown[j].Category
	})
	return breakdown
}

// CalculateMonthlySeries buckets transactions into calendar months from
// start through end, inclusive. Empty months appear with zero values so the
// series is continuous.
func CalculateMonthlySeries(txns []models.Transaction, metric string, start, end time.Time) (*models.MonthlySeries, error) {
	if !validMetric(metric) {
		return nil, &AggregationInputError{Reason: fmt.Sprintf("unknown metric %q", metric)}
	}
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return nil, &AggregationInputError{Reason: "series end before start"}
	}

	series := &models.MonthlySeries{
		Metric:     metric,
		StartMonth: start.Format("2006-01"),
		EndMonth:   end.Format("2006-01"),
	}

	index := make(map[string]int)
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		index[key] = len(series.Points)
		series.Points = append(series.Points, models.MonthlyPoint{Month: key})
	}

	for _, t := range txns {
		i, ok := index[t.Date.Format("2006-01")]
		if !ok {
			continue
		}
		point := &series.Points[i]
		if t.Amount > 0 {
			point.Income += t.Amount
		} else {
			point.Expenses += -t.Amount
		}
		point.Net += t.Amount
		point.TransactionCount++
	}
	return series, nil
}

// CalculateYearOverYear compares a metric's monthly values between a year and
// the one before it, one row per calendar month. When the previous year's
// value is zero the percent change is reported as zero.
func CalculateYearOverYear(txns []models.Transaction, metric string, year int) (*models.YearOverYearReport, error) {
	if !validMetric(metric) {
		return nil, &AggregationInputError{Reason: fmt.Sprintf("unknown metric %q", metric)}
	}
	if year <= 0 {
		return nil, &AggregationInputError{Reason: fmt.Sprintf("bad year %d", year)}
	}

	var current, previous [12]float64
	for _, t := range txns {
		month := int(t.Date.Month()) - 1
		switch t.Date.Year() {
		case year:
			current[month] += metricValue(metric, t)
		case year - 1:
			previous[month] += metricValue(metric, t)
		}
	}

	report := &models.YearOverYearReport{
		Metric:       metric,
		CurrentYear:  year,
		PreviousYear: year - 1,
	}
	for m := 0; m < 12; m++ {
		row := models.YearOverYearRow{
			Month:             time.Month(m + 1).String()[:3],
			CurrentYearValue:  current[m],
			PreviousYearValue: previous[m],
			Diff:              current[m] - previous[m],
		}
		if previous[m] != 0 {
			row.PercentChange = row.Diff / previous[m] * 100
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// CalculateMonthDetails totals each category's signed amounts within one
// calendar month, largest magnitude first.
func CalculateMonthDetails(txns []models.Transaction, month string) ([]models.CategoryTotal, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, &AggregationInputError{Reason: fmt.Sprintf("bad month %q", month)}
	}

	totals := make(map[string]float64)
	for _, t := range txns {
		if t.Date.Format("2006-01") != month {
			continue
		}
		totals[t.Category] += t.Amount
	}

	details := make([]models.CategoryTotal, 0, len(totals))
	for category, total := range totals {
		details = append(details, models.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(details, func(i, j int) bool {
		ai, aj := details[i].Total, details[j].Total
		if ai < 0 {
			ai = -ai
		}
		if aj < 0 {
			aj = -aj
		}
		if ai != aj {
			return ai > aj
		}
		return details[i].Category < details[j].Category
	})
	return details, nil
}
