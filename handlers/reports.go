package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"finhealth/backend/middleware"
	"finhealth/backend/models"
	"finhealth/backend/services"

	"github.com/gorilla/mux"
)

// defaultSeriesMonths is the trailing window when no range is requested.
const defaultSeriesMonths = 12

// trailingWindow returns the bounds of a window of n calendar months
// ending at the month containing now. Subtracting from the first of the
// month avoids AddDate's day normalization rolling past short months.
func trailingWindow(now time.Time, n int) (start, end time.Time) {
	end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start = end.AddDate(0, -(n-1), 0)
	return start, end
}

func reportFilter(r *http.Request) models.TransactionFilter {
	q := r.URL.Query()
	return models.TransactionFilter{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Category:  q.Get("category"),
		Account:   q.Get("account"),
	}
}

// writeReportError maps aggregation input problems to 400 and everything
// else to 500. Callers never receive a partial result.
func writeReportError(w http.ResponseWriter, err error) {
	var inputErr *services.AggregationInputError
	if errors.As(err, &inputErr) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// GetSummary handles GET /reports/summary
func GetSummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	txns, err := services.FetchTransactions(userID, reportFilter(r))
	if err != nil {
		writeReportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(services.CalculateSummary(txns))
}

// GetCategoryBreakdown handles GET /reports/categories
func GetCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	txns, err := services.FetchTransactions(userID, reportFilter(r))
	if err != nil {
		writeReportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(services.CalculateCategoryBreakdown(txns))
}

// GetMonthlySeries handles GET /reports/monthly. The window is either an
// explicit start_month/end_month pair (YYYY-MM) or a trailing number of
// months ending at the current month.
func GetMonthlySeries(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	q := r.URL.Query()

	metric := q.Get("metric")
	if metric == "" {
		metric = models.MetricNet
	}

	var start, end time.Time
	if startMonth := q.Get("start_month"); startMonth != "" {
		var err error
		start, err = time.Parse("2006-01", startMonth)
		if err != nil {
			http.Error(w, "Invalid start_month: "+startMonth, http.StatusBadRequest)
			return
		}
		end = time.Now().UTC()
		if endMonth := q.Get("end_month"); endMonth != "" {
			end, err = time.Parse("2006-01", endMonth)
			if err != nil {
				http.Error(w, "Invalid end_month: "+endMonth, http.StatusBadRequest)
				return
			}
		}
	} else {
		months := defaultSeriesMonths
		if monthsParam := q.Get("months"); monthsParam != "" {
			var err error
			months, err = strconv.Atoi(monthsParam)
			if err != nil || months < 1 {
				http.Error(w, "Invalid months: "+monthsParam, http.StatusBadRequest)
				return
			}
		}
		start, end = trailingWindow(time.Now().UTC(), months)
	}

	filter := models.TransactionFilter{Category: q.Get("category"), Account: q.Get("account")}
	txns, err := services.FetchTransactions(userID, filter)
	if err != nil {
		writeReportError(w, err)
		return
	}

	series, err := services.CalculateMonthlySeries(txns, metric, start, end)
	if err != nil {
		writeReportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(series)
}

// GetMonthDetails handles GET /reports/monthly/{month}, the per-category
// totals for one calendar month.
func GetMonthDetails(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	txns, err := services.FetchTransactions(userID, models.TransactionFilter{})
	if err != nil {
		writeReportError(w, err)
		return
	}

	details, err := services.CalculateMonthDetails(txns, mux.Vars(r)["month"])
	if err != nil {
		writeReportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

// GetYearOverYear handles GET /reports/yoy
func GetYearOverYear(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	q := r.URL.Query()

	metric := q.Get("metric")
	if metric == "" {
		metric = models.MetricExpenses
	}

	year := time.Now().UTC().Year()
	if yearParam := q.Get("year"); yearParam != "" {
		var err error
		year, err = strconv.Atoi(yearParam)
		if err != nil {
			http.Error(w, "Invalid year: "+yearParam, http.StatusBadRequest)
			return
		}
	}

	filter := models.TransactionFilter{Category: q.Get("category"), Account: q.Get("account")}
	txns, err := services.FetchTransactions(userID, filter)
	if err != nil {
		writeReportError(w, err)
		return
	}

	report, err := services.CalculateYearOverYear(txns, metric, year)
	if err != nil {
		writeReportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
