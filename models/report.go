package models

// Metrics a time-series report can be computed for.
const (
	MetricIncome   = "income"
	MetricExpenses = "expenses"
	MetricNet      = "net"
)

type Summary struct {
	TotalIncome            float64 `json:"totalIncome"`
	TotalExpenses          float64 `json:"totalExpenses"`
	Net                    float64 `json:"net"`
	SavingsRate            float64 `json:"savingsRate"`
	AverageMonthlyIncome   float64 `json:"averageMonthlyIncome"`
	AverageMonthlyExpenses float64 `json:"averageMonthlyExpenses"`
	LargestExpense         float64 `json:"largestExpense"`
	LargestIncome          float64 `json:"largestIncome"`
	ExpenseToIncomeRatio   float64 `json:"expenseToIncomeRatio"`
	TransactionCount       int     `json:"transactionCount"`
}

type CategoryBreakdown struct {
	Category         string  `json:"category"`
	Amount           float64 `json:"amount"`
	Percentage       float64 `json:"percentage"`
	TransactionCount int     `json:"transactionCount"`
}

// CategoryTotal is a raw signed total per category, used by the per-month
// detail report.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// MonthlyPoint is one calendar-month bucket. Months with no transactions
// still appear with zero values so consumers can render continuous series.
type MonthlyPoint struct {
	Month            string  `json:"month"` // YYYY-MM
	Income           float64 `json:"income"`
	Expenses         float64 `json:"expenses"`
	Net              float64 `json:"net"`
	TransactionCount int     `json:"transactionCount"`
}

type MonthlySeries struct {
	Metric     string         `json:"metric"`
	StartMonth string         `json:"startMonth"`
	EndMonth   string         `json:"endMonth"`
	Points     []MonthlyPoint `json:"points"`
}

type YearOverYearRow struct {
	Month             string  `json:"month"`
	CurrentYearValue  float64 `json:"currentYearValue"`
	PreviousYearValue float64 `json:"previousYearValue"`
	Diff              float64 `json:"diff"`
	PercentChange     float64 `json:"percentChange"`
}

type YearOverYearReport struct {
	Metric       string            `json:"metric"`
	CurrentYear  int               `json:"currentYear"`
	PreviousYear int               `json:"previousYear"`
	Rows         []YearOverYearRow `json:"rows"`
}
