// Package present shapes summaries and snapshots into labelled series for
// charts and tables. Series are never nil: no data means zero points.
package present

import (
	"strconv"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/rollup"
)

type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Series struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

func newSeries(label string) Series {
	return Series{Label: label, Points: []Point{}}
}

func (s *Series) add(label string, m core.Money) {
	s.Points = append(s.Points, Point{Label: label, Value: m.Float64()})
}

// IncomeVsExpense always has two points, income first.
func IncomeVsExpense(s core.Summary) Series {
	out := newSeries("Income vs Expenses")
	out.add("Income", s.TotalIncome)
	out.add("Expenses", s.TotalExpenses)
	return out
}

// Categories emits one point per category in the given order, skipping
// empty categories.
func Categories(label string, cats []core.CategoryAmount) Series {
	out := newSeries(label)
	for _, c := range cats {
		if c.Amount.Cents == 0 {
			continue
		}
		out.add(c.Name, c.Amount)
	}
	return out
}

type Dashboard struct {
	Summary         core.Summary `json:"summary"`
	IncomeVsExpense Series       `json:"incomeVsExpense"`
	IncomeByTag     Series       `json:"incomeByCategory"`
	ExpensesByTag   Series       `json:"expensesByCategory"`
}

// NewDashboard derives the summary and both category pies from txs.
func NewDashboard(txs []core.Transaction) Dashboard {
	s := aggregate.Summarize(txs)
	return Dashboard{
		Summary:         s,
		IncomeVsExpense: IncomeVsExpense(s),
		IncomeByTag:     Categories("Income by Category", aggregate.GroupByCategory(txs, core.Income)),
		ExpensesByTag:   Categories("Expenses by Category", aggregate.GroupByCategory(txs, core.Expense)),
	}
}

type MonthlyChart struct {
	Year     int           `json:"year"`
	Labels   []string      `json:"labels"`
	Income   Series        `json:"income"`
	Expenses Series        `json:"expenses"`
	Savings  Series        `json:"savings"`
	Yearly   rollup.Yearly `json:"summary"`
}

// NewMonthlyChart lays out twelve months Jan..Dec with zeros for months
// without a snapshot.
func NewMonthlyChart(records []core.MonthlySavings, year int) MonthlyChart {
	c := MonthlyChart{
		Year:     year,
		Labels:   make([]string, 0, 12),
		Income:   newSeries("Income"),
		Expenses: newSeries("Expenses"),
		Savings:  newSeries("Savings"),
		Yearly:   rollup.YearlySummary(records, year),
	}
	byMonth := make(map[int]core.MonthlySavings)
	for _, r := range rollup.InYear(records, year) {
		byMonth[r.Month] = r
	}
	for m := 1; m <= 12; m++ {
		label := core.MonthAbbrev(m)
		r := byMonth[m]
		c.Labels = append(c.Labels, label)
		c.Income.add(label, r.TotalIncome)
		c.Expenses.add(label, r.TotalExpenses)
		c.Savings.add(label, r.Savings)
	}
	return c
}

type YearlyComparison struct {
	Labels   []string `json:"labels"`
	Income   Series   `json:"income"`
	Expenses Series   `json:"expenses"`
	Savings  Series   `json:"savings"`
}

// NewYearlyComparison has one point per available year, newest first.
func NewYearlyComparison(records []core.MonthlySavings) YearlyComparison {
	c := YearlyComparison{
		Labels:   []string{},
		Income:   newSeries("Income"),
		Expenses: newSeries("Expenses"),
		Savings:  newSeries("Savings"),
	}
	for _, year := range rollup.AvailableYears(records) {
		y := rollup.YearlySummary(records, year)
		label := strconv.Itoa(year)
		c.Labels = append(c.Labels, label)
		c.Income.add(label, y.TotalIncome)
		c.Expenses.add(label, y.TotalExpenses)
		c.Savings.add(label, y.TotalSavings)
	}
	return c
}

type Row struct {
	Label string     `json:"label"`
	Value core.Money `json:"value"`
	Count int        `json:"count,omitempty"`
}

// SummaryTable renders the summary as label/value rows.
func SummaryTable(s core.Summary) []Row {
	return []Row{
		{Label: "Total Income", Value: s.TotalIncome, Count: s.IncomeCount},
		{Label: "Total Expenses", Value: s.TotalExpenses, Count: s.ExpenseCount},
		{Label: "Balance", Value: s.TotalBalance},
	}
}
