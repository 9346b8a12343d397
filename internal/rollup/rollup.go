// Package rollup turns transactions into monthly savings snapshots and
// aggregates snapshots per year.
package rollup

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

// DefaultAutoSaveHour is the earliest hour on the last day of a month at
// which the automatic snapshot is taken.
const DefaultAutoSaveHour = 23

// Yearly aggregates the snapshots of one year.
type Yearly struct {
	Year                  int        `json:"year"`
	TotalIncome           core.Money `json:"totalIncome"`
	TotalExpenses         core.Money `json:"totalExpenses"`
	TotalSavings          core.Money `json:"totalSavings"`
	MonthCount            int        `json:"monthCount"`
	AverageMonthlySavings core.Money `json:"averageMonthlySavings"`
}

// ComputeSnapshot fills the totals, counts and category breakdowns of a
// snapshot. Owner, year and month are left for the caller.
func ComputeSnapshot(txs []core.Transaction) core.MonthlySavings {
	s := aggregate.Summarize(txs)
	return core.MonthlySavings{
		TotalIncome:        s.TotalIncome,
		TotalExpenses:      s.TotalExpenses,
		Savings:            s.TotalBalance,
		TransactionCount:   len(txs),
		IncomeCount:        s.IncomeCount,
		ExpenseCount:       s.ExpenseCount,
		IncomeByCategory:   aggregate.GroupByCategory(txs, core.Income),
		ExpensesByCategory: aggregate.GroupByCategory(txs, core.Expense),
	}
}

// IsLastDayOfMonth reports whether t falls on the final calendar day of its
// month, in t's location.
func IsLastDayOfMonth(t time.Time) bool {
	return t.AddDate(0, 0, 1).Day() == 1
}

// ShouldAutoSave holds only on the last day of the month at or after hour,
// with at least one transaction and no snapshot yet for now's month.
func ShouldAutoSave(now time.Time, records []core.MonthlySavings, txs []core.Transaction, hour int) bool {
	if !IsLastDayOfMonth(now) || now.Hour() < hour || len(txs) == 0 {
		return false
	}
	_, exists := ForMonth(records, now.Year(), int(now.Month()))
	return !exists
}

// ForMonth returns the snapshot for year/month, preferring the newest when
// duplicates exist.
func ForMonth(records []core.MonthlySavings, year, month int) (core.MonthlySavings, bool) {
	var (
		found core.MonthlySavings
		ok    bool
	)
	for _, r := range records {
		if r.Year != year || r.Month != month {
			continue
		}
		if !ok || r.CreatedAt.After(found.CreatedAt) {
			found, ok = r, true
		}
	}
	return found, ok
}

// InYear returns one snapshot per month of year, newest wins, ordered by month.
func InYear(records []core.MonthlySavings, year int) []core.MonthlySavings {
	byMonth := make(map[int]core.MonthlySavings)
	for _, r := range records {
		if r.Year != year {
			continue
		}
		if cur, ok := byMonth[r.Month]; !ok || r.CreatedAt.After(cur.CreatedAt) {
			byMonth[r.Month] = r
		}
	}
	out := make([]core.MonthlySavings, 0, len(byMonth))
	for _, r := range byMonth {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b core.MonthlySavings) int { return a.Month - b.Month })
	return out
}

// YearlySummary sums the year's snapshots, counting each month once.
func YearlySummary(records []core.MonthlySavings, year int) Yearly {
	y := Yearly{Year: year}
	for _, r := range InYear(records, year) {
		y.TotalIncome = y.TotalIncome.Add(r.TotalIncome)
		y.TotalExpenses = y.TotalExpenses.Add(r.TotalExpenses)
		y.TotalSavings = y.TotalSavings.Add(r.Savings)
		y.MonthCount++
	}
	if y.MonthCount > 0 {
		avg := decimal.NewFromInt(y.TotalSavings.Cents).
			Div(decimal.NewFromInt(int64(y.MonthCount))).
			Round(0)
		y.AverageMonthlySavings = core.Money{Cents: avg.IntPart()}
	}
	return y
}

// AvailableYears lists the years having snapshots, newest first.
func AvailableYears(records []core.MonthlySavings) []int {
	out := []int{}
	for _, r := range records {
		if !slices.Contains(out, r.Year) {
			out = append(out, r.Year)
		}
	}
	slices.SortFunc(out, func(a, b int) int { return b - a })
	return out
}
