// Package sheets exports monthly savings snapshots to a spreadsheet.
package sheets

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// SnapshotWriter is the outbound port of the export worker. Every save
// appends a new row; earlier rows for the same month are kept as history.
type SnapshotWriter interface {
	// AppendSnapshot adds one row for rec and returns the written range.
	AppendSnapshot(ctx context.Context, rec core.MonthlySavings) (rowRef string, err error)
}

// Header names the columns written by AppendSnapshot.
var Header = []any{"Year", "Month", "MonthName", "Income", "Expenses", "Savings", "Transactions", "SavedAt"}

const savedAtLayout = "2006-01-02 15:04"

// SnapshotRow renders rec in Header order. Amounts are plain numbers so the
// sheet can sum them.
func SnapshotRow(rec core.MonthlySavings) []any {
	savedAt := rec.CreatedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	return []any{
		rec.Year,
		rec.Month,
		core.MonthName(rec.Month),
		rec.TotalIncome.Float64(),
		rec.TotalExpenses.Float64(),
		rec.Savings.Float64(),
		rec.TransactionCount,
		savedAt.UTC().Format(savedAtLayout),
	}
}
