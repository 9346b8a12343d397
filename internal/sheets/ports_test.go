package sheets

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestSnapshotRow(t *testing.T) {
	rec := core.MonthlySavings{
		Year:             2024,
		Month:            3,
		TotalIncome:      core.Money{Cents: 300000},
		TotalExpenses:    core.Money{Cents: 125050},
		Savings:          core.Money{Cents: 174950},
		TransactionCount: 7,
		CreatedAt:        time.Date(2024, 3, 31, 23, 5, 0, 0, time.UTC),
	}
	row := SnapshotRow(rec)
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header %d", len(row), len(Header))
	}
	want := []any{2024, 3, "March", 3000.0, 1250.5, 1749.5, 7, "2024-03-31 23:05"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d: got %v (%T) want %v (%T)", i, row[i], row[i], want[i], want[i])
		}
	}
}
