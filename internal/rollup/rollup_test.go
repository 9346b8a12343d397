package rollup

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func tx(typ core.TxType, cents int64, tag string) core.Transaction {
	return core.Transaction{OwnerID: "u1", Name: tag, Amount: core.Money{Cents: cents}, Type: typ, Tag: tag, Date: core.NewDate(2024, 1, 5)}
}

func scenario() []core.Transaction {
	return []core.Transaction{
		tx(core.Income, 100000, "Salary"),
		tx(core.Expense, 30000, "Food"),
		tx(core.Expense, 20000, "Food"),
	}
}

func TestComputeSnapshot(t *testing.T) {
	s := ComputeSnapshot(scenario())
	if s.TotalIncome.Cents != 100000 || s.TotalExpenses.Cents != 50000 || s.Savings.Cents != 50000 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if s.TransactionCount != 3 || s.IncomeCount != 1 || s.ExpenseCount != 2 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if len(s.ExpensesByCategory) != 1 || s.ExpensesByCategory[0].Amount.Cents != 50000 {
		t.Fatalf("unexpected expense categories %+v", s.ExpensesByCategory)
	}
	empty := ComputeSnapshot(nil)
	if empty.IncomeByCategory == nil || empty.ExpensesByCategory == nil {
		t.Fatal("category slices must not be nil")
	}
}

func TestIsLastDayOfMonth(t *testing.T) {
	cases := []struct {
		t    time.Time
		want bool
	}{
		{time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), true},
		{time.Date(2023, 2, 28, 12, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC), false},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 4, 30, 23, 59, 0, 0, time.UTC), true},
		{time.Date(2024, 5, 30, 23, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := IsLastDayOfMonth(tc.t); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.t, got, tc.want)
		}
	}
}

func TestShouldAutoSave(t *testing.T) {
	due := time.Date(2024, 3, 31, 23, 10, 0, 0, time.UTC)
	existing := []core.MonthlySavings{{OwnerID: "u1", Year: 2024, Month: 3}}
	other := []core.MonthlySavings{{OwnerID: "u1", Year: 2024, Month: 2}}

	cases := []struct {
		name    string
		now     time.Time
		records []core.MonthlySavings
		txs     []core.Transaction
		want    bool
	}{
		{"all conditions hold", due, other, scenario(), true},
		{"record already present", due, existing, scenario(), false},
		{"before the hour", time.Date(2024, 3, 31, 22, 59, 0, 0, time.UTC), nil, scenario(), false},
		{"not last day", time.Date(2024, 3, 30, 23, 30, 0, 0, time.UTC), nil, scenario(), false},
		{"no transactions", due, nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldAutoSave(tc.now, tc.records, tc.txs, DefaultAutoSaveHour); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func rec(year, month int, income, expenses int64, created time.Time) core.MonthlySavings {
	return core.MonthlySavings{
		OwnerID: "u1", Year: year, Month: month,
		TotalIncome:   core.Money{Cents: income},
		TotalExpenses: core.Money{Cents: expenses},
		Savings:       core.Money{Cents: income - expenses},
		CreatedAt:     created,
	}
}

func TestYearlySummary(t *testing.T) {
	t0 := time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)
	records := []core.MonthlySavings{
		rec(2024, 1, 1000, 400, t0),
		rec(2024, 2, 1000, 900, t0),
		rec(2024, 2, 2000, 500, t0.Add(time.Hour)), // newer duplicate wins
		rec(2023, 12, 5000, 0, t0),
	}
	y := YearlySummary(records, 2024)
	if y.MonthCount != 2 {
		t.Fatalf("duplicate months must count once, got %d", y.MonthCount)
	}
	if y.TotalIncome.Cents != 3000 || y.TotalExpenses.Cents != 900 || y.TotalSavings.Cents != 2100 {
		t.Fatalf("unexpected totals %+v", y)
	}
	if y.AverageMonthlySavings.Cents != 1050 {
		t.Fatalf("average = %d", y.AverageMonthlySavings.Cents)
	}
}

func TestYearlySummaryEmpty(t *testing.T) {
	y := YearlySummary(nil, 2024)
	if y.TotalIncome.Cents != 0 || y.TotalExpenses.Cents != 0 || y.TotalSavings.Cents != 0 || y.MonthCount != 0 || y.AverageMonthlySavings.Cents != 0 {
		t.Fatalf("expected zero summary, got %+v", y)
	}
}

func TestAvailableYearsAndForMonth(t *testing.T) {
	records := []core.MonthlySavings{rec(2022, 1, 1, 0, time.Time{}), rec(2024, 5, 1, 0, time.Time{}), rec(2022, 2, 1, 0, time.Time{})}
	years := AvailableYears(records)
	if len(years) != 2 || years[0] != 2024 || years[1] != 2022 {
		t.Fatalf("unexpected years %v", years)
	}
	if got := AvailableYears(nil); got == nil || len(got) != 0 {
		t.Fatal("expected empty non-nil")
	}
	if _, ok := ForMonth(records, 2024, 5); !ok {
		t.Fatal("expected 2024-05")
	}
	if _, ok := ForMonth(records, 2024, 6); ok {
		t.Fatal("unexpected 2024-06")
	}
}

func TestSavedMessage(t *testing.T) {
	if got := SavedMessage(2024, 3); got != "Monthly data for March 2024 saved" {
		t.Fatalf("got %q", got)
	}
}
