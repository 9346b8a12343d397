package core

import "time"

type (
	// Summary is derived from the current transaction set and never stored.
	Summary struct {
		TotalIncome   Money `json:"totalIncome"`
		TotalExpenses Money `json:"totalExpenses"`
		TotalBalance  Money `json:"totalBalance"`
		IncomeCount   int   `json:"incomeCount"`
		ExpenseCount  int   `json:"expenseCount"`
	}

	CategoryAmount struct {
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
	}

	// MonthlySavings is the persisted snapshot of one owner's month.
	MonthlySavings struct {
		ID                 string           `json:"id,omitempty"`
		OwnerID            string           `json:"ownerId"`
		Year               int              `json:"year"`
		Month              int              `json:"month"`
		TotalIncome        Money            `json:"totalIncome"`
		TotalExpenses      Money            `json:"totalExpenses"`
		Savings            Money            `json:"savings"`
		TransactionCount   int              `json:"transactionCount"`
		IncomeCount        int              `json:"incomeCount"`
		ExpenseCount       int              `json:"expenseCount"`
		IncomeByCategory   []CategoryAmount `json:"incomeByCategory"`
		ExpensesByCategory []CategoryAmount `json:"expensesByCategory"`
		CreatedAt          time.Time        `json:"createdAt"`
	}
)

// MonthKey identifies one month of one owner.
type MonthKey struct {
	Year  int
	Month int
}

func (r MonthlySavings) Key() MonthKey {
	return MonthKey{Year: r.Year, Month: r.Month}
}

func (r MonthlySavings) Validate() error {
	if r.OwnerID == "" {
		return &ValidationError{Field: "ownerId", Err: ErrEmptyOwner}
	}
	if r.Month < 1 || r.Month > 12 || r.Year < 1 {
		return &ValidationError{Field: "month", Err: ErrInvalidDate}
	}
	return nil
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English month name, or "" outside 1..12.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}

// MonthAbbrev returns the three-letter month label used by charts.
func MonthAbbrev(m int) string {
	name := MonthName(m)
	if name == "" {
		return ""
	}
	return name[:3]
}
