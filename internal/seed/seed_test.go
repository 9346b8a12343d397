package seed

import (
	"slices"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestTransactionsAreValidInput(t *testing.T) {
	now := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	txs := NewGenerator(42).Transactions(200, 3, now)
	if len(txs) != 200 {
		t.Fatalf("got %d rows", len(txs))
	}

	earliest := core.NewDate(2024, 1, 1).Time
	var income, expense int
	for _, tx := range txs {
		tx.OwnerID = "u1"
		if err := tx.ValidateForInput(now); err != nil {
			t.Fatalf("invalid row %+v: %v", tx, err)
		}
		if tx.Date.Before(earliest) {
			t.Fatalf("date %s before range", tx.Date)
		}
		if !slices.Contains(core.SuggestedTags(tx.Type), tx.Tag) {
			t.Fatalf("tag %q not suggested for %s", tx.Tag, tx.Type)
		}
		if tx.Type == core.Income {
			income++
		} else {
			expense++
		}
	}
	if income == 0 || expense == 0 {
		t.Fatalf("income=%d expense=%d", income, expense)
	}
}

func TestSameSeedSameRows(t *testing.T) {
	now := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	a := NewGenerator(7).Transactions(20, 2, now)
	b := NewGenerator(7).Transactions(20, 2, now)
	for i := range a {
		if !a[i].SameContent(b[i]) {
			t.Fatalf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
