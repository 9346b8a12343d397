package worker

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/notify"
	sheetmem "fintrack/internal/sheets/memory"
	"fintrack/internal/store/memory"
)

type failingSheet struct{}

func (failingSheet) AppendSnapshot(context.Context, core.MonthlySavings) (string, error) {
	return "", errors.New("quota exceeded")
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	_, err := st.UpsertMonthly(context.Background(), core.MonthlySavings{
		OwnerID:          "u1",
		Year:             2024,
		Month:            3,
		TotalIncome:      core.Money{Cents: 300000},
		TotalExpenses:    core.Money{Cents: 120000},
		Savings:          core.Money{Cents: 180000},
		TransactionCount: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestHandleEventExportsSnapshot(t *testing.T) {
	sheet := sheetmem.New()
	rec := &notify.Recorder{}
	w := NewExportWorker(seed(t), sheet, rec, nil)

	if err := w.HandleEvent(context.Background(), events.NewSavingsEvent("u1", 2024, 3)); err != nil {
		t.Fatal(err)
	}
	rows := sheet.Rows()
	if len(rows) != 1 || rows[0][0] != 2024 || rows[0][2] != "March" {
		t.Fatalf("rows = %v", rows)
	}
	if msgs := rec.All(); len(msgs) != 1 || msgs[0] != "Exported March 2024 savings to the spreadsheet" {
		t.Fatalf("notifications = %v", msgs)
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	sheet := sheetmem.New()
	w := NewExportWorker(seed(t), sheet, nil, nil)

	e := events.NewTransactionEvent(events.TransactionCreated, "u1", "t1")
	if err := w.HandleEvent(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if len(sheet.Rows()) != 0 {
		t.Fatal("transaction event exported")
	}
}

func TestHandleEventMissingSnapshotIsDropped(t *testing.T) {
	sheet := sheetmem.New()
	w := NewExportWorker(seed(t), sheet, nil, nil)

	if err := w.HandleEvent(context.Background(), events.NewSavingsEvent("u1", 2023, 1)); err != nil {
		t.Fatalf("missing snapshot should ack, got %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Fatal("nothing should be exported")
	}
}

func TestHandleEventSheetFailureRequeues(t *testing.T) {
	rec := &notify.Recorder{}
	w := NewExportWorker(seed(t), failingSheet{}, rec, nil)

	if err := w.HandleEvent(context.Background(), events.NewSavingsEvent("u1", 2024, 3)); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.All()) != 0 {
		t.Fatal("failure must not notify success")
	}
}
