package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventJSON(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e := Event{Type: SavingsSaved, OwnerID: "u1", Year: 2024, Month: 1, Timestamp: ts}

	b, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	got, err := FromJSON(b)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if got.Type != e.Type || got.OwnerID != "u1" || got.Year != 2024 || got.Month != 1 {
		t.Errorf("decoded %+v, want %+v", got, e)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, ts)
	}
}

func TestFromJSONRejectsIncompleteEvents(t *testing.T) {
	for _, body := range []string{
		`{"type": 5}`,
		`{"ownerId": "u1"}`,
		`{"type": "savings.saved"}`,
		`not json`,
	} {
		if _, err := FromJSON([]byte(body)); err == nil {
			t.Errorf("FromJSON(%s) should fail", body)
		}
	}
}

func TestNewTransactionEvent(t *testing.T) {
	e := NewTransactionEvent(TransactionDeleted, "u1", "42")
	if e.Type != TransactionDeleted || e.TransactionID != "42" {
		t.Fatalf("unexpected event %+v", e)
	}
	if time.Since(e.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	_ = r.Publish(ctx, NewTransactionEvent(TransactionCreated, "u1", "1"))
	_ = r.Publish(ctx, NewSavingsEvent("u1", 2024, 2))
	types := r.Types()
	if len(types) != 2 || types[0] != TransactionCreated || types[1] != SavingsSaved {
		t.Fatalf("unexpected types %v", types)
	}
	r.Err = errors.New("broker down")
	if err := r.Publish(ctx, NewSavingsEvent("u1", 2024, 3)); err == nil {
		t.Fatal("expected configured error")
	}
	if err := (Nop{}).Publish(ctx, Event{}); err != nil {
		t.Fatal(err)
	}
}
