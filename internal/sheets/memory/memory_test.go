package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func TestAppendSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()

	ref, err := s.AppendSnapshot(ctx, core.MonthlySavings{OwnerID: "u1", Year: 2024, Month: 3})
	if err != nil || ref != "mem!A1:H1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if _, err := s.AppendSnapshot(ctx, core.MonthlySavings{Year: 2024, Month: 3}); err == nil {
		t.Fatal("expected validation error for missing owner")
	}

	if rows := s.Rows(); len(rows) != 1 || rows[0][2] != "March" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
