package rollup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/store/memory"
)

func newService(t *testing.T) (*Service, *memory.Store, *events.Recorder, *notify.Recorder) {
	t.Helper()
	st := memory.New()
	pub := &events.Recorder{}
	note := &notify.Recorder{}
	return NewService(st, WithPublisher(pub), WithNotifier(note)), st, pub, note
}

func TestSaveMonthUpsertsByKey(t *testing.T) {
	svc, st, pub, note := newService(t)
	ctx := context.Background()

	first, err := svc.SaveMonth(ctx, "u1", 2024, 3, scenario())
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.SaveMonth(ctx, "u1", 2024, 3, scenario()[:1])
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("explicit save must replace, got ids %s and %s", first.ID, second.ID)
	}
	recs, _ := st.ListMonthly(ctx, "u1")
	if len(recs) != 1 || recs[0].TransactionCount != 1 {
		t.Fatalf("unexpected records %+v", recs)
	}
	if types := pub.Types(); len(types) != 2 || types[0] != events.SavingsSaved {
		t.Fatalf("unexpected events %v", types)
	}
	if msgs := note.All(); len(msgs) != 2 || msgs[0] != "Monthly data for March 2024 saved" {
		t.Fatalf("unexpected notifications %v", msgs)
	}
}

func TestSaveMonthPersistenceFailure(t *testing.T) {
	svc, st, pub, _ := newService(t)
	st.FailNext(errors.New("permission denied"))
	if _, err := svc.SaveMonth(context.Background(), "u1", 2024, 3, scenario()); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(pub.Types()) != 0 {
		t.Fatal("failed save must not publish")
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, notify.Level, string) error {
	return errors.New("discord unavailable")
}

func TestSaveMonthLogsNotificationFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf})
	svc := NewService(memory.New(), WithNotifier(failingNotifier{}), WithLogger(logger))

	if _, err := svc.SaveMonth(context.Background(), "u1", 2024, 3, scenario()); err != nil {
		t.Fatalf("notification failure must not fail the save: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "Notification failed") ||
		!strings.Contains(out, "discord unavailable") {
		t.Fatalf("expected a warning for the failed notification, got:\n%s", out)
	}
}

func TestAutoSaveIfDue(t *testing.T) {
	svc, st, _, _ := newService(t)
	ctx := context.Background()
	due := time.Date(2024, 3, 31, 23, 5, 0, 0, time.UTC)

	if _, created, _ := svc.AutoSaveIfDue(ctx, "u1", due.Add(-2*time.Hour), scenario()); created {
		t.Fatal("must not save before the hour")
	}
	rec, created, err := svc.AutoSaveIfDue(ctx, "u1", due, scenario())
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}
	if rec.Year != 2024 || rec.Month != 3 || rec.Savings.Cents != 50000 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, created, _ := svc.AutoSaveIfDue(ctx, "u1", due.Add(30*time.Minute), scenario()); created {
		t.Fatal("second trigger in the same month must not save")
	}
	recs, _ := st.ListMonthly(ctx, "u1")
	if len(recs) != 1 {
		t.Fatalf("expected one record, got %d", len(recs))
	}
}

func TestAutoSaveConcurrentTriggersCreateOnce(t *testing.T) {
	svc, st, pub, _ := newService(t)
	ctx := context.Background()
	due := time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = svc.AutoSaveIfDue(ctx, "u1", due, scenario())
		}()
	}
	wg.Wait()

	recs, _ := st.ListMonthly(ctx, "u1")
	if len(recs) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(recs))
	}
	if len(pub.Types()) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.Types()))
	}
}

func TestYearly(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	_, _ = svc.SaveMonth(ctx, "u1", 2024, 1, scenario())
	_, _ = svc.SaveMonth(ctx, "u1", 2024, 2, scenario()[:1])
	y, err := svc.Yearly(ctx, "u1", 2024)
	if err != nil {
		t.Fatal(err)
	}
	if y.MonthCount != 2 || y.TotalSavings.Cents != 150000 || y.AverageMonthlySavings.Cents != 75000 {
		t.Fatalf("unexpected yearly %+v", y)
	}
}

func TestSchedulerRunOnce(t *testing.T) {
	svc, st, _, _ := newService(t)
	ctx := context.Background()
	for _, owner := range []string{"u1", "u2"} {
		for _, tx := range scenario() {
			tx.OwnerID = owner
			if _, err := st.Create(ctx, tx); err != nil {
				t.Fatal(err)
			}
		}
	}

	now := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	sched := NewScheduler(svc, st, st, time.Hour, nil).WithClock(func() time.Time { return now })
	if n := sched.RunOnce(ctx); n != 2 {
		t.Fatalf("expected 2 snapshots, got %d", n)
	}
	if n := sched.RunOnce(ctx); n != 0 {
		t.Fatalf("second run must be a no-op, got %d", n)
	}

	now = time.Date(2024, 2, 1, 23, 30, 0, 0, time.UTC)
	if n := sched.RunOnce(ctx); n != 0 {
		t.Fatalf("not the last day, got %d", n)
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	svc, st, _, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	sched := NewScheduler(svc, st, st, time.Millisecond, nil)
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
