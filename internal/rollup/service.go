package rollup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/store"
)

// Service persists snapshots. All writes go through one lock so a
// check-then-insert can never interleave with another save.
type Service struct {
	store     store.SavingsStore
	publisher events.Publisher
	notifier  notify.Notifier
	logger    *log.Logger
	hour      int

	mu sync.Mutex
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithNotifier(n notify.Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithLogger(l *log.Logger) Option { return func(s *Service) { s.logger = l } }

// WithAutoSaveHour sets the earliest hour on the last day of the month.
func WithAutoSaveHour(h int) Option { return func(s *Service) { s.hour = h } }

func NewService(st store.SavingsStore, opts ...Option) *Service {
	s := &Service{
		store:     st,
		publisher: events.Nop{},
		logger:    log.Discard(),
		hour:      DefaultAutoSaveHour,
	}
	for _, o := range opts {
		o(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewLog(s.logger)
	}
	s.logger = s.logger.WithComponent(log.ComponentRollup)
	return s
}

// SaveMonth snapshots txs as the owner's record for year/month, replacing
// an existing record with the same key.
func (s *Service) SaveMonth(ctx context.Context, ownerID string, year, month int, txs []core.Transaction) (core.MonthlySavings, error) {
	rec := ComputeSnapshot(txs)
	rec.OwnerID, rec.Year, rec.Month = ownerID, year, month

	s.mu.Lock()
	saved, err := s.store.UpsertMonthly(ctx, rec)
	s.mu.Unlock()
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save monthly savings",
			log.FieldOwnerID, ownerID, log.FieldYear, year, log.FieldMonth, month,
			log.FieldError, err.Error())
		return core.MonthlySavings{}, fmt.Errorf("save month: %w", err)
	}
	s.announce(ctx, saved, log.OpSave)
	return saved, nil
}

// SaveCurrentMonth saves the snapshot for now's month.
func (s *Service) SaveCurrentMonth(ctx context.Context, ownerID string, now time.Time, txs []core.Transaction) (core.MonthlySavings, error) {
	return s.SaveMonth(ctx, ownerID, now.Year(), int(now.Month()), txs)
}

// AutoSaveIfDue writes now's snapshot when ShouldAutoSave holds against the
// records currently in the store. At most one record per month is created
// however many triggers race.
func (s *Service) AutoSaveIfDue(ctx context.Context, ownerID string, now time.Time, txs []core.Transaction) (core.MonthlySavings, bool, error) {
	if !IsLastDayOfMonth(now) || now.Hour() < s.hour || len(txs) == 0 {
		return core.MonthlySavings{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.ListMonthly(ctx, ownerID)
	if err != nil {
		return core.MonthlySavings{}, false, fmt.Errorf("auto-save: %w", err)
	}
	if !ShouldAutoSave(now, records, txs, s.hour) {
		return core.MonthlySavings{}, false, nil
	}

	rec := ComputeSnapshot(txs)
	rec.OwnerID, rec.Year, rec.Month = ownerID, now.Year(), int(now.Month())
	saved, created, err := s.store.InsertMonthlyIfAbsent(ctx, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "Auto-save failed",
			log.FieldOwnerID, ownerID, log.FieldError, err.Error())
		return core.MonthlySavings{}, false, fmt.Errorf("auto-save: %w", err)
	}
	if created {
		s.announce(ctx, saved, log.OpAutoSave)
	}
	return saved, created, nil
}

func (s *Service) announce(ctx context.Context, rec core.MonthlySavings, op string) {
	s.logger.InfoContext(ctx, "Monthly savings saved",
		log.FieldOperation, op,
		log.FieldOwnerID, rec.OwnerID,
		log.FieldYear, rec.Year,
		log.FieldMonth, rec.Month,
		log.FieldAmountCents, rec.Savings.Cents)

	if err := s.publisher.Publish(ctx, events.NewSavingsEvent(rec.OwnerID, rec.Year, rec.Month)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish savings event", log.FieldError, err.Error())
	}
	if err := s.notifier.Notify(ctx, notify.Info, SavedMessage(rec.Year, rec.Month)); err != nil {
		s.logger.WarnContext(ctx, "Notification failed", log.FieldOwnerID, rec.OwnerID, log.FieldError, err.Error())
	}
}

// SavedMessage is the confirmation shown after a snapshot is stored.
func SavedMessage(year, month int) string {
	return fmt.Sprintf("Monthly data for %s %d saved", core.MonthName(month), year)
}

// Records returns the owner's snapshots straight from the store.
func (s *Service) Records(ctx context.Context, ownerID string) ([]core.MonthlySavings, error) {
	recs, err := s.store.ListMonthly(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

func (s *Service) Yearly(ctx context.Context, ownerID string, year int) (Yearly, error) {
	recs, err := s.Records(ctx, ownerID)
	if err != nil {
		return Yearly{}, err
	}
	return YearlySummary(recs, year), nil
}
