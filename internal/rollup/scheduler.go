package rollup

import (
	"context"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/store"
)

// Scheduler runs the month-end auto-save for every owner, once at start and
// then on every tick.
type Scheduler struct {
	svc      *Service
	txs      store.TransactionStore
	owners   store.OwnerLister
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger
}

func NewScheduler(svc *Service, txs store.TransactionStore, owners store.OwnerLister, interval time.Duration, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Discard()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		svc:      svc,
		txs:      txs,
		owners:   owners,
		interval: interval,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentRollup),
	}
}

// WithClock replaces the clock passed to each run.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "Auto-save scheduler started", "interval", s.interval.String())
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce checks every owner and returns how many snapshots were created.
// Failures for one owner do not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	now := s.now()
	if !IsLastDayOfMonth(now) || now.Hour() < s.svc.hour {
		return 0
	}

	owners, err := s.owners.Owners(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list owners", log.FieldError, err.Error())
		return 0
	}

	saved := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			break
		}
		txs, err := s.txs.FetchAll(ctx, owner)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to fetch transactions",
				log.FieldOwnerID, owner, log.FieldError, err.Error())
			continue
		}
		if _, created, err := s.svc.AutoSaveIfDue(ctx, owner, now, txs); err != nil {
			s.logger.ErrorContext(ctx, "Auto-save failed",
				log.FieldOwnerID, owner, log.FieldError, err.Error())
		} else if created {
			saved++
		}
	}
	s.logger.InfoContext(ctx, "Auto-save run complete", log.FieldCount, saved)
	return saved
}
