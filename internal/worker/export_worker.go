// Package worker exports saved monthly snapshots to the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// ExportWorker turns savings.saved events into spreadsheet rows.
type ExportWorker struct {
	store    store.SavingsStore
	sheet    sheets.SnapshotWriter
	notifier notify.Notifier
	logger   *log.Logger
}

func NewExportWorker(st store.SavingsStore, sheet sheets.SnapshotWriter, notifier notify.Notifier, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	return &ExportWorker{
		store:    st,
		sheet:    sheet,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is the consumer callback. Events other than savings.saved
// are acknowledged untouched. A returned error requeues the delivery.
func (w *ExportWorker) HandleEvent(ctx context.Context, e events.Event) error {
	if e.Type != events.SavingsSaved {
		w.logger.DebugContext(ctx, "Ignoring event", log.FieldEventType, string(e.Type))
		return nil
	}

	w.logger.InfoContext(ctx, "Processing savings export",
		log.FieldOwnerID, e.OwnerID, log.FieldYear, e.Year, log.FieldMonth, e.Month)

	rec, err := w.store.GetMonthly(ctx, e.OwnerID, e.Year, e.Month)
	if errors.Is(err, core.ErrNotFound) {
		// the record was replaced or removed since the event was published
		w.logger.WarnContext(ctx, "Snapshot no longer exists, skipping",
			log.FieldOwnerID, e.OwnerID, log.FieldYear, e.Year, log.FieldMonth, e.Month)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	ref, err := w.sheet.AppendSnapshot(ctx, rec)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to export snapshot",
			log.FieldOwnerID, e.OwnerID, log.FieldYear, e.Year, log.FieldMonth, e.Month,
			log.FieldError, err.Error())
		return fmt.Errorf("append snapshot: %w", err)
	}

	w.logger.InfoContext(ctx, "Snapshot exported",
		log.FieldOwnerID, e.OwnerID, log.FieldYear, e.Year, log.FieldMonth, e.Month, "ref", ref)
	msg := fmt.Sprintf("Exported %s %d savings to the spreadsheet", core.MonthName(rec.Month), rec.Year)
	if err := w.notifier.Notify(ctx, notify.Info, msg); err != nil {
		w.logger.WarnContext(ctx, "Notification failed", log.FieldError, err.Error())
	}
	return nil
}
