// Package worker turns expense events from the broker into journal rows.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/log"
)

const (
	seenSize = 4096
	seenTTL  = time.Hour
)

// JournalWriter is where handled events end up. *export.Client implements it.
type JournalWriter interface {
	EnsureJournalHeader(ctx context.Context) error
	AppendJournal(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// Stats counts what the worker did since it started.
type Stats struct {
	Appended   int64
	Duplicates int64
	Failed     int64
}

// JournalWorker appends one row per expense event. Redelivered events that
// were already written are skipped.
type JournalWorker struct {
	journal JournalWriter
	logger  *log.Logger
	seen    *cache.LRUCache[struct{}]

	appended   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

func NewJournalWorker(journal JournalWriter, logger *log.Logger) *JournalWorker {
	if logger == nil {
		logger = log.Nop()
	}
	return &JournalWorker{
		journal: journal,
		logger:  logger.WithComponent(log.ComponentWorker),
		seen:    cache.NewLRUCache[struct{}](seenSize, seenTTL),
	}
}

// StartupCheck makes sure the journal has its header row. A failure is
// logged and returned; the caller decides whether to go on.
func (w *JournalWorker) StartupCheck(ctx context.Context) error {
	if err := w.journal.EnsureJournalHeader(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to prepare journal", log.FieldOperation, log.OpStartup, log.FieldError, err)
		return fmt.Errorf("prepare journal: %w", err)
	}
	w.logger.InfoContext(ctx, "Journal ready", log.FieldOperation, log.OpStartup)
	return nil
}

// HandleEvent is an amqp.Handler. An error leaves the event on the queue.
func (w *JournalWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	key := eventKey(ev)
	if _, ok := w.seen.Get(key); ok {
		w.duplicates.Add(1)
		w.logger.DebugContext(ctx, "Skipping duplicate event",
			log.FieldEventType, ev.Type,
			log.FieldExpenseID, ev.ExpenseID)
		return nil
	}

	if err := w.journal.AppendJournal(ctx, ev); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("append %s for expense %d: %w", ev.Type, ev.ExpenseID, err)
	}
	w.seen.Set(key, struct{}{})
	w.appended.Add(1)

	w.logger.InfoContext(ctx, "Journaled expense event",
		log.FieldOperation, log.OpConsume,
		log.FieldEventType, ev.Type,
		log.FieldExpenseID, ev.ExpenseID,
		log.FieldUserID, ev.UserID)
	return nil
}

func (w *JournalWorker) Stats() Stats {
	return Stats{
		Appended:   w.appended.Load(),
		Duplicates: w.duplicates.Load(),
		Failed:     w.failed.Load(),
	}
}

func eventKey(ev *amqp.ExpenseEvent) string {
	return fmt.Sprintf("%s/%d/%d", ev.Type, ev.ExpenseID, ev.OccurredAt.UnixNano())
}
