// Package worker runs the long-lived background loops: the sheets export
// consumer and the recurring bill ticker.
package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"homesplit/internal/amqp"
	"homesplit/internal/log"
)

// Consumer delivers bus messages to a handler until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.Message) error) error
}

// MessageHandler processes one bus message. A returned error requeues it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *amqp.Message) error
}

// DueProcessor creates the charges that are due at now.
type DueProcessor interface {
	ProcessDue(ctx context.Context, now time.Time) (int, error)
}

// SyncWorker feeds consumed messages to the export handler.
type SyncWorker struct {
	consumer Consumer
	handler  MessageHandler
	logger   *log.Logger
}

func NewSyncWorker(consumer Consumer, handler MessageHandler, logger *log.Logger) *SyncWorker {
	return &SyncWorker{consumer: consumer, handler: handler, logger: logger.WithComponent(log.ComponentWorker)}
}

// Run blocks until ctx is cancelled or the consumer gives up.
func (w *SyncWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Sync worker started")
	err := w.consumer.Consume(ctx, w.handler.HandleMessage)
	if errors.Is(err, context.Canceled) {
		w.logger.InfoContext(ctx, "Sync worker stopped")
		return nil
	}
	return err
}

// RecurringWorker materialises due recurring bills once at start and then
// on every tick.
type RecurringWorker struct {
	processor DueProcessor
	interval  time.Duration
	logger    *log.Logger
	now       func() time.Time
}

func NewRecurringWorker(p DueProcessor, interval time.Duration, logger *log.Logger) *RecurringWorker {
	return &RecurringWorker{
		processor: p,
		interval:  interval,
		logger:    logger.WithComponent(log.ComponentRecurring),
		now:       time.Now,
	}
}

func (w *RecurringWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Recurring worker started", "interval", w.interval.String())
	w.tick(ctx, w.now())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Recurring worker stopped")
			return nil
		case <-ticker.C:
			w.tick(ctx, w.now())
		}
	}
}

func (w *RecurringWorker) tick(ctx context.Context, now time.Time) {
	count, err := w.processor.ProcessDue(ctx, now)
	if err != nil {
		w.logger.ErrorContext(ctx, "Recurring processing failed", log.FieldError, err, "charges_created", count)
		return
	}
	w.logger.InfoContext(ctx, "Recurring processing complete",
		"charges_created", count,
		"next_check", now.Add(w.interval).Format("15:04:05"))
}

// Runner is anything with a blocking Run.
type Runner interface {
	Run(ctx context.Context) error
}

// RunAll runs every runner until ctx ends or one of them fails, which
// cancels the rest.
func RunAll(ctx context.Context, runners ...Runner) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		g.Go(func() error { return r.Run(ctx) })
	}
	return g.Wait()
}
