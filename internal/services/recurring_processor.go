package services

import (
	"context"
	"fmt"
	"time"

	"homesplit/internal/core"
	"homesplit/internal/log"
	"homesplit/internal/metrics"
	"homesplit/internal/ports"
)

// RecurringProcessor turns due recurring bills into fixed charges.
type RecurringProcessor struct {
	store   ports.RecurringStore
	charges *ChargeService
	dueness *DuenessRegistry
	logger  *log.Logger
	metrics *metrics.Metrics
}

func NewRecurringProcessor(store ports.RecurringStore, charges *ChargeService, logger *log.Logger, m *metrics.Metrics) *RecurringProcessor {
	return &RecurringProcessor{
		store:   store,
		charges: charges,
		dueness: NewDuenessRegistry(),
		logger:  logger.WithComponent(log.ComponentRecurring),
		metrics: m,
	}
}

// Create validates and stores a recurring bill.
func (p *RecurringProcessor) Create(ctx context.Context, rc core.RecurringCharge) (core.RecurringCharge, error) {
	if err := rc.Validate(); err != nil {
		return core.RecurringCharge{}, err
	}
	if err := p.charges.checkMembers(ctx, append([]core.Member{rc.Payer}, rc.Beneficiaries...)); err != nil {
		return core.RecurringCharge{}, err
	}
	return p.store.CreateRecurring(ctx, rc)
}

func (p *RecurringProcessor) List(ctx context.Context) ([]core.RecurringCharge, error) {
	return p.store.ListRecurring(ctx)
}

// ProcessDue creates a charge for every active bill that is due at now. A
// failing bill is logged and skipped; the others still run.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.charges == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	active, err := p.store.ListActiveRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list active recurring charges: %w", err)
	}

	processed := 0
	for _, rc := range active {
		checker, err := p.dueness.Get(rc.Every)
		if err != nil {
			p.metrics.Recurring("error")
			p.logger.ErrorContext(ctx, "Skipping recurring charge", "recurring_id", rc.ID, log.FieldError, err)
			continue
		}
		if !checker.IsDue(rc.LastExecution, now, rc.StartDate) {
			continue
		}

		charge, err := p.charges.Create(ctx, rc.ChargeAt(core.Date{Time: truncateDay(now)}))
		if err != nil {
			p.metrics.Recurring("error")
			p.logger.ErrorContext(ctx, "Failed to create charge from recurring bill",
				"recurring_id", rc.ID,
				"description", rc.Description,
				log.FieldError, err)
			continue
		}

		if err := p.store.MarkRecurringExecuted(ctx, rc.ID, now); err != nil {
			// The charge exists; the next run would duplicate it.
			p.logger.ErrorContext(ctx, "Failed to update last execution",
				"recurring_id", rc.ID, log.FieldChargeID, charge.ID, log.FieldError, err)
		}
		processed++
		p.metrics.Recurring("created")
		p.logger.InfoContext(ctx, "Created charge from recurring bill",
			"recurring_id", rc.ID,
			log.FieldChargeID, charge.ID,
			log.FieldAmount, core.FormatAmount(rc.Amount),
			"frequency", rc.Every)
	}

	p.logger.InfoContext(ctx, "Recurring charge processing complete",
		"processed", processed,
		"total_checked", len(active))
	return processed, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
