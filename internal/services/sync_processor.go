package services

import (
	"context"
	"errors"
	"fmt"

	"homesplit/internal/amqp"
	"homesplit/internal/core"
	"homesplit/internal/log"
	"homesplit/internal/metrics"
	"homesplit/internal/ports"
)

// SyncStore is the read side the sync processor needs.
type SyncStore interface {
	ports.ChargeSource
	ports.ClosureStore
}

// SyncProcessor mirrors charges and closures into the spreadsheet when the
// bus announces them.
type SyncProcessor struct {
	store    SyncStore
	exporter ports.Exporter
	logger   *log.Logger
	metrics  *metrics.Metrics
}

func NewSyncProcessor(store SyncStore, exporter ports.Exporter, logger *log.Logger, m *metrics.Metrics) *SyncProcessor {
	return &SyncProcessor{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		metrics:  m,
	}
}

// HandleMessage exports the record msg points at. Records deleted since the
// message was published are skipped without error so they are not requeued.
func (p *SyncProcessor) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	switch msg.Type {
	case amqp.TypeChargeSync:
		return p.syncCharge(ctx, msg.ChargeID)
	case amqp.TypePeriodClosed:
		period, err := core.ParsePeriod(msg.Period)
		if err != nil {
			return fmt.Errorf("period closed message: %w", err)
		}
		return p.syncClosure(ctx, period)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (p *SyncProcessor) syncCharge(ctx context.Context, id int64) error {
	charge, err := p.store.GetCharge(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		p.logger.WarnContext(ctx, "Charge vanished before export", log.FieldChargeID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get charge %d: %w", id, err)
	}

	ref, err := p.exporter.ExportCharge(ctx, charge)
	p.metrics.Exported("charge", err)
	if err != nil {
		return fmt.Errorf("export charge %d: %w", id, err)
	}

	p.logger.InfoContext(ctx, "Exported charge", log.FieldChargeID, id, log.FieldSheetsRef, ref)
	return nil
}

func (p *SyncProcessor) syncClosure(ctx context.Context, period core.Period) error {
	closure, err := p.store.GetClosure(ctx, period)
	if errors.Is(err, core.ErrNotFound) {
		p.logger.WarnContext(ctx, "Closure not found for closed period", log.FieldPeriod, period.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("get closure %s: %w", period, err)
	}

	ref, err := p.exporter.ExportClosure(ctx, closure)
	p.metrics.Exported("closure", err)
	if err != nil {
		return fmt.Errorf("export closure %s: %w", period, err)
	}

	p.logger.InfoContext(ctx, "Exported closure",
		log.FieldPeriod, period.String(),
		log.FieldClosureID, closure.ID,
		log.FieldTransfers, len(closure.Transfers),
		log.FieldSheetsRef, ref)
	return nil
}
