package services

import (
	"context"
	"errors"
	"fmt"

	"homesplit/internal/core"
	"homesplit/internal/log"
	"homesplit/internal/metrics"
	"homesplit/internal/ports"
)

// ChargeStore is the storage a ChargeService writes through.
type ChargeStore interface {
	ports.ChargeSource
	ports.ChargeWriter
}

// ChargeService validates charges against the household and open periods,
// stores them and announces them on the sync bus.
type ChargeService struct {
	store     ChargeStore
	members   ports.MemberDirectory
	closures  ports.ClosureStore
	publisher ports.SyncPublisher
	balances  *BalanceService
	logger    *log.Logger
	metrics   *metrics.Metrics
}

func NewChargeService(store ChargeStore, members ports.MemberDirectory, closures ports.ClosureStore,
	publisher ports.SyncPublisher, balances *BalanceService, logger *log.Logger, m *metrics.Metrics) *ChargeService {
	return &ChargeService{
		store:     store,
		members:   members,
		closures:  closures,
		publisher: publisher,
		balances:  balances,
		logger:    logger.WithComponent(log.ComponentCharges),
		metrics:   m,
	}
}

// Create stores c. Validation lives here rather than in the engine: the
// payer and every beneficiary must be current household members.
func (s *ChargeService) Create(ctx context.Context, c core.Charge) (core.Charge, error) {
	if c.Kind == "" {
		c.Kind = core.KindVariable
	}
	if err := c.Validate(); err != nil {
		return core.Charge{}, err
	}
	if err := s.checkMembers(ctx, append([]core.Member{c.Payer}, c.Beneficiaries...)); err != nil {
		return core.Charge{}, err
	}
	period := core.PeriodOf(c.Date.Time)
	saved, err := s.save(ctx, period, c)
	if err != nil {
		return core.Charge{}, err
	}
	s.metrics.ChargeCreated(string(saved.Kind))

	s.logger.InfoContext(ctx, "Charge created",
		log.NewFields().
			WithCharge(saved.ID, string(saved.Payer), core.FormatAmount(saved.Amount)).
			WithPeriod(period.String()).
			WithOperation(log.OpCreate).
			ToSlice()...)

	s.publish(ctx, saved.ID)
	return saved, nil
}

// Delete removes a charge from an open period.
func (s *ChargeService) Delete(ctx context.Context, id int64) error {
	c, err := s.store.GetCharge(ctx, id)
	if err != nil {
		return err
	}
	period := core.PeriodOf(c.Date.Time)
	unlock := s.balances.lockPeriod(period)
	defer unlock()
	if err := s.ensureOpen(ctx, period); err != nil {
		return err
	}
	if err := s.store.DeleteCharge(ctx, id); err != nil {
		return fmt.Errorf("delete charge: %w", err)
	}
	s.balances.Invalidate(period)
	s.logger.InfoContext(ctx, "Charge deleted", log.FieldChargeID, id, log.FieldPeriod, period.String())
	return nil
}

// save stores c while holding the write lock of its period, so a concurrent
// close either sees the charge or makes the write fail with ErrPeriodClosed.
func (s *ChargeService) save(ctx context.Context, period core.Period, c core.Charge) (core.Charge, error) {
	unlock := s.balances.lockPeriod(period)
	defer unlock()
	if err := s.ensureOpen(ctx, period); err != nil {
		return core.Charge{}, err
	}
	saved, err := s.store.CreateCharge(ctx, c)
	if err != nil {
		return core.Charge{}, fmt.Errorf("save charge: %w", err)
	}
	s.balances.Invalidate(period)
	return saved, nil
}

func (s *ChargeService) List(ctx context.Context, p core.Period) ([]core.Charge, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListCharges(ctx, p)
}

func (s *ChargeService) Get(ctx context.Context, id int64) (core.Charge, error) {
	return s.store.GetCharge(ctx, id)
}

func (s *ChargeService) ensureOpen(ctx context.Context, p core.Period) error {
	_, err := s.closures.GetClosure(ctx, p)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", p, core.ErrPeriodClosed)
	case errors.Is(err, core.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check closure: %w", err)
	}
}

func (s *ChargeService) checkMembers(ctx context.Context, refs []core.Member) error {
	profiles, err := s.members.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	known := make(map[core.Member]struct{}, len(profiles))
	for _, p := range profiles {
		known[p.ID] = struct{}{}
	}
	for _, m := range refs {
		if _, ok := known[m]; !ok {
			return fmt.Errorf("%w: %q", core.ErrUnknownMember, m)
		}
	}
	return nil
}

func (s *ChargeService) publish(ctx context.Context, id int64) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No sync publisher configured, skipping", log.FieldChargeID, id)
		return
	}
	// The charge is stored; a lost message only delays the sheet export.
	if err := s.publisher.PublishChargeSync(ctx, id); err != nil {
		s.metrics.PublishFailed()
		s.logger.ErrorContext(ctx, "Failed to publish sync message", log.FieldChargeID, id, log.FieldError, err)
	}
}
