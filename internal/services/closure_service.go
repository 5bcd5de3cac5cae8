package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"homesplit/internal/core"
	"homesplit/internal/log"
	"homesplit/internal/metrics"
	"homesplit/internal/ports"
	"homesplit/internal/settle"
)

// ClosureService finalises months. The computed transfers are the default;
// one override between two members may replace them before the closure is
// stored.
type ClosureService struct {
	closures  ports.ClosureStore
	members   ports.MemberDirectory
	balances  *BalanceService
	publisher ports.SyncPublisher
	logger    *log.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
}

func NewClosureService(closures ports.ClosureStore, members ports.MemberDirectory, balances *BalanceService,
	publisher ports.SyncPublisher, logger *log.Logger, m *metrics.Metrics) *ClosureService {
	return &ClosureService{
		closures:  closures,
		members:   members,
		balances:  balances,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentClosure),
		metrics:   m,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Preview returns the report a closure of p would start from.
func (s *ClosureService) Preview(ctx context.Context, p core.Period) (Report, error) {
	return s.balances.Compute(ctx, p)
}

// Close stores the closure of p. Future periods and periods that are already
// closed are refused.
func (s *ClosureService) Close(ctx context.Context, p core.Period, closedBy core.Member, override *core.Override) (core.Closure, error) {
	if err := p.Validate(); err != nil {
		return core.Closure{}, err
	}
	now := s.now()
	if p.Start().After(now) {
		return core.Closure{}, fmt.Errorf("%w: %s has not started", core.ErrInvalidPeriod, p)
	}
	unlock := s.balances.lockPeriod(p)
	defer unlock()
	if _, err := s.closures.GetClosure(ctx, p); err == nil {
		return core.Closure{}, fmt.Errorf("%s: %w", p, core.ErrPeriodClosed)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Closure{}, fmt.Errorf("check closure: %w", err)
	}

	profiles, err := s.members.ListMembers(ctx)
	if err != nil {
		return core.Closure{}, fmt.Errorf("list members: %w", err)
	}
	ids := core.MemberIDs(profiles)
	if !contains(ids, closedBy) {
		return core.Closure{}, fmt.Errorf("%w: %q", core.ErrUnknownMember, closedBy)
	}

	s.balances.Invalidate(p)
	report, err := s.balances.Compute(ctx, p)
	if err != nil {
		return core.Closure{}, err
	}

	transfers := report.Transfers
	if override != nil {
		if err := override.Validate(ids); err != nil {
			return core.Closure{}, err
		}
		transfers = ApplyOverride(transfers, *override)
	}

	closure := core.Closure{
		ID:         s.newID(),
		Period:     p,
		ClosedAt:   now,
		ClosedBy:   closedBy,
		Balances:   report.Balances,
		Transfers:  transfers,
		Overridden: override != nil,
	}
	if err := s.closures.SaveClosure(ctx, closure); err != nil {
		return core.Closure{}, fmt.Errorf("save closure: %w", err)
	}
	s.balances.Invalidate(p)
	s.metrics.PeriodClosed()

	s.logger.InfoContext(ctx, "Period closed",
		log.FieldPeriod, p.String(),
		log.FieldClosureID, closure.ID,
		log.FieldMember, closedBy,
		log.FieldTransfers, len(transfers),
		"overridden", closure.Overridden)

	if s.publisher != nil {
		if err := s.publisher.PublishPeriodClosed(ctx, p, closure.ID); err != nil {
			s.metrics.PublishFailed()
			s.logger.ErrorContext(ctx, "Failed to publish period closed message",
				log.FieldPeriod, p.String(), log.FieldError, err)
		}
	}
	return closure, nil
}

func (s *ClosureService) Get(ctx context.Context, p core.Period) (core.Closure, error) {
	return s.closures.GetClosure(ctx, p)
}

func (s *ClosureService) List(ctx context.Context) ([]core.Closure, error) {
	return s.closures.ListClosures(ctx)
}

// ApplyOverride replaces whatever the transfers say between the override's
// two members, in either direction, with a single transfer of the override
// amount. The replacement takes the position of the first transfer it
// displaces, or goes last. A zero amount only removes. The input slice is
// not modified.
func ApplyOverride(transfers []settle.Transfer, o core.Override) []settle.Transfer {
	out := make([]settle.Transfer, 0, len(transfers)+1)
	at := -1
	for _, t := range transfers {
		if (t.From == o.From && t.To == o.To) || (t.From == o.To && t.To == o.From) {
			if at < 0 {
				at = len(out)
			}
			continue
		}
		out = append(out, t)
	}
	if !o.Amount.IsPositive() {
		return out
	}
	repl := settle.Transfer{From: o.From, To: o.To, Amount: o.Amount}
	if at < 0 {
		return append(out, repl)
	}
	out = append(out, settle.Transfer{})
	copy(out[at+1:], out[at:])
	out[at] = repl
	return out
}

func contains(ms []core.Member, m core.Member) bool {
	for _, x := range ms {
		if x == m {
			return true
		}
	}
	return false
}
