package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"homesplit/internal/core"
	"homesplit/internal/log"
	"homesplit/internal/metrics"
	"homesplit/internal/ports"
	"homesplit/internal/settle"
)

// Report is who owes what for one period.
type Report struct {
	Period     core.Period
	Balances   []core.MemberBalance // rounded, member order
	Transfers  []settle.Transfer
	Summary    core.PeriodSummary
	Closed     bool
	ClosureID  string
	ComputedAt time.Time
}

// Settled reports whether no transfer is needed.
func (r Report) Settled() bool { return len(r.Transfers) == 0 }

// BalanceService runs the settle engine over stored charges. Reports for
// open periods are cached until a write invalidates them; closed periods are
// served from the stored closure.
//
// It also hands out the per-period write locks that charge writes and
// closures take, so a period cannot be closed while a charge lands in it.
type BalanceService struct {
	members  ports.MemberDirectory
	charges  ports.ChargeSource
	closures ports.ClosureStore
	cache    *gocache.Cache
	flight   singleflight.Group
	logger   *log.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu    sync.Mutex
	epoch uint64            // bumped by InvalidateAll
	gens  map[string]uint64 // bumped by Invalidate, per period key
	locks map[core.Period]*sync.Mutex
}

// generation identifies the cache state a computation started from; a
// result is only stored while its generation is still current.
type generation struct {
	epoch, gen uint64
}

func NewBalanceService(members ports.MemberDirectory, charges ports.ChargeSource, closures ports.ClosureStore,
	ttl time.Duration, logger *log.Logger, m *metrics.Metrics) *BalanceService {
	return &BalanceService{
		members:  members,
		charges:  charges,
		closures: closures,
		cache:    gocache.New(ttl, 2*ttl+time.Minute),
		logger:   logger.WithComponent(log.ComponentBalances),
		metrics:  m,
		now:      time.Now,
		gens:     make(map[string]uint64),
		locks:    make(map[core.Period]*sync.Mutex),
	}
}

// Compute returns the report for p.
func (s *BalanceService) Compute(ctx context.Context, p core.Period) (Report, error) {
	if err := p.Validate(); err != nil {
		return Report{}, err
	}
	key := p.String()
	if v, ok := s.cache.Get(key); ok {
		s.metrics.BalanceCache(true)
		return v.(Report), nil
	}
	s.metrics.BalanceCache(false)

	g := s.generation(key)
	v, err, _ := s.flight.Do(fmt.Sprintf("%s#%d.%d", key, g.epoch, g.gen), func() (any, error) {
		report, err := s.compute(ctx, p)
		if err != nil {
			return nil, err
		}
		s.store(key, g, report)
		return report, nil
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func (s *BalanceService) compute(ctx context.Context, p core.Period) (Report, error) {
	key := p.String()
	var (
		profiles []core.MemberProfile
		charges  []core.Charge
		closure  core.Closure
		closed   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if profiles, err = s.members.ListMembers(gctx); err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if charges, err = s.charges.ListCharges(gctx, p); err != nil {
			return fmt.Errorf("list charges: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		c, err := s.closures.GetClosure(gctx, p)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get closure: %w", err)
		}
		closure, closed = c, true
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	ids := core.MemberIDs(profiles)
	report := Report{
		Period:     p,
		Summary:    core.Summarize(p, ids, charges),
		ComputedAt: s.now(),
	}

	if closed {
		report.Closed = true
		report.ClosureID = closure.ID
		report.Balances = closure.Balances
		report.Transfers = closure.Transfers
	} else {
		result := settle.Settle(core.SharedCharges(charges), ids, settle.WithUnknownObserver(func(ref settle.UnknownRef) {
			s.metrics.UnknownMember(string(ref.Role))
			s.logger.WarnContext(ctx, "Ignoring charge reference to unknown member",
				log.FieldMember, ref.Member,
				log.FieldRole, ref.Role,
				log.FieldChargeID, charges[ref.Charge].ID,
				log.FieldPeriod, key,
				"policy", ref.Policy)
		}))
		report.Balances = memberBalances(profiles, result.Balances)
		report.Transfers = result.Transfers
		s.metrics.Settled(len(result.Transfers))
	}

	s.logger.DebugContext(ctx, "Balances computed",
		log.NewFields().
			WithPeriod(key).
			WithSettlement(len(profiles), len(charges), len(report.Transfers)).
			WithOperation(log.OpSettle).
			ToSlice()...)

	return report, nil
}

func (s *BalanceService) generation(key string) generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return generation{epoch: s.epoch, gen: s.gens[key]}
}

// store caches report unless key was invalidated after g was taken.
func (s *BalanceService) store(key string, g generation, report Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != g.epoch || s.gens[key] != g.gen {
		s.logger.Debug("Dropping stale balance report", log.FieldPeriod, key)
		return
	}
	s.cache.SetDefault(key, report)
}

// Invalidate drops the cached report for p. Computations already running
// for p will not cache their result.
func (s *BalanceService) Invalidate(p core.Period) {
	key := p.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[key]++
	s.cache.Delete(key)
}

// InvalidateAll drops every cached report.
func (s *BalanceService) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.cache.Flush()
}

// lockPeriod serializes writes to p and returns the unlock func.
func (s *BalanceService) lockPeriod(p core.Period) func() {
	s.mu.Lock()
	l, ok := s.locks[p]
	if !ok {
		l = &sync.Mutex{}
		s.locks[p] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func memberBalances(profiles []core.MemberProfile, b settle.BalanceMap) []core.MemberBalance {
	rounded := b.Rounded()
	out := make([]core.MemberBalance, 0, len(profiles))
	seen := make(map[core.Member]bool, len(profiles))
	for _, p := range profiles {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		v, _ := rounded.Balance(p.ID)
		out = append(out, core.MemberBalance{Member: p.ID, DisplayName: p.DisplayName, Balance: v})
	}
	return out
}
