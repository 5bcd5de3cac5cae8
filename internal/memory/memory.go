// Package memory keeps every storage port in process memory. It backs the
// "memory" data backend and doubles as the test store for the services.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"homesplit/internal/core"
)

type Store struct {
	mu        sync.Mutex
	members   []core.MemberProfile
	charges   []core.Charge
	recurring []core.RecurringCharge
	closures  map[core.Period]core.Closure
	nextID    int64
	now       func() time.Time
}

func New(members ...core.MemberProfile) *Store {
	s := &Store{closures: map[core.Period]core.Closure{}, now: time.Now}
	for _, m := range members {
		if m.JoinedAt.IsZero() {
			m.JoinedAt = s.now()
		}
		s.members = append(s.members, m)
	}
	return s
}

func (s *Store) ListMembers(_ context.Context) ([]core.MemberProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MemberProfile(nil), s.members...), nil
}

func (s *Store) AddMember(_ context.Context, p core.MemberProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.ID == p.ID {
			return fmt.Errorf("%w: %q", core.ErrMemberExists, p.ID)
		}
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = s.now()
	}
	s.members = append(s.members, p)
	return nil
}

func (s *Store) CreateCharge(_ context.Context, c core.Charge) (core.Charge, error) {
	if err := c.Validate(); err != nil {
		return core.Charge{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = s.now()
	c.Beneficiaries = append([]core.Member(nil), c.Beneficiaries...)
	s.charges = append(s.charges, c)
	return c, nil
}

func (s *Store) DeleteCharge(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.charges {
		if c.ID == id {
			s.charges = append(s.charges[:i], s.charges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("charge %d: %w", id, core.ErrNotFound)
}

func (s *Store) GetCharge(_ context.Context, id int64) (core.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.charges {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Charge{}, fmt.Errorf("charge %d: %w", id, core.ErrNotFound)
}

// ListCharges returns the period's charges ordered by date, then id.
func (s *Store) ListCharges(_ context.Context, p core.Period) ([]core.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Charge
	for _, c := range s.charges {
		if p.Contains(c.Date) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateRecurring(_ context.Context, rc core.RecurringCharge) (core.RecurringCharge, error) {
	if err := rc.Validate(); err != nil {
		return core.RecurringCharge{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rc.ID = s.nextID
	s.recurring = append(s.recurring, rc)
	return rc, nil
}

func (s *Store) ListRecurring(_ context.Context) ([]core.RecurringCharge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RecurringCharge(nil), s.recurring...), nil
}

func (s *Store) ListActiveRecurring(_ context.Context, now time.Time) ([]core.RecurringCharge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringCharge
	for _, rc := range s.recurring {
		if rc.StartDate.After(now) {
			continue
		}
		if !rc.EndDate.IsZero() && rc.EndDate.Before(now) {
			continue
		}
		out = append(out, rc)
	}
	return out, nil
}

func (s *Store) MarkRecurringExecuted(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recurring {
		if s.recurring[i].ID == id {
			s.recurring[i].LastExecution = at
			return nil
		}
	}
	return fmt.Errorf("recurring charge %d: %w", id, core.ErrNotFound)
}

func (s *Store) SaveClosure(_ context.Context, c core.Closure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.closures[c.Period]; ok {
		return fmt.Errorf("%s: %w", c.Period, core.ErrPeriodClosed)
	}
	s.closures[c.Period] = c
	return nil
}

func (s *Store) GetClosure(_ context.Context, p core.Period) (core.Closure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.closures[p]
	if !ok {
		return core.Closure{}, fmt.Errorf("closure %s: %w", p, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListClosures(_ context.Context) ([]core.Closure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Closure, 0, len(s.closures))
	for _, c := range s.closures {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.String() < out[j].Period.String() })
	return out, nil
}

// Ping always succeeds; it lets the store satisfy readiness checks.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
