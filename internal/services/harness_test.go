package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"homesplit/internal/core"
	"homesplit/internal/log"
	"homesplit/internal/memory"
	"homesplit/internal/metrics"
)

type harness struct {
	store     *memory.Store
	publisher *memory.Publisher
	metrics   *metrics.Metrics
	balances  *BalanceService
	charges   *ChargeService
	members   *MemberService
	closures  *ClosureService
}

func newHarness(t *testing.T, ids ...core.Member) *harness {
	t.Helper()
	profiles := make([]core.MemberProfile, len(ids))
	for i, id := range ids {
		profiles[i] = core.MemberProfile{ID: id, DisplayName: string(id)}
	}
	store := memory.New(profiles...)
	pub := &memory.Publisher{}
	m := metrics.New()
	logger := log.Discard()

	balances := NewBalanceService(store, store, store, time.Minute, logger, m)
	h := &harness{
		store:     store,
		publisher: pub,
		metrics:   m,
		balances:  balances,
		charges:   NewChargeService(store, store, store, pub, balances, logger, m),
		members:   NewMemberService(store, balances, logger),
		closures:  NewClosureService(store, store, balances, pub, logger, m),
	}
	h.closures.now = func() time.Time { return time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC) }
	h.closures.newID = func() string { return "closure-1" }
	return h
}

func (h *harness) charge(t *testing.T, date core.Date, amount string, payer core.Member, bens ...core.Member) core.Charge {
	t.Helper()
	c, err := h.charges.Create(context.Background(), core.Charge{
		Date:          date,
		Description:   "test charge",
		Amount:        decimal.RequireFromString(amount),
		Payer:         payer,
		Beneficiaries: bens,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return c
}

var march = core.NewPeriod(2024, time.March)

func balanceOf(t *testing.T, r Report, m core.Member) string {
	t.Helper()
	for _, b := range r.Balances {
		if b.Member == m {
			return b.Balance.StringFixed(2)
		}
	}
	t.Fatalf("no balance for %s", m)
	return ""
}
