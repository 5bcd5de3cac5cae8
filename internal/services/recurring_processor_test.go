package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"homesplit/internal/core"
	"homesplit/internal/log"
)

func TestRecurringProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "ada", "bob")
	p := NewRecurringProcessor(h.store, h.charges, log.Discard(), h.metrics)

	rent, err := p.Create(ctx, core.RecurringCharge{
		StartDate:     core.NewDate(2024, 1, 1),
		Every:         core.Monthly,
		Description:   "rent",
		Amount:        decimal.NewFromInt(1200),
		Payer:         "ada",
		Beneficiaries: []core.Member{"ada", "bob"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// not started yet
	if _, err := p.Create(ctx, core.RecurringCharge{
		StartDate: core.NewDate(2025, 1, 1), Every: core.Daily, Description: "later",
		Amount: decimal.NewFromInt(1), Payer: "bob", Beneficiaries: []core.Member{"ada"},
	}); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)
	n, err := p.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("processed = %d, want 1", n)
	}

	charges, err := h.charges.List(ctx, march)
	if err != nil {
		t.Fatal(err)
	}
	if len(charges) != 1 {
		t.Fatalf("charges = %v, want one", charges)
	}
	c := charges[0]
	if c.Kind != core.KindFixed || c.RecurringID != rent.ID || c.Date.String() != "2024-03-03" {
		t.Errorf("charge = %+v", c)
	}

	// a second run the same month creates nothing
	n, err = p.ProcessDue(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second run processed = %d, want 0", n)
	}
}

func TestRecurringProcessor_SkipsFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "ada", "bob")
	p := NewRecurringProcessor(h.store, h.charges, log.Discard(), nil)

	for _, payer := range []core.Member{"ada", "bob"} {
		if _, err := p.Create(ctx, core.RecurringCharge{
			StartDate: core.NewDate(2024, 1, 1), Every: core.Daily, Description: "bill",
			Amount: decimal.NewFromInt(10), Payer: payer, Beneficiaries: []core.Member{"ada", "bob"},
		}); err != nil {
			t.Fatal(err)
		}
	}

	// march is closed, april is open
	h.charge(t, core.NewDate(2024, 3, 1), "1", "ada", "bob")
	if _, err := h.closures.Close(ctx, march, "ada", nil); err != nil {
		t.Fatal(err)
	}
	n, err := p.ProcessDue(ctx, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if n != 0 {
		t.Errorf("processed into closed period = %d, want 0", n)
	}

	n, err = p.ProcessDue(ctx, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("processed = %d, want 2", n)
	}
}

func TestRecurringProcessor_CreateRejectsUnknownMember(t *testing.T) {
	h := newHarness(t, "ada")
	p := NewRecurringProcessor(h.store, h.charges, log.Discard(), nil)

	_, err := p.Create(context.Background(), core.RecurringCharge{
		StartDate: core.NewDate(2024, 1, 1), Every: core.Weekly, Description: "gym",
		Amount: decimal.NewFromInt(10), Payer: "ada", Beneficiaries: []core.Member{"zed"},
	})
	if !errors.Is(err, core.ErrUnknownMember) {
		t.Errorf("Create() error = %v, want ErrUnknownMember", err)
	}
}
