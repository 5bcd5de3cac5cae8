package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"homesplit/internal/core"
	"homesplit/internal/settle"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "homesplit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// Second run is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations again: %v", err)
	}
	v, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 || dirty {
		t.Fatalf("version = %d dirty = %v, want 2 clean", v, dirty)
	}
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, p := range []core.MemberProfile{
		{ID: "ana", DisplayName: "Ana", JoinedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "bo", DisplayName: "Bo", JoinedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	} {
		if err := repo.AddMember(ctx, p); err != nil {
			t.Fatalf("AddMember(%s): %v", p.ID, err)
		}
	}
	if err := repo.AddMember(ctx, core.MemberProfile{ID: "ana", DisplayName: "Dup"}); !errors.Is(err, core.ErrMemberExists) {
		t.Fatalf("expected ErrMemberExists, got %v", err)
	}

	got, err := repo.ListMembers(ctx)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(got) != 2 || got[0].ID != "ana" || got[1].DisplayName != "Bo" {
		t.Fatalf("members = %+v", got)
	}
}

func TestChargeLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := core.Charge{
		Date:          core.NewDate(2025, 3, 31),
		Description:   "internet",
		Amount:        decimal.RequireFromString("29.99"),
		Payer:         "bo",
		Beneficiaries: []core.Member{"cy", "ana", "bo"},
		Kind:          core.KindFixed,
		Label:         "utilities",
		RecurringID:   3,
	}
	saved, err := repo.CreateCharge(ctx, in)
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}
	other := in
	other.Date = core.NewDate(2025, 4, 1)
	if _, err := repo.CreateCharge(ctx, other); err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}

	list, err := repo.ListCharges(ctx, core.NewPeriod(2025, time.March))
	if err != nil {
		t.Fatalf("ListCharges: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d charges, want 1", len(list))
	}
	c := list[0]
	if c.ID != saved.ID || !c.Amount.Equal(in.Amount) || c.Kind != core.KindFixed || c.RecurringID != 3 {
		t.Fatalf("unexpected charge %+v", c)
	}
	if len(c.Beneficiaries) != 3 || c.Beneficiaries[0] != "cy" || c.Beneficiaries[2] != "bo" {
		t.Fatalf("beneficiaries out of order: %v", c.Beneficiaries)
	}

	if err := repo.DeleteCharge(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteCharge: %v", err)
	}
	if _, err := repo.GetCharge(ctx, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteCharge(ctx, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRecurring(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rc, err := repo.CreateRecurring(ctx, core.RecurringCharge{
		StartDate:     core.NewDate(2025, 1, 15),
		Every:         core.Monthly,
		Description:   "rent",
		Amount:        decimal.NewFromInt(1200),
		Payer:         "ana",
		Beneficiaries: []core.Member{"ana", "bo"},
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}

	active, err := repo.ListActiveRecurring(ctx, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil || len(active) != 0 {
		t.Fatalf("before start: %v %v", active, err)
	}
	at := time.Date(2025, 2, 15, 8, 0, 0, 0, time.UTC)
	if err := repo.MarkRecurringExecuted(ctx, rc.ID, at); err != nil {
		t.Fatalf("MarkRecurringExecuted: %v", err)
	}
	active, err = repo.ListActiveRecurring(ctx, at)
	if err != nil || len(active) != 1 {
		t.Fatalf("after start: %v %v", active, err)
	}
	if !active[0].LastExecution.Equal(at) || len(active[0].Beneficiaries) != 2 {
		t.Fatalf("unexpected recurring %+v", active[0])
	}
}

func TestClosureRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := core.NewPeriod(2025, time.March)

	in := core.Closure{
		ID:       "6f1c0c1e-0000-4000-8000-000000000001",
		Period:   p,
		ClosedAt: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		ClosedBy: "ana",
		Balances: []core.MemberBalance{
			{Member: "ana", DisplayName: "Ana", Balance: decimal.RequireFromString("50")},
			{Member: "bo", DisplayName: "Bo", Balance: decimal.RequireFromString("-50")},
		},
		Transfers:  []settle.Transfer{{From: "bo", To: "ana", Amount: decimal.RequireFromString("45.00")}},
		Overridden: true,
	}
	if err := repo.SaveClosure(ctx, in); err != nil {
		t.Fatalf("SaveClosure: %v", err)
	}
	if err := repo.SaveClosure(ctx, in); !errors.Is(err, core.ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}

	got, err := repo.GetClosure(ctx, p)
	if err != nil {
		t.Fatalf("GetClosure: %v", err)
	}
	if got.ID != in.ID || !got.Overridden || got.ClosedBy != "ana" || !got.ClosedAt.Equal(in.ClosedAt) {
		t.Fatalf("unexpected closure %+v", got)
	}
	if len(got.Balances) != 2 || !got.Balances[1].Balance.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("balances = %+v", got.Balances)
	}
	if len(got.Transfers) != 1 || got.Transfers[0].From != "bo" || !got.Transfers[0].Amount.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("transfers = %+v", got.Transfers)
	}

	if _, err := repo.GetClosure(ctx, p.Next()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	all, err := repo.ListClosures(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListClosures = %v, %v", all, err)
	}
}
