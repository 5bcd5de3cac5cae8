// Package ports declares the outbound interfaces the services depend on.
// Storage backends (memory, sqlite), the message bus and the spreadsheet
// exporter implement them.
package ports

import (
	"context"
	"time"

	"homesplit/internal/core"
)

type (
	// MemberDirectory supplies the household membership.
	MemberDirectory interface {
		ListMembers(ctx context.Context) ([]core.MemberProfile, error)
	}

	MemberWriter interface {
		// AddMember stores a new profile. An existing id is an error.
		AddMember(ctx context.Context, p core.MemberProfile) error
	}

	// ChargeSource supplies charges. It does the date filtering so the
	// engine never has to.
	ChargeSource interface {
		ListCharges(ctx context.Context, p core.Period) ([]core.Charge, error)
		GetCharge(ctx context.Context, id int64) (core.Charge, error)
	}

	ChargeWriter interface {
		// CreateCharge stores c and returns it with ID and CreatedAt set.
		CreateCharge(ctx context.Context, c core.Charge) (core.Charge, error)
		DeleteCharge(ctx context.Context, id int64) error
	}

	RecurringStore interface {
		CreateRecurring(ctx context.Context, rc core.RecurringCharge) (core.RecurringCharge, error)
		ListRecurring(ctx context.Context) ([]core.RecurringCharge, error)
		// ListActiveRecurring returns bills whose date range covers now.
		ListActiveRecurring(ctx context.Context, now time.Time) ([]core.RecurringCharge, error)
		MarkRecurringExecuted(ctx context.Context, id int64, at time.Time) error
	}

	ClosureStore interface {
		SaveClosure(ctx context.Context, c core.Closure) error
		// GetClosure returns core.ErrNotFound when the period is open.
		GetClosure(ctx context.Context, p core.Period) (core.Closure, error)
		ListClosures(ctx context.Context) ([]core.Closure, error)
	}

	// SyncPublisher announces changes to downstream consumers.
	SyncPublisher interface {
		PublishChargeSync(ctx context.Context, chargeID int64) error
		PublishPeriodClosed(ctx context.Context, p core.Period, closureID string) error
	}

	// Exporter mirrors records into an external sheet.
	Exporter interface {
		ExportCharge(ctx context.Context, c core.Charge) (rowRef string, err error)
		ExportClosure(ctx context.Context, c core.Closure) (rowRef string, err error)
	}
)
