package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"homesplit/internal/core"
)

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, rc core.RecurringCharge) (core.RecurringCharge, error) {
	if err := rc.Validate(); err != nil {
		return core.RecurringCharge{}, err
	}
	var end sql.NullString
	if !rc.EndDate.IsZero() {
		end = sql.NullString{String: rc.EndDate.String(), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_charges (start_date, end_date, repetition, description, amount, payer, beneficiaries, label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rc.StartDate.String(), end, string(rc.Every), rc.Description, rc.Amount.String(),
		string(rc.Payer), joinMembers(rc.Beneficiaries), rc.Label)
	if err != nil {
		return core.RecurringCharge{}, fmt.Errorf("insert recurring charge: %w", err)
	}
	if rc.ID, err = res.LastInsertId(); err != nil {
		return core.RecurringCharge{}, fmt.Errorf("read recurring id: %w", err)
	}
	return rc, nil
}

const recurringColumns = `id, start_date, end_date, repetition, description, amount, payer, beneficiaries, label, last_execution`

func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.RecurringCharge, error) {
	return r.queryRecurring(ctx, `SELECT `+recurringColumns+` FROM recurring_charges ORDER BY id`)
}

func (r *SQLiteRepository) ListActiveRecurring(ctx context.Context, now time.Time) ([]core.RecurringCharge, error) {
	today := now.UTC().Format(time.DateOnly)
	return r.queryRecurring(ctx, `
		SELECT `+recurringColumns+` FROM recurring_charges
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id`, today, today)
}

func (r *SQLiteRepository) MarkRecurringExecuted(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_charges SET last_execution = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("update last execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recurring charge %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) queryRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringCharge, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring charges: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringCharge
	for rows.Next() {
		var (
			rc                   core.RecurringCharge
			start, every, amount string
			payer, bens          string
			end, last            sql.NullString
		)
		if err := rows.Scan(&rc.ID, &start, &end, &every, &rc.Description, &amount, &payer, &bens, &rc.Label, &last); err != nil {
			return nil, fmt.Errorf("scan recurring charge: %w", err)
		}
		if rc.StartDate, err = core.ParseDate(start); err != nil {
			return nil, err
		}
		if end.Valid {
			if rc.EndDate, err = core.ParseDate(end.String); err != nil {
				return nil, err
			}
		}
		if rc.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse recurring amount %q: %w", amount, err)
		}
		if rc.LastExecution, err = parseTime(last.String); err != nil {
			return nil, fmt.Errorf("parse last execution: %w", err)
		}
		rc.Every = core.RepetitionTypes(every)
		rc.Payer = core.Member(payer)
		rc.Beneficiaries = splitMembers(bens)
		out = append(out, rc)
	}
	return out, rows.Err()
}

func joinMembers(ms []core.Member) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

func splitMembers(s string) []core.Member {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]core.Member, len(parts))
	for i, p := range parts {
		out[i] = core.Member(p)
	}
	return out
}
