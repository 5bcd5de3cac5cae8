package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"homesplit/internal/core"
)

func (r *SQLiteRepository) CreateCharge(ctx context.Context, c core.Charge) (core.Charge, error) {
	if err := c.Validate(); err != nil {
		return core.Charge{}, err
	}
	c.CreatedAt = r.now().UTC()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var recurring sql.NullInt64
		if c.RecurringID != 0 {
			recurring = sql.NullInt64{Int64: c.RecurringID, Valid: true}
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO charges (charge_date, description, amount, payer, kind, label, recurring_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Date.String(), c.Description, c.Amount.String(), string(c.Payer),
			string(c.Kind), c.Label, recurring, formatTime(c.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert charge: %w", err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read charge id: %w", err)
		}
		for i, b := range c.Beneficiaries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO charge_beneficiaries (charge_id, position, member) VALUES (?, ?, ?)`,
				c.ID, i, string(b)); err != nil {
				return fmt.Errorf("insert beneficiary %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Charge{}, err
	}

	slog.InfoContext(ctx, "Charge saved to SQLite",
		"id", c.ID,
		"description", c.Description,
		"amount", c.Amount.String(),
		"payer", c.Payer,
		"date", c.Date.String())
	return c, nil
}

func (r *SQLiteRepository) DeleteCharge(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM charge_beneficiaries WHERE charge_id = ?`, id); err != nil {
			return fmt.Errorf("delete beneficiaries: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM charges WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete charge: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("charge %d: %w", id, core.ErrNotFound)
		}
		return nil
	})
}

const chargeColumns = `id, charge_date, description, amount, payer, kind, label, recurring_id, created_at`

func (r *SQLiteRepository) GetCharge(ctx context.Context, id int64) (core.Charge, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+chargeColumns+` FROM charges WHERE id = ?`, id)
	c, err := scanCharge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Charge{}, fmt.Errorf("charge %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Charge{}, err
	}
	bens, err := r.beneficiaries(ctx, []int64{c.ID})
	if err != nil {
		return core.Charge{}, err
	}
	c.Beneficiaries = bens[c.ID]
	return c, nil
}

func (r *SQLiteRepository) ListCharges(ctx context.Context, p core.Period) ([]core.Charge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+chargeColumns+` FROM charges
		WHERE charge_date >= ? AND charge_date <= ?
		ORDER BY charge_date, id`,
		p.Start().String(), p.End().String())
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	defer rows.Close()

	var (
		out []core.Charge
		ids []int64
	)
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate charges: %w", err)
	}
	rows.Close()

	bens, err := r.beneficiaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Beneficiaries = bens[out[i].ID]
	}
	return out, nil
}

func (r *SQLiteRepository) beneficiaries(ctx context.Context, ids []int64) (map[int64][]core.Member, error) {
	out := make(map[int64][]core.Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	lo, hi := ids[0], ids[0]
	for _, id := range ids {
		lo, hi = min(lo, id), max(hi, id)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT charge_id, member FROM charge_beneficiaries
		WHERE charge_id BETWEEN ? AND ?
		ORDER BY charge_id, position`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("list beneficiaries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id int64
			m  string
		)
		if err := rows.Scan(&id, &m); err != nil {
			return nil, fmt.Errorf("scan beneficiary: %w", err)
		}
		out[id] = append(out[id], core.Member(m))
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCharge(s scanner) (core.Charge, error) {
	var (
		c                         core.Charge
		date, amount, payer, kind string
		created                   string
		recurring                 sql.NullInt64
	)
	if err := s.Scan(&c.ID, &date, &c.Description, &amount, &payer, &kind, &c.Label, &recurring, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan charge: %w", err)
	}
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return c, fmt.Errorf("parse charge date %q: %w", date, err)
	}
	c.Date = core.Date{Time: t}
	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return c, fmt.Errorf("parse charge amount %q: %w", amount, err)
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return c, fmt.Errorf("parse created_at: %w", err)
	}
	c.Payer = core.Member(payer)
	c.Kind = core.ChargeKind(kind)
	c.RecurringID = recurring.Int64
	return c, nil
}
