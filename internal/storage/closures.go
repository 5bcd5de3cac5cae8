package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"homesplit/internal/core"
	"homesplit/internal/settle"
)

func (r *SQLiteRepository) SaveClosure(ctx context.Context, c core.Closure) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM closures WHERE period = ?`, c.Period.String()).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%s: %w", c.Period, core.ErrPeriodClosed)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check closure: %w", err)
		}

		overridden := 0
		if c.Overridden {
			overridden = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO closures (id, period, closed_at, closed_by, overridden) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Period.String(), formatTime(c.ClosedAt), string(c.ClosedBy), overridden); err != nil {
			return fmt.Errorf("insert closure: %w", err)
		}
		for i, b := range c.Balances {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO closure_balances (closure_id, position, member, display_name, balance)
				VALUES (?, ?, ?, ?, ?)`,
				c.ID, i, string(b.Member), b.DisplayName, b.Balance.String()); err != nil {
				return fmt.Errorf("insert closure balance: %w", err)
			}
		}
		for i, t := range c.Transfers {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO closure_transfers (closure_id, position, from_member, to_member, amount)
				VALUES (?, ?, ?, ?, ?)`,
				c.ID, i, string(t.From), string(t.To), t.Amount.String()); err != nil {
				return fmt.Errorf("insert closure transfer: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetClosure(ctx context.Context, p core.Period) (core.Closure, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, period, closed_at, closed_by, overridden FROM closures WHERE period = ?`, p.String())
	c, err := scanClosure(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Closure{}, fmt.Errorf("closure %s: %w", p, core.ErrNotFound)
	}
	if err != nil {
		return core.Closure{}, err
	}
	if err := r.loadClosureDetail(ctx, &c); err != nil {
		return core.Closure{}, err
	}
	return c, nil
}

func (r *SQLiteRepository) ListClosures(ctx context.Context) ([]core.Closure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, period, closed_at, closed_by, overridden FROM closures ORDER BY period`)
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}
	var out []core.Closure
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate closures: %w", err)
	}
	rows.Close()

	for i := range out {
		if err := r.loadClosureDetail(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanClosure(s scanner) (core.Closure, error) {
	var (
		c                      core.Closure
		period, closed, author string
		overridden             int
	)
	if err := s.Scan(&c.ID, &period, &closed, &author, &overridden); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan closure: %w", err)
	}
	var err error
	if c.Period, err = core.ParsePeriod(period); err != nil {
		return c, err
	}
	if c.ClosedAt, err = parseTime(closed); err != nil {
		return c, fmt.Errorf("parse closed_at: %w", err)
	}
	c.ClosedBy = core.Member(author)
	c.Overridden = overridden == 1
	return c, nil
}

func (r *SQLiteRepository) loadClosureDetail(ctx context.Context, c *core.Closure) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT member, display_name, balance FROM closure_balances
		WHERE closure_id = ? ORDER BY position`, c.ID)
	if err != nil {
		return fmt.Errorf("list closure balances: %w", err)
	}
	for rows.Next() {
		var (
			b               core.MemberBalance
			member, balance string
		)
		if err := rows.Scan(&member, &b.DisplayName, &balance); err != nil {
			rows.Close()
			return fmt.Errorf("scan closure balance: %w", err)
		}
		b.Member = core.Member(member)
		if b.Balance, err = decimal.NewFromString(balance); err != nil {
			rows.Close()
			return fmt.Errorf("parse closure balance %q: %w", balance, err)
		}
		c.Balances = append(c.Balances, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate closure balances: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT from_member, to_member, amount FROM closure_transfers
		WHERE closure_id = ? ORDER BY position`, c.ID)
	if err != nil {
		return fmt.Errorf("list closure transfers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var from, to, amount string
		if err := rows.Scan(&from, &to, &amount); err != nil {
			return fmt.Errorf("scan closure transfer: %w", err)
		}
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("parse closure transfer %q: %w", amount, err)
		}
		c.Transfers = append(c.Transfers, settle.Transfer{From: settle.Member(from), To: settle.Member(to), Amount: v})
	}
	return rows.Err()
}
