package storage

import (
	"context"
	"fmt"
	"strings"

	"homesplit/internal/core"
)

func (r *SQLiteRepository) ListMembers(ctx context.Context) ([]core.MemberProfile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, display_name, joined_at FROM members ORDER BY joined_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []core.MemberProfile
	for rows.Next() {
		var (
			p      core.MemberProfile
			id     string
			joined string
		)
		if err := rows.Scan(&id, &p.DisplayName, &joined); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		p.ID = core.Member(id)
		if p.JoinedAt, err = parseTime(joined); err != nil {
			return nil, fmt.Errorf("parse joined_at for %s: %w", id, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddMember(ctx context.Context, p core.MemberProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, display_name, joined_at) VALUES (?, ?, ?)`,
		string(p.ID), strings.TrimSpace(p.DisplayName), formatTime(p.JoinedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %q", core.ErrMemberExists, p.ID)
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}
