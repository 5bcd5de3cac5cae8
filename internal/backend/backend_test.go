package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"homesplit/internal/config"
	"homesplit/internal/core"
	"homesplit/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    Type
		wantErr bool
	}{
		{name: "nil", cfg: nil, wantErr: true},
		{name: "sqlite", cfg: &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"}, want: SQLite},
		{name: "memory", cfg: &config.Config{DataBackend: "memory"}, want: Memory},
		{name: "unknown", cfg: &config.Config{DataBackend: "sheets"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Type != tt.want {
				t.Errorf("Type = %q, want %q", got.Type, tt.want)
			}
		})
	}
}

func TestOpenRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Config{Type: "flatfile"}, log.Discard()); err == nil {
		t.Error("unknown type accepted")
	}
	if _, err := Open(ctx, Config{Type: SQLite}, log.Discard()); err == nil {
		t.Error("sqlite without path accepted")
	}
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	profiles := []core.MemberProfile{{ID: "ada", DisplayName: "Ada"}, {ID: "bob", DisplayName: "Bob"}}

	for _, cfg := range []Config{
		{Type: Memory},
		{Type: SQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "h.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			b, err := Open(ctx, cfg, log.Discard())
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer b.Close()
			if err := b.Ping(ctx); err != nil {
				t.Fatalf("Ping() error = %v", err)
			}

			for _, p := range profiles {
				if err := b.AddMember(ctx, p); err != nil {
					t.Fatalf("AddMember(%s) error = %v", p.ID, err)
				}
			}
			err = b.AddMember(ctx, profiles[0])
			if !errors.Is(err, core.ErrMemberExists) {
				t.Errorf("duplicate AddMember() error = %v, want ErrMemberExists", err)
			}
			members, err := b.ListMembers(ctx)
			if err != nil || len(members) != 2 {
				t.Errorf("ListMembers() = %v, %v", members, err)
			}
		})
	}
}

func TestOpenMemoryWithSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "march.yaml")
	data := `
members:
  - id: ada
  - id: bob
charges:
  - date: 2024-03-01
    description: rent
    amount: 900
    payer: ada
    beneficiaries: [ada, bob]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	b, err := Open(ctx, Config{Type: Memory, SnapshotFile: path}, log.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	charges, err := b.ListCharges(ctx, core.NewPeriod(2024, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(charges) != 1 || charges[0].ID == 0 {
		t.Errorf("charges = %+v", charges)
	}

	if _, err := Open(ctx, Config{Type: Memory, SnapshotFile: filepath.Join(t.TempDir(), "none.yaml")}, log.Discard()); err == nil {
		t.Error("missing snapshot accepted")
	}
}
