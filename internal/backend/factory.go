package backend

import (
	"context"
	"errors"
	"fmt"

	"homesplit/internal/config"
	"homesplit/internal/log"
	"homesplit/internal/memory"
	"homesplit/internal/snapshot"
	"homesplit/internal/storage"
)

// FromAppConfig converts the application config to a backend config.
func FromAppConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := Type(c.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", c.DataBackend)
	}
	return Config{Type: t, SQLiteDBPath: c.SQLiteDBPath, SnapshotFile: c.SnapshotFile}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLite && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite backend")
	}
	return nil
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logger.WithComponent(log.ComponentBackend)

	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case Memory:
		store := memory.New()
		if cfg.SnapshotFile != "" {
			snap, err := snapshot.LoadFile(cfg.SnapshotFile)
			if err != nil {
				return nil, err
			}
			if err := Restore(ctx, store, snap); err != nil {
				return nil, err
			}
			logger.InfoContext(ctx, "Loaded snapshot", "file", cfg.SnapshotFile,
				log.FieldMembers, len(snap.Members), log.FieldCharges, len(snap.Charges))
		}
		logger.InfoContext(ctx, "Initialized memory backend")
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

// Restore writes a snapshot's members and charges into b.
func Restore(ctx context.Context, b Backend, snap snapshot.Snapshot) error {
	for _, p := range snap.Members {
		if err := b.AddMember(ctx, p); err != nil {
			return fmt.Errorf("restore member %s: %w", p.ID, err)
		}
	}
	for _, c := range snap.Charges {
		if _, err := b.CreateCharge(ctx, c); err != nil {
			return fmt.Errorf("restore charge %q: %w", c.Description, err)
		}
	}
	return nil
}
