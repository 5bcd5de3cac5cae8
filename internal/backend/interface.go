// Package backend selects and opens the data store behind the services.
package backend

import (
	"context"

	"homesplit/internal/ports"
)

// Backend is every storage port plus lifecycle.
type Backend interface {
	ports.MemberDirectory
	ports.MemberWriter
	ports.ChargeSource
	ports.ChargeWriter
	ports.RecurringStore
	ports.ClosureStore

	Ping(ctx context.Context) error
	Close() error
}

// Type names a backend implementation.
type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	default:
		return false
	}
}

// Types returns every valid backend type.
func Types() []Type {
	return []Type{SQLite, Memory}
}

// Config holds what Open needs.
type Config struct {
	Type         Type
	SQLiteDBPath string
	// SnapshotFile preloads the memory backend from a YAML or TOML file.
	SnapshotFile string
}
