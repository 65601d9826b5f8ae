// Package backend builds the spreadsheet store the ledger runs on from
// configuration: an in-memory grid, Google Sheets, or SQLite.
package backend

import (
	"context"

	"finsheet/internal/sheets"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is a ready store plus its cleanup. Ping is nil when the backend has
// no cheaper liveness check than listing partitions.
type Result struct {
	Store   sheets.Store
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SheetsBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
