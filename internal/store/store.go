// Package store persists the raw survey cache and the build-run log in a
// local SQLite database. The pipeline is stateless between runs except for
// this cache and the reference files.
package store

import (
	"context"
	"time"

	"github.com/sells-group/buildtrends/internal/census"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run records one pipeline invocation.
type Run struct {
	ID           string
	Vintage      int
	Status       string
	BlockGroups  int
	Mismatches   int
	ArtifactPath string
	Error        string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// RunResult summarizes a completed run.
type RunResult struct {
	BlockGroups  int
	Mismatches   int
	ArtifactPath string
}

// CacheEntry describes one cached raw survey response.
type CacheEntry struct {
	Vintage   int
	Rows      int
	FetchedAt time.Time
}

// Store is the persistence interface for the cache and run log.
type Store interface {
	// Raw survey cache, keyed by vintage.
	GetCachedACS(ctx context.Context, vintage int) ([]census.Row, bool, error)
	SetCachedACS(ctx context.Context, vintage int, rows []census.Row) error
	ClearACSCache(ctx context.Context, vintage int) (int, error) // vintage 0 clears all
	CacheStatus(ctx context.Context) ([]CacheEntry, error)

	// Run log.
	CreateRun(ctx context.Context, vintage int) (*Run, error)
	CompleteRun(ctx context.Context, runID string, result RunResult) error
	FailRun(ctx context.Context, runID string, message string) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
