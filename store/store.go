// Package store archives training runs: the run header, one metrics row per
// generation, the best genome and the final benchmark.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/telemetry"
)

// ErrNotInitialized is returned by operations on a store before Init.
var ErrNotInitialized = errors.New("store is not initialized")

// Run identifies one training run of one reward profile.
type Run struct {
	ID          string    `json:"id"`
	Profile     string    `json:"profile"`
	Observation string    `json:"observation"`
	Seed        int64     `json:"seed"`
	Generations int       `json:"generations"`
	StartedAt   time.Time `json:"started_at"`
}

// Store persists run artifacts.
type Store interface {
	Init(ctx context.Context) error
	CreateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	SaveGeneration(ctx context.Context, runID string, row telemetry.GenerationMetricsRow) error
	GetGenerations(ctx context.Context, runID string) ([]telemetry.GenerationMetricsRow, bool, error)
	SaveGenome(ctx context.Context, runID string, rec *neural.GenomeRecord) error
	GetGenome(ctx context.Context, runID string) (*neural.GenomeRecord, bool, error)
	SaveBenchmark(ctx context.Context, runID string, bench telemetry.BenchmarkMetrics) error
	GetBenchmark(ctx context.Context, runID string) (telemetry.BenchmarkMetrics, bool, error)
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// NewRun builds a run header with a fresh ID.
func NewRun(profile, observation string, seed int64, generations int) Run {
	return Run{
		ID:          NewRunID(),
		Profile:     profile,
		Observation: observation,
		Seed:        seed,
		Generations: generations,
		StartedAt:   time.Now().UTC(),
	}
}

// NewStore builds the backend named by kind.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes stores that hold external resources.
func CloseIfSupported(s Store) error {
	closer, ok := s.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
