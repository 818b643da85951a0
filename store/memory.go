package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/telemetry"
)

// MemoryStore keeps everything in process memory. It is the default when no
// database path is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]Run
	generations map[string]map[int]telemetry.GenerationMetricsRow
	genomes     map[string][]byte
	benchmarks  map[string]telemetry.BenchmarkMetrics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]Run)
	s.generations = make(map[string]map[int]telemetry.GenerationMetricsRow)
	s.genomes = make(map[string][]byte)
	s.benchmarks = make(map[string]telemetry.BenchmarkMetrics)
	return nil
}

func (s *MemoryStore) CreateRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return Run{}, false, ErrNotInitialized
	}
	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) SaveGeneration(_ context.Context, runID string, row telemetry.GenerationMetricsRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	rows, ok := s.generations[runID]
	if !ok {
		rows = make(map[int]telemetry.GenerationMetricsRow)
		s.generations[runID] = rows
	}
	rows[row.Generation] = row
	return nil
}

func (s *MemoryStore) GetGenerations(_ context.Context, runID string) ([]telemetry.GenerationMetricsRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	rows, ok := s.generations[runID]
	if !ok {
		return nil, false, nil
	}
	out := make([]telemetry.GenerationMetricsRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Generation < out[j].Generation })
	return out, true, nil
}

// SaveGenome stores an encoded copy so later mutation of rec does not leak in.
func (s *MemoryStore) SaveGenome(_ context.Context, runID string, rec *neural.GenomeRecord) error {
	payload, err := encode(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.genomes[runID] = payload
	return nil
}

func (s *MemoryStore) GetGenome(_ context.Context, runID string) (*neural.GenomeRecord, bool, error) {
	s.mu.RLock()
	payload, ok := s.genomes[runID]
	initialized := s.initialized
	s.mu.RUnlock()

	if !initialized {
		return nil, false, ErrNotInitialized
	}
	if !ok {
		return nil, false, nil
	}
	var rec neural.GenomeRecord
	if err := decode(payload, &rec); err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

func (s *MemoryStore) SaveBenchmark(_ context.Context, runID string, bench telemetry.BenchmarkMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.benchmarks[runID] = bench
	return nil
}

func (s *MemoryStore) GetBenchmark(_ context.Context, runID string) (telemetry.BenchmarkMetrics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return telemetry.BenchmarkMetrics{}, false, ErrNotInitialized
	}
	bench, ok := s.benchmarks[runID]
	return bench, ok, nil
}
