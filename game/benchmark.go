package game

import (
	"fmt"

	"github.com/yaricom/goNEAT/v4/neat/genetics"

	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/systems"
	"github.com/pthm-cable/invaders/telemetry"
)

// BenchmarkOptions fixes a reward-free benchmark.
type BenchmarkOptions struct {
	Episode     EpisodeOptions // Rewards is ignored
	Observation string
	BaseSeed    int64
	SeedStride  int64
	Episodes    int
}

// BenchmarkSeed is the seed of benchmark episode ep.
func BenchmarkSeed(base, stride int64, ep int) int64 {
	return base + int64(ep)*stride
}

// Benchmark plays the genome over reward-free seeded episodes and averages
// the results.
func Benchmark(genome *genetics.Genome, o BenchmarkOptions) (telemetry.BenchmarkMetrics, []telemetry.GenomeEpisodeMetrics, error) {
	observe, err := neural.NewObservationBuilder(o.Observation)
	if err != nil {
		return telemetry.BenchmarkMetrics{}, nil, err
	}
	brain, err := neural.NewBrainController(genome)
	if err != nil {
		return telemetry.BenchmarkMetrics{}, nil, err
	}

	opts := o.Episode
	opts.Rewards = nil

	episodes := make([]telemetry.GenomeEpisodeMetrics, 0, o.Episodes)
	for ep := 0; ep < o.Episodes; ep++ {
		seed := BenchmarkSeed(o.BaseSeed, o.SeedStride, ep)
		res, err := RunEpisode(opts, brain, systems.ObservationFunc(observe), seed, nil)
		if err != nil {
			return telemetry.BenchmarkMetrics{}, nil, fmt.Errorf("benchmark episode %d: %w", ep, err)
		}
		episodes = append(episodes, telemetry.NewGenomeEpisodeMetrics(seed, res))
	}
	return telemetry.SummarizeBenchmark(episodes), episodes, nil
}
