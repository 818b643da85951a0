package main

import (
	"context"
	"math"
	"sync"

	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/game"
	"github.com/pthm-cable/invaders/telemetry"
)

// Score weights. A wave clear is worth ten kills; a hit taken costs half a kill.
const (
	waveClearWeight = 100.0
	killWeight      = 10.0
	frameWeight     = 0.01
	hitWeight       = 5.0
)

// FitnessEvaluator trains a short run per candidate and benchmarks the winner.
type FitnessEvaluator struct {
	ctx         context.Context
	params      *ParamVector
	baseConfig  *config.Config
	generations int
	workers     int
	seeds       []int64

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestMetrics telemetry.BenchmarkMetrics
	lastMetrics telemetry.BenchmarkMetrics
}

// NewFitnessEvaluator creates a new evaluator. Each seed starts one training
// run; the winner of each run is benchmarked on the experiment seeds.
func NewFitnessEvaluator(ctx context.Context, params *ParamVector, baseCfg *config.Config, generations, workers int, seeds []int64) *FitnessEvaluator {
	return &FitnessEvaluator{
		ctx:         ctx,
		params:      params,
		baseConfig:  baseCfg,
		generations: generations,
		workers:     workers,
		seeds:       seeds,
		bestFitness: math.Inf(1),
	}
}

// BestMetrics returns the benchmark of the best evaluation.
func (fe *FitnessEvaluator) BestMetrics() telemetry.BenchmarkMetrics {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestMetrics
}

// LastMetrics returns the benchmark from the most recent evaluation.
func (fe *FitnessEvaluator) LastMetrics() telemetry.BenchmarkMetrics {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMetrics
}

// Evaluate computes fitness for raw coefficients (lower = better). A failed
// or cancelled run scores +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	var total telemetry.BenchmarkMetrics
	for _, seed := range fe.seeds {
		m, err := fe.runSeed(cfg, seed)
		if err != nil {
			return math.Inf(1)
		}
		total.AvgFramesSurvived += m.AvgFramesSurvived
		total.AvgKills += m.AvgKills
		total.AvgWaveClears += m.AvgWaveClears
		total.AvgLaserHitsTaken += m.AvgLaserHitsTaken
	}
	n := float64(len(fe.seeds))
	avg := telemetry.BenchmarkMetrics{
		AvgFramesSurvived: total.AvgFramesSurvived / n,
		AvgKills:          total.AvgKills / n,
		AvgWaveClears:     total.AvgWaveClears / n,
		AvgLaserHitsTaken: total.AvgLaserHitsTaken / n,
	}
	fitness := computeFitness(avg)

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestMetrics = avg
	}
	fe.lastMetrics = avg
	fe.mu.Unlock()

	return fitness
}

// runSeed trains on the tuned profile and benchmarks the winner reward-free.
func (fe *FitnessEvaluator) runSeed(cfg *config.Config, seed int64) (telemetry.BenchmarkMetrics, error) {
	trainer, err := game.NewTrainer(cfg, game.TrainerOptions{
		Profile:     TunedProfile,
		Seed:        seed,
		Generations: fe.generations,
		Workers:     fe.workers,
	})
	if err != nil {
		return telemetry.BenchmarkMetrics{}, err
	}
	defer trainer.Close()

	result, err := trainer.Run(fe.ctx)
	if err != nil {
		return telemetry.BenchmarkMetrics{}, err
	}

	episode, err := game.EpisodeOptionsFromConfig(cfg, nil)
	if err != nil {
		return telemetry.BenchmarkMetrics{}, err
	}
	episode.MaxFrames = cfg.Experiment.MaxFrames
	metrics, _, err := game.Benchmark(result.Winner, game.BenchmarkOptions{
		Episode:     episode,
		Observation: cfg.Training.Observation,
		BaseSeed:    cfg.Experiment.BaseSeed,
		SeedStride:  cfg.Experiment.EpisodeSeedStride,
		Episodes:    cfg.Experiment.Episodes,
	})
	return metrics, err
}

// copyConfig creates a copy of the base config whose profile map can be
// replaced without touching the base.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Enemy.Colors = append([]string(nil), fe.baseConfig.Enemy.Colors...)
	cfg.Experiment.Profiles = append([]string(nil), fe.baseConfig.Experiment.Profiles...)
	return &cfg
}

// computeFitness scores benchmark play independent of the reward weights
// being tuned.
func computeFitness(m telemetry.BenchmarkMetrics) float64 {
	return -(m.AvgWaveClears*waveClearWeight +
		m.AvgKills*killWeight +
		m.AvgFramesSurvived*frameWeight -
		m.AvgLaserHitsTaken*hitWeight)
}
