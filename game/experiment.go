package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/store"
	"github.com/pthm-cable/invaders/telemetry"
)

// ExperimentOptions configures a reward-profile comparison. Zero values fall
// back to the configuration.
type ExperimentOptions struct {
	Generations int
	Episodes    int
	MaxFrames   int
	BaseSeed    int64
	Profiles    []string
	Workers     int

	Output *telemetry.OutputManager
	Store  store.Store
}

// RunExperiment trains one winner per profile, benchmarks each on its own
// seeds, writes the summary in run order and returns the results best-first.
func RunExperiment(ctx context.Context, cfg *config.Config, o ExperimentOptions) ([]telemetry.ExperimentResult, error) {
	profiles := o.Profiles
	if len(profiles) == 0 {
		profiles = cfg.Experiment.Profiles
	}
	episodes := o.Episodes
	if episodes <= 0 {
		episodes = cfg.Experiment.Episodes
	}
	maxFrames := o.MaxFrames
	if maxFrames <= 0 {
		maxFrames = cfg.Experiment.MaxFrames
	}
	baseSeed := o.BaseSeed
	if baseSeed == 0 {
		baseSeed = cfg.Experiment.BaseSeed
	}

	episodeOpts, err := EpisodeOptionsFromConfig(cfg, nil)
	if err != nil {
		return nil, err
	}
	episodeOpts.MaxFrames = maxFrames

	slog.Info("starting reward-profile experiment", "profiles", len(profiles))
	results := make([]telemetry.ExperimentResult, 0, len(profiles))
	for i, profile := range profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.Info("profile", "name", profile, "metrics", o.Output.MetricsPath(profile))

		trainer, err := NewTrainer(cfg, TrainerOptions{
			Profile:     profile,
			Seed:        baseSeed + int64(i),
			Generations: o.Generations,
			Workers:     o.Workers,
			Output:      o.Output,
			Store:       o.Store,
		})
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", profile, err)
		}
		trained, err := trainer.Run(ctx)
		trainer.Close()
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", profile, err)
		}

		bench, _, err := Benchmark(trained.Winner, BenchmarkOptions{
			Episode:     episodeOpts,
			Observation: cfg.Training.Observation,
			BaseSeed:    baseSeed + int64(i)*cfg.Experiment.BenchmarkSeedStride,
			SeedStride:  cfg.Experiment.EpisodeSeedStride,
			Episodes:    episodes,
		})
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", profile, err)
		}
		if o.Store != nil {
			if err := o.Store.SaveBenchmark(ctx, trained.RunID, bench); err != nil {
				return nil, fmt.Errorf("archiving benchmark: %w", err)
			}
		}

		result := telemetry.ExperimentResult{
			Profile:       profile,
			WinnerFitness: telemetry.Round(trained.WinnerFitness, telemetry.GenerationPrecision),
			WinnerPath:    trained.WinnerPath,
			Benchmark:     bench,
		}
		results = append(results, result)
		slog.Info("benchmark",
			"profile", profile,
			"avg_kills", bench.AvgKills,
			"avg_wave_clears", bench.AvgWaveClears,
			"avg_frames", bench.AvgFramesSurvived,
			"kill_per_shot", bench.KillPerShot,
		)
	}

	if err := o.Output.WriteExperimentSummary(results); err != nil {
		return nil, err
	}

	ranked := telemetry.RankExperimentResults(results)
	for rank, r := range ranked {
		slog.Info("ranking",
			"rank", rank+1,
			"profile", r.Profile,
			"waves", r.Benchmark.AvgWaveClears,
			"kills", r.Benchmark.AvgKills,
			"frames", r.Benchmark.AvgFramesSurvived,
			"hits", r.Benchmark.AvgLaserHitsTaken,
		)
	}
	if path := o.Output.SummaryPath(); path != "" {
		slog.Info("experiment summary written", "path", path)
	}
	return ranked, nil
}
