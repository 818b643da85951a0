package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/game"
	"github.com/pthm-cable/invaders/renderer"
	"github.com/pthm-cable/invaders/store"
	"github.com/pthm-cable/invaders/telemetry"
)

func main() {
	// CLI flags
	mode := flag.String("mode", "train", "train, replay or experiment")
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	generations := flag.Int("generations", 0, "Generations to train (0 = use config)")
	profile := flag.String("profile", "", "Reward profile to train (empty = use config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = use config)")
	genomePath := flag.String("genome-path", "", "Genome file to replay (empty = best genome of -profile in -output-dir)")
	experimentEpisodes := flag.Int("experiment-episodes", 0, "Benchmark episodes per profile (0 = use config)")
	experimentMaxFrames := flag.Int("experiment-max-frames", 0, "Frame cap of benchmark episodes (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and genomes (empty = use config)")
	workers := flag.Int("workers", 0, "Evaluation workers (0 = use config)")
	verbose := flag.Bool("v", false, "Log species details")

	flag.Parse()

	setupLogger(*verbose)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	dir := *outputDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	out, err := telemetry.NewOutputManager(dir, cfg.Output)
	if err != nil {
		slog.Error("failed to prepare output", "error", err)
		os.Exit(1)
	}
	if cfg.Output.WriteConfigCopy {
		if err := out.WriteConfig(cfg); err != nil {
			slog.Warn("failed to write config copy", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "train":
		err = runTrain(ctx, cfg, out, *profile, *seed, *generations, *workers)
	case "experiment":
		err = runExperiment(ctx, cfg, out, game.ExperimentOptions{
			Generations: *generations,
			Episodes:    *experimentEpisodes,
			MaxFrames:   *experimentMaxFrames,
			BaseSeed:    *seed,
			Workers:     *workers,
		})
	case "replay":
		path := *genomePath
		if path == "" {
			name := *profile
			if name == "" {
				name = cfg.Training.Profile
			}
			path = out.GenomePath(name)
		}
		err = runReplay(cfg, out, path, *seed)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		slog.Error("run failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

// setupLogger uses text logs on a terminal and JSON otherwise.
func setupLogger(verbose bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	s, err := store.NewStore(cfg.Storage.Backend, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("init %s store: %w", cfg.Storage.Backend, err)
	}
	return s, nil
}

func closeStore(s store.Store) {
	if err := store.CloseIfSupported(s); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

func runTrain(ctx context.Context, cfg *config.Config, out *telemetry.OutputManager, profile string, seed int64, generations, workers int) error {
	archive, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(archive)

	if seed == 0 {
		seed = cfg.Training.Seed
	}
	if profile == "" {
		profile = cfg.Training.Profile
	}
	trainer, err := game.NewTrainer(cfg, game.TrainerOptions{
		Profile:     profile,
		Seed:        seed,
		Generations: generations,
		Workers:     workers,
		Output:      out,
		Store:       archive,
	})
	if err != nil {
		return err
	}
	defer trainer.Close()

	slog.Info("starting training",
		"run", trainer.RunID(),
		"profile", profile,
		"seed", seed,
		"population", humanize.Comma(int64(cfg.Training.PopulationSize)),
	)
	res, err := trainer.Run(ctx)
	if err != nil {
		return err
	}

	frames := 0
	for _, row := range res.Rows {
		frames += row.Frames
	}
	slog.Info("training complete",
		"profile", res.Profile,
		"generations", len(res.Rows),
		"frames", humanize.Comma(int64(frames)),
		"winner_fitness", telemetry.Round(res.WinnerFitness, telemetry.GenerationPrecision),
		"winner_generation", res.WinnerGeneration,
		"winner_path", res.WinnerPath,
	)
	return nil
}

func runExperiment(ctx context.Context, cfg *config.Config, out *telemetry.OutputManager, o game.ExperimentOptions) error {
	archive, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(archive)

	o.Output = out
	o.Store = archive
	results, err := game.RunExperiment(ctx, cfg, o)
	if err != nil {
		return err
	}
	if len(results) > 0 {
		best := results[0]
		slog.Info("experiment complete",
			"best_profile", best.Profile,
			"avg_kills", humanize.Ftoa(best.Benchmark.AvgKills),
			"avg_frames", humanize.Ftoa(best.Benchmark.AvgFramesSurvived),
		)
	}
	return nil
}

func runReplay(cfg *config.Config, out *telemetry.OutputManager, path string, seed int64) error {
	if seed == 0 {
		seed = cfg.Experiment.BaseSeed
	}
	session, err := game.LoadReplay(cfg, path, seed)
	if err != nil {
		return err
	}

	snapshotDir := out.Dir()
	if snapshotDir == "" {
		snapshotDir = "."
	}
	viewer := renderer.NewViewer(session, renderer.ViewerOptions{
		Width:       cfg.World.Width,
		Height:      cfg.World.Height,
		HUDHeight:   cfg.Screen.HUDHeight,
		Title:       cfg.Screen.Title,
		TargetFPS:   cfg.Screen.TargetFPS,
		Profile:     session.Profile,
		Generation:  session.Generation,
		SnapshotDir: snapshotDir,
		Seed:        seed,
	})
	return viewer.Run()
}
