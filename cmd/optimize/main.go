package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/game"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	generations := flag.Int("generations", 10, "Generations per training run")
	seeds := flag.Int("seeds", 2, "Training runs per evaluation")
	workers := flag.Int("workers", 0, "Evaluation workers (0 = use config)")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		fmt.Fprintln(os.Stderr, "--output is required")
		os.Exit(2)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	baseCfg := config.Cfg()

	// The per-generation reward log would drown the progress lines.
	game.SetLogWriter(io.Discard)

	// Cancelled runs score +Inf, so an interrupt drains the remaining
	// evaluations quickly and still writes the best config.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	params := NewParamVector()

	// Generate seeds for evaluation
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = baseCfg.Training.Seed + int64(i*1000)
	}

	evaluator := NewFitnessEvaluator(ctx, params, baseCfg, *generations, *workers, evalSeeds)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation; each training run is already parallel
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	tlog, err := newTuneLog(filepath.Join(*outputDir, "optimize_log.csv"), params)
	if err != nil {
		slog.Error("failed to create log file", "error", err)
		os.Exit(1)
	}
	defer tlog.Close()

	evals := 0
	bestFitness := math.Inf(1)
	var bestParams []float64
	startTime := time.Now()

	inner := problem.Func
	problem.Func = func(x []float64) float64 {
		fitness := inner(x)
		evals++

		clamped := params.Clamp(params.Denormalize(x))
		if fitness < bestFitness {
			bestFitness, bestParams = fitness, clamped
		}

		m := evaluator.LastMetrics()
		if err := tlog.Write(evals, fitness, m, clamped); err != nil {
			slog.Warn("failed to log evaluation", "error", err)
		}

		elapsed := time.Since(startTime)
		eta := time.Duration(*maxEvals-evals) * (elapsed / time.Duration(evals))
		slog.Info("eval",
			"n", fmt.Sprintf("%d/%d", evals, *maxEvals),
			"fitness", fitness,
			"best", bestFitness,
			"kills", m.AvgKills,
			"clears", m.AvgWaveClears,
			"frames", m.AvgFramesSurvived,
			"hits", m.AvgLaserHitsTaken,
			"elapsed", formatDuration(elapsed),
			"eta", formatDuration(eta),
		)
		return fitness
	}

	slog.Info("starting CMA-ES tuning",
		"coefficients", dim,
		"population", popSize,
		"max_evals", *maxEvals,
		"runs_per_eval", *seeds,
		"generations", *generations,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if bestParams == nil {
		if result == nil {
			slog.Error("no evaluation completed")
			os.Exit(1)
		}
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	best := evaluator.BestMetrics()
	slog.Info("tuning complete",
		"evals", evals,
		"duration", formatDuration(time.Since(startTime)),
		"fitness", bestFitness,
		"kills", best.AvgKills,
		"clears", best.AvgWaveClears,
		"frames", best.AvgFramesSurvived,
		"hits", best.AvgLaserHitsTaken,
	)
	for i, spec := range params.Specs {
		slog.Info("coefficient", "name", spec.Name, "value", bestParams[i])
	}

	// The written config selects the tuned profile for training.
	bestCfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to reload config", "error", err)
		os.Exit(1)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	outPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(outPath); err != nil {
		slog.Error("failed to write best config", "error", err)
		os.Exit(1)
	}
	slog.Info("best config saved", "path", outPath)
}
