package game

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/telemetry"
)

// logWriter is the destination for the plain-text reward log.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// logGeneration writes the reward log line and the structured summary.
func (t *Trainer) logGeneration(row telemetry.GenerationMetricsRow) {
	Logf("%s", row.RewardLogLine(t.profile, t.eval.Episodes()))
	slog.Info("generation",
		"profile", t.profile,
		"metrics", row,
		"species", len(t.species.Species),
	)
}

// logSpecies logs the largest species.
func (t *Trainer) logSpecies() {
	stats := t.species.GetStats()
	slog.Debug("species",
		"count", stats.Count,
		"largest", stats.LargestSize,
		"smallest", stats.SmallestSize,
		"avg_staleness", stats.AverageStaleness,
		"best_fitness", stats.BestFitness,
	)
	for _, sp := range t.species.GetTopSpecies(3) {
		slog.Debug("top species",
			"id", sp.ID,
			"size", sp.Size,
			"avg_fitness", sp.AvgFit,
			"staleness", sp.Staleness,
			"offspring", sp.GenerationOffspring,
		)
	}
}

// logPerfStats logs generation timing.
func (t *Trainer) logPerfStats() {
	slog.Debug("perf", "profile", t.profile, "stats", t.perf.Stats())
}

// logWinner logs the best genome's shape.
func logWinner(profile string, brain *neural.BrainController, fitness float64, generation int) {
	slog.Info("winner",
		"profile", profile,
		"genome", brain.Genome.Id,
		"fitness", telemetry.Round(fitness, telemetry.GenerationPrecision),
		"generation", generation,
		"nodes", brain.NodeCount(),
		"links", brain.LinkCount(),
	)
}
