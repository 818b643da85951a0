package telemetry

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Decimal places used for report rounding.
const (
	GenerationPrecision = 5
	BenchmarkPrecision  = 4
)

// GenerationMetricsRow is one line of the per-generation training metrics CSV.
// Field order is the column order.
type GenerationMetricsRow struct {
	Generation     int     `csv:"generation"`
	Frames         int     `csv:"frames"`
	PopulationSize int     `csv:"population_size"`
	SurvivorsAtEnd int     `csv:"survivors_at_end"`
	LivesRemaining int     `csv:"lives_remaining"`
	AvgFitness     float64 `csv:"avg_fitness"`
	BestFitness    float64 `csv:"best_fitness"`
	WorstFitness   float64 `csv:"worst_fitness"`
	ShotsFired     int     `csv:"shots_fired"`
	Kills          int     `csv:"kills"`
	EnemyEscapes   int     `csv:"enemy_escapes"`
	PlayerDeaths   int     `csv:"player_deaths"`
	WaveClears     int     `csv:"wave_clears"`
	LevelFailures  int     `csv:"level_failures"`
	KillPerShot    float64 `csv:"kill_per_shot"`
	SurvivalTotal  float64 `csv:"survival_reward_total"`
	KillTotal      float64 `csv:"kill_reward_total"`
	WaveClearTotal float64 `csv:"wave_clear_reward_total"`
	ShotTotal      float64 `csv:"shot_penalty_total"`
	DeathTotal     float64 `csv:"death_penalty_total"`
	EscapeTotal    float64 `csv:"enemy_escape_penalty_total"`
	LevelFailTotal float64 `csv:"level_fail_penalty_total"`
}

// GenerationColumns lists the metrics CSV header in order.
var GenerationColumns = []string{
	"generation",
	"frames",
	"population_size",
	"survivors_at_end",
	"lives_remaining",
	"avg_fitness",
	"best_fitness",
	"worst_fitness",
	"shots_fired",
	"kills",
	"enemy_escapes",
	"player_deaths",
	"wave_clears",
	"level_failures",
	"kill_per_shot",
	"survival_reward_total",
	"kill_reward_total",
	"wave_clear_reward_total",
	"shot_penalty_total",
	"death_penalty_total",
	"enemy_escape_penalty_total",
	"level_fail_penalty_total",
}

// GenomeEvaluation is what one genome contributed to a generation.
type GenomeEvaluation struct {
	GenomeID     int
	Fitness      float64 // mean fitness over its episodes
	MeanLives    float64 // mean lives remaining over its episodes
	SurvivedLast bool    // player alive at the end of its last episode
	Frames       int     // frames summed over its episodes
	Events       EventTotals
	Rewards      RewardTotals
}

// SummarizeGeneration folds a generation's genome evaluations into a metrics row.
// generation is 0-based. Returns an error for an empty population.
func SummarizeGeneration(generation int, evals []GenomeEvaluation) (GenerationMetricsRow, error) {
	n := len(evals)
	if n == 0 {
		return GenerationMetricsRow{}, fmt.Errorf("generation %d: empty population", generation)
	}

	fitness := make([]float64, n)
	var (
		events    EventTotals
		rewards   RewardTotals
		frames    int
		survivors int
		livesSum  float64
	)
	for i, ev := range evals {
		fitness[i] = ev.Fitness
		events.Add(ev.Events)
		rewards.Add(ev.Rewards)
		frames += ev.Frames
		livesSum += ev.MeanLives
		if ev.SurvivedLast {
			survivors++
		}
	}

	return GenerationMetricsRow{
		Generation:     generation,
		Frames:         frames,
		PopulationSize: n,
		SurvivorsAtEnd: survivors,
		LivesRemaining: int(math.RoundToEven(livesSum / float64(n))),
		AvgFitness:     Round(stat.Mean(fitness, nil), GenerationPrecision),
		BestFitness:    Round(floats.Max(fitness), GenerationPrecision),
		WorstFitness:   Round(floats.Min(fitness), GenerationPrecision),
		ShotsFired:     events.ShotsFired,
		Kills:          events.Kills,
		EnemyEscapes:   events.EnemyEscapes,
		PlayerDeaths:   events.PlayerDeaths,
		WaveClears:     events.WaveClears,
		LevelFailures:  events.LevelFailures,
		KillPerShot:    Round(events.KillPerShot(), GenerationPrecision),
		SurvivalTotal:  Round(rewards.Survival, GenerationPrecision),
		KillTotal:      Round(rewards.Kill, GenerationPrecision),
		WaveClearTotal: Round(rewards.WaveClear, GenerationPrecision),
		ShotTotal:      Round(rewards.ShotPenalty, GenerationPrecision),
		DeathTotal:     Round(rewards.DeathPenalty, GenerationPrecision),
		EscapeTotal:    Round(rewards.EnemyEscapePenalty, GenerationPrecision),
		LevelFailTotal: Round(rewards.LevelFailPenalty, GenerationPrecision),
	}, nil
}

// RewardLogLine renders the human-readable per-generation reward log line.
func (r GenerationMetricsRow) RewardLogLine(profile string, episodesPerGenome int) string {
	return fmt.Sprintf(
		"[RewardLog][Profile %s][Gen %d] episodes/genome=%d shots=%d kills=%d k/shot=%.3f "+
			"reward_totals(survival=%.3f, kill=%.3f, wave=%.3f, shot=%.3f, death=%.3f, escape=%.3f, fail=%.3f)",
		profile, r.Generation, episodesPerGenome, r.ShotsFired, r.Kills, r.KillPerShot,
		r.SurvivalTotal, r.KillTotal, r.WaveClearTotal, r.ShotTotal, r.DeathTotal, r.EscapeTotal, r.LevelFailTotal,
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (r GenerationMetricsRow) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", r.Generation),
		slog.Int("frames", r.Frames),
		slog.Int("population", r.PopulationSize),
		slog.Int("survivors", r.SurvivorsAtEnd),
		slog.Int("lives", r.LivesRemaining),
		slog.Float64("avg_fitness", r.AvgFitness),
		slog.Float64("best_fitness", r.BestFitness),
		slog.Float64("worst_fitness", r.WorstFitness),
		slog.Int("shots", r.ShotsFired),
		slog.Int("kills", r.Kills),
		slog.Float64("kill_per_shot", r.KillPerShot),
	)
}

// GenomeEpisodeMetrics records one reward-free benchmark episode.
type GenomeEpisodeMetrics struct {
	Seed           int64
	FramesSurvived int
	Kills          int
	BossKills      int
	WaveClears     int
	ShotsFired     int
	LaserHitsTaken int
	LivesRemaining int
	PlayerAlive    bool
}

// NewGenomeEpisodeMetrics extracts benchmark metrics from an episode result.
func NewGenomeEpisodeMetrics(seed int64, res EpisodeResult) GenomeEpisodeMetrics {
	return GenomeEpisodeMetrics{
		Seed:           seed,
		FramesSurvived: res.Frames,
		Kills:          res.Events.Kills,
		BossKills:      res.Events.BossKills,
		WaveClears:     res.Events.WaveClears,
		ShotsFired:     res.Events.ShotsFired,
		LaserHitsTaken: res.Events.LaserHitsTaken,
		LivesRemaining: res.LivesRemaining,
		PlayerAlive:    res.PlayerAlive,
	}
}

// BenchmarkMetrics averages benchmark episodes. Field order is the summary column order.
type BenchmarkMetrics struct {
	AvgFramesSurvived float64 `csv:"avg_frames_survived"`
	AvgKills          float64 `csv:"avg_kills"`
	AvgBossKills      float64 `csv:"avg_boss_kills"`
	AvgWaveClears     float64 `csv:"avg_wave_clears"`
	AvgShotsFired     float64 `csv:"avg_shots_fired"`
	AvgLaserHitsTaken float64 `csv:"avg_laser_hits_taken"`
	AvgLivesRemaining float64 `csv:"avg_lives_remaining"`
	KillPerShot       float64 `csv:"kill_per_shot"`
}

// SummarizeBenchmark averages episode metrics. kill_per_shot is total kills over
// total shots, not a mean of ratios.
func SummarizeBenchmark(episodes []GenomeEpisodeMetrics) BenchmarkMetrics {
	n := len(episodes)
	if n == 0 {
		return BenchmarkMetrics{}
	}
	col := func(get func(m GenomeEpisodeMetrics) int) float64 {
		xs := make([]float64, n)
		for i, m := range episodes {
			xs[i] = float64(get(m))
		}
		return Round(stat.Mean(xs, nil), BenchmarkPrecision)
	}

	var shots, kills int
	for _, m := range episodes {
		shots += m.ShotsFired
		kills += m.Kills
	}
	kps := 0.0
	if shots > 0 {
		kps = float64(kills) / float64(shots)
	}

	return BenchmarkMetrics{
		AvgFramesSurvived: col(func(m GenomeEpisodeMetrics) int { return m.FramesSurvived }),
		AvgKills:          col(func(m GenomeEpisodeMetrics) int { return m.Kills }),
		AvgBossKills:      col(func(m GenomeEpisodeMetrics) int { return m.BossKills }),
		AvgWaveClears:     col(func(m GenomeEpisodeMetrics) int { return m.WaveClears }),
		AvgShotsFired:     col(func(m GenomeEpisodeMetrics) int { return m.ShotsFired }),
		AvgLaserHitsTaken: col(func(m GenomeEpisodeMetrics) int { return m.LaserHitsTaken }),
		AvgLivesRemaining: col(func(m GenomeEpisodeMetrics) int { return m.LivesRemaining }),
		KillPerShot:       Round(kps, BenchmarkPrecision),
	}
}

// ExperimentResult is one profile's trained winner and its benchmark.
type ExperimentResult struct {
	Profile       string
	WinnerFitness float64
	WinnerPath    string
	Benchmark     BenchmarkMetrics
}

// ExperimentSummaryRow is one line of the experiment summary CSV.
type ExperimentSummaryRow struct {
	Profile           string  `csv:"profile"`
	WinnerFitness     float64 `csv:"winner_fitness"`
	AvgFramesSurvived float64 `csv:"avg_frames_survived"`
	AvgKills          float64 `csv:"avg_kills"`
	AvgBossKills      float64 `csv:"avg_boss_kills"`
	AvgWaveClears     float64 `csv:"avg_wave_clears"`
	AvgShotsFired     float64 `csv:"avg_shots_fired"`
	AvgLaserHitsTaken float64 `csv:"avg_laser_hits_taken"`
	AvgLivesRemaining float64 `csv:"avg_lives_remaining"`
	KillPerShot       float64 `csv:"kill_per_shot"`
	WinnerPath        string  `csv:"winner_path"`
}

// SummaryRow flattens the result for the summary CSV.
func (r ExperimentResult) SummaryRow() ExperimentSummaryRow {
	b := r.Benchmark
	return ExperimentSummaryRow{
		Profile:           r.Profile,
		WinnerFitness:     r.WinnerFitness,
		AvgFramesSurvived: b.AvgFramesSurvived,
		AvgKills:          b.AvgKills,
		AvgBossKills:      b.AvgBossKills,
		AvgWaveClears:     b.AvgWaveClears,
		AvgShotsFired:     b.AvgShotsFired,
		AvgLaserHitsTaken: b.AvgLaserHitsTaken,
		AvgLivesRemaining: b.AvgLivesRemaining,
		KillPerShot:       b.KillPerShot,
		WinnerPath:        r.WinnerPath,
	}
}

// rankingKey orders results: more wave clears, then more kills, then more
// frames, then fewer laser hits, then better accuracy.
func (r ExperimentResult) rankingKey() [5]float64 {
	b := r.Benchmark
	return [5]float64{
		b.AvgWaveClears,
		b.AvgKills,
		b.AvgFramesSurvived,
		-b.AvgLaserHitsTaken,
		b.KillPerShot,
	}
}

// Better reports whether r ranks strictly ahead of o.
func (r ExperimentResult) Better(o ExperimentResult) bool {
	a, b := r.rankingKey(), o.rankingKey()
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// RankExperimentResults returns a best-first copy. Ties keep input order.
func RankExperimentResults(results []ExperimentResult) []ExperimentResult {
	ranked := append([]ExperimentResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Better(ranked[j])
	})
	return ranked
}

// Round rounds x to the given number of decimal places, halves to even.
func Round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(x*scale) / scale
}
