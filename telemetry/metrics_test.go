package telemetry

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestSummarizeGeneration(t *testing.T) {
	evals := []GenomeEvaluation{
		{
			GenomeID: 1, Fitness: 10.123456, MeanLives: 5, SurvivedLast: true, Frames: 300,
			Events:  EventTotals{ShotsFired: 4, Kills: 2, WaveClears: 1},
			Rewards: RewardTotals{Kill: 24, ShotPenalty: -0.02},
		},
		{
			GenomeID: 2, Fitness: -3, MeanLives: 2, Frames: 200,
			Events:  EventTotals{ShotsFired: 6, PlayerDeaths: 1},
			Rewards: RewardTotals{DeathPenalty: -7, ShotPenalty: -0.03},
		},
		{
			GenomeID: 3, Fitness: 1, MeanLives: 4, SurvivedLast: true, Frames: 100,
		},
	}

	row, err := SummarizeGeneration(4, evals)
	if err != nil {
		t.Fatalf("SummarizeGeneration: %v", err)
	}

	if row.Generation != 4 || row.PopulationSize != 3 || row.Frames != 600 {
		t.Errorf("unexpected header fields: %+v", row)
	}
	if row.SurvivorsAtEnd != 2 {
		t.Errorf("survivors = %d, want 2", row.SurvivorsAtEnd)
	}
	// (5 + 2 + 4) / 3 = 3.67 -> 4
	if row.LivesRemaining != 4 {
		t.Errorf("lives = %d, want 4", row.LivesRemaining)
	}
	if row.BestFitness != 10.12346 || row.WorstFitness != -3 {
		t.Errorf("best/worst = %v/%v", row.BestFitness, row.WorstFitness)
	}
	if math.Abs(row.AvgFitness-Round((10.123456-3+1)/3, 5)) > 1e-12 {
		t.Errorf("avg = %v", row.AvgFitness)
	}
	if row.KillPerShot != 0.2 {
		t.Errorf("kill_per_shot = %v, want 0.2", row.KillPerShot)
	}
	if row.ShotTotal != -0.05 || row.DeathTotal != -7 || row.KillTotal != 24 {
		t.Errorf("reward totals wrong: %+v", row)
	}
}

func TestSummarizeGenerationEmpty(t *testing.T) {
	if _, err := SummarizeGeneration(0, nil); err == nil {
		t.Error("expected error for empty population")
	}
}

func TestGenerationColumnsMatchTags(t *testing.T) {
	typ := reflect.TypeOf(GenerationMetricsRow{})
	if typ.NumField() != len(GenerationColumns) {
		t.Fatalf("%d fields vs %d columns", typ.NumField(), len(GenerationColumns))
	}
	for i, col := range GenerationColumns {
		if tag := typ.Field(i).Tag.Get("csv"); tag != col {
			t.Errorf("column %d: tag %q, want %q", i, tag, col)
		}
	}
}

func TestRewardLogLine(t *testing.T) {
	row := GenerationMetricsRow{Generation: 3, ShotsFired: 10, Kills: 4, KillPerShot: 0.4, KillTotal: 48}
	line := row.RewardLogLine("balanced", 3)
	for _, want := range []string{
		"[RewardLog][Profile balanced][Gen 3]",
		"episodes/genome=3",
		"shots=10 kills=4 k/shot=0.400",
		"kill=48.000",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestSummarizeBenchmark(t *testing.T) {
	episodes := []GenomeEpisodeMetrics{
		{Seed: 1, FramesSurvived: 100, Kills: 1, ShotsFired: 3, LivesRemaining: 5},
		{Seed: 98, FramesSurvived: 200, Kills: 2, BossKills: 1, WaveClears: 1, ShotsFired: 3, LaserHitsTaken: 1, LivesRemaining: 4},
		{Seed: 195, FramesSurvived: 301, Kills: 0, ShotsFired: 0, LivesRemaining: 0},
	}

	got := SummarizeBenchmark(episodes)
	want := BenchmarkMetrics{
		AvgFramesSurvived: 200.3333,
		AvgKills:          1,
		AvgBossKills:      0.3333,
		AvgWaveClears:     0.3333,
		AvgShotsFired:     2,
		AvgLaserHitsTaken: 0.3333,
		AvgLivesRemaining: 3,
		KillPerShot:       0.5,
	}
	if got != want {
		t.Errorf("SummarizeBenchmark = %+v, want %+v", got, want)
	}

	if (SummarizeBenchmark(nil) != BenchmarkMetrics{}) {
		t.Error("empty benchmark should be zero")
	}
}

func TestRankExperimentResults(t *testing.T) {
	results := []ExperimentResult{
		{Profile: "a", Benchmark: BenchmarkMetrics{AvgWaveClears: 1, AvgKills: 5}},
		{Profile: "b", Benchmark: BenchmarkMetrics{AvgWaveClears: 2}},
		{Profile: "c", Benchmark: BenchmarkMetrics{AvgWaveClears: 1, AvgKills: 5, AvgLaserHitsTaken: 1}},
		{Profile: "d", Benchmark: BenchmarkMetrics{AvgWaveClears: 1, AvgKills: 5}},
	}

	ranked := RankExperimentResults(results)
	var order []string
	for _, r := range ranked {
		order = append(order, r.Profile)
	}
	// b leads on waves; a and d tie and keep input order; c loses on hits taken.
	if got := strings.Join(order, ","); got != "b,a,d,c" {
		t.Errorf("ranking = %s, want b,a,d,c", got)
	}
	if results[0].Profile != "a" {
		t.Error("ranking must not reorder the input")
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		x      float64
		places int
		want   float64
	}{
		{1.234567, 5, 1.23457},
		{-1.234567, 4, -1.2346},
		{2.5, 0, 2},
		{3.5, 0, 4},
	}
	for _, tt := range tests {
		if got := Round(tt.x, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.x, tt.places, got, tt.want)
		}
	}
}
