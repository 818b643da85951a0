package game

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/store"
	"github.com/pthm-cable/invaders/telemetry"
)

func TestTrainerRun(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir, cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	archive := store.NewMemoryStore()
	if err := archive.Init(ctx); err != nil {
		t.Fatal(err)
	}

	tr, err := NewTrainer(cfg, TrainerOptions{Seed: 5, Output: out, Store: archive})
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	res, err := tr.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if res.Profile != cfg.Training.Profile {
		t.Errorf("profile = %q, want %q", res.Profile, cfg.Training.Profile)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Rows))
	}
	for i, row := range res.Rows {
		if row.Generation != i || row.PopulationSize != cfg.Training.PopulationSize {
			t.Errorf("row %d: generation=%d population=%d", i, row.Generation, row.PopulationSize)
		}
	}
	if tr.Population().Len() != cfg.Training.PopulationSize {
		t.Errorf("population = %d after reproduction", tr.Population().Len())
	}
	if res.Winner == nil || res.WinnerGeneration < 0 || res.WinnerGeneration > 1 {
		t.Fatalf("winner=%v generation=%d", res.Winner, res.WinnerGeneration)
	}

	for _, path := range []string{res.WinnerPath, out.MetricsPath(res.Profile)} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
	rec, err := neural.LoadGenome(res.WinnerPath)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Profile != res.Profile || rec.Fitness != res.WinnerFitness {
		t.Errorf("saved record profile=%q fitness=%v", rec.Profile, rec.Fitness)
	}

	rows, ok, err := archive.GetGenerations(ctx, res.RunID)
	if err != nil || !ok {
		t.Fatalf("archived generations: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(rows, res.Rows) {
		t.Errorf("archived rows differ from returned rows")
	}
	if _, ok, err := archive.GetGenome(ctx, res.RunID); err != nil || !ok {
		t.Errorf("archived winner: ok=%v err=%v", ok, err)
	}
}

func TestTrainerElitesSurvive(t *testing.T) {
	cfg := testConfig(t)
	tr, err := NewTrainer(cfg, TrainerOptions{Seed: 9, Generations: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	if _, err := tr.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	best, _ := tr.Best()

	elites := 0
	found := false
	for i := 0; i < tr.Population().Len(); i++ {
		m := tr.Population().Member(i)
		if m.Lineage.Elite {
			elites++
		}
		if m.Member.GenomeID == best.Id {
			found = true
		}
	}
	if elites != cfg.Training.EliteCount {
		t.Errorf("elites = %d, want %d", elites, cfg.Training.EliteCount)
	}
	if !found {
		t.Error("best genome was not carried into the next generation")
	}
	if tr.Generation() != 1 {
		t.Errorf("generation = %d, want 1", tr.Generation())
	}
}

func TestTrainerHonorsCancel(t *testing.T) {
	cfg := testConfig(t)
	tr, err := NewTrainer(cfg, TrainerOptions{Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Run(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestNewTrainerUnknownProfile(t *testing.T) {
	cfg := testConfig(t)
	if _, err := NewTrainer(cfg, TrainerOptions{Profile: "speedrun"}); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestBenchmark(t *testing.T) {
	if got := BenchmarkSeed(42, 97, 2); got != 236 {
		t.Errorf("BenchmarkSeed = %d, want 236", got)
	}

	opts := testEpisodeOptions(t, true)
	opts.MaxFrames = 120
	genome := testGenomes(t, 1, 21)[0]
	bo := BenchmarkOptions{
		Episode:     opts,
		Observation: config.ObservationNearest,
		BaseSeed:    1042,
		SeedStride:  97,
		Episodes:    3,
	}

	bench, episodes, err := Benchmark(genome, bo)
	if err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 3 {
		t.Fatalf("episodes = %d", len(episodes))
	}
	for i, ep := range episodes {
		if want := BenchmarkSeed(1042, 97, i); ep.Seed != want {
			t.Errorf("episode %d seed = %d, want %d", i, ep.Seed, want)
		}
		if ep.FramesSurvived > 120 {
			t.Errorf("episode %d ran %d frames past the cap", i, ep.FramesSurvived)
		}
	}

	again, _, err := Benchmark(genome, bo)
	if err != nil {
		t.Fatal(err)
	}
	if bench != again {
		t.Errorf("benchmark not reproducible:\n%+v\n%+v", bench, again)
	}
}

func TestRunExperiment(t *testing.T) {
	cfg := testConfig(t)
	cfg.Training.Generations = 1
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir, cfg.Output)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	archive := store.NewMemoryStore()
	if err := archive.Init(ctx); err != nil {
		t.Fatal(err)
	}

	results, err := RunExperiment(ctx, cfg, ExperimentOptions{
		Profiles: []string{"kill_focus", "balanced"},
		Output:   out,
		Store:    archive,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	seen := map[string]bool{}
	for _, r := range results {
		seen[r.Profile] = true
		if r.WinnerPath == "" {
			t.Errorf("%s: no winner path", r.Profile)
		}
		if r.WinnerFitness != telemetry.Round(r.WinnerFitness, telemetry.GenerationPrecision) {
			t.Errorf("%s: fitness %v not rounded", r.Profile, r.WinnerFitness)
		}
	}
	if !seen["kill_focus"] || !seen["balanced"] {
		t.Errorf("profiles = %v", seen)
	}
	if _, err := os.Stat(out.SummaryPath()); err != nil {
		t.Errorf("summary: %v", err)
	}
}

func TestReplaySession(t *testing.T) {
	cfg := testConfig(t)
	genome := testGenomes(t, 1, 8)[0]
	path := filepath.Join(t.TempDir(), "best_genome_precision.json")
	rec := neural.EncodeGenome(genome, "balanced", config.ObservationNearest, 4, 1.5)
	if err := neural.SaveGenome(rec, path); err != nil {
		t.Fatal(err)
	}

	s, err := LoadReplay(cfg, path, 70)
	if err != nil {
		t.Fatal(err)
	}
	// The file name wins over the recorded profile.
	if s.Profile != "precision" {
		t.Errorf("profile = %q, want precision", s.Profile)
	}
	if s.Generation != 4 {
		t.Errorf("generation = %d, want 4", s.Generation)
	}

	for i := 0; i < 30 && s.Running(); i++ {
		res, err := s.Step()
		if err != nil {
			t.Fatal(err)
		}
		if res.FitnessDelta != 0 {
			t.Fatalf("replay earned reward %v", res.FitnessDelta)
		}
	}
	obs, outputs := s.LastActivation()
	if len(obs) != len(s.InputLabels()) || len(outputs) != neural.ActionOutputs {
		t.Errorf("last activation: %d inputs for %d labels, %d outputs", len(obs), len(s.InputLabels()), len(outputs))
	}
	if s.Genome().Id != genome.Id {
		t.Errorf("replaying genome %d, want %d", s.Genome().Id, genome.Id)
	}
	if snap := s.Snapshot(); snap.Seed != 70 || snap.Profile != "precision" {
		t.Errorf("snapshot seed=%d profile=%q", snap.Seed, snap.Profile)
	}

	s.Restart()
	if s.State().Frame != 0 {
		t.Errorf("restart kept frame %d", s.State().Frame)
	}
	if snap := s.Snapshot(); snap.Seed != 71 {
		t.Errorf("restart seed = %d, want 71", snap.Seed)
	}
}

func TestReplayFallsBackToRecordProfile(t *testing.T) {
	cfg := testConfig(t)
	genome := testGenomes(t, 1, 8)[0]
	path := filepath.Join(t.TempDir(), "winner.json")
	if err := neural.SaveGenome(neural.EncodeGenome(genome, "balanced", "", 0, 0), path); err != nil {
		t.Fatal(err)
	}
	s, err := LoadReplay(cfg, path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.Profile != "balanced" {
		t.Errorf("profile = %q, want balanced", s.Profile)
	}
}
