package game

import (
	"errors"
	"io"
	"math/rand"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/yaricom/goNEAT/v4/neat/genetics"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/systems"
	"github.com/pthm-cable/invaders/telemetry"
)

func init() {
	SetLogWriter(io.Discard)
}

// testConfig returns the defaults shrunk to a fast run.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.Training.PopulationSize = 6
	cfg.Training.Generations = 2
	cfg.Training.Workers = 2
	cfg.Episode.EpisodesPerGenome = 1
	cfg.Episode.MaxFrames = 200
	cfg.Experiment.Episodes = 2
	cfg.Experiment.MaxFrames = 150
	return cfg
}

func testGenomes(t *testing.T, n int, seed int64) []*genetics.Genome {
	t.Helper()
	inputs, err := neural.ObservationWidth(config.ObservationNearest)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([]*genetics.Genome, n)
	for i := range out {
		out[i] = neural.CreateBrainGenome(i+1, inputs, neural.ActionOutputs, 0.5, rng)
	}
	return out
}

func idleDecision() systems.DecisionSource {
	return systems.DecisionFunc(func([]float64) ([]float64, error) {
		return []float64{0, 0, 0}, nil
	})
}

func noObservation() systems.ObservationBuilder {
	return systems.ObservationFunc(func(*components.Ship, []*components.Ship, float64, float64) []float64 {
		return nil
	})
}

func testEpisodeOptions(t *testing.T, rewards bool) EpisodeOptions {
	t.Helper()
	cfg := testConfig(t)
	var rp *config.RewardProfile
	if rewards {
		p, err := cfg.Profile("kill_focus")
		if err != nil {
			t.Fatal(err)
		}
		rp = &p
	}
	opts, err := EpisodeOptionsFromConfig(cfg, rp)
	if err != nil {
		t.Fatal(err)
	}
	return opts
}

func TestEpisodeSeed(t *testing.T) {
	tests := []struct {
		gen, id, ep int
		want        int64
	}{
		{0, 1, 0, 1_001_000},
		{0, 1, 2, 1_001_002},
		{4, 17, 1, 5_017_001},
		{49, 999, 2, 50_999_002},
	}
	for _, tt := range tests {
		if got := EpisodeSeed(tt.gen, tt.id, tt.ep); got != tt.want {
			t.Errorf("EpisodeSeed(%d, %d, %d) = %d, want %d", tt.gen, tt.id, tt.ep, got, tt.want)
		}
	}
}

func TestRunEpisodeDeterministic(t *testing.T) {
	opts := testEpisodeOptions(t, true)
	genome := testGenomes(t, 1, 3)[0]
	observe, err := neural.NewObservationBuilder(config.ObservationNearest)
	if err != nil {
		t.Fatal(err)
	}

	run := func() telemetry.EpisodeResult {
		brain, err := neural.NewBrainController(genome)
		if err != nil {
			t.Fatal(err)
		}
		res, err := RunEpisode(opts, brain, systems.ObservationFunc(observe), 1234, nil)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed, different results:\n%+v\n%+v", a, b)
	}
	if a.Frames == 0 || a.Frames > opts.MaxFrames {
		t.Errorf("frames = %d, want 1..%d", a.Frames, opts.MaxFrames)
	}
}

func TestRunEpisodeFrameCap(t *testing.T) {
	opts := testEpisodeOptions(t, true)
	opts.MaxFrames = 25

	res, err := RunEpisode(opts, idleDecision(), noObservation(), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Frames != 25 {
		t.Errorf("frames = %d, want 25", res.Frames)
	}
	// Nothing can reach the player in 25 frames, so survival reward accrues.
	if !res.PlayerAlive || res.FitnessDelta <= 0 {
		t.Errorf("alive=%v fitness=%v", res.PlayerAlive, res.FitnessDelta)
	}
}

func TestRunEpisodeHookStops(t *testing.T) {
	opts := testEpisodeOptions(t, true)
	calls := 0
	res, err := RunEpisode(opts, idleDecision(), noObservation(), 1, func(s *systems.EpisodeState, _ systems.StepResult) bool {
		calls++
		return s.Frame < 10
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Frames != calls {
		t.Errorf("hook saw %d frames, episode ran %d", calls, res.Frames)
	}
	if res.Frames != 10 {
		t.Errorf("frames = %d, want 10", res.Frames)
	}
}

func TestRewardFreeEpisode(t *testing.T) {
	opts := testEpisodeOptions(t, false)
	res, err := RunEpisode(opts, idleDecision(), noObservation(), 9, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.FitnessDelta != 0 {
		t.Errorf("fitness = %v without rewards", res.FitnessDelta)
	}
	if res.Rewards != (telemetry.RewardTotals{}) {
		t.Errorf("reward totals = %+v without rewards", res.Rewards)
	}
}

func TestRunEpisodeShortActionFails(t *testing.T) {
	opts := testEpisodeOptions(t, true)
	short := systems.DecisionFunc(func([]float64) ([]float64, error) {
		return []float64{1}, nil
	})
	if _, err := RunEpisode(opts, short, noObservation(), 1, nil); err == nil {
		t.Fatal("expected an error for a one-element action vector")
	}
}

func TestWorkerPoolRunsEveryIndex(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 8} {
		p := newWorkerPool(workers)
		var hits [37]int32
		err := p.run(len(hits), func(i int) error {
			atomic.AddInt32(&hits[i], 1)
			return nil
		})
		p.stop()
		if err != nil {
			t.Fatalf("workers %d: %v", workers, err)
		}
		for i, h := range hits {
			if h != 1 {
				t.Errorf("workers %d: index %d ran %d times", workers, i, h)
			}
		}
	}
}

func TestWorkerPoolLowestError(t *testing.T) {
	errLow := errors.New("low")
	errHigh := errors.New("high")
	p := newWorkerPool(4)
	defer p.stop()

	err := p.run(40, func(i int) error {
		switch i {
		case 5:
			return errLow
		case 35:
			return errHigh
		}
		return nil
	})
	if !errors.Is(err, errLow) {
		t.Errorf("err = %v, want %v", err, errLow)
	}
}

func TestEvaluatorWorkerCountInvariant(t *testing.T) {
	opts := testEpisodeOptions(t, true)
	genomes := testGenomes(t, 6, 11)

	evaluate := func(workers int) []telemetry.GenomeEvaluation {
		ev, err := NewEvaluator(opts, config.ObservationNearest, 2, workers)
		if err != nil {
			t.Fatal(err)
		}
		defer ev.Close()
		out, err := ev.EvaluateGeneration(3, genomes)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	serial, parallel := evaluate(1), evaluate(4)
	if !reflect.DeepEqual(serial, parallel) {
		t.Fatal("evaluation differs between 1 and 4 workers")
	}
	for i, ev := range serial {
		if ev.GenomeID != genomes[i].Id {
			t.Errorf("result %d belongs to genome %d, want %d", i, ev.GenomeID, genomes[i].Id)
		}
	}
}

func TestNewEvaluatorRejectsBadInput(t *testing.T) {
	opts := testEpisodeOptions(t, true)
	if _, err := NewEvaluator(opts, "widest", 1, 1); err == nil {
		t.Error("expected error for unknown observation")
	}
	if _, err := NewEvaluator(opts, config.ObservationNearest, 0, 1); err == nil {
		t.Error("expected error for zero episodes")
	}
}

func TestPopulationRanking(t *testing.T) {
	pop := NewPopulation()
	for _, g := range testGenomes(t, 4, 5) {
		pop.Add(g, components.Lineage{})
	}
	if pop.Len() != 4 || pop.EvaluatedCount() != 0 {
		t.Fatalf("len=%d evaluated=%d", pop.Len(), pop.EvaluatedCount())
	}

	pop.SetScores([]telemetry.GenomeEvaluation{
		{GenomeID: 1, Fitness: 2},
		{GenomeID: 2, Fitness: 9},
		{GenomeID: 3, Fitness: 2},
		{GenomeID: 4, Fitness: -1},
	})
	if pop.EvaluatedCount() != 4 {
		t.Errorf("evaluated = %d", pop.EvaluatedCount())
	}

	var ids []int
	for _, r := range pop.Ranked() {
		ids = append(ids, r.Member.GenomeID)
	}
	if want := []int{2, 1, 3, 4}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ranked = %v, want %v", ids, want)
	}

	pop.SetSpecies(2, 7)
	if got := pop.Member(2).Lineage.SpeciesID; got != 7 {
		t.Errorf("species = %d, want 7", got)
	}
	if len(pop.ByID()) != 4 {
		t.Errorf("ByID has %d entries", len(pop.ByID()))
	}

	pop.Clear()
	if pop.Len() != 0 || pop.EvaluatedCount() != 0 {
		t.Errorf("after clear: len=%d evaluated=%d", pop.Len(), pop.EvaluatedCount())
	}
}

func TestEndReason(t *testing.T) {
	s := systems.NewEpisodeStateWith(3, 5)
	if got := EndReason(s); got != "stopped" {
		t.Errorf("live state: %q", got)
	}
	s.Lives = 0
	if got := EndReason(s); got != "lives depleted" {
		t.Errorf("no lives: %q", got)
	}
	s.Player.Health = 0
	if got := EndReason(s); got != "player destroyed" {
		t.Errorf("dead player: %q", got)
	}
}

func TestInferProfile(t *testing.T) {
	known := []string{"balanced", "kill_focus", "precision"}
	tests := []struct {
		path string
		want string
	}{
		{"best_genome_balanced.json", "balanced"},
		{"runs/2026/best_genome_Precision.json", "precision"},
		{"/tmp/KILL_FOCUS.json", "kill_focus"},
		{"winner.json", DefaultReplayProfile},
		{"balanced/winner.json", DefaultReplayProfile},
	}
	for _, tt := range tests {
		if got := InferProfile(tt.path, known); got != tt.want {
			t.Errorf("InferProfile(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
