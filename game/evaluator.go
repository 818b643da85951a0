package game

import (
	"fmt"

	"github.com/yaricom/goNEAT/v4/neat/genetics"

	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/systems"
	"github.com/pthm-cable/invaders/telemetry"
)

// EpisodeSeed is the deterministic seed of one training episode. generation is 0-based.
func EpisodeSeed(generation, genomeID, episode int) int64 {
	return int64(generation+1)*1_000_000 + int64(genomeID)*1000 + int64(episode)
}

// Evaluator scores genomes over a fixed number of seeded episodes.
type Evaluator struct {
	opts     EpisodeOptions
	observe  systems.ObservationBuilder
	episodes int
	pool     *workerPool
}

// NewEvaluator builds an evaluator for the given observation variant.
// workers <= 0 uses GOMAXPROCS.
func NewEvaluator(opts EpisodeOptions, observation string, episodes, workers int) (*Evaluator, error) {
	observe, err := neural.NewObservationBuilder(observation)
	if err != nil {
		return nil, err
	}
	if episodes <= 0 {
		return nil, fmt.Errorf("episodes per genome must be positive, got %d", episodes)
	}
	return &Evaluator{
		opts:     opts,
		observe:  systems.ObservationFunc(observe),
		episodes: episodes,
		pool:     newWorkerPool(workers),
	}, nil
}

// Episodes returns the number of episodes per genome.
func (e *Evaluator) Episodes() int { return e.episodes }

// EvaluateGenome plays every episode of one genome in order.
func (e *Evaluator) EvaluateGenome(generation int, genome *genetics.Genome) (telemetry.GenomeEvaluation, error) {
	brain, err := neural.NewBrainController(genome)
	if err != nil {
		return telemetry.GenomeEvaluation{}, fmt.Errorf("genome %d: %w", genome.Id, err)
	}

	ev := telemetry.GenomeEvaluation{GenomeID: genome.Id}
	var fitnessSum, livesSum float64
	for ep := 0; ep < e.episodes; ep++ {
		seed := EpisodeSeed(generation, genome.Id, ep)
		res, err := RunEpisode(e.opts, brain, e.observe, seed, nil)
		if err != nil {
			return telemetry.GenomeEvaluation{}, fmt.Errorf("genome %d episode %d: %w", genome.Id, ep, err)
		}
		fitnessSum += res.FitnessDelta
		livesSum += float64(res.LivesRemaining)
		ev.Frames += res.Frames
		ev.SurvivedLast = res.PlayerAlive
		ev.Events.Add(res.Events)
		ev.Rewards.Add(res.Rewards)
	}
	ev.Fitness = fitnessSum / float64(e.episodes)
	ev.MeanLives = livesSum / float64(e.episodes)
	return ev, nil
}

// EvaluateGeneration scores every genome. Results are aligned with genomes and
// identical for any worker count.
func (e *Evaluator) EvaluateGeneration(generation int, genomes []*genetics.Genome) ([]telemetry.GenomeEvaluation, error) {
	results := make([]telemetry.GenomeEvaluation, len(genomes))
	err := e.pool.run(len(genomes), func(i int) error {
		ev, err := e.EvaluateGenome(generation, genomes[i])
		if err != nil {
			return err
		}
		results[i] = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close stops the worker pool.
func (e *Evaluator) Close() {
	e.pool.stop()
}
