package game

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/store"
	"github.com/pthm-cable/invaders/telemetry"
)

const (
	bookmarkHistory = 10 // generations the bookmark detector compares against
	perfWindow      = 10 // generations averaged by the perf collector
)

// TrainerOptions selects the run. Zero values fall back to the configuration.
type TrainerOptions struct {
	Profile     string
	Seed        int64
	Generations int
	Workers     int

	Output *telemetry.OutputManager // nil disables file output
	Store  store.Store              // nil disables archiving
}

// TrainingResult is the outcome of a finished run.
type TrainingResult struct {
	RunID            string
	Profile          string
	Winner           *genetics.Genome
	WinnerFitness    float64
	WinnerGeneration int
	WinnerPath       string // empty when output is disabled
	Rows             []telemetry.GenerationMetricsRow
}

// Trainer runs the generational loop for one reward profile.
type Trainer struct {
	cfg         *config.Config
	profile     string
	observation string
	generations int

	opts    *neat.Options
	rng     *rand.Rand
	idGen   *neural.GenomeIDGenerator
	species *neural.SpeciesManager
	pop     *Population
	eval    *Evaluator

	out       *telemetry.OutputManager
	store     store.Store
	run       store.Run
	perf      *telemetry.PerfCollector
	bookmarks *telemetry.BookmarkDetector

	generation     int
	best           *genetics.Genome
	bestFitness    float64
	bestGeneration int
	rows           []telemetry.GenerationMetricsRow
}

// NewTrainer seeds the initial population for the chosen profile.
func NewTrainer(cfg *config.Config, o TrainerOptions) (*Trainer, error) {
	profile := o.Profile
	if profile == "" {
		profile = cfg.Training.Profile
	}
	rewards, err := cfg.Profile(profile)
	if err != nil {
		return nil, err
	}
	generations := o.Generations
	if generations <= 0 {
		generations = cfg.Training.Generations
	}
	workers := o.Workers
	if workers <= 0 {
		workers = cfg.Training.Workers
	}

	episodeOpts, err := EpisodeOptionsFromConfig(cfg, &rewards)
	if err != nil {
		return nil, err
	}
	observation := cfg.Training.Observation
	inputs, err := neural.ObservationWidth(observation)
	if err != nil {
		return nil, err
	}
	eval, err := NewEvaluator(episodeOpts, observation, cfg.Episode.EpisodesPerGenome, workers)
	if err != nil {
		return nil, err
	}

	opts := neural.NEATOptions(cfg)
	t := &Trainer{
		cfg:         cfg,
		profile:     profile,
		observation: observation,
		generations: generations,
		opts:        opts,
		rng:         rand.New(rand.NewSource(o.Seed)),
		idGen:       neural.NewGenomeIDGenerator(),
		species:     neural.NewSpeciesManager(opts),
		pop:         NewPopulation(),
		eval:        eval,
		out:         o.Output,
		store:       o.Store,
		run:         store.NewRun(profile, observation, o.Seed, generations),
		perf:        telemetry.NewPerfCollector(perfWindow),
		bookmarks:   telemetry.NewBookmarkDetector(bookmarkHistory),
		bestFitness: math.Inf(-1),
	}

	for i := 0; i < cfg.Training.PopulationSize; i++ {
		genome := neural.CreateBrainGenome(t.idGen.NextID(), inputs, neural.ActionOutputs, cfg.Training.ConnectionProb, t.rng)
		t.pop.Add(genome, components.Lineage{})
	}
	return t, nil
}

// RunID identifies the run in the store.
func (t *Trainer) RunID() string { return t.run.ID }

// Generation returns the 0-based index of the next generation to evaluate.
func (t *Trainer) Generation() int { return t.generation }

// Population exposes the current generation.
func (t *Trainer) Population() *Population { return t.pop }

// Best returns the best genome seen so far and its fitness.
func (t *Trainer) Best() (*genetics.Genome, float64) { return t.best, t.bestFitness }

// Run trains for the configured number of generations and saves the winner.
func (t *Trainer) Run(ctx context.Context) (TrainingResult, error) {
	if t.store != nil {
		if err := t.store.CreateRun(ctx, t.run); err != nil {
			return TrainingResult{}, fmt.Errorf("archiving run: %w", err)
		}
	}

	for t.generation < t.generations {
		if err := ctx.Err(); err != nil {
			return TrainingResult{}, err
		}
		if _, err := t.Step(ctx); err != nil {
			return TrainingResult{}, fmt.Errorf("generation %d: %w", t.generation, err)
		}
	}

	return t.finish(ctx)
}

// Step evaluates, speciates, reports and reproduces one generation.
func (t *Trainer) Step(ctx context.Context) (telemetry.GenerationMetricsRow, error) {
	gen := t.generation
	t.perf.StartGeneration()

	t.perf.StartPhase(telemetry.PhaseEvaluate)
	evals, err := t.eval.EvaluateGeneration(gen, t.pop.Genomes())
	if err != nil {
		return telemetry.GenerationMetricsRow{}, err
	}
	t.pop.SetScores(evals)
	for i, ev := range evals {
		t.perf.AddFrames(ev.Frames)
		if ev.Fitness > t.bestFitness {
			t.best = t.pop.Member(i).Member.Genome
			t.bestFitness = ev.Fitness
			t.bestGeneration = gen
		}
	}

	t.perf.StartPhase(telemetry.PhaseSpeciate)
	t.speciate()

	t.perf.StartPhase(telemetry.PhaseReport)
	row, err := telemetry.SummarizeGeneration(gen, evals)
	if err != nil {
		return row, err
	}
	t.rows = append(t.rows, row)
	t.logGeneration(row)
	t.logSpecies()
	if err := t.report(ctx, row); err != nil {
		return row, err
	}

	t.perf.StartPhase(telemetry.PhaseReproduce)
	if err := t.reproduce(gen + 1); err != nil {
		return row, err
	}

	t.perf.EndGeneration()
	t.logPerfStats()
	if err := t.out.AppendPerf(t.profile, t.perf.Stats().ToCSV(gen)); err != nil {
		return row, err
	}

	t.generation++
	return row, nil
}

// speciate places every member into a species and closes the species' generation.
func (t *Trainer) speciate() {
	t.species.ResetMembers()
	for i := 0; i < t.pop.Len(); i++ {
		m := t.pop.Member(i)
		sid := t.species.AssignSpecies(m.Member.Genome)
		t.species.AddMember(sid, m.Member.GenomeID)
		t.species.AccumulateFitness(sid, m.Score.Fitness)
		t.pop.SetSpecies(i, sid)
	}
	t.species.RefreshRepresentatives(t.pop.ByID())
	t.species.EndGeneration()
}

// reproduce replaces the population with elites plus offspring allocated per species.
func (t *Trainer) reproduce(born int) error {
	ranked := t.pop.Ranked()
	if len(ranked) == 0 {
		return fmt.Errorf("no evaluated genomes to breed from")
	}
	byID := make(map[int]Ranked, len(ranked))
	for _, r := range ranked {
		byID[r.Member.GenomeID] = r
	}

	size := t.cfg.Training.PopulationSize
	type child struct {
		genome  *genetics.Genome
		lineage components.Lineage
	}
	next := make([]child, 0, size)

	elites := min(t.cfg.Training.EliteCount, len(ranked), size)
	for _, r := range ranked[:elites] {
		next = append(next, child{
			genome: r.Member.Genome,
			lineage: components.Lineage{
				Born:      r.Lineage.Born,
				SpeciesID: r.Lineage.SpeciesID,
				ParentA:   r.Lineage.ParentA,
				ParentB:   r.Lineage.ParentB,
				Elite:     true,
			},
		})
	}

	quotas := t.species.AllocateOffspring(size - elites)
	for k, sp := range t.species.Species {
		pool := t.breedingPool(sp, byID)
		if len(pool) == 0 {
			continue
		}
		for n := 0; n < quotas[k]; n++ {
			g, lineage, err := t.breed(pool, born)
			if err != nil {
				return err
			}
			lineage.SpeciesID = sp.ID
			t.species.RecordOffspring(sp.ID)
			next = append(next, child{genome: g, lineage: lineage})
		}
	}

	// Species without breedable members leave slots; the champion fills them.
	for len(next) < size {
		g, lineage, err := t.breed(ranked[:1], born)
		if err != nil {
			return err
		}
		next = append(next, child{genome: g, lineage: lineage})
	}

	t.pop.Clear()
	for _, c := range next {
		t.pop.Add(c.genome, c.lineage)
	}
	return nil
}

// breedingPool returns the top SurvivalThresh share of a species, best first.
func (t *Trainer) breedingPool(sp *neural.Species, byID map[int]Ranked) []Ranked {
	members := make([]Ranked, 0, len(sp.Members))
	for _, id := range sp.Members {
		if r, ok := byID[id]; ok {
			members = append(members, r)
		}
	}
	sortRanked(members)

	keep := int(math.Ceil(t.opts.SurvivalThresh * float64(len(members))))
	keep = max(1, min(keep, len(members)))
	return members[:keep]
}

// breed draws parents from pool and returns a mutated child.
func (t *Trainer) breed(pool []Ranked, born int) (*genetics.Genome, components.Lineage, error) {
	p1 := pool[t.rng.Intn(len(pool))]
	p2 := p1
	mutateOnly := t.rng.Float64() < t.opts.MutateOnlyProb
	if !mutateOnly {
		p2 = pool[t.rng.Intn(len(pool))]
	}

	g, err := neural.CreateOffspring(
		p1.Member.Genome, p2.Member.Genome,
		p1.Score.Fitness, p2.Score.Fitness,
		mutateOnly, t.idGen, t.opts, t.rng,
	)
	if err != nil {
		return nil, components.Lineage{}, err
	}
	return g, components.Lineage{
		Born:    born,
		ParentA: p1.Member.GenomeID,
		ParentB: p2.Member.GenomeID,
	}, nil
}

// finish saves the winner to disk and the archive.
func (t *Trainer) finish(ctx context.Context) (TrainingResult, error) {
	if t.best == nil {
		return TrainingResult{}, fmt.Errorf("no generation was evaluated")
	}

	brain, err := neural.NewBrainController(t.best)
	if err != nil {
		return TrainingResult{}, fmt.Errorf("winner: %w", err)
	}
	logWinner(t.profile, brain, t.bestFitness, t.bestGeneration)

	res := TrainingResult{
		RunID:            t.run.ID,
		Profile:          t.profile,
		Winner:           t.best,
		WinnerFitness:    t.bestFitness,
		WinnerGeneration: t.bestGeneration,
		Rows:             t.rows,
	}

	rec := neural.EncodeGenome(t.best, t.profile, t.observation, t.bestGeneration, t.bestFitness)
	if t.out != nil {
		res.WinnerPath = t.out.GenomePath(t.profile)
		if err := neural.SaveGenome(rec, res.WinnerPath); err != nil {
			return res, fmt.Errorf("saving winner: %w", err)
		}
	}
	if t.store != nil {
		if err := t.store.SaveGenome(ctx, t.run.ID, rec); err != nil {
			return res, fmt.Errorf("archiving winner: %w", err)
		}
	}
	return res, nil
}

// Close stops the evaluation workers.
func (t *Trainer) Close() {
	t.eval.Close()
}

// sortRanked orders best first, keeping the input order for ties.
func sortRanked(rs []Ranked) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Score.Fitness > rs[j].Score.Fitness
	})
}
