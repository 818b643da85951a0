// Package game drives episodes and training: seeded episode runs, parallel
// genome evaluation, the generational NEAT loop, benchmarks, the
// reward-profile experiment and replay of saved genomes.
package game

import (
	"sort"

	"github.com/mlange-42/ark/ecs"
	"github.com/yaricom/goNEAT/v4/neat/genetics"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/telemetry"
)

// Population holds one generation of genomes as entities in an ECS world.
// Member order is insertion order and is what evaluation results align with.
type Population struct {
	world *ecs.World

	memberMapper *ecs.Map3[
		components.Member,
		components.Score,
		components.Lineage,
	]
	memberFilter *ecs.Filter3[
		components.Member,
		components.Score,
		components.Lineage,
	]

	// Individual component mappers for lookups
	memberMap  *ecs.Map1[components.Member]
	scoreMap   *ecs.Map1[components.Score]
	lineageMap *ecs.Map1[components.Lineage]

	order []ecs.Entity
}

// Ranked is a member snapshot used for selection.
type Ranked struct {
	Member  components.Member
	Score   components.Score
	Lineage components.Lineage
}

// NewPopulation creates an empty population.
func NewPopulation() *Population {
	world := ecs.NewWorld()
	return &Population{
		world: world,
		memberMapper: ecs.NewMap3[
			components.Member,
			components.Score,
			components.Lineage,
		](world),
		memberFilter: ecs.NewFilter3[
			components.Member,
			components.Score,
			components.Lineage,
		](world),
		memberMap:  ecs.NewMap1[components.Member](world),
		scoreMap:   ecs.NewMap1[components.Score](world),
		lineageMap: ecs.NewMap1[components.Lineage](world),
	}
}

// Add appends a genome with its lineage.
func (p *Population) Add(genome *genetics.Genome, lineage components.Lineage) ecs.Entity {
	member := components.Member{GenomeID: genome.Id, Genome: genome}
	score := components.Score{}
	entity := p.memberMapper.NewEntity(&member, &score, &lineage)
	p.order = append(p.order, entity)
	return entity
}

// Len returns the number of members.
func (p *Population) Len() int { return len(p.order) }

// Genomes returns the genomes in member order.
func (p *Population) Genomes() []*genetics.Genome {
	out := make([]*genetics.Genome, len(p.order))
	for i, e := range p.order {
		out[i] = p.memberMap.Get(e).Genome
	}
	return out
}

// ByID maps genome IDs to genomes.
func (p *Population) ByID() map[int]*genetics.Genome {
	out := make(map[int]*genetics.Genome, len(p.order))
	query := p.memberFilter.Query()
	for query.Next() {
		member, _, _ := query.Get()
		out[member.GenomeID] = member.Genome
	}
	return out
}

// SetScores records evaluations aligned with member order.
func (p *Population) SetScores(evals []telemetry.GenomeEvaluation) {
	for i, ev := range evals {
		if i >= len(p.order) {
			return
		}
		score := p.scoreMap.Get(p.order[i])
		score.Fitness = ev.Fitness
		score.MeanLives = ev.MeanLives
		score.SurvivedLast = ev.SurvivedLast
		score.Evaluated = true
	}
}

// SetSpecies tags member i with a species.
func (p *Population) SetSpecies(i, speciesID int) {
	p.lineageMap.Get(p.order[i]).SpeciesID = speciesID
}

// Member returns the snapshot of member i.
func (p *Population) Member(i int) Ranked {
	e := p.order[i]
	return Ranked{
		Member:  *p.memberMap.Get(e),
		Score:   *p.scoreMap.Get(e),
		Lineage: *p.lineageMap.Get(e),
	}
}

// Ranked returns evaluated members best-first. Ties keep member order.
func (p *Population) Ranked() []Ranked {
	out := make([]Ranked, 0, len(p.order))
	for i := range p.order {
		r := p.Member(i)
		if r.Score.Evaluated {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score.Fitness > out[j].Score.Fitness
	})
	return out
}

// EvaluatedCount returns how many members carry a score.
func (p *Population) EvaluatedCount() int {
	n := 0
	query := p.memberFilter.Query()
	for query.Next() {
		_, score, _ := query.Get()
		if score.Evaluated {
			n++
		}
	}
	return n
}

// Clear removes every member.
func (p *Population) Clear() {
	for _, e := range p.order {
		p.world.RemoveEntity(e)
	}
	p.order = p.order[:0]
}
