package neural

import (
	"math"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"
)

// minSpeciesShare keeps weak species from being starved of offspring entirely.
const minSpeciesShare = 0.1

// Species represents a group of genetically similar genomes.
type Species struct {
	ID                  int
	Representative      *genetics.Genome // Used for compatibility comparisons
	Members             []int            // Genome IDs of members
	BestFitness         float64
	AvgFitness          float64
	TotalFitness        float64
	Age                 int // Generations since species was created
	Staleness           int // Generations without fitness improvement
	OffspringCount      int // Total offspring produced by this species
	GenerationOffspring int // Offspring produced this generation (reset each gen)
}

// SpeciesManager manages speciation for the population.
type SpeciesManager struct {
	Species       []*Species
	opts          *neat.Options
	nextSpeciesID int
	generation    int
}

// NewSpeciesManager creates a new species manager.
func NewSpeciesManager(opts *neat.Options) *SpeciesManager {
	return &SpeciesManager{
		Species:       make([]*Species, 0),
		opts:          opts,
		nextSpeciesID: 1,
	}
}

// AssignSpecies finds or creates a species for the given genome.
// Returns the species ID.
func (sm *SpeciesManager) AssignSpecies(genome *genetics.Genome) int {
	if genome == nil {
		return 0
	}

	for _, sp := range sm.Species {
		if sp.Representative == nil {
			continue
		}
		if GenomeCompatibility(genome, sp.Representative, sm.opts) < sm.opts.CompatThreshold {
			return sp.ID
		}
	}

	newSpecies := &Species{
		ID:             sm.nextSpeciesID,
		Representative: genome,
		Members:        make([]int, 0),
		BestFitness:    math.Inf(-1),
	}
	sm.nextSpeciesID++
	sm.Species = append(sm.Species, newSpecies)

	return newSpecies.ID
}

// GetSpecies returns the species with the given ID, or nil.
func (sm *SpeciesManager) GetSpecies(speciesID int) *Species {
	for _, sp := range sm.Species {
		if sp.ID == speciesID {
			return sp
		}
	}
	return nil
}

// GetGeneration returns the number of completed generations.
func (sm *SpeciesManager) GetGeneration() int {
	return sm.generation
}

// AddMember adds a genome to its species.
func (sm *SpeciesManager) AddMember(speciesID int, genomeID int) {
	if sp := sm.GetSpecies(speciesID); sp != nil {
		sp.Members = append(sp.Members, genomeID)
	}
}

// RemoveMember removes a genome from its species.
func (sm *SpeciesManager) RemoveMember(speciesID int, genomeID int) {
	sp := sm.GetSpecies(speciesID)
	if sp == nil {
		return
	}
	for i, id := range sp.Members {
		if id == genomeID {
			sp.Members = append(sp.Members[:i], sp.Members[i+1:]...)
			return
		}
	}
}

// ResetMembers clears every member list ahead of re-speciation. Representatives
// are kept so the next generation is compared against the previous one.
func (sm *SpeciesManager) ResetMembers() {
	for _, sp := range sm.Species {
		sp.Members = sp.Members[:0]
	}
}

// RefreshRepresentatives makes each species' first member its representative.
func (sm *SpeciesManager) RefreshRepresentatives(genomes map[int]*genetics.Genome) {
	for _, sp := range sm.Species {
		if len(sp.Members) == 0 {
			continue
		}
		if g, ok := genomes[sp.Members[0]]; ok {
			sp.Representative = g
		}
	}
}

// AccumulateFitness adds to the total fitness for a species member.
func (sm *SpeciesManager) AccumulateFitness(speciesID int, fitness float64) {
	sp := sm.GetSpecies(speciesID)
	if sp == nil {
		return
	}
	sp.TotalFitness += fitness
	if fitness > sp.BestFitness {
		sp.BestFitness = fitness
		sp.Staleness = -1 // EndGeneration brings it back to zero
	}
}

// EndGeneration processes end-of-generation updates.
// Should be called once per generation after all fitness values are set.
func (sm *SpeciesManager) EndGeneration() {
	sm.generation++

	for _, sp := range sm.Species {
		sp.Age++
		if len(sp.Members) > 0 {
			sp.AvgFitness = sp.TotalFitness / float64(len(sp.Members))
		}
		sp.Staleness++
		sp.TotalFitness = 0
		sp.GenerationOffspring = 0
	}

	sm.RemoveStaleSpecies()
}

// RecordOffspring increments the offspring count for a species.
func (sm *SpeciesManager) RecordOffspring(speciesID int) {
	if sp := sm.GetSpecies(speciesID); sp != nil {
		sp.OffspringCount++
		sp.GenerationOffspring++
	}
}

// RemoveStaleSpecies removes species that have no members or have gone too
// long without improving. The species holding the best fitness always survives.
func (sm *SpeciesManager) RemoveStaleSpecies() {
	var champion *Species
	for _, sp := range sm.Species {
		if len(sp.Members) > 0 && (champion == nil || sp.BestFitness > champion.BestFitness) {
			champion = sp
		}
	}

	active := make([]*Species, 0, len(sm.Species))
	for _, sp := range sm.Species {
		if len(sp.Members) == 0 {
			continue
		}
		if sp.Staleness < sm.opts.DropOffAge || sp == champion {
			active = append(active, sp)
		}
	}
	sm.Species = active
}

// AllocateOffspring splits total offspring across the current species in
// proportion to their normalized average fitness. The result is aligned with
// sm.Species and always sums to total when any species exists.
func (sm *SpeciesManager) AllocateOffspring(total int) []int {
	quotas := make([]int, len(sm.Species))
	if len(sm.Species) == 0 || total <= 0 {
		return quotas
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, sp := range sm.Species {
		lo = math.Min(lo, sp.AvgFitness)
		hi = math.Max(hi, sp.AvgFitness)
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	weights := make([]float64, len(sm.Species))
	sum := 0.0
	for i, sp := range sm.Species {
		weights[i] = (sp.AvgFitness-lo)/span + minSpeciesShare
		sum += weights[i]
	}

	type remainder struct {
		idx  int
		frac float64
	}
	rems := make([]remainder, len(sm.Species))
	assigned := 0
	for i, w := range weights {
		exact := float64(total) * w / sum
		quotas[i] = int(math.Floor(exact))
		assigned += quotas[i]
		rems[i] = remainder{idx: i, frac: exact - float64(quotas[i])}
	}

	// Largest remainders take the leftover slots; ties go to earlier species.
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < total; i = (i + 1) % len(rems) {
		quotas[rems[i].idx]++
		assigned++
	}
	return quotas
}

// SpeciesStats contains summary statistics about all species.
type SpeciesStats struct {
	Count            int
	TotalMembers     int
	LargestSize      int
	SmallestSize     int
	AverageStaleness float64
	Generation       int
	TotalOffspring   int
	BestFitness      float64
}

// SpeciesInfo contains display information about a single species.
type SpeciesInfo struct {
	ID                  int
	Size                int
	BestFit             float64
	AvgFit              float64
	Age                 int
	Staleness           int
	Offspring           int // Total offspring
	GenerationOffspring int // Offspring this generation
}

// GetStats returns summary statistics about species distribution.
func (sm *SpeciesManager) GetStats() SpeciesStats {
	if len(sm.Species) == 0 {
		return SpeciesStats{Generation: sm.generation}
	}

	stats := SpeciesStats{
		Count:        len(sm.Species),
		SmallestSize: math.MaxInt,
		Generation:   sm.generation,
		BestFitness:  math.Inf(-1),
	}

	totalStaleness := 0
	for _, sp := range sm.Species {
		size := len(sp.Members)
		stats.TotalMembers += size
		stats.TotalOffspring += sp.OffspringCount
		stats.BestFitness = math.Max(stats.BestFitness, sp.BestFitness)
		stats.LargestSize = max(stats.LargestSize, size)
		if size > 0 {
			stats.SmallestSize = min(stats.SmallestSize, size)
		}
		totalStaleness += sp.Staleness
	}

	stats.AverageStaleness = float64(totalStaleness) / float64(stats.Count)
	if stats.SmallestSize == math.MaxInt {
		stats.SmallestSize = 0
	}
	return stats
}

// GetTopSpecies returns info about the top N species by size.
func (sm *SpeciesManager) GetTopSpecies(n int) []SpeciesInfo {
	if len(sm.Species) == 0 {
		return nil
	}

	sorted := make([]*Species, len(sm.Species))
	copy(sorted, sm.Species)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Members) > len(sorted[j].Members)
	})

	n = min(n, len(sorted))
	result := make([]SpeciesInfo, n)
	for i, sp := range sorted[:n] {
		result[i] = SpeciesInfo{
			ID:                  sp.ID,
			Size:                len(sp.Members),
			BestFit:             sp.BestFitness,
			AvgFit:              sp.AvgFitness,
			Age:                 sp.Age,
			Staleness:           sp.Staleness,
			Offspring:           sp.OffspringCount,
			GenerationOffspring: sp.GenerationOffspring,
		}
	}
	return result
}
