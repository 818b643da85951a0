package neural

import (
	"math/rand"
	"testing"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
)

func newGenome(id int, seed int64) *genetics.Genome {
	return CreateBrainGenome(id, NearestInputs, ActionOutputs, 0.5, rand.New(rand.NewSource(seed)))
}

func TestNewSpeciesManager(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())

	if len(sm.Species) != 0 {
		t.Errorf("expected 0 species, got %d", len(sm.Species))
	}
	if sm.GetGeneration() != 0 {
		t.Errorf("expected generation 0, got %d", sm.GetGeneration())
	}
}

func TestSpeciesManagerAssignSpecies(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())

	genome1 := newGenome(1, 1)
	speciesID := sm.AssignSpecies(genome1)
	if speciesID == 0 {
		t.Error("expected non-zero species ID")
	}
	if len(sm.Species) != 1 {
		t.Errorf("expected 1 species, got %d", len(sm.Species))
	}

	// Same genome should get same species
	if again := sm.AssignSpecies(genome1); again != speciesID {
		t.Errorf("same genome should get same species: %d != %d", again, speciesID)
	}

	if sm.AssignSpecies(nil) != 0 {
		t.Error("nil genome should not be assigned")
	}
}

func TestAssignSpeciesSplitsDistantGenomes(t *testing.T) {
	opts := DefaultNEATOptions()
	opts.CompatThreshold = 0.01
	sm := NewSpeciesManager(opts)

	a := newGenome(1, 1)
	b, _ := CloneGenome(a, 2)
	for _, gene := range b.Genes {
		gene.Link.ConnectionWeight += 1
	}

	if sm.AssignSpecies(a) == sm.AssignSpecies(b) {
		t.Error("genomes beyond the threshold should land in different species")
	}
}

func TestSpeciesMembers(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	speciesID := sm.AssignSpecies(newGenome(1, 1))

	sm.AddMember(speciesID, 100)
	sm.AddMember(speciesID, 101)
	sm.AddMember(speciesID, 102)

	sp := sm.GetSpecies(speciesID)
	if sp == nil {
		t.Fatal("species not found")
	}
	if len(sp.Members) != 3 {
		t.Errorf("expected 3 members, got %d", len(sp.Members))
	}

	sm.RemoveMember(speciesID, 101)
	if len(sp.Members) != 2 || sp.Members[0] != 100 || sp.Members[1] != 102 {
		t.Errorf("unexpected members after removal: %v", sp.Members)
	}

	sm.ResetMembers()
	if len(sp.Members) != 0 {
		t.Errorf("expected no members after reset, got %v", sp.Members)
	}
	if sp.Representative == nil {
		t.Error("reset should keep the representative")
	}
}

func TestRefreshRepresentatives(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	first := newGenome(1, 1)
	speciesID := sm.AssignSpecies(first)

	next, _ := CloneGenome(first, 2)
	sm.AddMember(speciesID, next.Id)
	sm.RefreshRepresentatives(map[int]*genetics.Genome{next.Id: next})

	if sm.GetSpecies(speciesID).Representative != next {
		t.Error("representative should be the first member of the new generation")
	}
}

func TestSpeciesFitness(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	speciesID := sm.AssignSpecies(newGenome(1, 1))
	sm.AddMember(speciesID, 1)
	sm.AddMember(speciesID, 2)

	sm.AccumulateFitness(speciesID, -4.0)
	sm.AccumulateFitness(speciesID, 20.0)

	sp := sm.GetSpecies(speciesID)
	if sp.BestFitness != 20.0 {
		t.Errorf("expected best fitness 20, got %f", sp.BestFitness)
	}
	if sp.TotalFitness != 16.0 {
		t.Errorf("expected total fitness 16, got %f", sp.TotalFitness)
	}

	sm.EndGeneration()
	if sp.AvgFitness != 8.0 {
		t.Errorf("expected average fitness 8, got %f", sp.AvgFitness)
	}
	if sp.TotalFitness != 0 {
		t.Errorf("total fitness should be reset to 0, got %f", sp.TotalFitness)
	}
	if sp.Staleness != 0 {
		t.Errorf("improving species should not be stale, got %d", sp.Staleness)
	}
	if sp.Age != 1 {
		t.Errorf("species age should be 1, got %d", sp.Age)
	}
}

func TestNegativeFitnessCountsAsImprovement(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	speciesID := sm.AssignSpecies(newGenome(1, 1))
	sm.AddMember(speciesID, 1)

	sm.AccumulateFitness(speciesID, -3)
	if got := sm.GetSpecies(speciesID).BestFitness; got != -3 {
		t.Errorf("first fitness should set the best even when negative, got %f", got)
	}
}

func TestRecordOffspring(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	speciesID := sm.AssignSpecies(newGenome(1, 1))

	for i := 0; i < 3; i++ {
		sm.RecordOffspring(speciesID)
	}

	sp := sm.GetSpecies(speciesID)
	if sp.OffspringCount != 3 || sp.GenerationOffspring != 3 {
		t.Errorf("expected 3 offspring, got total=%d gen=%d", sp.OffspringCount, sp.GenerationOffspring)
	}
}

func TestRemoveStaleSpecies(t *testing.T) {
	opts := DefaultNEATOptions()
	opts.DropOffAge = 3
	opts.CompatThreshold = 0.01
	sm := NewSpeciesManager(opts)

	champ := newGenome(1, 1)
	other, _ := CloneGenome(champ, 2)
	for _, gene := range other.Genes {
		gene.Link.ConnectionWeight += 1
	}
	champID := sm.AssignSpecies(champ)
	otherID := sm.AssignSpecies(other)
	sm.AccumulateFitness(champID, 10)
	sm.AccumulateFitness(otherID, 5)

	for i := 0; i < 5; i++ {
		sm.ResetMembers()
		sm.AddMember(champID, 1)
		sm.AddMember(otherID, 2)
		sm.EndGeneration()
	}

	if sm.GetSpecies(otherID) != nil {
		t.Error("stale species should be removed")
	}
	if sm.GetSpecies(champID) == nil {
		t.Error("the species holding the best fitness must survive")
	}
}

func TestEndGenerationDropsEmptySpecies(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	sm.AssignSpecies(newGenome(1, 1))
	sm.EndGeneration()

	if len(sm.Species) != 0 {
		t.Errorf("expected empty species to be dropped, got %d", len(sm.Species))
	}
}

func TestAllocateOffspring(t *testing.T) {
	tests := []struct {
		name  string
		avgs  []float64
		total int
		want  []int
	}{
		{"single species", []float64{3}, 10, []int{10}},
		{"equal fitness", []float64{1, 1}, 10, []int{5, 5}},
		{"fitter gets more", []float64{0, 10}, 12, []int{1, 11}},
		{"negative fitness", []float64{-10, 0}, 12, []int{1, 11}},
		{"nothing to allocate", []float64{1, 2}, 0, []int{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewSpeciesManager(DefaultNEATOptions())
			for i, avg := range tt.avgs {
				sm.Species = append(sm.Species, &Species{ID: i + 1, AvgFitness: avg})
			}

			got := sm.AllocateOffspring(tt.total)
			sum := 0
			for i := range got {
				sum += got[i]
				if got[i] != tt.want[i] {
					t.Errorf("quota[%d] = %d, want %d (all: %v)", i, got[i], tt.want[i], got)
				}
			}
			if sum != tt.total {
				t.Errorf("quotas sum to %d, want %d", sum, tt.total)
			}
		})
	}
}

func TestSpeciesStats(t *testing.T) {
	opts := DefaultNEATOptions()
	opts.CompatThreshold = 0.01
	sm := NewSpeciesManager(opts)

	base := newGenome(1, 1)
	for i := 0; i < 3; i++ {
		g, _ := CloneGenome(base, i+1)
		for _, gene := range g.Genes {
			gene.Link.ConnectionWeight += float64(i)
		}
		speciesID := sm.AssignSpecies(g)
		for j := 0; j <= i; j++ {
			sm.AddMember(speciesID, i*10+j)
		}
		sm.AccumulateFitness(speciesID, float64(i))
	}

	stats := sm.GetStats()
	if stats.Count != 3 {
		t.Errorf("expected 3 species, got %d", stats.Count)
	}
	if stats.TotalMembers != 6 || stats.LargestSize != 3 || stats.SmallestSize != 1 {
		t.Errorf("unexpected size stats: %+v", stats)
	}
	if stats.BestFitness != 2 {
		t.Errorf("expected best fitness 2, got %f", stats.BestFitness)
	}

	top := sm.GetTopSpecies(2)
	if len(top) != 2 {
		t.Fatalf("expected 2 top species, got %d", len(top))
	}
	if top[0].Size != 3 || top[1].Size != 2 {
		t.Errorf("top species not sorted by size: %+v", top)
	}
}

func BenchmarkAssignSpecies(b *testing.B) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	rng := rand.New(rand.NewSource(42))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		genome := CreateBrainGenome(i, NearestInputs, ActionOutputs, 0.3, rng)
		_ = sm.AssignSpecies(genome)
	}
}
