package components

import "github.com/yaricom/goNEAT/v4/neat/genetics"

// Member is a genome's identity in the training population.
type Member struct {
	GenomeID int
	Genome   *genetics.Genome
}

// Score holds a member's latest evaluation.
type Score struct {
	Fitness      float64 // mean over episodes
	MeanLives    float64
	SurvivedLast bool
	Evaluated    bool
}

// Lineage records where a member came from.
type Lineage struct {
	Born      int // generation the genome first appeared in
	SpeciesID int // 0 until speciated
	ParentA   int // 0 for seed genomes
	ParentB   int // equal to ParentA for clones
	Elite     bool
}
