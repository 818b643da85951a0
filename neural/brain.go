// Package neural provides the observation builders and the evolved NEAT
// controllers that play episodes, plus the genetic operators that breed them.
package neural

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// fallbackDepth is used when the network depth cannot be measured.
const fallbackDepth = 5

// BrainController wraps a goNEAT network for runtime evaluation.
// It is not safe for concurrent use; each episode worker builds its own.
type BrainController struct {
	Genome  *genetics.Genome
	network *network.Network
	inputs  int
	depth   int
}

// NewBrainController creates a controller from a genome.
func NewBrainController(genome *genetics.Genome) (*BrainController, error) {
	if genome == nil {
		return nil, errors.New("nil genome")
	}
	b := &BrainController{Genome: genome}
	if err := b.RebuildNetwork(); err != nil {
		return nil, err
	}
	return b, nil
}

// Activate feeds one observation through the network and returns its outputs.
// Network state is flushed afterwards so each frame is evaluated independently.
func (b *BrainController) Activate(observation []float64) ([]float64, error) {
	if len(observation) != b.inputs {
		return nil, fmt.Errorf("expected %d inputs, got %d", b.inputs, len(observation))
	}

	if err := b.network.LoadSensors(observation); err != nil {
		return nil, fmt.Errorf("failed to load sensors: %w", err)
	}

	for i := 0; i < b.depth; i++ {
		if _, err := b.network.Activate(); err != nil {
			return nil, fmt.Errorf("activation failed: %w", err)
		}
	}

	outputs := b.network.ReadOutputs()

	if _, err := b.network.Flush(); err != nil {
		return nil, fmt.Errorf("flush failed: %w", err)
	}

	return outputs, nil
}

// RebuildNetwork recreates the phenotype network from the genome.
// Call this after the genome has been mutated.
func (b *BrainController) RebuildNetwork() error {
	phenotype, err := b.Genome.Genesis(b.Genome.Id)
	if err != nil {
		return fmt.Errorf("failed to build network from genome %d: %w", b.Genome.Id, err)
	}

	depth, err := phenotype.MaxActivationDepth()
	if err != nil || depth < 1 {
		depth = fallbackDepth
	}

	b.network = phenotype
	b.inputs = countInputs(b.Genome)
	b.depth = depth
	return nil
}

// NodeCount returns the number of nodes in the network.
func (b *BrainController) NodeCount() int {
	return b.network.NodeCount()
}

// LinkCount returns the number of links (connections) in the network.
func (b *BrainController) LinkCount() int {
	return b.network.LinkCount()
}

func countInputs(genome *genetics.Genome) int {
	n := 0
	for _, node := range genome.Nodes {
		if node.NeuronType == network.InputNeuron || node.NeuronType == network.BiasNeuron {
			n++
		}
	}
	return n
}

// CreateBrainGenome creates a starting genome with inputs sensors and outputs
// actuators. Each input-output pair is connected with probability
// connectionProb; innovation numbers are assigned for every pair so that
// independently created genomes align during crossover.
func CreateBrainGenome(id, inputs, outputs int, connectionProb float64, rng *rand.Rand) *genetics.Genome {
	nodes := make([]*network.NNode, 0, inputs+outputs)

	// Input nodes (IDs 1 to inputs)
	for i := 1; i <= inputs; i++ {
		node := network.NewNNode(i, network.InputNeuron)
		node.ActivationType = neatmath.LinearActivation
		nodes = append(nodes, node)
	}

	// Output nodes (IDs inputs+1 to inputs+outputs)
	for i := 1; i <= outputs; i++ {
		node := network.NewNNode(inputs+i, network.OutputNeuron)
		node.ActivationType = neatmath.SigmoidSteepenedActivation
		nodes = append(nodes, node)
	}

	genes := make([]*genetics.Gene, 0)
	for i := 0; i < inputs; i++ {
		for j := 0; j < outputs; j++ {
			innov := seedInnovation(i, j, outputs)
			if rng.Float64() < connectionProb {
				gene := genetics.NewGeneWithTrait(
					nil,
					rng.Float64()*4-2,
					nodes[i],
					nodes[inputs+j],
					false,
					innov,
					0,
				)
				genes = append(genes, gene)
			}
		}
	}

	// Every output needs at least one incoming link or the phenotype has a
	// dangling actuator.
	for j := 0; j < outputs; j++ {
		if hasIncoming(genes, nodes[inputs+j].Id) {
			continue
		}
		i := rng.Intn(inputs)
		gene := genetics.NewGeneWithTrait(
			nil,
			rng.Float64()*2-1,
			nodes[i],
			nodes[inputs+j],
			false,
			seedInnovation(i, j, outputs),
			0,
		)
		genes = append(genes, gene)
	}

	return genetics.NewGenome(id, nil, nodes, genes)
}

// seedInnovation numbers the initial input-output links. They stay below
// initialInnovNum so structural mutations never collide with them.
func seedInnovation(input, output, outputs int) int64 {
	return int64(input*outputs+output) + 1
}

func hasIncoming(genes []*genetics.Gene, nodeID int) bool {
	for _, gene := range genes {
		if gene.Link.OutNode.Id == nodeID {
			return true
		}
	}
	return false
}
