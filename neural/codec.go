package neural

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// GenomeFormatVersion is incremented when GenomeRecord changes incompatibly.
const GenomeFormatVersion = 1

// GenomeRecord is the on-disk form of a trained controller.
type GenomeRecord struct {
	Version     int          `json:"version"`
	ID          int          `json:"id"`
	Profile     string       `json:"profile,omitempty"`
	Observation string       `json:"observation"`
	Generation  int          `json:"generation"`
	Fitness     float64      `json:"fitness"`
	Nodes       []NodeRecord `json:"nodes"`
	Genes       []GeneRecord `json:"genes"`
}

// NodeRecord is one neuron.
type NodeRecord struct {
	ID         int                         `json:"id"`
	Type       network.NodeNeuronType      `json:"type"`
	Activation neatmath.NodeActivationType `json:"activation"`
}

// GeneRecord is one connection gene.
type GeneRecord struct {
	In         int     `json:"in"`
	Out        int     `json:"out"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
	Recurrent  bool    `json:"recurrent,omitempty"`
	Innovation int64   `json:"innovation"`
	Mutation   float64 `json:"mutation,omitempty"`
}

// EncodeGenome captures a genome and its training context.
func EncodeGenome(genome *genetics.Genome, profile, observation string, generation int, fitness float64) *GenomeRecord {
	rec := &GenomeRecord{
		Version:     GenomeFormatVersion,
		ID:          genome.Id,
		Profile:     profile,
		Observation: observation,
		Generation:  generation,
		Fitness:     fitness,
		Nodes:       make([]NodeRecord, 0, len(genome.Nodes)),
		Genes:       make([]GeneRecord, 0, len(genome.Genes)),
	}
	for _, node := range genome.Nodes {
		rec.Nodes = append(rec.Nodes, NodeRecord{
			ID:         node.Id,
			Type:       node.NeuronType,
			Activation: node.ActivationType,
		})
	}
	for _, gene := range genome.Genes {
		rec.Genes = append(rec.Genes, GeneRecord{
			In:         gene.Link.InNode.Id,
			Out:        gene.Link.OutNode.Id,
			Weight:     gene.Link.ConnectionWeight,
			Enabled:    gene.IsEnabled,
			Recurrent:  gene.Link.IsRecurrent,
			Innovation: gene.InnovationNum,
			Mutation:   gene.MutationNum,
		})
	}
	return rec
}

// Genome rebuilds the goNEAT genome described by the record.
func (r *GenomeRecord) Genome() (*genetics.Genome, error) {
	if r.Version != GenomeFormatVersion {
		return nil, fmt.Errorf("genome format version %d, want %d", r.Version, GenomeFormatVersion)
	}
	if len(r.Nodes) == 0 {
		return nil, errors.New("genome has no nodes")
	}

	nodes := make([]*network.NNode, 0, len(r.Nodes))
	byID := make(map[int]*network.NNode, len(r.Nodes))
	for _, n := range r.Nodes {
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		node := network.NewNNode(n.ID, n.Type)
		node.ActivationType = n.Activation
		byID[n.ID] = node
		nodes = append(nodes, node)
	}

	genes := make([]*genetics.Gene, 0, len(r.Genes))
	for _, g := range r.Genes {
		in, ok := byID[g.In]
		if !ok {
			return nil, fmt.Errorf("gene %d: unknown input node %d", g.Innovation, g.In)
		}
		out, ok := byID[g.Out]
		if !ok {
			return nil, fmt.Errorf("gene %d: unknown output node %d", g.Innovation, g.Out)
		}
		gene := genetics.NewGeneWithTrait(nil, g.Weight, in, out, g.Recurrent, g.Innovation, g.Mutation)
		gene.IsEnabled = g.Enabled
		genes = append(genes, gene)
	}

	return genetics.NewGenome(r.ID, nil, nodes, genes), nil
}

// MarshalGenome encodes a genome record as indented JSON.
func MarshalGenome(rec *GenomeRecord) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}

// UnmarshalGenome decodes a genome record.
func UnmarshalGenome(data []byte) (*GenomeRecord, error) {
	var rec GenomeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal genome: %w", err)
	}
	return &rec, nil
}

// SaveGenome writes a genome record to path, creating parent directories.
func SaveGenome(rec *GenomeRecord, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create genome dir: %w", err)
		}
	}
	data, err := MarshalGenome(rec)
	if err != nil {
		return fmt.Errorf("marshal genome: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write genome: %w", err)
	}
	return nil
}

// LoadGenome reads a genome record from path.
func LoadGenome(path string) (*GenomeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genome: %w", err)
	}
	return UnmarshalGenome(data)
}
