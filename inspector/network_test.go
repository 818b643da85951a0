package inspector

import (
	"math/rand"
	"testing"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
	"github.com/yaricom/goNEAT/v4/neat/network"

	"github.com/pthm-cable/invaders/neural"
)

func TestLayoutNetworkLayers(t *testing.T) {
	in1 := network.NewNNode(1, network.InputNeuron)
	in2 := network.NewNNode(2, network.BiasNeuron)
	h1 := network.NewNNode(3, network.HiddenNeuron)
	h2 := network.NewNNode(4, network.HiddenNeuron)
	out := network.NewNNode(5, network.OutputNeuron)

	disabled := genetics.NewGeneWithTrait(nil, 1, in2, out, false, 5, 0)
	disabled.IsEnabled = false
	genome := genetics.NewGenome(1, nil,
		[]*network.NNode{in1, in2, h1, h2, out},
		[]*genetics.Gene{
			genetics.NewGeneWithTrait(nil, 0.5, in1, h1, false, 1, 0),
			genetics.NewGeneWithTrait(nil, -0.7, h1, h2, false, 2, 0),
			genetics.NewGeneWithTrait(nil, 1.2, h2, out, false, 3, 0),
			genetics.NewGeneWithTrait(nil, 0.3, in2, h2, false, 4, 0),
			disabled,
		},
	)

	l := LayoutNetwork(genome, 0, 0, 400, 200)
	if l.Layers != 4 {
		t.Fatalf("layers = %d, want 4", l.Layers)
	}
	want := map[int]struct {
		role  NodeRole
		layer int
		index int
	}{
		1: {RoleInput, 0, 0},
		2: {RoleInput, 0, 1},
		3: {RoleHidden, 1, 0},
		4: {RoleHidden, 2, 0},
		5: {RoleOutput, 3, 0},
	}
	for _, n := range l.Nodes {
		w := want[n.ID]
		if n.Role != w.role || n.Layer != w.layer {
			t.Errorf("node %d: role=%d layer=%d, want role=%d layer=%d", n.ID, n.Role, n.Layer, w.role, w.layer)
		}
		if n.Role != RoleHidden && n.Index != w.index {
			t.Errorf("node %d: index=%d, want %d", n.ID, n.Index, w.index)
		}
		if n.X < 0 || n.X > 400 || n.Y < 0 || n.Y > 200 {
			t.Errorf("node %d at (%v, %v) outside the rectangle", n.ID, n.X, n.Y)
		}
	}
	if len(l.Edges) != 4 {
		t.Errorf("edges = %d, want 4 (disabled gene skipped)", len(l.Edges))
	}
}

func TestLayoutNetworkSeedGenome(t *testing.T) {
	genome := neural.CreateBrainGenome(1, neural.NearestInputs, neural.ActionOutputs, 1, rand.New(rand.NewSource(1)))
	l := LayoutNetwork(genome, 10, 10, 300, 220)
	if l.Layers != 2 {
		t.Errorf("layers = %d, want 2 without hidden nodes", l.Layers)
	}
	inputs, outputs := 0, 0
	for _, n := range l.Nodes {
		switch n.Role {
		case RoleInput:
			inputs++
		case RoleOutput:
			outputs++
		}
	}
	if inputs != neural.NearestInputs || outputs != neural.ActionOutputs {
		t.Errorf("inputs=%d outputs=%d", inputs, outputs)
	}
	if len(l.Edges) != neural.NearestInputs*neural.ActionOutputs {
		t.Errorf("edges = %d, want fully connected", len(l.Edges))
	}
}

func TestLayoutNetworkNil(t *testing.T) {
	if l := LayoutNetwork(nil, 0, 0, 100, 100); len(l.Nodes) != 0 || l.Layers != 0 {
		t.Errorf("nil genome laid out as %+v", l)
	}
}

func TestOutputLabels(t *testing.T) {
	if len(OutputLabels) != 3 || OutputLabels[0] != "Right" || OutputLabels[2] != "Shoot" {
		t.Errorf("labels = %v", OutputLabels)
	}
}
