package inspector

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/yaricom/goNEAT/v4/neat/genetics"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// NetworkColors for activation visualization.
var (
	ColorNodeInactive = rl.Color{R: 60, G: 60, B: 60, A: 255}
	ColorEdgePositive = rl.Color{R: 200, G: 80, B: 80, A: 100}
	ColorEdgeNegative = rl.Color{R: 80, G: 80, B: 200, A: 100}
	ColorLabelDim     = rl.Color{R: 120, G: 120, B: 120, A: 255}
)

const (
	nodeRadius    = 5
	layoutMargin  = 10
	minEdgeWeight = 0.1
)

// NodeRole places a node in the diagram.
type NodeRole uint8

const (
	RoleInput NodeRole = iota
	RoleHidden
	RoleOutput
)

// NodePos is one laid-out node. Index is the node's position among nodes of
// the same role in genome order, which matches sensor and output order.
type NodePos struct {
	ID    int
	Role  NodeRole
	Index int
	Layer int
	X, Y  float32
}

// EdgePos is one enabled connection.
type EdgePos struct {
	From, To int // indexes into NetworkLayout.Nodes
	Weight   float64
}

// NetworkLayout is a layered drawing of a genome: inputs in the first column,
// outputs in the last, hidden nodes by their longest path from an input.
type NetworkLayout struct {
	Nodes  []NodePos
	Edges  []EdgePos
	Layers int
}

// LayoutNetwork positions the genome's nodes inside the rectangle.
func LayoutNetwork(genome *genetics.Genome, x, y, width, height int32) NetworkLayout {
	var l NetworkLayout
	if genome == nil {
		return l
	}

	index := make(map[int]int, len(genome.Nodes))
	var inputs, outputs int
	for _, n := range genome.Nodes {
		pos := NodePos{ID: n.Id, Role: RoleHidden}
		switch n.NeuronType {
		case network.InputNeuron, network.BiasNeuron:
			pos.Role, pos.Index = RoleInput, inputs
			inputs++
		case network.OutputNeuron:
			pos.Role, pos.Index = RoleOutput, outputs
			outputs++
		}
		index[n.Id] = len(l.Nodes)
		l.Nodes = append(l.Nodes, pos)
	}

	for _, g := range genome.Genes {
		if !g.IsEnabled || g.Link == nil || g.Link.IsRecurrent {
			continue
		}
		from, ok1 := index[g.Link.InNode.Id]
		to, ok2 := index[g.Link.OutNode.Id]
		if !ok1 || !ok2 {
			continue
		}
		l.Edges = append(l.Edges, EdgePos{From: from, To: to, Weight: g.Link.ConnectionWeight})
	}

	// Longest-path depth for hidden nodes. Bounded relaxation so a cycle
	// among hidden nodes cannot loop forever.
	depth := make([]int, len(l.Nodes))
	for range l.Nodes {
		changed := false
		for _, e := range l.Edges {
			if l.Nodes[e.To].Role != RoleHidden {
				continue
			}
			if d := depth[e.From] + 1; d > depth[e.To] && d < len(l.Nodes) {
				depth[e.To] = d
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	maxHidden := 0
	for i, n := range l.Nodes {
		if n.Role == RoleHidden {
			depth[i] = max(1, depth[i])
			maxHidden = max(maxHidden, depth[i])
		}
	}
	l.Layers = maxHidden + 2
	for i := range l.Nodes {
		switch l.Nodes[i].Role {
		case RoleInput:
			l.Nodes[i].Layer = 0
		case RoleOutput:
			l.Nodes[i].Layer = l.Layers - 1
		default:
			l.Nodes[i].Layer = depth[i]
		}
	}

	// Spread each column vertically in genome order.
	counts := make([]int, l.Layers)
	for _, n := range l.Nodes {
		counts[n.Layer]++
	}
	slot := make([]int, l.Layers)
	colWidth := float32(width-2*layoutMargin) / float32(l.Layers)
	usable := float32(height - 2*layoutMargin)
	for i := range l.Nodes {
		n := &l.Nodes[i]
		spacing := usable / float32(counts[n.Layer])
		n.X = float32(x+layoutMargin) + colWidth*(float32(n.Layer)+0.5)
		n.Y = float32(y+layoutMargin) + spacing*(float32(slot[n.Layer])+0.5)
		slot[n.Layer]++
	}
	return l
}

// DrawNetworkDiagram renders the layout. inputs and outputs color the sensor
// and output nodes; hidden nodes are drawn inactive.
func DrawNetworkDiagram(l NetworkLayout, inputs, outputs []float64, inputLabels, outputLabels []string) {
	if len(l.Nodes) == 0 {
		rl.DrawText("No network data", layoutMargin, layoutMargin, 14, ColorLabelDim)
		return
	}

	for _, e := range l.Edges {
		if math.Abs(e.Weight) < minEdgeWeight {
			continue
		}
		from, to := l.Nodes[e.From], l.Nodes[e.To]
		drawEdge(rl.Vector2{X: from.X, Y: from.Y}, rl.Vector2{X: to.X, Y: to.Y}, float32(e.Weight))
	}

	for _, n := range l.Nodes {
		pos := rl.Vector2{X: n.X, Y: n.Y}
		switch n.Role {
		case RoleInput:
			drawNode(pos, nodeRadius, valueAt(inputs, n.Index))
			if n.Index < len(inputLabels) {
				label := inputLabels[n.Index]
				w := rl.MeasureText(label, 10)
				rl.DrawText(label, int32(n.X-nodeRadius)-w-4, int32(n.Y)-5, 10, ColorLabelDim)
			}
		case RoleOutput:
			drawNode(pos, nodeRadius+2, valueAt(outputs, n.Index))
			if n.Index < len(outputLabels) {
				rl.DrawText(outputLabels[n.Index], int32(n.X+nodeRadius+6), int32(n.Y)-5, 10, ColorLabelDim)
			}
		default:
			rl.DrawCircleV(pos, nodeRadius, ColorNodeInactive)
		}
	}
}

func valueAt(values []float64, i int) float32 {
	if i < 0 || i >= len(values) {
		return 0
	}
	return float32(values[i])
}

// drawNode renders a single neuron node.
func drawNode(pos rl.Vector2, radius, activation float32) {
	color := activationColor(activation)
	rl.DrawCircleV(pos, radius, color)
	rl.DrawCircleLinesV(pos, radius, rl.Color{R: 100, G: 100, B: 100, A: 255})
}

// drawEdge renders a connection between nodes.
func drawEdge(from, to rl.Vector2, weight float32) {
	thickness := min(3, max(0.5, absFloat(weight)*1.5))

	color := ColorEdgePositive
	if weight < 0 {
		color = ColorEdgeNegative
	}
	// Adjust alpha based on weight magnitude
	color.A = uint8(min(150, 40+int(absFloat(weight)*40)))

	rl.DrawLineEx(from, to, thickness, color)
}

// activationColor returns a color based on activation value.
// Negative = blue, Zero = gray, Positive = red.
func activationColor(activation float32) rl.Color {
	if activation > 0 {
		t := min(activation, 1)
		return rl.Color{
			R: uint8(60 + t*195),
			G: uint8(60 - t*30),
			B: uint8(60 - t*30),
			A: 255,
		}
	}
	t := min(-activation, 1)
	return rl.Color{
		R: uint8(60 - t*30),
		G: uint8(60 - t*30),
		B: uint8(60 + t*195),
		A: 255,
	}
}

func absFloat(x float32) float32 {
	return float32(math.Abs(float64(x)))
}
