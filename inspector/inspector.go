// Package inspector draws the replay brain panel: the controlling genome's
// topology, the current observation and the action outputs.
package inspector

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/yaricom/goNEAT/v4/neat/genetics"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/systems"
)

// Panel dimensions
const (
	PanelWidth    = 320
	PanelPadding  = 10
	HeaderHeight  = 30
	NetworkHeight = 220
)

// Panel colors
var (
	ColorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	ColorPanelHeader = rl.Color{R: 45, G: 45, B: 55, A: 255}
	ColorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
	ColorHeaderText  = rl.Color{R: 255, G: 255, B: 255, A: 255}
	ColorSection     = rl.Color{R: 50, G: 50, B: 60, A: 255}
	ColorSectionText = rl.Color{R: 200, G: 200, B: 220, A: 255}
)

// OutputLabels names the action outputs in index order.
var OutputLabels = func() []string {
	labels := make([]string, systems.ActionCount)
	labels[systems.ActionRight] = "Right"
	labels[systems.ActionLeft] = "Left"
	labels[systems.ActionShoot] = "Shoot"
	return labels
}()

// BrainSource exposes the controller of a replay.
type BrainSource interface {
	Genome() *genetics.Genome
	InputLabels() []string
	// LastActivation returns the most recent observation and action vector.
	LastActivation() (observation, outputs []float64)
}

// Inspector renders the brain panel when visible.
type Inspector struct {
	visible bool
	panelX  int32
	panelY  int32

	// Layout is recomputed only when the genome changes.
	layout   NetworkLayout
	layoutOf *genetics.Genome
}

// NewInspector places the panel against the right edge of the screen.
func NewInspector(screenWidth int32) *Inspector {
	return &Inspector{
		panelX: screenWidth - PanelWidth - 10,
		panelY: 90,
	}
}

// Toggle shows or hides the panel.
func (ins *Inspector) Toggle() { ins.visible = !ins.visible }

// Visible reports whether the panel is drawn.
func (ins *Inspector) Visible() bool { return ins.visible }

// Draw renders the panel for src while the given player is in play.
func (ins *Inspector) Draw(src BrainSource, player *components.Ship) {
	if !ins.visible || src == nil {
		return
	}

	genome := src.Genome()
	obs, outputs := src.LastActivation()
	panelHeight := ins.panelHeight()

	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, panelHeight, ColorPanelBg)
	rl.DrawRectangleLinesEx(
		rl.Rectangle{X: float32(ins.panelX), Y: float32(ins.panelY), Width: PanelWidth, Height: float32(panelHeight)},
		1,
		ColorPanelBorder,
	)

	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, HeaderHeight, ColorPanelHeader)
	rl.DrawText("BRAIN", ins.panelX+PanelPadding, ins.panelY+7, 16, ColorHeaderText)

	y := ins.panelY + HeaderHeight + PanelPadding
	x := ins.panelX + PanelPadding

	if genome != nil {
		rl.DrawText(fmt.Sprintf("Genome %d  Nodes %d  Genes %d", genome.Id, len(genome.Nodes), len(genome.Genes)),
			x, y, 14, ColorHeaderText)
	}
	y += 22

	if player != nil {
		y += DrawLabel(x, y, "Position", fmt.Sprintf("(%.0f, %.0f)", player.X, player.Y))
		y += DrawLabel(x, y, "Lasers", fmt.Sprintf("%d", len(player.Lasers)))
		y += DrawBar(x, y, "Cooldown", float32(player.CoolDown), components.CooldownFrames, 0)
	}

	y += 4
	ins.drawSectionHeader(x, y, "OBSERVATION")
	y += 20
	y += DrawSignedBarGroup(x, y, "In", obs)

	y += 4
	ins.drawSectionHeader(x, y, "ACTIONS")
	y += 20
	for i, label := range OutputLabels {
		var v float32
		if i < len(outputs) {
			v = float32(outputs[i])
		}
		y += DrawBar(x, y, label, v, 1, systems.ActionThreshold)
	}

	y += 4
	ins.drawSectionHeader(x, y, "NETWORK")
	y += 20

	if genome != ins.layoutOf {
		// Labels sit left of the input column, so leave room for them.
		ins.layout = LayoutNetwork(genome, x+70, y, PanelWidth-2*PanelPadding-110, NetworkHeight)
		ins.layoutOf = genome
	}
	DrawNetworkDiagram(ins.layout, obs, outputs, src.InputLabels(), OutputLabels)
}

// drawSectionHeader renders a section title.
func (ins *Inspector) drawSectionHeader(x, y int32, title string) {
	rl.DrawRectangle(x-2, y-2, PanelWidth-2*PanelPadding+4, 18, ColorSection)
	rl.DrawText(title, x+2, y, 14, ColorSectionText)
}

// panelHeight sums the fixed rows of the panel.
func (ins *Inspector) panelHeight() int32 {
	height := HeaderHeight + PanelPadding // header
	height += 22                           // genome line
	height += 18 * 3                       // player rows
	height += 24 + 34                      // observation
	height += 24 + 18*len(OutputLabels)    // actions
	height += 24 + NetworkHeight           // network
	height += PanelPadding
	return int32(height)
}
