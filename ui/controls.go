package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Playback speed bounds in simulation steps per rendered frame.
const (
	MinSpeed = 1
	MaxSpeed = 10
)

// ControlsState is the playback state the controls edit.
type ControlsState struct {
	Speed    int
	Paused   bool
	Snapshot bool // set for one frame when a snapshot was requested
	Restart  bool // set for one frame when a restart was requested
}

// ControlsPanel renders the playback strip below the arena.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	height   int32
}

// NewControlsPanel creates a controls strip at (x, y).
func NewControlsPanel(x, y, width, height int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		height:   height,
	}
}

// ClampSpeed keeps a speed inside [MinSpeed, MaxSpeed].
func ClampSpeed(speed int) int {
	return max(MinSpeed, min(MaxSpeed, speed))
}

// Draw renders the strip and returns the updated state.
func (c *ControlsPanel) Draw(state ControlsState) ControlsState {
	t := c.renderer.Theme
	state.Snapshot = false
	state.Restart = false

	rl.DrawRectangle(c.x, c.y, c.width, c.height, t.ControlsBg)

	btnH := float32(c.height - 12)
	y := float32(c.y + 6)
	x := float32(c.x + t.Margin)

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 80, Height: btnH}, toggleText(state.Paused, "Resume", "Pause")) {
		state.Paused = !state.Paused
	}
	x += 90

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 80, Height: btnH}, "Restart") {
		state.Restart = true
	}
	x += 90

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 90, Height: btnH}, "Snapshot") {
		state.Snapshot = true
	}
	x += 140

	speed := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: 180, Height: btnH},
		"Speed", fmt.Sprintf("%dx", state.Speed),
		float32(state.Speed), MinSpeed, MaxSpeed,
	)
	state.Speed = ClampSpeed(int(speed + 0.5))

	return state
}

// DrawControls renders the key legend at the right end of the strip.
func (c *ControlsPanel) DrawControls(legend string) {
	t := c.renderer.Theme
	w := c.renderer.Measure(legend, 14)
	rl.DrawText(legend, c.x+c.width-w-t.Margin, c.y+(c.height-14)/2, 14, rl.Gray)
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
