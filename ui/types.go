// Package ui draws the replay overlays: the stats panels, the boss health bar
// and the playback controls.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// StatRow is one label/value line of a stats panel.
type StatRow struct {
	Label      string
	Value      string
	ValueColor rl.Color
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg      rl.Color
	LabelColor   rl.Color
	ValueColor   rl.Color
	RightAccent  rl.Color
	BorderAlpha  uint8
	BossLabel    rl.Color
	BossBarBg    rl.Color
	BossBarFill  rl.Color
	BossBarEdge  rl.Color
	ControlsBg   rl.Color
	Margin       int32
	PadX         int32
	PadY         int32
	RowGap       int32
	LabelGap     int32
	Roundness    float32
	FontSize     int32
	BossFontSize int32
	BossBarW     int32
	BossBarH     int32
	BossLabelY   int32
	BossBarY     int32
}

// DefaultTheme returns the replay theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:      rl.Color{R: 9, G: 14, B: 31, A: 168},
		LabelColor:   rl.Color{R: 194, G: 202, B: 224, A: 255},
		ValueColor:   rl.Color{R: 245, G: 247, B: 255, A: 255},
		RightAccent:  rl.Color{R: 196, G: 208, B: 255, A: 255},
		BorderAlpha:  112,
		BossLabel:    rl.Color{R: 255, G: 150, B: 150, A: 255},
		BossBarBg:    rl.Color{R: 65, G: 24, B: 24, A: 255},
		BossBarFill:  rl.Color{R: 255, G: 82, B: 82, A: 255},
		BossBarEdge:  rl.Color{R: 255, G: 220, B: 220, A: 255},
		ControlsBg:   rl.Color{R: 12, G: 16, B: 28, A: 255},
		Margin:       10,
		PadX:         12,
		PadY:         8,
		RowGap:       6,
		LabelGap:     12,
		Roundness:    0.3,
		FontSize:     18,
		BossFontSize: 28,
		BossBarW:     260,
		BossBarH:     14,
		BossLabelY:   12,
		BossBarY:     46,
	}
}

// withAlpha returns c with its alpha replaced.
func withAlpha(c rl.Color, a uint8) rl.Color {
	c.A = a
	return c
}
