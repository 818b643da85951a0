package ui

import (
	"strconv"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// BossLabel is the heading drawn above the boss health bar.
const BossLabel = "Boss Fight"

// HUDData holds all the data needed to render the replay HUD.
type HUDData struct {
	ScreenWidth  int32
	Generation   int // 1-based label; 0 is shown as 1
	Alive        int
	ProfileLabel string
	ProfileColor rl.Color
	Level        int
	Lives        int

	// Boss health, drawn only when HasBoss is set.
	HasBoss       bool
	BossHealth    int
	BossMaxHealth int
}

// HUD renders the replay heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// LeftRows returns the left panel rows: generations, alive count and profile.
func LeftRows(data HUDData, valueColor rl.Color) []StatRow {
	gen := data.Generation
	if gen == 0 {
		gen = 1
	}
	return []StatRow{
		{Label: "Gens", Value: strconv.Itoa(gen - 1), ValueColor: valueColor},
		{Label: "Alive", Value: strconv.Itoa(data.Alive), ValueColor: valueColor},
		{Label: "Profile", Value: data.ProfileLabel, ValueColor: data.ProfileColor},
	}
}

// RightRows returns the right panel rows: level and lives.
func RightRows(data HUDData, valueColor rl.Color) []StatRow {
	return []StatRow{
		{Label: "Level", Value: strconv.Itoa(data.Level), ValueColor: valueColor},
		{Label: "Lives", Value: strconv.Itoa(data.Lives), ValueColor: valueColor},
	}
}

// Draw renders both stats panels and, during a boss fight, the boss bar.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	t := r.Theme

	left := r.LayoutStatsPanel(t.Margin, t.Margin, LeftRows(data, t.ValueColor), false)
	r.DrawStatsPanel(left, data.ProfileColor)

	right := r.LayoutStatsPanel(data.ScreenWidth-t.Margin, t.Margin, RightRows(data, t.ValueColor), true)
	r.DrawStatsPanel(right, t.RightAccent)

	if data.HasBoss {
		r.DrawBossBar(r.LayoutBossBar(data.ScreenWidth, BossLabel, data.BossHealth, data.BossMaxHealth), BossLabel)
	}
}
