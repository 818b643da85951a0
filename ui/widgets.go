package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// MeasureFunc returns the pixel width of text at a font size.
type MeasureFunc func(text string, fontSize int32) int32

// Renderer handles all UI drawing with consistent styling.
type Renderer struct {
	Theme   Theme
	Measure MeasureFunc
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme(), Measure: rl.MeasureText}
}

// rowLayout is a measured stats row.
type rowLayout struct {
	label, value   string
	labelW, valueW int32
	valueColor     rl.Color
}

// PanelLayout is a stats panel measured and placed on screen.
type PanelLayout struct {
	X, Y          int32
	Width, Height int32
	rows          []rowLayout
}

// LayoutStatsPanel sizes a panel to its widest row. With alignRight, x is the
// panel's right edge.
func (r *Renderer) LayoutStatsPanel(x, y int32, rows []StatRow, alignRight bool) PanelLayout {
	t := r.Theme
	layout := PanelLayout{X: x, Y: y, rows: make([]rowLayout, len(rows))}

	var widest int32
	for i, row := range rows {
		label := row.Label + ":"
		m := rowLayout{
			label:      label,
			value:      row.Value,
			labelW:     r.Measure(label, t.FontSize),
			valueW:     r.Measure(row.Value, t.FontSize),
			valueColor: row.ValueColor,
		}
		widest = max(widest, m.labelW+t.LabelGap+m.valueW)
		layout.rows[i] = m
	}

	layout.Width = widest + t.PadX*2
	layout.Height = int32(len(rows))*t.FontSize + t.RowGap*max(0, int32(len(rows))-1) + t.PadY*2
	if alignRight {
		layout.X -= layout.Width
	}
	return layout
}

// DrawStatsPanel draws a translucent rounded panel with labels left-aligned
// and values right-aligned.
func (r *Renderer) DrawStatsPanel(layout PanelLayout, accent rl.Color) {
	t := r.Theme
	rec := rl.Rectangle{
		X:      float32(layout.X),
		Y:      float32(layout.Y),
		Width:  float32(layout.Width),
		Height: float32(layout.Height),
	}
	rl.DrawRectangleRounded(rec, t.Roundness, 8, t.PanelBg)
	rl.DrawRectangleRoundedLines(rec, t.Roundness, 8, withAlpha(accent, t.BorderAlpha))

	y := layout.Y + t.PadY
	for _, row := range layout.rows {
		rl.DrawText(row.label, layout.X+t.PadX, y, t.FontSize, t.LabelColor)
		rl.DrawText(row.value, layout.X+layout.Width-t.PadX-row.valueW, y, t.FontSize, row.valueColor)
		y += t.FontSize + t.RowGap
	}
}

// BossBarLayout places the boss label and health bar centred on the screen.
type BossBarLayout struct {
	LabelX, LabelY int32
	Bar            rl.Rectangle
	FillWidth      float32
}

// LayoutBossBar centres the bar on screenWidth and sizes its fill to the
// health ratio, floored at zero.
func (r *Renderer) LayoutBossBar(screenWidth int32, label string, health, maxHealth int) BossBarLayout {
	t := r.Theme
	ratio := 0.0
	if maxHealth > 0 {
		ratio = max(0, float64(health)/float64(maxHealth))
	}
	barX := screenWidth/2 - t.BossBarW/2
	return BossBarLayout{
		LabelX: screenWidth/2 - r.Measure(label, t.BossFontSize)/2,
		LabelY: t.BossLabelY,
		Bar: rl.Rectangle{
			X:      float32(barX),
			Y:      float32(t.BossBarY),
			Width:  float32(t.BossBarW),
			Height: float32(t.BossBarH),
		},
		FillWidth: float32(int32(float64(t.BossBarW) * ratio)),
	}
}

// DrawBossBar draws the boss label and health bar.
func (r *Renderer) DrawBossBar(layout BossBarLayout, label string) {
	t := r.Theme
	rl.DrawText(label, layout.LabelX, layout.LabelY, t.BossFontSize, t.BossLabel)

	bar := layout.Bar
	rl.DrawRectangleRec(bar, t.BossBarBg)
	fill := bar
	fill.Width = layout.FillWidth
	rl.DrawRectangleRec(fill, t.BossBarFill)
	rl.DrawRectangleLinesEx(bar, 2, t.BossBarEdge)
}
