package inspector

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Widget colors
var (
	ColorBarBg     = rl.Color{R: 40, G: 40, B: 40, A: 255}
	ColorBarFill   = rl.Color{R: 100, G: 180, B: 100, A: 255}
	ColorBarLow    = rl.Color{R: 180, G: 80, B: 80, A: 255}
	ColorText      = rl.Color{R: 220, G: 220, B: 220, A: 255}
	ColorTextDim   = rl.Color{R: 150, G: 150, B: 150, A: 255}
	ColorThreshold = rl.Color{R: 255, G: 200, B: 100, A: 255}
)

// DrawLabel renders "name: value" and returns the row height.
func DrawLabel(x, y int32, name, value string) int32 {
	rl.DrawText(fmt.Sprintf("%s: %s", name, value), x, y, 14, ColorText)
	return 18
}

// DrawBar renders a horizontal bar of value in [0, maxVal]. A positive
// threshold draws a marker at that value. Returns the row height.
func DrawBar(x, y int32, name string, value, maxVal, threshold float32) int32 {
	ratio := barRatio(value, maxVal)

	barWidth := int32(120)
	barHeight := int32(14)

	rl.DrawText(name, x, y, 14, ColorTextDim)

	barX := x + 80
	rl.DrawRectangle(barX, y, barWidth, barHeight, ColorBarBg)

	fillWidth := int32(float32(barWidth) * ratio)
	fillColor := ColorBarFill
	if threshold > 0 && value <= threshold {
		fillColor = ColorBarLow
	}
	rl.DrawRectangle(barX, y, fillWidth, barHeight, fillColor)

	if threshold > 0 {
		tx := barX + int32(float32(barWidth)*barRatio(threshold, maxVal))
		rl.DrawLine(tx, y-2, tx, y+barHeight+2, ColorThreshold)
	}

	rl.DrawText(fmt.Sprintf("%.2f", value), barX+barWidth+5, y, 14, ColorTextDim)
	return 18
}

// DrawSignedBarGroup renders one mini-bar per value in [-1, 1], filled up
// from the midline for positive values and down for negative ones.
func DrawSignedBarGroup(x, y int32, name string, values []float64) int32 {
	barWidth := int32(10)
	barHeight := int32(30)
	gap := int32(2)
	mid := y + barHeight/2

	rl.DrawText(name, x, y+barHeight/2-7, 14, ColorTextDim)

	barX := x + 40
	for i, v := range values {
		bx := barX + int32(i)*(barWidth+gap)
		rl.DrawRectangle(bx, y, barWidth, barHeight, ColorBarBg)

		ratio := float32(max(-1, min(1, v)))
		h := int32(float32(barHeight/2) * ratio)
		if h >= 0 {
			rl.DrawRectangle(bx, mid-h, barWidth, h, lerpColor(ColorBarLow, ColorBarFill, 0.5+ratio/2))
		} else {
			rl.DrawRectangle(bx, mid, barWidth, -h, lerpColor(ColorBarLow, ColorBarFill, 0.5+ratio/2))
		}
	}
	return barHeight + 4
}

func barRatio(value, maxVal float32) float32 {
	if maxVal <= 0 {
		return 0
	}
	return max(0, min(1, value/maxVal))
}

// lerpColor interpolates between two colors.
func lerpColor(a, b rl.Color, t float32) rl.Color {
	return rl.Color{
		R: uint8(float32(a.R) + (float32(b.R)-float32(a.R))*t),
		G: uint8(float32(a.G) + (float32(b.G)-float32(a.G))*t),
		B: uint8(float32(a.B) + (float32(b.B)-float32(a.B))*t),
		A: 255,
	}
}
