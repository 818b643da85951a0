package ui

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// fixedWidth measures every character as 10 pixels.
func fixedWidth(text string, _ int32) int32 {
	return int32(len(text)) * 10
}

func testRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme(), Measure: fixedWidth}
}

func TestLeftRowsGenerationLabel(t *testing.T) {
	tests := []struct {
		gen  int
		want string
	}{
		{0, "0"},
		{1, "0"},
		{2, "1"},
		{50, "49"},
	}
	for _, tt := range tests {
		rows := LeftRows(HUDData{Generation: tt.gen, Alive: 1, ProfileLabel: "Balanced"}, rl.White)
		if rows[0].Label != "Gens" || rows[0].Value != tt.want {
			t.Errorf("gen %d: got %s=%s, want Gens=%s", tt.gen, rows[0].Label, rows[0].Value, tt.want)
		}
		if rows[2].Value != "Balanced" {
			t.Errorf("profile row = %q", rows[2].Value)
		}
	}
}

func TestLayoutStatsPanel(t *testing.T) {
	r := testRenderer()
	rows := []StatRow{
		{Label: "Level", Value: "3"},  // "Level:" 60 + 12 + 10 = 82
		{Label: "Lives", Value: "12"}, // "Lives:" 60 + 12 + 20 = 92
	}

	left := r.LayoutStatsPanel(10, 10, rows, false)
	if left.Width != 92+24 {
		t.Errorf("width = %d, want %d", left.Width, 92+24)
	}
	wantH := int32(2*18 + 6 + 16)
	if left.Height != wantH {
		t.Errorf("height = %d, want %d", left.Height, wantH)
	}
	if left.X != 10 || left.Y != 10 {
		t.Errorf("left panel at (%d,%d)", left.X, left.Y)
	}

	right := r.LayoutStatsPanel(740, 10, rows, true)
	if right.X+right.Width != 740 {
		t.Errorf("right panel should end at 740, ends at %d", right.X+right.Width)
	}
}

func TestLayoutBossBar(t *testing.T) {
	r := testRenderer()
	tests := []struct {
		name      string
		health    int
		maxHealth int
		wantFill  float32
	}{
		{"full", 100, 100, 260},
		{"half", 50, 100, 130},
		{"third truncates", 1, 3, 86},
		{"overkill floors at zero", -20, 100, 0},
		{"no max", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := r.LayoutBossBar(750, BossLabel, tt.health, tt.maxHealth)
			if l.FillWidth != tt.wantFill {
				t.Errorf("fill = %v, want %v", l.FillWidth, tt.wantFill)
			}
			if l.Bar.X != float32(375-130) || l.Bar.Y != 46 || l.Bar.Width != 260 || l.Bar.Height != 14 {
				t.Errorf("bar rect = %+v", l.Bar)
			}
			if l.LabelX != 375-50 || l.LabelY != 12 {
				t.Errorf("label at (%d,%d)", l.LabelX, l.LabelY)
			}
		})
	}
}

func TestClampSpeed(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 5: 5, 10: 10, 11: 10} {
		if got := ClampSpeed(in); got != want {
			t.Errorf("ClampSpeed(%d) = %d, want %d", in, got, want)
		}
	}
}
