package renderer

import rl "github.com/gen2brain/raylib-go/raylib"

// ProfileVisual is the replay look of one reward profile.
type ProfileVisual struct {
	Label     string
	ShipTint  rl.Color
	LaserTint rl.Color
	UIColor   rl.Color
}

// DefaultVisualProfile is used for profiles without their own entry.
const DefaultVisualProfile = "kill_focus"

var profileVisuals = map[string]ProfileVisual{
	"kill_focus": {
		Label:     "Kill Focus",
		ShipTint:  rl.Color{R: 255, G: 255, B: 255, A: 255},
		LaserTint: rl.Color{R: 255, G: 255, B: 255, A: 255},
		UIColor:   rl.Color{R: 255, G: 220, B: 140, A: 255},
	},
	"balanced": {
		Label:     "Balanced",
		ShipTint:  rl.Color{R: 185, G: 255, B: 210, A: 255},
		LaserTint: rl.Color{R: 170, G: 255, B: 210, A: 255},
		UIColor:   rl.Color{R: 140, G: 255, B: 200, A: 255},
	},
	"precision": {
		Label:     "Precision",
		ShipTint:  rl.Color{R: 200, G: 210, B: 255, A: 255},
		LaserTint: rl.Color{R: 190, G: 220, B: 255, A: 255},
		UIColor:   rl.Color{R: 160, G: 190, B: 255, A: 255},
	},
}

// VisualFor returns the profile's visual, or the kill_focus visual.
func VisualFor(profile string) ProfileVisual {
	if v, ok := profileVisuals[profile]; ok {
		return v
	}
	return profileVisuals[DefaultVisualProfile]
}
