package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/systems"
)

// SceneRenderer draws the ships and lasers of one episode state. The arena is
// drawn with its origin at (0, OffsetY).
type SceneRenderer struct {
	atlas   *Atlas
	visual  ProfileVisual
	OffsetY float64
}

// NewSceneRenderer creates a scene renderer using the visual of profile.
func NewSceneRenderer(atlas *Atlas, profile string) *SceneRenderer {
	return &SceneRenderer{atlas: atlas, visual: VisualFor(profile)}
}

// Draw renders enemies, then their lasers, then the player and its lasers.
func (r *SceneRenderer) Draw(s *systems.EpisodeState) {
	for _, e := range s.Enemies {
		r.drawShip(e, rl.White)
	}
	for _, e := range s.Enemies {
		r.drawLasers(e, rl.White)
	}
	if s.Player == nil {
		return
	}
	if s.PlayerAlive() {
		r.drawShip(s.Player, r.visual.ShipTint)
	}
	r.drawLasers(s.Player, r.visual.LaserTint)
}

func (r *SceneRenderer) drawShip(ship *components.Ship, tint rl.Color) {
	r.atlas.Draw(ship.Sprite, ship.X, ship.Y+r.OffsetY, tint)
}

func (r *SceneRenderer) drawLasers(ship *components.Ship, tint rl.Color) {
	for _, l := range ship.Lasers {
		r.atlas.Draw(l.Sprite, l.X, l.Y+r.OffsetY, tint)
	}
}
