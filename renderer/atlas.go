// Package renderer draws replay episodes with raylib: sprite textures, a
// starfield background, kill explosions and the playback window.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/invaders/sprite"
)

// Atlas holds one GPU texture per generated sprite.
type Atlas struct {
	textures map[*sprite.Sprite]rl.Texture2D
}

// NewAtlas uploads every sprite of the sheet. Must be called after the
// raylib window is created.
func NewAtlas(sheet *sprite.Sheet) *Atlas {
	a := &Atlas{textures: make(map[*sprite.Sprite]rl.Texture2D)}
	for _, s := range []*sprite.Sprite{
		sheet.Player, sheet.PlayerLaser,
		sheet.RedShip, sheet.GreenShip, sheet.BlueShip,
		sheet.RedLaser, sheet.GreenLaser, sheet.BlueLaser,
		sheet.Boss, sheet.BossLaser,
	} {
		a.add(s)
	}
	return a
}

func (a *Atlas) add(s *sprite.Sprite) {
	img := rl.NewImageFromImage(s.Image)
	a.textures[s] = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
}

// Draw blits the sprite with its top-left corner at (x, y). The tint
// multiplies every channel.
func (a *Atlas) Draw(s *sprite.Sprite, x, y float64, tint rl.Color) {
	tex, ok := a.textures[s]
	if !ok {
		a.add(s)
		tex = a.textures[s]
	}
	rl.DrawTexture(tex, int32(x), int32(y), tint)
}

// Unload frees every texture.
func (a *Atlas) Unload() {
	for s, tex := range a.textures {
		rl.UnloadTexture(tex)
		delete(a.textures, s)
	}
}
