package components

import "github.com/pthm-cable/invaders/sprite"

// Laser directions along the y axis.
const (
	DirUp   = -1.0
	DirDown = 1.0
)

// Laser is a projectile owned by the ship that fired it.
type Laser struct {
	X, Y   float64
	Sprite *sprite.Sprite
}

// NewLaser creates a laser at the given top-left position.
func NewLaser(x, y float64, s *sprite.Sprite) *Laser {
	return &Laser{X: x, Y: y, Sprite: s}
}

// Move advances the laser by LaserVelocity in dir (DirUp or DirDown).
func (l *Laser) Move(dir float64) {
	l.Y += LaserVelocity * dir
}

// OffScreen reports whether the laser has left the vertical range [0, height].
func (l *Laser) OffScreen(height float64) bool {
	return !(l.Y >= 0 && l.Y <= height)
}

// Collides reports whether the laser's mask overlaps the ship's.
func (l *Laser) Collides(s *Ship) bool {
	return overlapAt(l.Sprite, l.X, l.Y, s.Sprite, s.X, s.Y)
}

// Center returns the centre point of the laser's sprite.
func (l *Laser) Center() (float64, float64) {
	return l.X + float64(l.Sprite.Width())/2, l.Y + float64(l.Sprite.Height())/2
}
