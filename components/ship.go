// Package components defines the ships and projectiles that make up an episode.
// Ships are a single record tagged by Kind; behavior differences dispatch on the tag.
package components

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/invaders/sprite"
)

// Kind identifies which behavior set a ship uses.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindEnemy
	KindBoss
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	case KindBoss:
		return "boss"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a kind name back to a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range []Kind{KindPlayer, KindEnemy, KindBoss} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown ship kind %q", name)
}

// Color is the visual variant of a regular enemy. It has no behavioral effect.
type Color uint8

const (
	ColorRed Color = iota
	ColorBlue
	ColorGreen
)

// ErrUnknownColor is returned when an enemy color key is not recognized.
var ErrUnknownColor = errors.New("unknown enemy color")

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorBlue:
		return "blue"
	case ColorGreen:
		return "green"
	default:
		return fmt.Sprintf("color(%d)", uint8(c))
	}
}

// ParseColor maps a color key to a Color.
func ParseColor(name string) (Color, error) {
	switch name {
	case "red":
		return ColorRed, nil
	case "blue":
		return ColorBlue, nil
	case "green":
		return ColorGreen, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColor, name)
}

// ParsePalette maps an ordered list of color keys. The order is kept because
// spawn color draws index into it.
func ParsePalette(names []string) ([]Color, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty palette", ErrUnknownColor)
	}
	palette := make([]Color, len(names))
	for i, name := range names {
		c, err := ParseColor(name)
		if err != nil {
			return nil, err
		}
		palette[i] = c
	}
	return palette, nil
}

// DefaultPalette is the spawn palette used when none is configured.
var DefaultPalette = []Color{ColorRed, ColorBlue, ColorGreen}

// Ship and projectile constants.
const (
	CooldownFrames = 30

	PlayerVelocity = 5
	PlayerSpawnX   = 300
	PlayerSpawnY   = 630
	PlayerHealth   = 100

	EnemyVelocity = 3
	EnemyHealth   = 100

	LaserVelocity = 5
	LaserDamage   = 100

	BossWidth          = sprite.BossWidth
	BossHeight         = sprite.BossHeight
	BossBaseHealth     = 350
	BossHealthPerLevel = 50

	// enemyLaserOffsetX shifts an enemy bolt so it leaves from the hull centre.
	enemyLaserOffsetX = -20
)

// Ship is the shared record for the player, regular enemies and bosses.
type Ship struct {
	X, Y      float64 // top-left
	Health    int
	MaxHealth int
	Kind      Kind
	Color     Color // meaningful for KindEnemy only
	Lasers    []*Laser
	CoolDown  int // 0 = ready; otherwise counts up to CooldownFrames then wraps

	Sprite      *sprite.Sprite
	LaserSprite *sprite.Sprite

	Boss *BossState // non-nil iff Kind == KindBoss
}

// NewPlayer creates the agent-controlled ship.
func NewPlayer(x, y float64) *Ship {
	sheet := sprite.Default()
	return &Ship{
		X:           x,
		Y:           y,
		Health:      PlayerHealth,
		MaxHealth:   PlayerHealth,
		Kind:        KindPlayer,
		Sprite:      sheet.Player,
		LaserSprite: sheet.PlayerLaser,
	}
}

// NewEnemy creates a regular enemy. It panics on a Color outside the known set;
// palette keys are validated by ParseColor before they reach here.
func NewEnemy(x, y float64, c Color) *Ship {
	ship, laser, ok := enemySprites(c)
	if !ok {
		panic(fmt.Sprintf("components: %v: %d", ErrUnknownColor, uint8(c)))
	}
	return &Ship{
		X:           x,
		Y:           y,
		Health:      EnemyHealth,
		MaxHealth:   EnemyHealth,
		Kind:        KindEnemy,
		Color:       c,
		Sprite:      ship,
		LaserSprite: laser,
	}
}

func enemySprites(c Color) (ship, laser *sprite.Sprite, ok bool) {
	sheet := sprite.Default()
	switch c {
	case ColorRed:
		return sheet.RedShip, sheet.RedLaser, true
	case ColorBlue:
		return sheet.BlueShip, sheet.BlueLaser, true
	case ColorGreen:
		return sheet.GreenShip, sheet.GreenLaser, true
	}
	return nil, nil, false
}

// Width returns the ship's sprite width.
func (s *Ship) Width() int { return s.Sprite.Width() }

// Height returns the ship's sprite height.
func (s *Ship) Height() int { return s.Sprite.Height() }

// Center returns the centre point of the ship's sprite.
func (s *Ship) Center() (float64, float64) {
	return s.X + float64(s.Width())/2, s.Y + float64(s.Height())/2
}

// IsBoss reports whether the ship is a boss.
func (s *Ship) IsBoss() bool { return s.Kind == KindBoss }

// Alive reports whether the ship has health left.
func (s *Ship) Alive() bool { return s.Health > 0 }

// Cooldown advances the fire-rate counter by one frame.
func (s *Ship) Cooldown() {
	if s.CoolDown >= CooldownFrames {
		s.CoolDown = 0
	} else if s.CoolDown > 0 {
		s.CoolDown++
	}
}

// CanShoot reports whether the ship is off cooldown.
func (s *Ship) CanShoot() bool { return s.CoolDown == 0 }

// Shoot fires if the ship is off cooldown and returns the number of lasers spawned.
func (s *Ship) Shoot() int {
	if !s.CanShoot() {
		return 0
	}
	n := 0
	switch s.Kind {
	case KindPlayer:
		s.Lasers = append(s.Lasers, NewLaser(s.X, s.Y, s.LaserSprite))
		n = 1
	case KindEnemy:
		s.Lasers = append(s.Lasers, NewLaser(s.X+enemyLaserOffsetX, s.Y, s.LaserSprite))
		n = 1
	case KindBoss:
		n = s.volley()
	}
	s.CoolDown = 1
	return n
}

// MoveLeft shifts the player left. Screen clamping is the caller's job.
func (s *Ship) MoveLeft() { s.X -= PlayerVelocity }

// MoveRight shifts the player right. Screen clamping is the caller's job.
func (s *Ship) MoveRight() { s.X += PlayerVelocity }

// Move advances an enemy or boss by one frame. Players do not move on their own.
func (s *Ship) Move(worldWidth float64) {
	switch s.Kind {
	case KindEnemy:
		s.Y += EnemyVelocity
	case KindBoss:
		s.moveBoss(worldWidth)
	}
}

// RemoveLaser drops l from the ship's lasers. Returns false if l was not owned.
func (s *Ship) RemoveLaser(l *Laser) bool {
	for i, owned := range s.Lasers {
		if owned == l {
			s.Lasers = append(s.Lasers[:i], s.Lasers[i+1:]...)
			return true
		}
	}
	return false
}

// Collide reports whether two ships' masks overlap at their current positions.
func Collide(a, b *Ship) bool {
	return overlapAt(a.Sprite, a.X, a.Y, b.Sprite, b.X, b.Y)
}

// overlapAt tests a's mask against b's at offset (bx-ax, by-ay), truncated to whole pixels.
func overlapAt(a *sprite.Sprite, ax, ay float64, b *sprite.Sprite, bx, by float64) bool {
	dx := int(math.Trunc(bx - ax))
	dy := int(math.Trunc(by - ay))
	return a.Mask.Overlap(b.Mask, dx, dy)
}
