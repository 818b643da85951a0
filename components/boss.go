package components

import (
	"math"

	"github.com/pthm-cable/invaders/sprite"
)

// Boss movement tuning.
const (
	bossMargin        = 20.0
	bossEaseFactor    = 0.05
	bossBasePatrol    = 2.0
	bossPatrolPerLvl  = 0.25
	bossPatrolLvlCap  = 12
	bossTargetBase    = 60.0
	bossTargetPerLvl  = 12.0
	bossTargetCap     = 240.0
	bossDropPerTurn   = 6.0
	bossDropPerTurnLv = 1.0
)

// bossBarrels are the volley origins as fractions of the boss width.
var bossBarrels = [3]float64{0.2, 0.5, 0.8}

// BossState holds the patrol and ease-in parameters of a boss.
type BossState struct {
	Level       int
	Direction   float64 // +1 right, -1 left
	PatrolSpeed float64
	TargetY     float64
}

// NewBoss creates a boss scaled to the given level.
func NewBoss(x, y float64, level int) *Ship {
	sheet := sprite.Default()
	health := BossBaseHealth + level*BossHealthPerLevel
	return &Ship{
		X:           x,
		Y:           y,
		Health:      health,
		MaxHealth:   health,
		Kind:        KindBoss,
		Sprite:      sheet.Boss,
		LaserSprite: sheet.BossLaser,
		Boss: &BossState{
			Level:       level,
			Direction:   1,
			PatrolSpeed: bossBasePatrol + bossPatrolPerLvl*float64(min(level, bossPatrolLvlCap)),
			TargetY:     math.Min(bossTargetBase+bossTargetPerLvl*float64(level), bossTargetCap),
		},
	}
}

// moveBoss eases toward the target altitude and patrols between the side margins.
// Each wall bounce lowers the target altitude.
func (s *Ship) moveBoss(worldWidth float64) {
	b := s.Boss

	if s.Y < b.TargetY {
		step := math.Max(1, (b.TargetY-s.Y)*bossEaseFactor)
		s.Y = math.Min(b.TargetY, s.Y+step)
	}

	s.X += b.Direction * b.PatrolSpeed
	minX := bossMargin
	maxX := worldWidth - bossMargin - float64(s.Width())
	switch {
	case s.X <= minX:
		s.X = minX
		b.Direction = 1
		b.TargetY += bossDropPerTurn + bossDropPerTurnLv*float64(b.Level)
	case s.X >= maxX:
		s.X = maxX
		b.Direction = -1
		b.TargetY += bossDropPerTurn + bossDropPerTurnLv*float64(b.Level)
	}
}

// volley fires one laser from each barrel at once.
func (s *Ship) volley() int {
	w := float64(s.Width())
	y := s.Y + float64(s.Height())/2
	half := float64(s.LaserSprite.Width()) / 2
	for _, frac := range bossBarrels {
		s.Lasers = append(s.Lasers, NewLaser(s.X+frac*w-half, y, s.LaserSprite))
	}
	return len(bossBarrels)
}
