package systems

import (
	"math"

	"github.com/pthm-cable/invaders/components"
)

// Episode start and wave growth.
const (
	InitialLives      = 5
	InitialWaveLength = 5
	WaveGrowth        = 5
	SpawnRatio        = 0.8
)

// Spawn region for regular waves: x in [50, width-100), y in [-1500, -100).
const (
	spawnMinX        = 50
	spawnRightMargin = 100
	spawnMinY        = -1500
	spawnMaxY        = -100
)

// EpisodeState is the mutable state of one episode. It is owned by a single
// goroutine for the lifetime of the episode.
type EpisodeState struct {
	Player     *components.Ship
	Enemies    []*components.Ship
	WaveLength int
	BossActive bool
	Level      int
	Lives      int
	Frame      int
}

// NewEpisodeState returns the start-of-episode state: player at spawn, no
// enemies, level 0.
func NewEpisodeState() *EpisodeState {
	return NewEpisodeStateWith(InitialLives, InitialWaveLength)
}

// NewEpisodeStateWith is NewEpisodeState with configured lives and initial wave length.
func NewEpisodeStateWith(lives, waveLength int) *EpisodeState {
	return &EpisodeState{
		Player:     components.NewPlayer(components.PlayerSpawnX, components.PlayerSpawnY),
		WaveLength: waveLength,
		Lives:      lives,
	}
}

// Terminal reports whether the player is dead or out of lives.
func (s *EpisodeState) Terminal() bool {
	return s.Player.Health <= 0 || s.Lives <= 0
}

// PlayerAlive is the survivor test used by evaluation.
func (s *EpisodeState) PlayerAlive() bool {
	return !s.Terminal()
}

// ActiveBoss returns the first boss in the enemy list, or nil.
func (s *EpisodeState) ActiveBoss() *components.Ship {
	for _, enemy := range s.Enemies {
		if enemy.IsBoss() {
			return enemy
		}
	}
	return nil
}

// RemoveEnemy drops ship from the enemy list, preserving order.
// Returns false if it was already gone.
func (s *EpisodeState) RemoveEnemy(ship *components.Ship) bool {
	for i, enemy := range s.Enemies {
		if enemy == ship {
			s.Enemies = append(s.Enemies[:i], s.Enemies[i+1:]...)
			return true
		}
	}
	return false
}

// WaveSize returns the number of enemies spawned for a wave of the given length.
func WaveSize(waveLength int) int {
	return max(1, int(math.RoundToEven(float64(waveLength)*SpawnRatio)))
}

// spawnWave starts the next level. Each enemy draws x, then y, then color.
func (e *Engine) spawnWave(s *EpisodeState) {
	s.Level++
	s.WaveLength += WaveGrowth

	palette := e.palette()
	n := WaveSize(s.WaveLength)
	for range n {
		x := randRange(e.RNG, spawnMinX, int(e.Width)-spawnRightMargin)
		y := randRange(e.RNG, spawnMinY, spawnMaxY)
		c := palette[e.RNG.Intn(len(palette))]
		s.Enemies = append(s.Enemies, components.NewEnemy(float64(x), float64(y), c))
	}
}

// spawnBoss places a boss centred horizontally just above the top edge.
func (e *Engine) spawnBoss(s *EpisodeState) {
	x := (int(e.Width) - components.BossWidth) / 2
	s.Enemies = append(s.Enemies, components.NewBoss(float64(x), -components.BossHeight, s.Level))
}

func (e *Engine) palette() []components.Color {
	if len(e.Palette) == 0 {
		return components.DefaultPalette
	}
	return e.Palette
}

// randRange draws from [lo, hi).
func randRange(rng RNG, lo, hi int) int {
	return lo + rng.Intn(hi-lo)
}
