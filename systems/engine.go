// Package systems advances an episode one frame at a time: wave and boss spawning,
// decision application, projectile and collision resolution, reward bookkeeping
// and termination.
package systems

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/telemetry"
)

// Action layout and threshold for decision outputs.
const (
	ActionRight     = 0
	ActionLeft      = 1
	ActionShoot     = 2
	ActionCount     = 3
	ActionThreshold = 0.5
)

// Fire-chance windows. A ship fires on frames where Intn(window) == 1.
const (
	regularShootWindow  = 120
	bossShootWindowBase = 50
	bossShootWindowStep = 2
	bossShootWindowMin  = 25
)

// ContactDamage is dealt to the player by a hull collision.
const ContactDamage = 100

// ErrShortAction is returned when a decision source yields fewer than ActionCount outputs.
var ErrShortAction = errors.New("decision source returned too few outputs")

// RNG is the random source consumed by the engine. *rand.Rand satisfies it.
// Draw order is part of the episode's identity: wave spawns first, then one
// fire draw per enemy in list order.
type RNG interface {
	Intn(n int) int
}

// DecisionSource maps an observation to an action vector of at least ActionCount entries.
type DecisionSource interface {
	Activate(observation []float64) ([]float64, error)
}

// DecisionFunc adapts a plain function to DecisionSource.
type DecisionFunc func(observation []float64) ([]float64, error)

// Activate calls f.
func (f DecisionFunc) Activate(observation []float64) ([]float64, error) {
	return f(observation)
}

// ObservationBuilder maps world state to a fixed-width feature vector. It must not mutate state.
type ObservationBuilder interface {
	Build(player *components.Ship, enemies []*components.Ship, width, height float64) []float64
}

// ObservationFunc adapts a plain function to ObservationBuilder.
type ObservationFunc func(player *components.Ship, enemies []*components.Ship, width, height float64) []float64

// Build calls f.
func (f ObservationFunc) Build(player *components.Ship, enemies []*components.Ship, width, height float64) []float64 {
	return f(player, enemies, width, height)
}

// Outcome names how a terminal frame ended.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomePlayerDeath
	OutcomeLevelFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlayerDeath:
		return "player_death"
	case OutcomeLevelFailure:
		return "level_failure"
	default:
		return "none"
	}
}

// StepResult reports one frame's reward delta and terminal status.
type StepResult struct {
	FitnessDelta float64
	Terminal     bool
	ActiveBoss   *components.Ship // first boss in the enemy list, if any
	Outcome      Outcome
}

// Engine holds the collaborators for stepping an episode. Decision, RNG and
// Observe are required. Rewards, Events and Totals are optional: with Rewards
// nil the engine runs in replay mode and skips all reward bookkeeping.
type Engine struct {
	Decision DecisionSource
	RNG      RNG
	Observe  ObservationBuilder
	Width    float64
	Height   float64

	Rewards *config.RewardProfile
	Events  *telemetry.EventTotals
	Totals  *telemetry.RewardTotals

	// Palette is the spawn color list; nil means components.DefaultPalette.
	Palette []components.Color
}

// StepFrame advances state by one frame with the given collaborators.
func StepFrame(
	state *EpisodeState,
	decision DecisionSource,
	rng RNG,
	observe ObservationBuilder,
	width, height float64,
	rewards *config.RewardProfile,
	events *telemetry.EventTotals,
	totals *telemetry.RewardTotals,
) (StepResult, error) {
	e := Engine{
		Decision: decision,
		RNG:      rng,
		Observe:  observe,
		Width:    width,
		Height:   height,
		Rewards:  rewards,
		Events:   events,
		Totals:   totals,
	}
	return e.Step(state)
}

// Step advances state by exactly one frame.
func (e *Engine) Step(s *EpisodeState) (StepResult, error) {
	var delta float64
	rp := e.profile()
	s.Frame++

	e.advancePhase(s, &delta, rp)

	e.credit(&delta, rp.SurvivalReward, rewardSurvival)

	if err := e.applyDecision(s, &delta, rp); err != nil {
		return StepResult{ActiveBoss: s.ActiveBoss()}, err
	}

	e.resolvePlayerLasers(s, &delta, rp)
	e.updateEnemies(s, &delta, rp)

	result := StepResult{}
	switch {
	case s.Player.Health <= 0:
		result.Terminal = true
		result.Outcome = OutcomePlayerDeath
		e.count(func(t *telemetry.EventTotals) { t.PlayerDeaths++ })
		e.credit(&delta, -rp.DeathPenalty, rewardDeath)
	case s.Lives <= 0:
		result.Terminal = true
		result.Outcome = OutcomeLevelFailure
		e.count(func(t *telemetry.EventTotals) { t.LevelFailures++ })
		e.credit(&delta, -rp.LevelFailPenalty, rewardLevelFail)
	}

	result.FitnessDelta = delta
	result.ActiveBoss = s.ActiveBoss()
	return result, nil
}

// advancePhase runs the wave cycle once the enemy list is empty:
// boss defeated -> next wave, wave cleared -> boss, first frame -> first wave.
func (e *Engine) advancePhase(s *EpisodeState, delta *float64, rp config.RewardProfile) {
	if len(s.Enemies) != 0 {
		return
	}
	switch {
	case s.BossActive:
		s.BossActive = false
		e.spawnWave(s)
	case s.Level > 0:
		e.count(func(t *telemetry.EventTotals) { t.WaveClears++ })
		e.credit(delta, rp.WaveClearReward, rewardWaveClear)
		s.BossActive = true
		e.spawnBoss(s)
	default:
		s.BossActive = false
		e.spawnWave(s)
	}
}

func (e *Engine) applyDecision(s *EpisodeState, delta *float64, rp config.RewardProfile) error {
	obs := e.Observe.Build(s.Player, s.Enemies, e.Width, e.Height)
	out, err := e.Decision.Activate(obs)
	if err != nil {
		return fmt.Errorf("decision source: %w", err)
	}
	if len(out) < ActionCount {
		return fmt.Errorf("%w: got %d, need %d", ErrShortAction, len(out), ActionCount)
	}

	p := s.Player
	if out[ActionRight] > ActionThreshold && p.X+components.PlayerVelocity+float64(p.Width()) < e.Width {
		p.MoveRight()
	}
	if out[ActionLeft] > ActionThreshold && p.X-components.PlayerVelocity > 0 {
		p.MoveLeft()
	}
	if out[ActionShoot] > ActionThreshold && p.Shoot() > 0 {
		e.count(func(t *telemetry.EventTotals) { t.ShotsFired++ })
		e.credit(delta, -rp.ShotPenalty, rewardShot)
	}

	p.Cooldown()
	return nil
}

// resolvePlayerLasers moves player lasers up and applies hits. A laser hits at
// most one enemy, the first in list order.
func (e *Engine) resolvePlayerLasers(s *EpisodeState, delta *float64, rp config.RewardProfile) {
	p := s.Player
	for _, laser := range snapshotLasers(p.Lasers) {
		laser.Move(components.DirUp)
		if laser.OffScreen(e.Height) {
			p.RemoveLaser(laser)
			continue
		}

		for _, enemy := range s.Enemies {
			if !laser.Collides(enemy) {
				continue
			}
			enemy.Health -= components.LaserDamage
			p.RemoveLaser(laser)
			if enemy.Health <= 0 && s.RemoveEnemy(enemy) {
				boss := enemy.IsBoss()
				e.count(func(t *telemetry.EventTotals) {
					t.Kills++
					if boss {
						t.BossKills++
					}
				})
				if boss {
					e.credit(delta, rp.BossKillReward, rewardKill)
				} else {
					e.credit(delta, rp.KillReward, rewardKill)
				}
			}
			break
		}
	}
}

// updateEnemies moves every enemy, rolls its fire chance, resolves its lasers
// and handles escapes and hull contact. Iterates a snapshot so removals are safe.
func (e *Engine) updateEnemies(s *EpisodeState, delta *float64, rp config.RewardProfile) {
	p := s.Player
	for _, enemy := range snapshotShips(s.Enemies) {
		enemy.Move(e.Width)
		if e.RNG.Intn(shootWindow(enemy, s.Level)) == 1 {
			enemy.Shoot()
		}
		enemy.Cooldown()

		for _, laser := range snapshotLasers(enemy.Lasers) {
			laser.Move(components.DirDown)
			if laser.OffScreen(e.Height) {
				enemy.RemoveLaser(laser)
				continue
			}
			if laser.Collides(p) {
				p.Health -= components.LaserDamage
				e.count(func(t *telemetry.EventTotals) { t.LaserHitsTaken++ })
				e.credit(delta, -rp.LaserHitPenalty, rewardDeath)
				enemy.RemoveLaser(laser)
			}
		}

		if enemy.Y+float64(enemy.Height()) > e.Height {
			loss := 1
			if enemy.IsBoss() {
				loss = 2
			}
			s.Lives -= loss
			e.count(func(t *telemetry.EventTotals) { t.EnemyEscapes++ })
			e.credit(delta, -rp.EnemyEscapePenalty*float64(loss), rewardEscape)
			s.RemoveEnemy(enemy)
			continue
		}

		if components.Collide(enemy, p) {
			p.Health -= ContactDamage
			if !enemy.IsBoss() {
				s.RemoveEnemy(enemy)
			}
		}
	}
}

// shootWindow narrows with level for bosses and is fixed for regular enemies.
func shootWindow(enemy *components.Ship, level int) int {
	if enemy.IsBoss() {
		return max(bossShootWindowMin, bossShootWindowBase-level*bossShootWindowStep)
	}
	return regularShootWindow
}

func snapshotShips(ships []*components.Ship) []*components.Ship {
	return append([]*components.Ship(nil), ships...)
}

func snapshotLasers(lasers []*components.Laser) []*components.Laser {
	return append([]*components.Laser(nil), lasers...)
}

func (e *Engine) profile() config.RewardProfile {
	if e.Rewards == nil {
		return config.RewardProfile{}
	}
	return *e.Rewards
}

func (e *Engine) count(fn func(t *telemetry.EventTotals)) {
	if e.Events != nil {
		fn(e.Events)
	}
}

type rewardCategory uint8

const (
	rewardSurvival rewardCategory = iota
	rewardKill
	rewardWaveClear
	rewardShot
	rewardDeath
	rewardEscape
	rewardLevelFail
)

// credit adds amount to the frame delta and its accumulator category.
// No-op in replay mode.
func (e *Engine) credit(delta *float64, amount float64, cat rewardCategory) {
	if e.Rewards == nil {
		return
	}
	*delta += amount
	if e.Totals == nil {
		return
	}
	switch cat {
	case rewardSurvival:
		e.Totals.Survival += amount
	case rewardKill:
		e.Totals.Kill += amount
	case rewardWaveClear:
		e.Totals.WaveClear += amount
	case rewardShot:
		e.Totals.ShotPenalty += amount
	case rewardDeath:
		e.Totals.DeathPenalty += amount
	case rewardEscape:
		e.Totals.EnemyEscapePenalty += amount
	case rewardLevelFail:
		e.Totals.LevelFailPenalty += amount
	}
}
