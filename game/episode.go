package game

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/systems"
	"github.com/pthm-cable/invaders/telemetry"
)

// EpisodeOptions fixes everything about an episode except the controller and seed.
type EpisodeOptions struct {
	Width      float64
	Height     float64
	Lives      int
	WaveLength int
	MaxFrames  int
	Palette    []components.Color

	// Rewards is nil for reward-free episodes (benchmark and replay).
	Rewards *config.RewardProfile
}

// EpisodeOptionsFromConfig builds options from the loaded configuration.
// rewards may be nil.
func EpisodeOptionsFromConfig(cfg *config.Config, rewards *config.RewardProfile) (EpisodeOptions, error) {
	palette, err := components.ParsePalette(cfg.Enemy.Colors)
	if err != nil {
		return EpisodeOptions{}, fmt.Errorf("enemy palette: %w", err)
	}
	return EpisodeOptions{
		Width:      float64(cfg.World.Width),
		Height:     float64(cfg.World.Height),
		Lives:      cfg.Episode.Lives,
		WaveLength: cfg.Episode.InitialWaveLength,
		MaxFrames:  cfg.Episode.MaxFrames,
		Palette:    palette,
		Rewards:    rewards,
	}, nil
}

// FrameHook observes each stepped frame. Returning false ends the episode early.
type FrameHook func(state *systems.EpisodeState, result systems.StepResult) bool

// Episode is one seeded run of the engine over fresh state.
type Episode struct {
	State  *systems.EpisodeState
	Events telemetry.EventTotals
	Totals telemetry.RewardTotals

	engine  systems.Engine
	fitness float64
	frames  int
	opts    EpisodeOptions
}

// NewEpisode prepares an episode driven by decision. The RNG is seeded once
// and consumed only by the engine.
func NewEpisode(opts EpisodeOptions, decision systems.DecisionSource, observe systems.ObservationBuilder, seed int64) *Episode {
	ep := &Episode{
		State: systems.NewEpisodeStateWith(opts.Lives, opts.WaveLength),
		opts:  opts,
	}
	ep.engine = systems.Engine{
		Decision: decision,
		RNG:      rand.New(rand.NewSource(seed)),
		Observe:  observe,
		Width:    opts.Width,
		Height:   opts.Height,
		Rewards:  opts.Rewards,
		Events:   &ep.Events,
		Totals:   &ep.Totals,
		Palette:  opts.Palette,
	}
	return ep
}

// Running reports whether another frame may be stepped.
func (ep *Episode) Running() bool {
	return !ep.State.Terminal() && (ep.opts.MaxFrames <= 0 || ep.frames < ep.opts.MaxFrames)
}

// Step advances one frame and accumulates its fitness delta.
func (ep *Episode) Step() (systems.StepResult, error) {
	ep.frames++
	res, err := ep.engine.Step(ep.State)
	if err != nil {
		return res, fmt.Errorf("frame %d: %w", ep.frames, err)
	}
	ep.fitness += res.FitnessDelta
	return res, nil
}

// Frames returns the number of frames stepped so far.
func (ep *Episode) Frames() int { return ep.frames }

// Result summarizes the episode as it stands.
func (ep *Episode) Result() telemetry.EpisodeResult {
	return telemetry.EpisodeResult{
		FitnessDelta:   ep.fitness,
		Frames:         ep.frames,
		LivesRemaining: ep.State.Lives,
		PlayerAlive:    ep.State.PlayerAlive(),
		Events:         ep.Events,
		Rewards:        ep.Totals,
	}
}

// RunEpisode plays one episode to termination or the frame cap. hook may be nil.
func RunEpisode(
	opts EpisodeOptions,
	decision systems.DecisionSource,
	observe systems.ObservationBuilder,
	seed int64,
	hook FrameHook,
) (telemetry.EpisodeResult, error) {
	ep := NewEpisode(opts, decision, observe, seed)
	for ep.Running() {
		res, err := ep.Step()
		if err != nil {
			return ep.Result(), err
		}
		if hook != nil && !hook(ep.State, res) {
			break
		}
		if res.Terminal {
			break
		}
	}
	return ep.Result(), nil
}
