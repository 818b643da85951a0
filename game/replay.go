package game

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yaricom/goNEAT/v4/neat/genetics"

	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/systems"
	"github.com/pthm-cable/invaders/telemetry"
)

// DefaultReplayProfile is used when a genome path names no known profile.
const DefaultReplayProfile = "kill_focus"

// InferProfile returns the first known profile name contained in the file
// name of path, case-insensitively.
func InferProfile(path string, known []string) string {
	name := strings.ToLower(filepath.Base(path))
	for _, profile := range known {
		if strings.Contains(name, strings.ToLower(profile)) {
			return profile
		}
	}
	return DefaultReplayProfile
}

// ReplaySession plays a saved genome through reward-free episodes, one frame
// per Step. A new episode starts with the next seed after each Restart.
type ReplaySession struct {
	Profile    string
	Generation int // generation the genome was saved from

	opts    EpisodeOptions
	brain   *recordingBrain
	labels  []string
	observe systems.ObservationBuilder
	seed    int64
	episode *Episode
	count   int
}

// recordingBrain keeps the last observation and action vector for display.
type recordingBrain struct {
	*neural.BrainController
	observation []float64
	outputs     []float64
}

func (r *recordingBrain) Activate(observation []float64) ([]float64, error) {
	out, err := r.BrainController.Activate(observation)
	if err != nil {
		return nil, err
	}
	r.observation = append(r.observation[:0], observation...)
	r.outputs = append(r.outputs[:0], out...)
	return out, nil
}

// LoadReplay loads the genome at path. The profile comes from the file name,
// falling back to the profile stored in the record.
func LoadReplay(cfg *config.Config, path string, seed int64) (*ReplaySession, error) {
	rec, err := neural.LoadGenome(path)
	if err != nil {
		return nil, err
	}
	genome, err := rec.Genome()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	observation := rec.Observation
	if observation == "" {
		observation = cfg.Training.Observation
	}
	observe, err := neural.NewObservationBuilder(observation)
	if err != nil {
		return nil, err
	}
	labels, err := neural.InputLabels(observation)
	if err != nil {
		return nil, err
	}
	brain, err := neural.NewBrainController(genome)
	if err != nil {
		return nil, err
	}

	opts, err := EpisodeOptionsFromConfig(cfg, nil)
	if err != nil {
		return nil, err
	}
	opts.MaxFrames = 0

	profile := InferProfile(path, cfg.Derived.ProfileNames)
	if profile == DefaultReplayProfile && rec.Profile != "" {
		profile = rec.Profile
	}

	s := &ReplaySession{
		Profile:    profile,
		Generation: rec.Generation,
		opts:       opts,
		brain:      &recordingBrain{BrainController: brain},
		labels:     labels,
		observe:    systems.ObservationFunc(observe),
		seed:       seed,
	}
	s.Restart()
	slog.Info("replaying genome", "path", path, "profile", profile, "genome", genome.Id)
	return s, nil
}

// Restart begins a fresh episode.
func (s *ReplaySession) Restart() {
	s.brain.observation = s.brain.observation[:0]
	s.brain.outputs = s.brain.outputs[:0]
	s.episode = NewEpisode(s.opts, s.brain, s.observe, s.seed+int64(s.count))
	s.count++
}

// Genome returns the replayed genome.
func (s *ReplaySession) Genome() *genetics.Genome { return s.brain.Genome }

// InputLabels names the observation features fed to the genome.
func (s *ReplaySession) InputLabels() []string { return s.labels }

// LastActivation returns the latest observation and action vector.
func (s *ReplaySession) LastActivation() (observation, outputs []float64) {
	return s.brain.observation, s.brain.outputs
}

// State returns the current episode state.
func (s *ReplaySession) State() *systems.EpisodeState { return s.episode.State }

// Running reports whether the current episode can advance.
func (s *ReplaySession) Running() bool { return s.episode.Running() }

// Step advances the current episode by one frame.
func (s *ReplaySession) Step() (systems.StepResult, error) {
	return s.episode.Step()
}

// Events returns the current episode's event counts.
func (s *ReplaySession) Events() telemetry.EventTotals { return s.episode.Events }

// Snapshot captures the current episode state.
func (s *ReplaySession) Snapshot() *telemetry.Snapshot {
	snap := s.episode.State.Snapshot(s.opts.Width, s.opts.Height)
	snap.Seed = s.seed + int64(s.count-1)
	snap.Profile = s.Profile
	return snap
}

// EndReason describes why the current episode stopped.
func (s *ReplaySession) EndReason() string {
	return EndReason(s.episode.State)
}

// EndReason describes a terminal state.
func EndReason(state *systems.EpisodeState) string {
	switch {
	case state.Player.Health <= 0:
		return "player destroyed"
	case state.Lives <= 0:
		return "lives depleted"
	default:
		return "stopped"
	}
}
