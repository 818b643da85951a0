// Package main tunes reward profile coefficients with CMA-ES.
package main

import (
	"github.com/pthm-cable/invaders/config"
)

// TunedProfile is the reward profile name the tuner trains and writes.
const TunedProfile = "tuned"

// ParamSpec defines a single optimizable coefficient.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable coefficients.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates one parameter per reward profile coefficient.
// Defaults match the balanced profile.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Rewards
			{Name: "survival_reward", Path: "reward_profiles.tuned.survival_reward", Min: 0, Max: 0.05, Default: 0.01},
			{Name: "kill_reward", Path: "reward_profiles.tuned.kill_reward", Min: 0, Max: 20, Default: 8},
			{Name: "boss_kill_reward", Path: "reward_profiles.tuned.boss_kill_reward", Min: 0, Max: 50, Default: 20},
			{Name: "wave_clear_reward", Path: "reward_profiles.tuned.wave_clear_reward", Min: 0, Max: 10, Default: 3},
			// Penalties, stored as magnitudes
			{Name: "shot_penalty", Path: "reward_profiles.tuned.shot_penalty", Min: 0, Max: 0.5, Default: 0.005},
			{Name: "laser_hit_penalty", Path: "reward_profiles.tuned.laser_hit_penalty", Min: 0, Max: 15, Default: 6},
			{Name: "death_penalty", Path: "reward_profiles.tuned.death_penalty", Min: 0, Max: 20, Default: 7},
			{Name: "enemy_escape_penalty", Path: "reward_profiles.tuned.enemy_escape_penalty", Min: 0, Max: 5, Default: 1},
			{Name: "level_fail_penalty", Path: "reward_profiles.tuned.level_fail_penalty", Min: 0, Max: 10, Default: 3},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = max(spec.Min, min(spec.Max, v[i]))
	}
	return clamped
}

// Profile builds a reward profile from clamped values in Specs order.
func (pv *ParamVector) Profile(values []float64) config.RewardProfile {
	c := pv.Clamp(values)
	return config.RewardProfile{
		SurvivalReward:     c[0],
		KillReward:         c[1],
		BossKillReward:     c[2],
		WaveClearReward:    c[3],
		ShotPenalty:        c[4],
		LaserHitPenalty:    c[5],
		DeathPenalty:       c[6],
		EnemyEscapePenalty: c[7],
		LevelFailPenalty:   c[8],
	}
}

// ApplyToConfig stores the values as the tuned profile and makes it the
// training profile.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	profiles := make(map[string]config.RewardProfile, len(cfg.RewardProfiles)+1)
	for name, p := range cfg.RewardProfiles {
		profiles[name] = p
	}
	profiles[TunedProfile] = pv.Profile(values)
	cfg.RewardProfiles = profiles
	cfg.Training.Profile = TunedProfile
}

// ExtractFromConfig reads a profile's coefficients in Specs order.
func (pv *ParamVector) ExtractFromConfig(p config.RewardProfile) []float64 {
	return []float64{
		p.SurvivalReward,
		p.KillReward,
		p.BossKillReward,
		p.WaveClearReward,
		p.ShotPenalty,
		p.LaserHitPenalty,
		p.DeathPenalty,
		p.EnemyEscapePenalty,
		p.LevelFailPenalty,
	}
}
