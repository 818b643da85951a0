package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RewardProfile is a named bundle of reward and penalty coefficients.
// Penalties are stored as positive magnitudes; the engine negates them.
type RewardProfile struct {
	SurvivalReward     float64 `yaml:"survival_reward"`
	KillReward         float64 `yaml:"kill_reward"`
	BossKillReward     float64 `yaml:"boss_kill_reward"`
	WaveClearReward    float64 `yaml:"wave_clear_reward"`
	ShotPenalty        float64 `yaml:"shot_penalty"`
	LaserHitPenalty    float64 `yaml:"laser_hit_penalty"`
	DeathPenalty       float64 `yaml:"death_penalty"`
	EnemyEscapePenalty float64 `yaml:"enemy_escape_penalty"`
	LevelFailPenalty   float64 `yaml:"level_fail_penalty"`
}

var rewardProfileKeys = []string{
	"survival_reward",
	"kill_reward",
	"boss_kill_reward",
	"wave_clear_reward",
	"shot_penalty",
	"laser_hit_penalty",
	"death_penalty",
	"enemy_escape_penalty",
	"level_fail_penalty",
}

// UnmarshalYAML requires every coefficient to be present. A profile has no defaults.
func (p *RewardProfile) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]float64
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("reward profile: %w", err)
	}

	var missing, unknown []string
	for _, key := range rewardProfileKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	for key := range raw {
		if !isRewardProfileKey(key) {
			unknown = append(unknown, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("reward profile (line %d): missing %s", node.Line, strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("reward profile (line %d): unknown %s", node.Line, strings.Join(unknown, ", "))
	}

	*p = RewardProfile{
		SurvivalReward:     raw["survival_reward"],
		KillReward:         raw["kill_reward"],
		BossKillReward:     raw["boss_kill_reward"],
		WaveClearReward:    raw["wave_clear_reward"],
		ShotPenalty:        raw["shot_penalty"],
		LaserHitPenalty:    raw["laser_hit_penalty"],
		DeathPenalty:       raw["death_penalty"],
		EnemyEscapePenalty: raw["enemy_escape_penalty"],
		LevelFailPenalty:   raw["level_fail_penalty"],
	}
	return nil
}

func isRewardProfileKey(key string) bool {
	for _, k := range rewardProfileKeys {
		if k == key {
			return true
		}
	}
	return false
}
