package telemetry

import "log/slog"

// EventTotals counts discrete gameplay events. The zero value is the merge identity.
type EventTotals struct {
	ShotsFired     int `csv:"shots_fired"`
	Kills          int `csv:"kills"`
	BossKills      int `csv:"boss_kills"`
	EnemyEscapes   int `csv:"enemy_escapes"`
	PlayerDeaths   int `csv:"player_deaths"`
	WaveClears     int `csv:"wave_clears"`
	LevelFailures  int `csv:"level_failures"`
	LaserHitsTaken int `csv:"laser_hits_taken"`
}

// Add folds o into e field by field.
func (e *EventTotals) Add(o EventTotals) {
	e.ShotsFired += o.ShotsFired
	e.Kills += o.Kills
	e.BossKills += o.BossKills
	e.EnemyEscapes += o.EnemyEscapes
	e.PlayerDeaths += o.PlayerDeaths
	e.WaveClears += o.WaveClears
	e.LevelFailures += o.LevelFailures
	e.LaserHitsTaken += o.LaserHitsTaken
}

// Merge returns the field-wise sum of e and o.
func (e EventTotals) Merge(o EventTotals) EventTotals {
	e.Add(o)
	return e
}

// Map returns the counters keyed by their report column names.
func (e EventTotals) Map() map[string]int {
	return map[string]int{
		"shots_fired":      e.ShotsFired,
		"kills":            e.Kills,
		"boss_kills":       e.BossKills,
		"enemy_escapes":    e.EnemyEscapes,
		"player_deaths":    e.PlayerDeaths,
		"wave_clears":      e.WaveClears,
		"level_failures":   e.LevelFailures,
		"laser_hits_taken": e.LaserHitsTaken,
	}
}

// KillPerShot returns kills divided by shots, or 0 when nothing was fired.
func (e EventTotals) KillPerShot() float64 {
	if e.ShotsFired == 0 {
		return 0
	}
	return float64(e.Kills) / float64(e.ShotsFired)
}

// LogValue implements slog.LogValuer for structured logging.
func (e EventTotals) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("shots", e.ShotsFired),
		slog.Int("kills", e.Kills),
		slog.Int("boss_kills", e.BossKills),
		slog.Int("escapes", e.EnemyEscapes),
		slog.Int("deaths", e.PlayerDeaths),
		slog.Int("wave_clears", e.WaveClears),
		slog.Int("level_failures", e.LevelFailures),
		slog.Int("laser_hits", e.LaserHitsTaken),
	)
}

// RewardTotals sums reward contributions per category.
// Boss kills land in Kill; laser hits land in DeathPenalty.
type RewardTotals struct {
	Survival           float64 `csv:"survival_reward_total"`
	Kill               float64 `csv:"kill_reward_total"`
	WaveClear          float64 `csv:"wave_clear_reward_total"`
	ShotPenalty        float64 `csv:"shot_penalty_total"`
	DeathPenalty       float64 `csv:"death_penalty_total"`
	EnemyEscapePenalty float64 `csv:"enemy_escape_penalty_total"`
	LevelFailPenalty   float64 `csv:"level_fail_penalty_total"`
}

// Add folds o into r field by field.
func (r *RewardTotals) Add(o RewardTotals) {
	r.Survival += o.Survival
	r.Kill += o.Kill
	r.WaveClear += o.WaveClear
	r.ShotPenalty += o.ShotPenalty
	r.DeathPenalty += o.DeathPenalty
	r.EnemyEscapePenalty += o.EnemyEscapePenalty
	r.LevelFailPenalty += o.LevelFailPenalty
}

// Merge returns the field-wise sum of r and o.
func (r RewardTotals) Merge(o RewardTotals) RewardTotals {
	r.Add(o)
	return r
}

// Sum returns the total of all categories.
func (r RewardTotals) Sum() float64 {
	return r.Survival + r.Kill + r.WaveClear + r.ShotPenalty +
		r.DeathPenalty + r.EnemyEscapePenalty + r.LevelFailPenalty
}

// Map returns the totals keyed by their report column names.
func (r RewardTotals) Map() map[string]float64 {
	return map[string]float64{
		"survival_reward_total":      r.Survival,
		"kill_reward_total":          r.Kill,
		"wave_clear_reward_total":    r.WaveClear,
		"shot_penalty_total":         r.ShotPenalty,
		"death_penalty_total":        r.DeathPenalty,
		"enemy_escape_penalty_total": r.EnemyEscapePenalty,
		"level_fail_penalty_total":   r.LevelFailPenalty,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (r RewardTotals) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("survival", r.Survival),
		slog.Float64("kill", r.Kill),
		slog.Float64("wave", r.WaveClear),
		slog.Float64("shot", r.ShotPenalty),
		slog.Float64("death", r.DeathPenalty),
		slog.Float64("escape", r.EnemyEscapePenalty),
		slog.Float64("fail", r.LevelFailPenalty),
	)
}

// MergeEvents sums any number of event totals.
func MergeEvents(all ...EventTotals) EventTotals {
	var out EventTotals
	for _, e := range all {
		out.Add(e)
	}
	return out
}

// MergeRewards sums any number of reward totals.
func MergeRewards(all ...RewardTotals) RewardTotals {
	var out RewardTotals
	for _, r := range all {
		out.Add(r)
	}
	return out
}

// EpisodeResult summarizes one finished episode.
type EpisodeResult struct {
	FitnessDelta   float64
	Frames         int
	LivesRemaining int
	PlayerAlive    bool
	Events         EventTotals
	Rewards        RewardTotals
}
