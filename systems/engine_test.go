package systems

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/config"
	"github.com/pthm-cable/invaders/telemetry"
)

const world = 750.0

// constRNG always draws the same value (mod n).
type constRNG int

func (c constRNG) Intn(n int) int { return int(c) % n }

func testProfile() *config.RewardProfile {
	return &config.RewardProfile{
		SurvivalReward:     0.01,
		KillReward:         10,
		BossKillReward:     30,
		WaveClearReward:    3,
		ShotPenalty:        0.5,
		LaserHitPenalty:    6,
		DeathPenalty:       7,
		EnemyEscapePenalty: 1,
		LevelFailPenalty:   4,
	}
}

func idle(obs []float64) ([]float64, error) { return []float64{0, 0, 0}, nil }

func noObservation(*components.Ship, []*components.Ship, float64, float64) []float64 { return nil }

func newTestEngine(rp *config.RewardProfile, rng RNG, decide DecisionFunc) *Engine {
	return &Engine{
		Decision: decide,
		RNG:      rng,
		Observe:  ObservationFunc(noObservation),
		Width:    world,
		Height:   world,
		Rewards:  rp,
		Events:   &telemetry.EventTotals{},
		Totals:   &telemetry.RewardTotals{},
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func mustStep(t *testing.T, e *Engine, s *EpisodeState) StepResult {
	t.Helper()
	res, err := e.Step(s)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return res
}

func TestFirstFrameSpawnsWave(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()

	res := mustStep(t, e, s)

	if s.Level != 1 || s.WaveLength != 10 || s.BossActive {
		t.Fatalf("level=%d wave=%d boss=%v, want 1/10/false", s.Level, s.WaveLength, s.BossActive)
	}
	if len(s.Enemies) != WaveSize(10) {
		t.Fatalf("spawned %d enemies, want %d", len(s.Enemies), WaveSize(10))
	}
	for _, enemy := range s.Enemies {
		if enemy.X != 50 || enemy.Y != -1500+components.EnemyVelocity || enemy.Color != components.ColorRed {
			t.Errorf("enemy at (%v,%v) color %v", enemy.X, enemy.Y, enemy.Color)
		}
	}
	if s.Frame != 1 || res.Terminal || res.ActiveBoss != nil {
		t.Errorf("unexpected result %+v frame %d", res, s.Frame)
	}
	if !approx(res.FitnessDelta, 0.01) || !approx(e.Totals.Survival, 0.01) {
		t.Errorf("survival reward delta=%v total=%v", res.FitnessDelta, e.Totals.Survival)
	}
}

func TestSpawnUsesConfiguredPalette(t *testing.T) {
	e := newTestEngine(nil, constRNG(0), idle)
	e.Palette = []components.Color{components.ColorGreen}
	s := NewEpisodeState()
	mustStep(t, e, s)
	for _, enemy := range s.Enemies {
		if enemy.Color != components.ColorGreen {
			t.Fatalf("expected green enemy, got %v", enemy.Color)
		}
	}
}

func TestSpawnRanges(t *testing.T) {
	e := newTestEngine(nil, rand.New(rand.NewSource(3)), idle)
	s := NewEpisodeState()
	mustStep(t, e, s)
	for _, enemy := range s.Enemies {
		y := enemy.Y - components.EnemyVelocity
		if enemy.X < 50 || enemy.X >= world-100 || y < -1500 || y >= -100 {
			t.Errorf("enemy spawned outside range at (%v,%v)", enemy.X, y)
		}
	}
}

func TestWaveSize(t *testing.T) {
	tests := []struct{ length, want int }{
		{0, 1},
		{1, 1},
		{5, 4},
		{10, 8},
		{15, 12},
		{40, 32},
	}
	for _, tt := range tests {
		if got := WaveSize(tt.length); got != tt.want {
			t.Errorf("WaveSize(%d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}

func TestWaveClearSpawnsBoss(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()
	s.Level = 1
	s.WaveLength = 10

	res := mustStep(t, e, s)

	if !s.BossActive || len(s.Enemies) != 1 || !s.Enemies[0].IsBoss() {
		t.Fatalf("expected a single boss, got %d enemies (boss active %v)", len(s.Enemies), s.BossActive)
	}
	boss := s.Enemies[0]
	if res.ActiveBoss != boss || s.ActiveBoss() != boss {
		t.Error("active boss should be the spawned boss")
	}
	if boss.Y <= -components.BossHeight || boss.Y > 0 {
		t.Errorf("boss should ease down from above the screen, y=%v", boss.Y)
	}
	if boss.X <= (world-components.BossWidth)/2 {
		t.Errorf("boss should start patrolling right from centre, x=%v", boss.X)
	}
	if e.Events.WaveClears != 1 || !approx(e.Totals.WaveClear, 3) {
		t.Errorf("wave clear not credited: %+v %+v", *e.Events, *e.Totals)
	}
	if !approx(res.FitnessDelta, 3.01) {
		t.Errorf("delta = %v, want 3.01", res.FitnessDelta)
	}
	if s.Level != 1 {
		t.Errorf("boss phase must not advance level, got %d", s.Level)
	}
}

func TestBossDefeatStartsNextWave(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()
	s.Level = 1
	s.WaveLength = 10
	s.BossActive = true

	mustStep(t, e, s)

	if s.BossActive || s.Level != 2 || s.WaveLength != 15 {
		t.Fatalf("boss=%v level=%d wave=%d", s.BossActive, s.Level, s.WaveLength)
	}
	if len(s.Enemies) != 12 {
		t.Errorf("expected 12 enemies, got %d", len(s.Enemies))
	}
	if e.Events.WaveClears != 0 {
		t.Error("boss defeat is not a wave clear")
	}
}

func TestPlayerLaserKillsEnemy(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()
	enemy := components.NewEnemy(200, 300, components.ColorRed)
	s.Enemies = []*components.Ship{enemy}
	s.Player.Lasers = []*components.Laser{components.NewLaser(186, 293, s.Player.LaserSprite)}

	res := mustStep(t, e, s)

	if len(s.Enemies) != 0 || len(s.Player.Lasers) != 0 {
		t.Fatalf("expected enemy and laser removed, got %d enemies %d lasers", len(s.Enemies), len(s.Player.Lasers))
	}
	if e.Events.Kills != 1 || e.Events.BossKills != 0 {
		t.Errorf("events %+v", *e.Events)
	}
	if !approx(e.Totals.Kill, 10) || !approx(res.FitnessDelta, 10.01) {
		t.Errorf("kill reward total=%v delta=%v", e.Totals.Kill, res.FitnessDelta)
	}
}

func TestPlayerLaserKillsBoss(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()
	s.Level = 1
	s.BossActive = true
	boss := components.NewBoss(285, 200, 1)
	boss.Health = components.LaserDamage
	s.Enemies = []*components.Ship{boss}
	bcx, bcy := boss.Center()
	s.Player.Lasers = []*components.Laser{
		components.NewLaser(bcx-49, bcy-42+components.LaserVelocity, s.Player.LaserSprite),
	}

	res := mustStep(t, e, s)

	if len(s.Enemies) != 0 {
		t.Fatal("boss should be removed")
	}
	if e.Events.Kills != 1 || e.Events.BossKills != 1 {
		t.Errorf("boss kill should count as kill and boss kill: %+v", *e.Events)
	}
	if !approx(e.Totals.Kill, 30) || res.ActiveBoss != nil {
		t.Errorf("boss kill reward %v, active boss %v", e.Totals.Kill, res.ActiveBoss)
	}
	if !s.BossActive {
		t.Error("boss phase flag clears on the next empty frame, not the kill frame")
	}
}

func TestDamagedBossSurvivesHit(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()
	boss := components.NewBoss(285, 200, 1)
	s.Enemies = []*components.Ship{boss}
	bcx, bcy := boss.Center()
	s.Player.Lasers = []*components.Laser{
		components.NewLaser(bcx-49, bcy-42+components.LaserVelocity, s.Player.LaserSprite),
	}

	mustStep(t, e, s)

	if boss.Health != boss.MaxHealth-components.LaserDamage {
		t.Errorf("boss health %d, want %d", boss.Health, boss.MaxHealth-components.LaserDamage)
	}
	if len(s.Enemies) != 1 || e.Events.Kills != 0 || len(s.Player.Lasers) != 0 {
		t.Error("hit should consume the laser without killing the boss")
	}
}

func TestEnemyLaserKillsPlayer(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()
	far := components.NewEnemy(50, -500, components.ColorBlue)
	far.Lasers = []*components.Laser{components.NewLaser(301, 633, far.LaserSprite)}
	s.Enemies = []*components.Ship{far}

	res := mustStep(t, e, s)

	if s.Player.Health != 0 || len(far.Lasers) != 0 {
		t.Fatalf("player health %d, lasers left %d", s.Player.Health, len(far.Lasers))
	}
	if !res.Terminal || res.Outcome != OutcomePlayerDeath {
		t.Errorf("expected player death, got %+v", res)
	}
	if e.Events.LaserHitsTaken != 1 || e.Events.PlayerDeaths != 1 || e.Events.LevelFailures != 0 {
		t.Errorf("events %+v", *e.Events)
	}
	// Laser hits and death both land in the death bucket.
	if !approx(e.Totals.DeathPenalty, -13) || !approx(res.FitnessDelta, 0.01-13) {
		t.Errorf("death total %v delta %v", e.Totals.DeathPenalty, res.FitnessDelta)
	}
}

func TestEnemyEscape(t *testing.T) {
	tests := []struct {
		name  string
		ship  func() *components.Ship
		loss  int
		lives int
	}{
		{"enemy", func() *components.Ship { return components.NewEnemy(50, 700, components.ColorRed) }, 1, 4},
		{"boss", func() *components.Ship { return components.NewBoss(285, 700, 1) }, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(testProfile(), constRNG(0), idle)
			s := NewEpisodeState()
			s.Enemies = []*components.Ship{tt.ship()}

			res := mustStep(t, e, s)

			if s.Lives != tt.lives || len(s.Enemies) != 0 {
				t.Fatalf("lives %d enemies %d", s.Lives, len(s.Enemies))
			}
			if e.Events.EnemyEscapes != 1 {
				t.Errorf("escapes %d", e.Events.EnemyEscapes)
			}
			if !approx(e.Totals.EnemyEscapePenalty, -float64(tt.loss)) {
				t.Errorf("escape penalty %v", e.Totals.EnemyEscapePenalty)
			}
			if res.Terminal {
				t.Error("escape with lives left is not terminal")
			}
		})
	}
}

func TestLevelFailure(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()
	s.Lives = 1
	s.Enemies = []*components.Ship{components.NewEnemy(50, 700, components.ColorRed)}

	res := mustStep(t, e, s)

	if !res.Terminal || res.Outcome != OutcomeLevelFailure {
		t.Fatalf("expected level failure, got %+v", res)
	}
	if e.Events.LevelFailures != 1 || e.Events.PlayerDeaths != 0 {
		t.Errorf("events %+v", *e.Events)
	}
	if !approx(e.Totals.LevelFailPenalty, -4) {
		t.Errorf("level fail penalty %v", e.Totals.LevelFailPenalty)
	}
}

func TestDeathTakesPrecedenceOverLevelFailure(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()
	s.Lives = 1
	shooter := components.NewEnemy(50, 700, components.ColorRed)
	shooter.Lasers = []*components.Laser{components.NewLaser(301, 633, shooter.LaserSprite)}
	s.Enemies = []*components.Ship{shooter}

	res := mustStep(t, e, s)

	if s.Lives > 0 || s.Player.Health > 0 {
		t.Fatalf("setup should exhaust both: lives %d health %d", s.Lives, s.Player.Health)
	}
	if res.Outcome != OutcomePlayerDeath {
		t.Errorf("outcome %v, want player death", res.Outcome)
	}
	if e.Events.PlayerDeaths != 1 || e.Events.LevelFailures != 0 || e.Totals.LevelFailPenalty != 0 {
		t.Errorf("only the death should be recorded: %+v %+v", *e.Events, *e.Totals)
	}
}

func TestHullCollision(t *testing.T) {
	e := newTestEngine(testProfile(), constRNG(0), idle)
	s := NewEpisodeState()
	rammer := components.NewEnemy(315, 647, components.ColorGreen)
	s.Enemies = []*components.Ship{rammer}

	res := mustStep(t, e, s)

	if s.Player.Health != 0 || len(s.Enemies) != 0 {
		t.Fatalf("health %d enemies %d", s.Player.Health, len(s.Enemies))
	}
	if e.Events.Kills != 0 || e.Events.LaserHitsTaken != 0 || e.Events.PlayerDeaths != 1 {
		t.Errorf("collision should only record the death: %+v", *e.Events)
	}
	if res.Outcome != OutcomePlayerDeath {
		t.Errorf("outcome %v", res.Outcome)
	}
}

func TestEnemyFiresOnWindowHit(t *testing.T) {
	e := newTestEngine(nil, constRNG(1), idle)
	s := NewEpisodeState()
	enemy := components.NewEnemy(200, 100, components.ColorRed)
	s.Enemies = []*components.Ship{enemy}

	mustStep(t, e, s)

	if len(enemy.Lasers) != 1 {
		t.Fatalf("expected 1 laser, got %d", len(enemy.Lasers))
	}
	l := enemy.Lasers[0]
	if l.X != 180 || l.Y != 103+components.LaserVelocity {
		t.Errorf("laser at (%v,%v)", l.X, l.Y)
	}

	mustStep(t, e, s)
	if len(enemy.Lasers) != 1 {
		t.Error("enemy should be on cooldown the next frame")
	}
}

func TestShootWindow(t *testing.T) {
	enemy := components.NewEnemy(0, 0, components.ColorRed)
	boss := components.NewBoss(0, 0, 1)
	tests := []struct {
		name  string
		ship  *components.Ship
		level int
		want  int
	}{
		{"enemy", enemy, 9, 120},
		{"boss level 1", boss, 1, 48},
		{"boss level 12", boss, 12, 26},
		{"boss floor", boss, 13, 25},
		{"boss deep floor", boss, 40, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shootWindow(tt.ship, tt.level); got != tt.want {
				t.Errorf("shootWindow = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlayerActions(t *testing.T) {
	shootRight := func([]float64) ([]float64, error) { return []float64{0.9, 0, 0.6}, nil }
	e := newTestEngine(testProfile(), constRNG(0), shootRight)
	s := NewEpisodeState()
	s.Enemies = []*components.Ship{components.NewEnemy(50, -900, components.ColorRed)}

	mustStep(t, e, s)
	if s.Player.X != components.PlayerSpawnX+components.PlayerVelocity {
		t.Errorf("player x %v, want moved right", s.Player.X)
	}
	if e.Events.ShotsFired != 1 || !approx(e.Totals.ShotPenalty, -0.5) {
		t.Errorf("shot not recorded: %+v %+v", *e.Events, *e.Totals)
	}

	mustStep(t, e, s)
	if e.Events.ShotsFired != 1 {
		t.Error("cooldown should block the second shot")
	}
}

func TestPlayerMovementBounds(t *testing.T) {
	tests := []struct {
		name   string
		out    []float64
		startX float64
	}{
		{"right edge", []float64{1, 0, 0}, 0},
		{"left edge", []float64{0, 1, 0}, components.PlayerVelocity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.out
			e := newTestEngine(nil, constRNG(0), func([]float64) ([]float64, error) { return out, nil })
			s := NewEpisodeState()
			s.Enemies = []*components.Ship{components.NewEnemy(50, -900, components.ColorRed)}
			start := tt.startX
			if start == 0 {
				start = world - float64(s.Player.Width()) - components.PlayerVelocity
			}
			s.Player.X = start

			mustStep(t, e, s)
			if s.Player.X != start {
				t.Errorf("player moved past the edge: %v -> %v", start, s.Player.X)
			}
		})
	}
}

func TestReplayModeSkipsRewards(t *testing.T) {
	e := newTestEngine(nil, constRNG(0), idle)
	s := NewEpisodeState()
	s.Enemies = []*components.Ship{components.NewEnemy(200, 300, components.ColorRed)}
	s.Player.Lasers = []*components.Laser{components.NewLaser(186, 293, s.Player.LaserSprite)}

	res := mustStep(t, e, s)

	if res.FitnessDelta != 0 || *e.Totals != (telemetry.RewardTotals{}) {
		t.Errorf("replay mode must not touch rewards: delta %v totals %+v", res.FitnessDelta, *e.Totals)
	}
	if e.Events.Kills != 1 {
		t.Error("events are still counted in replay mode")
	}
}

func TestShortActionFailsFast(t *testing.T) {
	short := func([]float64) ([]float64, error) { return []float64{1, 1}, nil }
	e := newTestEngine(testProfile(), constRNG(0), short)
	s := NewEpisodeState()

	_, err := e.Step(s)
	if !errors.Is(err, ErrShortAction) {
		t.Fatalf("expected ErrShortAction, got %v", err)
	}
}

func TestDecisionErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	e := newTestEngine(nil, constRNG(0), func([]float64) ([]float64, error) { return nil, boom })
	if _, err := e.Step(NewEpisodeState()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped decision error, got %v", err)
	}
}

func TestStepIsDeterministic(t *testing.T) {
	run := func() (telemetry.EventTotals, telemetry.RewardTotals, float64, *EpisodeState) {
		frame := 0
		decide := func([]float64) ([]float64, error) {
			frame++
			return []float64{float64(frame % 2), float64((frame + 1) % 2), 1}, nil
		}
		var events telemetry.EventTotals
		var totals telemetry.RewardTotals
		rng := rand.New(rand.NewSource(1_001_000))
		s := NewEpisodeState()
		var fitness float64
		for i := 0; i < 1500 && !s.Terminal(); i++ {
			res, err := StepFrame(s, DecisionFunc(decide), rng, ObservationFunc(noObservation),
				world, world, testProfile(), &events, &totals)
			if err != nil {
				t.Fatal(err)
			}
			fitness += res.FitnessDelta
			if res.Terminal {
				break
			}
		}
		return events, totals, fitness, s
	}

	ev1, tot1, fit1, s1 := run()
	ev2, tot2, fit2, s2 := run()
	if ev1 != ev2 || tot1 != tot2 || fit1 != fit2 {
		t.Errorf("runs diverged: %+v vs %+v, %v vs %v", ev1, ev2, fit1, fit2)
	}
	if s1.Frame != s2.Frame || s1.Lives != s2.Lives || len(s1.Enemies) != len(s2.Enemies) {
		t.Error("final states diverged")
	}
	if !approx(fit1, tot1.Sum()) {
		t.Errorf("fitness %v should equal summed reward totals %v", fit1, tot1.Sum())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := newTestEngine(nil, rand.New(rand.NewSource(5)), idle)
	s := NewEpisodeState()
	for i := 0; i < 3; i++ {
		mustStep(t, e, s)
	}
	s.Enemies = append(s.Enemies, components.NewBoss(100, 50, 2))
	s.Player.Shoot()

	restored, err := RestoreEpisodeState(s.Snapshot(world, world))
	if err != nil {
		t.Fatalf("RestoreEpisodeState: %v", err)
	}
	if restored.Frame != s.Frame || restored.Level != s.Level || len(restored.Enemies) != len(s.Enemies) {
		t.Fatalf("restored header differs")
	}
	for i, enemy := range s.Enemies {
		got := restored.Enemies[i]
		if got.Kind != enemy.Kind || got.X != enemy.X || got.Y != enemy.Y || got.Color != enemy.Color {
			t.Errorf("enemy %d differs: %+v vs %+v", i, got, enemy)
		}
	}
	boss := restored.Enemies[len(restored.Enemies)-1]
	if boss.Boss == nil || boss.Boss.Level != 2 || boss.Boss.TargetY != s.Enemies[len(s.Enemies)-1].Boss.TargetY {
		t.Error("boss patrol state not restored")
	}
	if len(restored.Player.Lasers) != 1 || restored.Player.CoolDown != 1 {
		t.Error("player lasers and cooldown not restored")
	}
}
