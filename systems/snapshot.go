package systems

import (
	"fmt"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/telemetry"
)

// Snapshot captures the state in serializable form. Seed and Profile are left
// for the caller.
func (s *EpisodeState) Snapshot(width, height float64) *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		WorldWidth:  width,
		WorldHeight: height,
		Frame:       s.Frame,
		Level:       s.Level,
		Lives:       s.Lives,
		WaveLength:  s.WaveLength,
		BossActive:  s.BossActive,
		Player:      shipState(s.Player),
		Enemies:     make([]telemetry.ShipState, len(s.Enemies)),
	}
	for i, enemy := range s.Enemies {
		snap.Enemies[i] = shipState(enemy)
	}
	return snap
}

// RestoreEpisodeState rebuilds an EpisodeState from a snapshot.
func RestoreEpisodeState(snap *telemetry.Snapshot) (*EpisodeState, error) {
	player, err := restoreShip(snap.Player)
	if err != nil {
		return nil, fmt.Errorf("player: %w", err)
	}
	if player.Kind != components.KindPlayer {
		return nil, fmt.Errorf("player slot holds a %s", player.Kind)
	}

	s := &EpisodeState{
		Player:     player,
		Enemies:    make([]*components.Ship, 0, len(snap.Enemies)),
		WaveLength: snap.WaveLength,
		BossActive: snap.BossActive,
		Level:      snap.Level,
		Lives:      snap.Lives,
		Frame:      snap.Frame,
	}
	for i, st := range snap.Enemies {
		enemy, err := restoreShip(st)
		if err != nil {
			return nil, fmt.Errorf("enemy %d: %w", i, err)
		}
		s.Enemies = append(s.Enemies, enemy)
	}
	return s, nil
}

func shipState(ship *components.Ship) telemetry.ShipState {
	st := telemetry.ShipState{
		Kind:      ship.Kind.String(),
		X:         ship.X,
		Y:         ship.Y,
		Health:    ship.Health,
		MaxHealth: ship.MaxHealth,
		CoolDown:  ship.CoolDown,
	}
	if ship.Kind == components.KindEnemy {
		st.Color = ship.Color.String()
	}
	if ship.Boss != nil {
		st.BossLevel = ship.Boss.Level
		st.BossDirection = ship.Boss.Direction
		st.BossSpeed = ship.Boss.PatrolSpeed
		st.BossTargetY = ship.Boss.TargetY
	}
	for _, l := range ship.Lasers {
		st.Lasers = append(st.Lasers, telemetry.LaserState{X: l.X, Y: l.Y})
	}
	return st
}

func restoreShip(st telemetry.ShipState) (*components.Ship, error) {
	kind, err := components.ParseKind(st.Kind)
	if err != nil {
		return nil, err
	}

	var ship *components.Ship
	switch kind {
	case components.KindPlayer:
		ship = components.NewPlayer(st.X, st.Y)
	case components.KindEnemy:
		c, err := components.ParseColor(st.Color)
		if err != nil {
			return nil, err
		}
		ship = components.NewEnemy(st.X, st.Y, c)
	case components.KindBoss:
		ship = components.NewBoss(st.X, st.Y, st.BossLevel)
		ship.Boss.Direction = st.BossDirection
		ship.Boss.PatrolSpeed = st.BossSpeed
		ship.Boss.TargetY = st.BossTargetY
	}

	ship.Health = st.Health
	ship.MaxHealth = st.MaxHealth
	ship.CoolDown = st.CoolDown
	for _, l := range st.Lasers {
		ship.Lasers = append(ship.Lasers, components.NewLaser(l.X, l.Y, ship.LaserSprite))
	}
	return ship, nil
}
