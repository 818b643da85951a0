package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds one episode frame in a plain, serializable form.
type Snapshot struct {
	Version int    `json:"version"`
	Seed    int64  `json:"seed"`
	Profile string `json:"profile,omitempty"`

	WorldWidth  float64 `json:"world_width"`
	WorldHeight float64 `json:"world_height"`

	Frame      int  `json:"frame"`
	Level      int  `json:"level"`
	Lives      int  `json:"lives"`
	WaveLength int  `json:"wave_length"`
	BossActive bool `json:"boss_active"`

	Player  ShipState   `json:"player"`
	Enemies []ShipState `json:"enemies"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ShipState holds one ship's complete state.
type ShipState struct {
	Kind      string  `json:"kind"`
	Color     string  `json:"color,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Health    int     `json:"health"`
	MaxHealth int     `json:"max_health"`
	CoolDown  int     `json:"cool_down"`

	Lasers []LaserState `json:"lasers,omitempty"`

	// Boss patrol state
	BossLevel     int     `json:"boss_level,omitempty"`
	BossDirection float64 `json:"boss_direction,omitempty"`
	BossSpeed     float64 `json:"boss_speed,omitempty"`
	BossTargetY   float64 `json:"boss_target_y,omitempty"`
}

// LaserState is a projectile position.
type LaserState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Frame)
	if snapshot.Profile != "" {
		name = fmt.Sprintf("snapshot_%s_%d", strings.ReplaceAll(snapshot.Profile, " ", "_"), snapshot.Frame)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
