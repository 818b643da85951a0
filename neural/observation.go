package neural

import (
	"fmt"
	"math"
	"sort"

	"github.com/pthm-cable/invaders/components"
	"github.com/pthm-cable/invaders/config"
)

// Observation widths for each variant.
const (
	NearestInputs = 11
	TopKInputs    = 19

	// TopK is how many enemies and enemy lasers the wide variant reports.
	TopK = 3
)

// Normalization scales for the count features.
const (
	enemyCountScale = 20.0
	ownLaserScale   = 6.0
)

// ObserveFunc builds a feature vector from the current frame. It must not
// mutate the ships it is given.
type ObserveFunc func(player *components.Ship, enemies []*components.Ship, width, height float64) []float64

// ObservationWidth returns the input count for an observation variant.
func ObservationWidth(variant string) (int, error) {
	switch variant {
	case config.ObservationNearest:
		return NearestInputs, nil
	case config.ObservationTop3:
		return TopKInputs, nil
	}
	return 0, fmt.Errorf("unknown observation variant %q", variant)
}

// NewObservationBuilder returns the builder for an observation variant.
func NewObservationBuilder(variant string) (ObserveFunc, error) {
	switch variant {
	case config.ObservationNearest:
		return NearestObservation, nil
	case config.ObservationTop3:
		return TopKObservation, nil
	}
	return nil, fmt.Errorf("unknown observation variant %q", variant)
}

// InputLabels names each observation feature of a variant, in order.
func InputLabels(variant string) ([]string, error) {
	labels := []string{"Player X", "Player Y"}
	switch variant {
	case config.ObservationNearest:
		labels = append(labels, "Enemy dX", "Enemy dY", "Laser dX", "Laser dY")
	case config.ObservationTop3:
		for i := 1; i <= TopK; i++ {
			labels = append(labels, fmt.Sprintf("Enemy%d dX", i), fmt.Sprintf("Enemy%d dY", i))
		}
		for i := 1; i <= TopK; i++ {
			labels = append(labels, fmt.Sprintf("Laser%d dX", i), fmt.Sprintf("Laser%d dY", i))
		}
	default:
		return nil, fmt.Errorf("unknown observation variant %q", variant)
	}
	return append(labels, "Enemies", "Boss", "Own Lasers", "Cooldown", "Own Laser dY"), nil
}

// offset is a target position relative to the player centre.
type offset struct {
	distSq float64
	dx, dy float64
}

func offsetFrom(px, py, x, y float64) offset {
	dx, dy := x-px, y-py
	return offset{distSq: dx*dx + dy*dy, dx: dx, dy: dy}
}

// NearestObservation reports the single nearest enemy and enemy laser.
//
// Layout: player x, player y, enemy dx, enemy dy, laser dx, laser dy,
// enemy count, boss present, own laser count, cooldown, own laser dy.
func NearestObservation(player *components.Ship, enemies []*components.Ship, width, height float64) []float64 {
	px, py := player.Center()

	var nearestEnemy, nearestLaser offset
	haveEnemy, haveLaser := false, false
	for _, enemy := range enemies {
		ex, ey := enemy.Center()
		o := offsetFrom(px, py, ex, ey)
		if !haveEnemy || o.distSq < nearestEnemy.distSq {
			nearestEnemy, haveEnemy = o, true
		}
		for _, l := range enemy.Lasers {
			lx, ly := l.Center()
			o := offsetFrom(px, py, lx, ly)
			if !haveLaser || o.distSq < nearestLaser.distSq {
				nearestLaser, haveLaser = o, true
			}
		}
	}

	obs := make([]float64, 0, NearestInputs)
	obs = append(obs, clamp01(px/width), clamp01(py/height))
	obs = appendOffset(obs, nearestEnemy, haveEnemy, width, height)
	obs = appendOffset(obs, nearestLaser, haveLaser, width, height)
	return appendSelfState(obs, player, enemies, height)
}

// TopKObservation reports the TopK nearest enemies and enemy lasers, nearest
// first, zero-padded when fewer exist.
func TopKObservation(player *components.Ship, enemies []*components.Ship, width, height float64) []float64 {
	px, py := player.Center()

	enemySlots := make([]offset, 0, len(enemies))
	var laserSlots []offset
	for _, enemy := range enemies {
		ex, ey := enemy.Center()
		enemySlots = append(enemySlots, offsetFrom(px, py, ex, ey))
		for _, l := range enemy.Lasers {
			lx, ly := l.Center()
			laserSlots = append(laserSlots, offsetFrom(px, py, lx, ly))
		}
	}
	sortByDistance(enemySlots)
	sortByDistance(laserSlots)

	obs := make([]float64, 0, TopKInputs)
	obs = append(obs, clamp01(px/width), clamp01(py/height))
	for i := 0; i < TopK; i++ {
		obs = appendSlot(obs, enemySlots, i, width, height)
	}
	for i := 0; i < TopK; i++ {
		obs = appendSlot(obs, laserSlots, i, width, height)
	}
	return appendSelfState(obs, player, enemies, height)
}

// sortByDistance orders slots nearest first; equal distances keep list order.
func sortByDistance(slots []offset) {
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].distSq < slots[j].distSq })
}

func appendSlot(obs []float64, slots []offset, i int, width, height float64) []float64 {
	if i >= len(slots) {
		return append(obs, 0, 0)
	}
	return appendOffset(obs, slots[i], true, width, height)
}

func appendOffset(obs []float64, o offset, ok bool, width, height float64) []float64 {
	if !ok {
		return append(obs, 0, 0)
	}
	return append(obs, clampSigned(o.dx, width), clampSigned(o.dy, height))
}

// appendSelfState adds the trailing features shared by both variants.
func appendSelfState(obs []float64, player *components.Ship, enemies []*components.Ship, height float64) []float64 {
	bossPresent := 0.0
	for _, enemy := range enemies {
		if enemy.IsBoss() {
			bossPresent = 1
			break
		}
	}

	_, py := player.Center()
	ownDY, bestAbs := 0.0, math.Inf(1)
	for _, l := range player.Lasers {
		_, ly := l.Center()
		dy := ly - py
		if math.Abs(dy) < bestAbs {
			bestAbs, ownDY = math.Abs(dy), dy
		}
	}

	return append(obs,
		math.Min(1, float64(len(enemies))/enemyCountScale),
		bossPresent,
		math.Min(1, float64(len(player.Lasers))/ownLaserScale),
		math.Min(1, float64(player.CoolDown)/components.CooldownFrames),
		clampSigned(ownDY, height),
	)
}

// clampSigned scales v into [-1, 1]. A zero scale yields 0.
func clampSigned(v, scale float64) float64 {
	if scale == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, v/scale))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
