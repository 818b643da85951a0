package renderer

import (
	"math"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/invaders/components"
)

const (
	particlesPerKill     = 14
	particlesPerBossKill = 40
	particleLife         = 30
	particleMaxSpeed     = 3.5
	particleDrag         = 0.92
)

// Particle is one spark of a kill explosion.
type Particle struct {
	X, Y    float64
	VX, VY  float64
	Size    float32
	Life    int
	MaxLife int
	Color   rl.Color
}

// ParticleSystem spawns explosions for ships that were destroyed between two
// frames. It is purely cosmetic and has its own RNG.
type ParticleSystem struct {
	particles []Particle
	rng       *rand.Rand
	prev      map[*components.Ship]struct{}
}

// NewParticleSystem creates an empty particle system.
func NewParticleSystem(seed int64) *ParticleSystem {
	return &ParticleSystem{
		rng:  rand.New(rand.NewSource(seed)),
		prev: make(map[*components.Ship]struct{}),
	}
}

// Particles returns the live particles.
func (p *ParticleSystem) Particles() []Particle { return p.particles }

// Track records the enemies alive before a step.
func (p *ParticleSystem) Track(enemies []*components.Ship) {
	clear(p.prev)
	for _, e := range enemies {
		p.prev[e] = struct{}{}
	}
}

// Detect spawns an explosion for every tracked enemy that is gone from
// enemies with no health left. Escaped enemies leave without one.
func (p *ParticleSystem) Detect(enemies []*components.Ship) int {
	for _, e := range enemies {
		delete(p.prev, e)
	}
	spawned := 0
	for e := range p.prev {
		if e.Health > 0 {
			continue
		}
		p.Explode(e)
		spawned++
	}
	clear(p.prev)
	return spawned
}

// Explode emits sparks from the centre of ship.
func (p *ParticleSystem) Explode(ship *components.Ship) {
	cx, cy := ship.Center()
	n := particlesPerKill
	if ship.IsBoss() {
		n = particlesPerBossKill
	}
	tint := explosionColor(ship)
	for i := 0; i < n; i++ {
		angle := p.rng.Float64() * 2 * math.Pi
		speed := (0.3 + 0.7*p.rng.Float64()) * particleMaxSpeed
		life := particleLife/2 + p.rng.Intn(particleLife/2+1)
		p.particles = append(p.particles, Particle{
			X:       cx,
			Y:       cy,
			VX:      math.Cos(angle) * speed,
			VY:      math.Sin(angle) * speed,
			Size:    1.5 + 2*p.rng.Float32(),
			Life:    life,
			MaxLife: life,
			Color:   tint,
		})
	}
}

// Update advances and ages every particle, dropping dead ones in place.
func (p *ParticleSystem) Update() {
	live := p.particles[:0]
	for _, pt := range p.particles {
		pt.Life--
		if pt.Life <= 0 {
			continue
		}
		pt.X += pt.VX
		pt.Y += pt.VY
		pt.VX *= particleDrag
		pt.VY *= particleDrag
		live = append(live, pt)
	}
	p.particles = live
}

// Reset drops all particles and tracked ships.
func (p *ParticleSystem) Reset() {
	p.particles = p.particles[:0]
	clear(p.prev)
}

func explosionColor(ship *components.Ship) rl.Color {
	if ship.IsBoss() {
		return rl.Color{R: 255, G: 110, B: 90, A: 255}
	}
	switch ship.Color {
	case components.ColorGreen:
		return rl.Color{R: 140, G: 255, B: 140, A: 255}
	case components.ColorBlue:
		return rl.Color{R: 140, G: 180, B: 255, A: 255}
	default:
		return rl.Color{R: 255, G: 150, B: 50, A: 255}
	}
}

// ParticleRenderer renders effect particles.
type ParticleRenderer struct{}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer() *ParticleRenderer {
	return &ParticleRenderer{}
}

// Draw renders all particles.
func (r *ParticleRenderer) Draw(particles []Particle) {
	for i := range particles {
		p := &particles[i]

		// Fade and shrink with age.
		lifeRatio := float32(p.Life) / float32(p.MaxLife)
		c := p.Color
		c.A = uint8(lifeRatio * 220)

		size := p.Size * lifeRatio
		if size < 0.5 {
			size = 0.5
		}
		rl.DrawCircle(int32(p.X), int32(p.Y), size, c)
	}
}
