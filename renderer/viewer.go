package renderer

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/invaders/inspector"
	"github.com/pthm-cable/invaders/sprite"
	"github.com/pthm-cable/invaders/systems"
	"github.com/pthm-cable/invaders/telemetry"
	"github.com/pthm-cable/invaders/ui"
)

// Session is a playable episode source.
type Session interface {
	State() *systems.EpisodeState
	Step() (systems.StepResult, error)
	Running() bool
	Restart()
	Snapshot() *telemetry.Snapshot
	EndReason() string
}

// ViewerOptions configures the replay window.
type ViewerOptions struct {
	Width, Height int
	HUDHeight     int // controls strip below the arena
	Title         string
	TargetFPS     int
	Profile       string
	Generation    int // generation the genome was saved from
	SnapshotDir   string
	Seed          int64
}

// Viewer plays a session in a raylib window.
type Viewer struct {
	opts    ViewerOptions
	session Session
	visual  ProfileVisual

	atlas      *Atlas
	background *BackgroundRenderer
	scene      *SceneRenderer
	particles  *ParticleSystem
	particleR  *ParticleRenderer
	hud        *ui.HUD
	inspector  *inspector.Inspector
	controls   *ui.ControlsPanel
	state      ui.ControlsState

	episodes int
}

// NewViewer creates a viewer. The window is opened by Run.
func NewViewer(session Session, opts ViewerOptions) *Viewer {
	return &Viewer{
		opts:      opts,
		session:   session,
		visual:    VisualFor(opts.Profile),
		particles: NewParticleSystem(opts.Seed),
		particleR: NewParticleRenderer(),
		state:     ui.ControlsState{Speed: ui.MinSpeed},
	}
}

// Run opens the window and plays until it is closed. It returns the first
// session error.
func (v *Viewer) Run() error {
	w, h := int32(v.opts.Width), int32(v.opts.Height)
	rl.InitWindow(w, h+int32(v.opts.HUDHeight), v.opts.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(v.opts.TargetFPS))

	v.atlas = NewAtlas(sprite.Default())
	defer v.atlas.Unload()
	v.background = NewBackgroundRenderer(v.opts.Width, v.opts.Height, v.opts.Seed, 6, 8, 22)
	defer v.background.Unload()
	v.scene = NewSceneRenderer(v.atlas, v.opts.Profile)
	v.hud = ui.NewHUD()
	v.inspector = inspector.NewInspector(w)
	v.controls = ui.NewControlsPanel(0, h, w, int32(v.opts.HUDHeight))

	for !rl.WindowShouldClose() {
		v.handleKeys()
		if err := v.update(); err != nil {
			return err
		}
		v.draw()
	}
	return nil
}

func (v *Viewer) handleKeys() {
	if rl.IsKeyPressed(rl.KeySpace) {
		v.state.Paused = !v.state.Paused
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.state.Restart = true
	}
	if rl.IsKeyPressed(rl.KeyS) {
		v.state.Snapshot = true
	}
	if rl.IsKeyPressed(rl.KeyI) {
		v.inspector.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyUp) {
		v.state.Speed = ui.ClampSpeed(v.state.Speed + 1)
	}
	if rl.IsKeyPressed(rl.KeyDown) {
		v.state.Speed = ui.ClampSpeed(v.state.Speed - 1)
	}
}

func (v *Viewer) update() error {
	if v.state.Snapshot {
		v.saveSnapshot()
	}
	if v.state.Restart {
		v.restart("restart requested")
	}
	v.particles.Update()
	if v.state.Paused {
		return nil
	}

	for i := 0; i < v.state.Speed; i++ {
		if !v.session.Running() {
			v.restart(v.session.EndReason())
			break
		}
		v.particles.Track(v.session.State().Enemies)
		if _, err := v.session.Step(); err != nil {
			return err
		}
		v.particles.Detect(v.session.State().Enemies)
	}
	return nil
}

func (v *Viewer) restart(reason string) {
	s := v.session.State()
	slog.Info("episode ended",
		"episode", v.episodes,
		"reason", reason,
		"level", s.Level,
		"frames", s.Frame,
	)
	v.episodes++
	v.session.Restart()
	v.particles.Reset()
}

func (v *Viewer) saveSnapshot() {
	path, err := telemetry.SaveSnapshot(v.session.Snapshot(), v.opts.SnapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path)
}

func (v *Viewer) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	v.background.Draw()
	s := v.session.State()
	v.scene.Draw(s)
	v.particleR.Draw(v.particles.Particles())
	v.hud.Draw(v.hudData(s))
	if src, ok := v.session.(inspector.BrainSource); ok {
		v.inspector.Draw(src, s.Player)
	}

	v.state = v.controls.Draw(v.state)
	v.controls.DrawControls("Space pause  R restart  S snapshot  I brain  Up/Down speed")

	rl.EndDrawing()
}

func (v *Viewer) hudData(s *systems.EpisodeState) ui.HUDData {
	alive := 0
	if s.PlayerAlive() {
		alive = 1
	}
	data := ui.HUDData{
		ScreenWidth:  int32(v.opts.Width),
		Generation:   v.opts.Generation + 1,
		Alive:        alive,
		ProfileLabel: v.visual.Label,
		ProfileColor: v.visual.UIColor,
		Level:        s.Level,
		Lives:        s.Lives,
	}
	if boss := s.ActiveBoss(); boss != nil {
		data.HasBoss = true
		data.BossHealth = boss.Health
		data.BossMaxHealth = boss.MaxHealth
	}
	return data
}
