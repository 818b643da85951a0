package renderer

import (
	"image"
	"image/color"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// starDensity is stars per 10,000 square pixels.
const starDensity = 6

// BackgroundRenderer renders a fixed starfield behind the arena.
type BackgroundRenderer struct {
	texture     rl.Texture2D
	width       int
	height      int
	seed        int64
	baseColor   color.RGBA
	initialized bool
}

// NewBackgroundRenderer creates a new background renderer.
func NewBackgroundRenderer(width, height int, seed int64, baseR, baseG, baseB uint8) *BackgroundRenderer {
	return &BackgroundRenderer{
		width:     width,
		height:    height,
		seed:      seed,
		baseColor: color.RGBA{R: baseR, G: baseG, B: baseB, A: 255},
	}
}

// Starfield rasterizes the background image on the CPU.
func Starfield(width, height int, seed int64, base color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		// Vertical gradient darkening towards the bottom.
		shade := 1 - 0.5*float64(y)/float64(max(1, height))
		c := color.RGBA{
			R: uint8(float64(base.R) * shade),
			G: uint8(float64(base.G) * shade),
			B: uint8(float64(base.B) * shade),
			A: 255,
		}
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	stars := width * height * starDensity / 10000
	for i := 0; i < stars; i++ {
		x, y := rng.Intn(width), rng.Intn(height)
		v := uint8(120 + rng.Intn(136))
		img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: uint8(min(255, int(v)+20)), A: 255})
	}
	return img
}

// Init uploads the starfield (must be called after raylib window is created).
func (b *BackgroundRenderer) Init() {
	if b.initialized {
		return
	}

	img := rl.NewImageFromImage(Starfield(b.width, b.height, b.seed, b.baseColor))
	b.texture = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)

	b.initialized = true
}

// Draw renders the background.
func (b *BackgroundRenderer) Draw() {
	if !b.initialized {
		b.Init()
	}
	rl.DrawTexture(b.texture, 0, 0, rl.White)
}

// Unload frees resources.
func (b *BackgroundRenderer) Unload() {
	if b.initialized {
		rl.UnloadTexture(b.texture)
		b.initialized = false
	}
}
