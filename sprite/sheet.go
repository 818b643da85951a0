package sprite

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/vector"
)

// Sprite is a generated image plus its collision mask.
type Sprite struct {
	Name  string
	Image *image.RGBA
	Mask  *Mask
}

// Width returns the sprite width in pixels.
func (s *Sprite) Width() int { return s.Image.Bounds().Dx() }

// Height returns the sprite height in pixels.
func (s *Sprite) Height() int { return s.Image.Bounds().Dy() }

func newSprite(name string, c *canvas) *Sprite {
	return &Sprite{
		Name:  name,
		Image: c.img,
		Mask:  FromAlpha(c.img, AlphaThreshold),
	}
}

// Sheet holds every sprite the game uses.
type Sheet struct {
	Player      *Sprite
	PlayerLaser *Sprite
	RedShip     *Sprite
	GreenShip   *Sprite
	BlueShip    *Sprite
	RedLaser    *Sprite
	GreenLaser  *Sprite
	BlueLaser   *Sprite
	Boss        *Sprite
	BossLaser   *Sprite
}

// Boss canvas size. Barrels sit at 0.2, 0.5 and 0.8 of the width.
const (
	BossWidth  = 180
	BossHeight = 120
)

var (
	defaultSheet *Sheet
	defaultOnce  sync.Once
)

// Default returns the shared sprite sheet, generating it on first use.
// The sheet is read-only after construction.
func Default() *Sheet {
	defaultOnce.Do(func() {
		defaultSheet = Generate()
	})
	return defaultSheet
}

// Generate rasterizes a fresh sprite sheet.
func Generate() *Sheet {
	return &Sheet{
		Player:      newSprite("player", drawPlayer()),
		PlayerLaser: newSprite("laser_yellow", drawLaser(rgb(255, 223, 94), rgb(255, 170, 60))),
		RedShip:     newSprite("enemy_red", drawRedShip()),
		GreenShip:   newSprite("enemy_green", drawGreenShip()),
		BlueShip:    newSprite("enemy_blue", drawBlueShip()),
		RedLaser:    newSprite("laser_red", drawLaser(rgb(255, 104, 114), rgb(255, 52, 82))),
		GreenLaser:  newSprite("laser_green", drawLaser(rgb(110, 255, 162), rgb(48, 212, 120))),
		BlueLaser:   newSprite("laser_blue", drawLaser(rgb(130, 198, 255), rgb(70, 144, 250))),
		Boss:        newSprite("boss", drawBoss()),
		BossLaser:   newSprite("laser_boss", drawLaser(rgb(255, 120, 230), rgb(200, 60, 255))),
	}
}

type canvas struct {
	img *image.RGBA
}

func newCanvas(w, h int) *canvas {
	return &canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func rgb(r, g, b uint8) color.NRGBA { return color.NRGBA{R: r, G: g, B: b, A: 255} }

func rgba(r, g, b, a uint8) color.NRGBA { return color.NRGBA{R: r, G: g, B: b, A: a} }

func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

// polygon fills a closed path given as x0, y0, x1, y1, ... composited over the canvas.
func (c *canvas) polygon(col color.NRGBA, pts ...float32) {
	b := c.img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.MoveTo(pts[0], pts[1])
	for i := 2; i+1 < len(pts); i += 2 {
		r.LineTo(pts[i], pts[i+1])
	}
	r.ClosePath()
	r.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

// rect fills the inclusive pixel box (x0, y0)-(x1, y1).
func (c *canvas) rect(col color.NRGBA, x0, y0, x1, y1 float32) {
	c.polygon(col, x0, y0, x1+1, y0, x1+1, y1+1, x0, y1+1)
}

// ellipse fills the ellipse inscribed in the inclusive pixel box (x0, y0)-(x1, y1).
func (c *canvas) ellipse(col color.NRGBA, x0, y0, x1, y1 float32) {
	const segments = 48
	cx, cy := (x0+x1+1)/2, (y0+y1+1)/2
	rx, ry := (x1-x0+1)/2, (y1-y0+1)/2
	pts := make([]float32, 0, segments*2)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		pts = append(pts, cx+rx*float32(math.Cos(a)), cy+ry*float32(math.Sin(a)))
	}
	c.polygon(col, pts...)
}

func drawPlayer() *canvas {
	c := newCanvas(100, 90)
	// Soft halo stays under the mask threshold.
	c.polygon(rgba(255, 220, 90, 85),
		50, 8, 78, 24, 92, 50, 88, 74, 72, 88, 28, 88, 12, 74, 8, 50, 22, 24)
	c.polygon(rgb(228, 184, 52),
		50, 10, 76, 24, 90, 46, 90, 72, 72, 88, 28, 88, 10, 72, 10, 46, 24, 24)
	c.polygon(rgba(94, 224, 255, 230), 50, 18, 68, 30, 62, 46, 38, 46, 32, 30)
	c.polygon(rgb(180, 130, 40), 18, 44, 36, 44, 24, 72, 10, 72)
	c.polygon(rgb(180, 130, 40), 82, 44, 64, 44, 76, 72, 90, 72)
	c.rect(rgb(250, 213, 87), 44, 48, 56, 82)
	c.rect(rgb(255, 170, 70), 45, 56, 55, 82)
	c.polygon(rgba(255, 110, 70, 220), 42, 82, 58, 82, 54, 89, 46, 89)
	return c
}

func drawRedShip() *canvas {
	c := newCanvas(70, 50)
	c.ellipse(rgb(175, 40, 60), 10, 20, 60, 40)
	c.rect(rgb(130, 26, 44), 24, 10, 46, 24)
	c.rect(rgba(255, 170, 170, 235), 30, 14, 40, 20)
	c.rect(rgb(218, 78, 93), 14, 29, 20, 37)
	c.rect(rgb(218, 78, 93), 50, 29, 56, 37)
	c.rect(rgb(255, 145, 120), 27, 33, 33, 39)
	c.rect(rgb(255, 145, 120), 37, 33, 43, 39)
	return c
}

func drawGreenShip() *canvas {
	c := newCanvas(70, 50)
	c.ellipse(rgb(45, 146, 82), 10, 20, 60, 40)
	c.rect(rgb(33, 102, 58), 24, 10, 46, 24)
	c.rect(rgba(196, 255, 218, 230), 30, 14, 40, 20)
	c.rect(rgb(82, 186, 122), 14, 29, 20, 37)
	c.rect(rgb(82, 186, 122), 50, 29, 56, 37)
	c.polygon(rgb(156, 255, 192), 30, 40, 35, 30, 40, 40)
	return c
}

func drawBlueShip() *canvas {
	c := newCanvas(50, 50)
	c.polygon(rgb(52, 95, 174), 25, 10, 40, 24, 25, 40, 10, 24)
	c.polygon(rgba(84, 151, 234, 230), 25, 15, 35, 24, 25, 34, 15, 24)
	c.rect(rgba(220, 246, 255, 235), 21, 22, 29, 27)
	c.rect(rgb(125, 185, 255), 17, 30, 21, 36)
	c.rect(rgb(125, 185, 255), 29, 30, 33, 36)
	return c
}

// drawLaser paints a bolt on a 100x90 canvas. The layered glow composites
// above the mask threshold only where two layers stack.
func drawLaser(core, glow color.NRGBA) *canvas {
	c := newCanvas(100, 90)
	const x0, y0, x1, y1 = 45, 28, 54, 57
	c.rect(withAlpha(glow, 75), x0-2, y0-2, x1+2, y1+2)
	c.rect(withAlpha(glow, 110), x0-1, y0-1, x1+1, y1+1)
	c.ellipse(withAlpha(glow, 110), 44, 24, 55, 33)
	c.ellipse(withAlpha(glow, 110), 45, 53, 54, 62)
	c.rect(core, x0, y0, x1, y1)
	c.rect(rgba(255, 255, 255, 185), 48, y0, 51, y1)
	return c
}

func drawBoss() *canvas {
	c := newCanvas(BossWidth, BossHeight)
	c.ellipse(rgba(190, 70, 220, 80), 6, 18, 173, 112)
	c.polygon(rgb(92, 30, 120), 22, 58, 0, 92, 28, 100, 52, 78)
	c.polygon(rgb(92, 30, 120), 158, 58, 180, 92, 152, 100, 128, 78)
	c.ellipse(rgb(128, 44, 160), 20, 30, 159, 95)
	c.rect(rgb(90, 30, 120), 60, 14, 119, 40)
	c.ellipse(rgba(255, 160, 240, 230), 72, 18, 107, 44)
	for _, frac := range []float32{0.2, 0.5, 0.8} {
		barrel := frac * BossWidth
		c.rect(rgb(205, 95, 225), barrel-5, 86, barrel+4, 112)
		c.rect(rgb(255, 190, 250), barrel-2, 104, barrel+1, 114)
	}
	c.rect(rgb(255, 120, 200), 44, 58, 52, 66)
	c.rect(rgb(255, 120, 200), 127, 58, 135, 66)
	return c
}
