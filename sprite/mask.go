// Package sprite generates the game art procedurally and derives pixel collision masks from it.
package sprite

import (
	"image"
	"math/bits"
)

// AlphaThreshold is the minimum alpha (exclusive) for a pixel to count as solid.
const AlphaThreshold = 127

// Mask is a packed bitset of solid pixels, one row of uint64 words per scanline.
type Mask struct {
	w, h   int
	stride int
	bits   []uint64
	bounds image.Rectangle // tight box around set pixels
}

// NewMask creates an empty mask.
func NewMask(w, h int) *Mask {
	stride := (w + 63) / 64
	return &Mask{
		w:      w,
		h:      h,
		stride: stride,
		bits:   make([]uint64, stride*h),
	}
}

// FromAlpha builds a mask from an image's alpha channel.
func FromAlpha(img image.Image, threshold uint8) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if uint8(a>>8) > threshold {
				m.Set(x, y)
			}
		}
	}
	return m
}

// Width returns the mask width in pixels.
func (m *Mask) Width() int { return m.w }

// Height returns the mask height in pixels.
func (m *Mask) Height() int { return m.h }

// Set marks the pixel as solid. Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return
	}
	m.bits[y*m.stride+x/64] |= 1 << uint(x%64)

	px := image.Rect(x, y, x+1, y+1)
	if m.bounds.Empty() {
		m.bounds = px
	} else {
		m.bounds = m.bounds.Union(px)
	}
}

// Get reports whether the pixel is solid. Out-of-range coordinates are empty.
func (m *Mask) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.bits[y*m.stride+x/64]&(1<<uint(x%64)) != 0
}

// Bounds returns the tight bounding box of set pixels.
func (m *Mask) Bounds() image.Rectangle { return m.bounds }

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// Overlap reports whether any solid pixel of m coincides with a solid pixel of
// other when other's origin is placed at (dx, dy) in m's coordinates.
func (m *Mask) Overlap(other *Mask, dx, dy int) bool {
	if m == nil || other == nil {
		return false
	}
	region := m.bounds.Intersect(other.bounds.Add(image.Pt(dx, dy)))
	if region.Empty() {
		return false
	}
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			if m.Get(x, y) && other.Get(x-dx, y-dy) {
				return true
			}
		}
	}
	return false
}
