package stroke

import (
	"bytes"
	"image"
	"image/color"
	"math"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

var background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Canvas is a raster surface. Its contents depend only on the ordered
// sequence of segments and clears applied to it.
type Canvas struct {
	img *image.RGBA
}

func NewCanvas(width, height int) *Canvas {
	c := &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}
	c.Clear()
	return c
}

func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

func (c *Canvas) At(x, y int) color.RGBA { return c.img.RGBAAt(x, y) }

// Apply rasterizes seg with round caps: every pixel whose centre lies within
// Width/2 of the segment is painted.
func (c *Canvas) Apply(seg Segment) error {
	if err := seg.Valid(); err != nil {
		return err
	}
	col, _ := ParseColor(seg.Color)
	r := seg.Width / 2

	minX := int(math.Floor(math.Min(seg.X0, seg.X1) - r))
	maxX := int(math.Ceil(math.Max(seg.X0, seg.X1) + r))
	minY := int(math.Floor(math.Min(seg.Y0, seg.Y1) - r))
	maxY := int(math.Ceil(math.Max(seg.Y0, seg.Y1) + r))
	box := image.Rect(minX, minY, maxX+1, maxY+1).Intersect(c.img.Bounds())

	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if distToSegment(float64(x)+0.5, float64(y)+0.5, seg) <= r {
				c.img.SetRGBA(x, y, col)
			}
		}
	}
	return nil
}

func (c *Canvas) Clear() {
	b := c.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c.img.SetRGBA(x, y, background)
		}
	}
}

// Snapshot is an opaque copy of the canvas pixels.
type Snapshot struct {
	pix []byte
}

func (c *Canvas) Snapshot() Snapshot {
	return Snapshot{pix: bytes.Clone(c.img.Pix)}
}

// Restore overwrites the canvas with s. Snapshots from a canvas of a
// different size are ignored.
func (c *Canvas) Restore(s Snapshot) bool {
	if len(s.pix) != len(c.img.Pix) {
		return false
	}
	copy(c.img.Pix, s.pix)
	return true
}

// Equal reports whether two snapshots hold identical pixels.
func (s Snapshot) Equal(o Snapshot) bool { return bytes.Equal(s.pix, o.pix) }

func distToSegment(px, py float64, s Segment) float64 {
	dx, dy := s.X1-s.X0, s.Y1-s.Y0
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(px-s.X0, py-s.Y0)
	}
	t := ((px-s.X0)*dx + (py-s.Y0)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(s.X0+t*dx), py-(s.Y0+t*dy))
}
