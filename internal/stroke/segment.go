// Package stroke holds the client-local drawing model: immutable stroke
// segments, the raster canvas they are replayed onto, and the undo history.
package stroke

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

const MaxWidth = 64

var (
	ErrBadCoordinate = errors.New("invalid coordinate")
	ErrBadWidth      = errors.New("invalid stroke width")
	ErrBadColor      = errors.New("invalid color")
)

// Segment is the unit of drawing replication. It is never mutated once built.
type Segment struct {
	X0, Y0 float64
	X1, Y1 float64
	Color  string
	Width  float64
}

func (s Segment) Valid() error {
	for _, v := range []float64{s.X0, s.Y0, s.X1, s.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrBadCoordinate
		}
	}
	if !(s.Width > 0) || s.Width > MaxWidth {
		return fmt.Errorf("%w: %v", ErrBadWidth, s.Width)
	}
	if _, err := ParseColor(s.Color); err != nil {
		return err
	}
	return nil
}

// ParseColor accepts #RGB and #RRGGBB.
func ParseColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
