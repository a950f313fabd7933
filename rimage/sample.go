package rimage

import (
	"math"

	"github.com/pkg/errors"
)

// Interpolation selects how a raster is read at non-integer coordinates.
type Interpolation string

const (
	// Bilinear blends the four surrounding pixels. A location is inside the raster when
	// 0 <= x <= width-1 and 0 <= y <= height-1.
	Bilinear = Interpolation("bilinear")
	// Nearest truncates the coordinate to the pixel grid. A location is inside the raster when
	// 0 < x < width and 0 < y < height.
	Nearest = Interpolation("nearest")
)

// ParseInterpolation returns the Interpolation named by s; the empty string means Bilinear.
func ParseInterpolation(s string) (Interpolation, error) {
	switch Interpolation(s) {
	case "", Bilinear:
		return Bilinear, nil
	case Nearest:
		return Nearest, nil
	default:
		return "", errors.Errorf("unknown interpolation %q", s)
	}
}

// Sample reads the raster at (x, y). The second return is false when the location lies outside
// the raster, in which case the value is 0.
func (f *FloatImage) Sample(x, y float64, mode Interpolation) (float64, bool) {
	if mode == Nearest {
		return f.SampleNearest(x, y)
	}
	return f.SampleBilinear(x, y)
}

// SampleNearest reads the pixel containing (x, y).
func (f *FloatImage) SampleNearest(x, y float64) (float64, bool) {
	if !(x > 0 && x < float64(f.width) && y > 0 && y < float64(f.height)) {
		return 0, false
	}
	return f.GetXY(int(x), int(y)), true
}

// SampleBilinear reads (x, y) by bilinear interpolation.
func (f *FloatImage) SampleBilinear(x, y float64) (float64, bool) {
	// written as a negated conjunction so NaN coordinates fall outside
	if !(x >= 0 && x <= float64(f.width-1) && y >= 0 && y <= float64(f.height-1)) {
		return 0, false
	}
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := x0+1, y0+1
	if x1 >= f.width {
		x1 = x0
	}
	if y1 >= f.height {
		y1 = y0
	}
	dx, dy := x-float64(x0), y-float64(y0)

	top := (1-dx)*f.GetXY(x0, y0) + dx*f.GetXY(x1, y0)
	bottom := (1-dx)*f.GetXY(x0, y1) + dx*f.GetXY(x1, y1)
	return (1-dy)*top + dy*bottom, true
}
