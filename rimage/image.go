package rimage

import (
	"image"
	"image/color"
	"math"
)

// FloatImage is a single-channel intensity raster stored as float64 in row-major order.
// Intensities are kept on the 8-bit scale (0-255) regardless of the source depth.
type FloatImage struct {
	data          []float64
	width, height int
}

// NewFloatImage returns a zeroed width x height raster.
func NewFloatImage(width, height int) *FloatImage {
	return &FloatImage{
		data:   make([]float64, width*height),
		width:  width,
		height: height,
	}
}

// NewFloatImageFromFunc fills a new raster with fn evaluated at every pixel.
func NewFloatImageFromFunc(width, height int, fn func(x, y int) float64) *FloatImage {
	f := NewFloatImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.data[f.kxy(x, y)] = fn(x, y)
		}
	}
	return f
}

func (f *FloatImage) kxy(x, y int) int {
	return (y * f.width) + x
}

// Width returns the horizontal size of the raster.
func (f *FloatImage) Width() int {
	return f.width
}

// Height returns the vertical size of the raster.
func (f *FloatImage) Height() int {
	return f.height
}

// Size returns the raster dimensions as a point.
func (f *FloatImage) Size() image.Point {
	return image.Point{f.width, f.height}
}

// In reports whether (x, y) is a valid pixel index.
func (f *FloatImage) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.width && y < f.height
}

// GetXY returns the intensity at pixel (x, y).
func (f *FloatImage) GetXY(x, y int) float64 {
	return f.data[f.kxy(x, y)]
}

// SetXY sets the intensity at pixel (x, y).
func (f *FloatImage) SetXY(x, y int, v float64) {
	f.data[f.kxy(x, y)] = v
}

// Fill sets every pixel to v.
func (f *FloatImage) Fill(v float64) {
	for i := range f.data {
		f.data[i] = v
	}
}

// CopyFrom copies the intensities of src, which must have the same dimensions.
func (f *FloatImage) CopyFrom(src *FloatImage) bool {
	if !SameSize(f, src) {
		return false
	}
	copy(f.data, src.data)
	return true
}

// Clone returns a deep copy.
func (f *FloatImage) Clone() *FloatImage {
	c := NewFloatImage(f.width, f.height)
	copy(c.data, f.data)
	return c
}

// ColorModel implements image.Image.
func (f *FloatImage) ColorModel() color.Model {
	return color.Gray16Model
}

// Bounds implements image.Image.
func (f *FloatImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

// At implements image.Image; intensities are clamped to the 16-bit range.
func (f *FloatImage) At(x, y int) color.Color {
	if !f.In(x, y) {
		return color.Gray16{}
	}
	return color.Gray16{uint16(clamp(f.GetXY(x, y), 0, 255) * 257)}
}

// ToGray converts the raster to an 8-bit image, rounding and clamping each intensity.
func (f *FloatImage) ToGray() *image.Gray {
	img := image.NewGray(f.Bounds())
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			img.Pix[img.PixOffset(x, y)] = uint8(math.Round(clamp(f.GetXY(x, y), 0, 255)))
		}
	}
	return img
}

// SameSize compares two rasters' dimensions.
func SameSize(a, b *FloatImage) bool {
	return a.width == b.width && a.height == b.height
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
