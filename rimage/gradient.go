package rimage

import (
	"image"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// Gradient returns the central-difference intensity gradient at pixel (x, y) using neighbours at
// distance step. The caller guarantees the neighbourhood lies inside the raster.
func (f *FloatImage) Gradient(x, y, step int) r2.Point {
	denom := float64(2 * step)
	return r2.Point{
		X: (f.GetXY(x+step, y) - f.GetXY(x-step, y)) / denom,
		Y: (f.GetXY(x, y+step) - f.GetXY(x, y-step)) / denom,
	}
}

// InteriorRect returns the pixels whose neighbourhood at distance step lies fully inside a
// width x height raster. The rectangle is empty when no such pixel exists.
func InteriorRect(width, height, step int) image.Rectangle {
	r := image.Rect(step, step, width-step, height-step)
	if r.Empty() {
		return image.Rectangle{}
	}
	return r
}

// GradientField holds the X and Y derivative of a raster; border pixels that lack a full
// neighbourhood are left at zero.
type GradientField struct {
	DX, DY *mat.Dense
}

// ComputeGradientField evaluates Gradient at every interior pixel of f. Indexing of the dense
// matrices is (row, column), i.e. (y, x).
func ComputeGradientField(f *FloatImage, step int) GradientField {
	field := GradientField{
		DX: mat.NewDense(f.height, f.width, nil),
		DY: mat.NewDense(f.height, f.width, nil),
	}
	r := InteriorRect(f.width, f.height, step)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g := f.Gradient(x, y, step)
			field.DX.Set(y, x, g.X)
			field.DY.Set(y, x, g.Y)
		}
	}
	return field
}

// MeanSquaredMagnitude returns the mean squared gradient magnitude over the interior; a value near zero
// marks a low-texture raster for which alignment is ill-conditioned.
func (g GradientField) MeanSquaredMagnitude() float64 {
	rows, cols := g.DX.Dims()
	if rows == 0 || cols == 0 {
		return 0
	}
	var sq mat.Dense
	sq.MulElem(g.DX, g.DX)
	var sqy mat.Dense
	sqy.MulElem(g.DY, g.DY)
	sq.Add(&sq, &sqy)
	return mat.Sum(&sq) / float64(rows*cols)
}
