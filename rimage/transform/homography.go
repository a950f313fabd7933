// Package transform provides the projective transforms and the small dense linear algebra used
// by template alignment.
package transform

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// AnchorIndex is the row-major index of the entry that parameter updates never touch. Warp
// parameter i, for i < p, is entry i of the homography:
//
//	[ h0 h1 h2 ]
//	[ h3 h4 h5 ]
//	[ h6 h7 h8 ]
//
// so p = 6 is the affine subset and p = 8 the full projective transform, with h8 as the
// normalization anchor.
const AnchorIndex = 8

// MaxParameters is the number of entries free for optimization.
const MaxParameters = AnchorIndex

// Homography is a 3x3 projective transform stored as 9 entries in row-major order. It maps
// template-plane coordinates to current-frame coordinates.
type Homography [9]float64

// Identity returns the identity homography.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Translation returns the homography translating by (tx, ty).
func Translation(tx, ty float64) Homography {
	return Homography{1, 0, tx, 0, 1, ty, 0, 0, 1}
}

// NewHomography creates a Homography from a row-major slice of 9 entries.
func NewHomography(vals []float64) (Homography, error) {
	var h Homography
	if len(vals) != 9 {
		return h, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	copy(h[:], vals)
	return h, nil
}

// At returns the entry at [row][col].
func (h Homography) At(row, col int) float64 {
	return h[3*row+col]
}

// Apply maps pt through the homography, including the division by the homogeneous coordinate.
func (h Homography) Apply(pt r2.Point) r2.Point {
	x := h[0]*pt.X + h[1]*pt.Y + h[2]
	y := h[3]*pt.X + h[4]*pt.Y + h[5]
	z := h[6]*pt.X + h[7]*pt.Y + h[8]
	return r2.Point{X: x / z, Y: y / z}
}

// Mul returns h * o, i.e. the transform that applies o first and then h.
func (h Homography) Mul(o Homography) Homography {
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = h[3*r]*o[c] + h[3*r+1]*o[3+c] + h[3*r+2]*o[6+c]
		}
	}
	return out
}

// Inverse returns the inverse transform.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.Dense()); err != nil {
		return Homography{}, errors.Wrap(err, "homography is not invertible")
	}
	var out Homography
	copy(out[:], inv.RawMatrix().Data)
	return out, nil
}

// Normalize scales the homography so that the anchor entry is 1. It is never applied implicitly.
func (h Homography) Normalize() (Homography, error) {
	if h[AnchorIndex] == 0 {
		return h, errors.New("cannot normalize a homography with a zero anchor entry")
	}
	return h.Scale(1 / h[AnchorIndex]), nil
}

// Scale multiplies every entry by s.
func (h Homography) Scale(s float64) Homography {
	for i := range h {
		h[i] *= s
	}
	return h
}

// Params returns a copy of the first p entries.
func (h Homography) Params(p int) []float64 {
	out := make([]float64, p)
	copy(out, h[:p])
	return out
}

// AddParams returns h with delta added to the first len(delta) entries.
func (h Homography) AddParams(delta []float64) Homography {
	for i, d := range delta {
		h[i] += d
	}
	return h
}

// Translation returns the (x, y) translation after normalizing by the anchor.
func (h Homography) Translation() r2.Point {
	return r2.Point{X: h[2] / h[AnchorIndex], Y: h[5] / h[AnchorIndex]}
}

// Dense returns a 3x3 gonum matrix holding a copy of the entries.
func (h Homography) Dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, h[:])
	return mat.NewDense(3, 3, data)
}

// IsFinite reports whether every entry is a finite number.
func (h Homography) IsFinite() bool {
	for _, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (h Homography) String() string {
	return fmt.Sprintf("[%g %g %g; %g %g %g; %g %g %g]", h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], h[8])
}
