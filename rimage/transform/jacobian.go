package transform

import (
	"github.com/golang/geo/r2"
)

// WarpJacobian fills dst[i] with the derivative of the warped location h.Apply(pt) with respect to
// homography entry i, for i < len(dst). Derivatives are taken by central differences with the
// given perturbation step, so the projective division is included.
func WarpJacobian(h Homography, pt r2.Point, step float64, dst []r2.Point) {
	for i := range dst {
		minus, plus := h, h
		minus[i] -= step
		plus[i] += step
		dst[i] = plus.Apply(pt).Sub(minus.Apply(pt)).Mul(1 / (2 * step))
	}
}
