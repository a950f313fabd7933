package align

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/imagealign/logging"
	"go.viam.com/imagealign/rimage"
	"go.viam.com/imagealign/rimage/transform"
)

// ESM aligns by efficient second-order minimization. Every update combines the template gradient
// with the gradient of the warped frame, solves the normal equations through an SVD
// pseudo-inverse, and adds the scaled increment to the leading homography entries.
//
// The warp Jacobian is differentiated once, at the homography current when Initialize runs, and
// reused by every update unless Config.RefreshJacobian is set.
type ESM struct {
	templateAligner

	warpJacobians [][]r2.Point // samples x p
	jacobian      *mat.Dense   // samples x p
	residual      *mat.VecDense
	normal        *mat.SymDense
	rhs           *mat.VecDense
}

// NewESM allocates an ESM aligner sized by cfg.
func NewESM(cfg Config, logger logging.Logger) (*ESM, error) {
	base, err := newTemplateAligner(cfg, logger)
	if err != nil {
		return nil, err
	}
	q, p := len(base.points), cfg.Parameters
	warpJacobians := make([][]r2.Point, q)
	for k := range warpJacobians {
		warpJacobians[k] = make([]r2.Point, p)
	}
	return &ESM{
		templateAligner: base,
		warpJacobians:   warpJacobians,
		jacobian:        mat.NewDense(q, p, nil),
		residual:        mat.NewVecDense(q, nil),
		normal:          mat.NewSymDense(p, nil),
		rhs:             mat.NewVecDense(p, nil),
	}, nil
}

// Initialize caches the template intensities, gradients, and warp Jacobians.
func (e *ESM) Initialize() error {
	if e.template == nil {
		return ErrNoBuffer
	}
	if !e.attached {
		e.refuse("initialize", ErrNoTemplate)
		return ErrNoTemplate
	}
	e.snapshotTemplate()
	e.computeWarpJacobians()
	e.initialized = true
	e.logger.Debugw("initialized ESM aligner",
		"samples", len(e.points), "parameters", e.cfg.Parameters, "refresh_jacobian", e.cfg.RefreshJacobian)
	return nil
}

func (e *ESM) computeWarpJacobians() {
	for k, pt := range e.points {
		transform.WarpJacobian(e.homography, pt, e.cfg.JacobianStep, e.warpJacobians[k])
	}
}

// UpdateHomography performs one ESM step against the frame and returns the sum of absolute
// changes applied to the homography entries.
func (e *ESM) UpdateHomography(img image.Image) (float64, error) {
	frame, err := e.prepareFrame(img)
	if err != nil {
		e.refuse("update", err)
		return FailedUpdate, err
	}

	if e.cfg.RefreshJacobian {
		e.computeWarpJacobians()
	}
	outOfBounds := e.linearize(frame)

	e.normal.SymOuterK(1, e.jacobian.T())
	e.rhs.MulVec(e.jacobian.T(), e.residual)
	dx, rank, err := transform.SolveNormal(e.normal, e.rhs)
	if err != nil {
		return FailedUpdate, errors.Wrap(err, "cannot solve the normal equations")
	}

	delta := make([]float64, e.cfg.Parameters)
	signal := 0.0
	for i := range delta {
		delta[i] = e.cfg.UpdateScale * dx.AtVec(i)
		signal += math.Abs(delta[i])
	}
	e.homography = e.homography.AddParams(delta)

	copy(e.lastDelta, delta)
	e.finishUpdate(e.residual.RawVector().Data, outOfBounds, rank, signal)
	return signal, nil
}

// linearize fills one Jacobian row and one residual per sample point and returns how many
// samples fell outside the frame.
func (e *ESM) linearize(frame *rimage.FloatImage) int {
	step := float64(e.cfg.GradientStep)
	outOfBounds := 0
	for k, pt := range e.points {
		v, ok := e.sampleWarped(frame, e.homography, pt)
		if !ok {
			outOfBounds++
		}
		e.samples[k] = v

		// gradient of the warped frame, from re-warped neighbours rather than the frame grid
		left, _ := e.sampleWarped(frame, e.homography, r2.Point{X: pt.X - step, Y: pt.Y})
		right, _ := e.sampleWarped(frame, e.homography, r2.Point{X: pt.X + step, Y: pt.Y})
		up, _ := e.sampleWarped(frame, e.homography, r2.Point{X: pt.X, Y: pt.Y - step})
		down, _ := e.sampleWarped(frame, e.homography, r2.Point{X: pt.X, Y: pt.Y + step})
		warped := r2.Point{X: (right - left) / (2 * step), Y: (down - up) / (2 * step)}

		combined := e.gradients[k].Add(warped)
		for i, j := range e.warpJacobians[k] {
			e.jacobian.Set(k, i, combined.Dot(j))
		}
		e.residual.SetVec(k, v-e.templateVals[k])
	}
	return outOfBounds
}
