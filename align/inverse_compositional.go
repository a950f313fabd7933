package align

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/imagealign/logging"
	"go.viam.com/imagealign/rimage/transform"
)

// InverseCompositional aligns by the inverse-compositional Gauss-Newton scheme. The steepest
// descent images and the Hessian live in the template frame, so they are computed once by
// Initialize; each update is a pull-back of the frame followed by one product with the inverse
// Hessian. The increment is a warp of the template that is inverted and composed onto the
// current homography.
//
// Composition scales the whole matrix, so after each update the product is rescaled to give the
// anchor entry its previous value back. This is anchor restoration only: the other entries are
// not normalized, and a caller-supplied homography with an anchor other than 1 keeps it.
type InverseCompositional struct {
	templateAligner

	steepest   *mat.Dense    // samples x p
	hessian    *mat.SymDense // p x p
	hessianInv *mat.Dense
	residual   *mat.VecDense
	rhs        *mat.VecDense
	delta      *mat.VecDense
	rank       int
}

// NewInverseCompositional allocates an inverse-compositional aligner sized by cfg.
func NewInverseCompositional(cfg Config, logger logging.Logger) (*InverseCompositional, error) {
	base, err := newTemplateAligner(cfg, logger)
	if err != nil {
		return nil, err
	}
	q, p := len(base.points), cfg.Parameters
	return &InverseCompositional{
		templateAligner: base,
		steepest:        mat.NewDense(q, p, nil),
		hessian:         mat.NewSymDense(p, nil),
		residual:        mat.NewVecDense(q, nil),
		rhs:             mat.NewVecDense(p, nil),
		delta:           mat.NewVecDense(p, nil),
	}, nil
}

// Initialize builds the steepest descent images and inverts the Hessian. The warp Jacobian is
// evaluated at the identity, not at the initial homography: it differentiates the incremental
// warp I + dp that UpdateHomography inverts and composes, and that warp starts at the identity.
// The two only coincide when the initial homography is the identity.
func (ic *InverseCompositional) Initialize() error {
	if ic.template == nil {
		return ErrNoBuffer
	}
	if !ic.attached {
		ic.refuse("initialize", ErrNoTemplate)
		return ErrNoTemplate
	}
	ic.snapshotTemplate()

	identity := transform.Identity()
	jac := make([]r2.Point, ic.cfg.Parameters)
	for k, pt := range ic.points {
		transform.WarpJacobian(identity, pt, ic.cfg.JacobianStep, jac)
		g := ic.gradients[k]
		for i, j := range jac {
			ic.steepest.Set(k, i, g.Dot(j))
		}
	}
	ic.hessian.SymOuterK(1, ic.steepest.T())

	inv, rank, err := transform.PseudoInverse(ic.hessian)
	if err != nil {
		return errors.Wrap(err, "cannot invert the Hessian")
	}
	ic.hessianInv = inv
	ic.rank = rank
	ic.initialized = true
	ic.logger.Debugw("initialized inverse compositional aligner",
		"samples", len(ic.points), "parameters", ic.cfg.Parameters, "rank", rank)
	if rank < ic.cfg.Parameters {
		ic.logger.Warnw("Hessian is rank deficient", "rank", rank, "parameters", ic.cfg.Parameters)
	}
	return nil
}

// UpdateHomography pulls the frame back into the template frame through the current
// homography, solves for the increment with the precomputed inverse Hessian, and composes the
// inverted increment onto the homography. The returned signal is the L1 norm of the increment.
func (ic *InverseCompositional) UpdateHomography(img image.Image) (float64, error) {
	frame, err := ic.prepareFrame(img)
	if err != nil {
		ic.refuse("update", err)
		return FailedUpdate, err
	}

	outOfBounds := 0
	for k, pt := range ic.points {
		v, ok := ic.sampleWarped(frame, ic.homography, pt)
		if !ok {
			outOfBounds++
		}
		ic.samples[k] = v
		ic.residual.SetVec(k, v-ic.templateVals[k])
	}

	ic.rhs.MulVec(ic.steepest.T(), ic.residual)
	ic.delta.MulVec(ic.hessianInv, ic.rhs)
	ic.delta.ScaleVec(ic.cfg.Amplification, ic.delta)
	delta := ic.delta.RawVector().Data

	increment := transform.Identity().AddParams(delta)
	incrementInv, err := increment.Inverse()
	if err != nil {
		return FailedUpdate, errors.Wrap(err, "degenerate increment")
	}
	updated := ic.homography.Mul(incrementInv)
	// anchor restoration
	if anchor := updated[transform.AnchorIndex]; anchor != 0 {
		updated = updated.Scale(ic.homography[transform.AnchorIndex] / anchor)
	}
	ic.homography = updated

	copy(ic.lastDelta, delta)
	signal := floats.Norm(delta, 1)
	ic.finishUpdate(ic.residual.RawVector().Data, outOfBounds, ic.rank, signal)
	return signal, nil
}
