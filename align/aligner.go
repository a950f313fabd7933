// Package align refines a homography that aligns a fixed intensity template with a region of
// incoming frames by minimizing the photometric error between them.
//
// Two strategies share one lifecycle: attach a template, initialize once, then call
// UpdateHomography once per frame (or several times on the same frame). Each update performs
// exactly one optimization step and returns the magnitude of the parameter change, leaving the
// decision to keep iterating, accept, or reinitialize to the caller.
//
// An aligner is not safe for concurrent use. Distinct aligners share no state and may run in
// parallel.
package align

import (
	"image"

	"github.com/pkg/errors"

	"go.viam.com/imagealign/logging"
	"go.viam.com/imagealign/rimage/transform"
)

// Aligner is the lifecycle shared by every alignment strategy.
type Aligner interface {
	// AttachTemplate copies a single-channel raster of the configured size into the template
	// buffer. No other state changes.
	AttachTemplate(img image.Image) error
	// Initialize performs the one-time precomputation against the attached template.
	Initialize() error
	// UpdateHomography runs one optimization step against the frame and returns the aggregate
	// parameter change. On error it returns FailedUpdate and leaves the aligner untouched.
	UpdateHomography(img image.Image) (float64, error)
	// Homography returns the current estimate.
	Homography() transform.Homography
	// SetInitialHomography replaces the current estimate.
	SetInitialHomography(h transform.Homography)
	// LastDelta returns the parameter changes applied by the most recent successful update.
	LastDelta() []float64
	// Stats reports diagnostics of the most recent update.
	Stats() Stats
	// SamplingImage returns the frame intensities sampled by the most recent update.
	SamplingImage() *image.Gray
	// TemplateSize returns the configured template dimensions.
	TemplateSize() image.Point
}

var (
	_ Aligner = (*InverseCompositional)(nil)
	_ Aligner = (*ESM)(nil)
)

// Kind selects an alignment strategy.
type Kind string

const (
	// KindInverseCompositional precomputes the Hessian once and composes warps.
	KindInverseCompositional = Kind("inverse_compositional")
	// KindESM recombines template and frame gradients every step and updates additively.
	KindESM = Kind("esm")
)

// Stats are per-update diagnostics.
type Stats struct {
	Updates      int
	Samples      int
	OutOfBounds  int
	ResidualMean float64
	ResidualStd  float64
	Rank         int
	AnchorDrift  float64
}

// New constructs an aligner of the given kind.
func New(kind Kind, cfg Config, logger logging.Logger) (Aligner, error) {
	var (
		a   Aligner
		err error
	)
	switch kind {
	case KindInverseCompositional:
		a, err = NewInverseCompositional(cfg, logger)
	case KindESM:
		a, err = NewESM(cfg, logger)
	default:
		return nil, errors.Errorf("unknown aligner kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
