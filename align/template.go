package align

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/imagealign/logging"
	"go.viam.com/imagealign/rimage"
	"go.viam.com/imagealign/rimage/transform"
)

// templateAligner holds the state common to both strategies: the owned template and sampling
// rasters, the interior sample grid, and the homography estimate.
type templateAligner struct {
	cfg    Config
	interp rimage.Interpolation
	logger logging.Logger

	template    *rimage.FloatImage
	sampling    *rimage.FloatImage
	attached    bool
	initialized bool

	homography transform.Homography
	points     []r2.Point
	// snapshot of the template taken by Initialize, one entry per point
	templateVals []float64
	gradients    []r2.Point
	// frame samples of the update in progress, copied to sampling only once the step succeeds
	samples []float64

	lastDelta []float64
	stats     Stats
}

func newTemplateAligner(cfg Config, logger logging.Logger) (templateAligner, error) {
	if err := cfg.Validate("align"); err != nil {
		return templateAligner{}, err
	}
	interp, err := rimage.ParseInterpolation(cfg.Interpolation)
	if err != nil {
		return templateAligner{}, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("align")
	}

	interior := rimage.InteriorRect(cfg.Width, cfg.Height, cfg.GradientStep)
	var points []r2.Point
	for y := interior.Min.Y; y < interior.Max.Y; y += cfg.SamplingStep {
		for x := interior.Min.X; x < interior.Max.X; x += cfg.SamplingStep {
			points = append(points, r2.Point{X: float64(x), Y: float64(y)})
		}
	}

	return templateAligner{
		cfg:          cfg,
		interp:       interp,
		logger:       logger,
		template:     rimage.NewFloatImage(cfg.Width, cfg.Height),
		sampling:     rimage.NewFloatImage(cfg.Width, cfg.Height),
		homography:   transform.Identity(),
		points:       points,
		templateVals: make([]float64, len(points)),
		gradients:    make([]r2.Point, len(points)),
		samples:      make([]float64, len(points)),
		lastDelta:    make([]float64, cfg.Parameters),
		stats:        Stats{Samples: len(points)},
	}, nil
}

// AttachTemplate copies img into the template buffer. Initialize snapshots the template, so a
// template attached after Initialize is only used once Initialize is called again; until then
// updates keep aligning against the previous snapshot.
func (ta *templateAligner) AttachTemplate(img image.Image) error {
	if ta.template == nil {
		return ErrNoBuffer
	}
	if img == nil {
		return ErrNilImage
	}
	f, err := rimage.ToFloatImage(img)
	if err != nil {
		return err
	}
	if !rimage.SameSize(f, ta.template) {
		return errors.Wrapf(ErrSizeMismatch, "got %v, want %v", f.Size(), ta.template.Size())
	}
	if ta.cfg.BlurSigma > 0 {
		f = rimage.Blur(f, ta.cfg.BlurSigma)
	}
	ta.template.CopyFrom(f)
	ta.attached = true
	return nil
}

func (ta *templateAligner) Homography() transform.Homography {
	return ta.homography
}

func (ta *templateAligner) SetInitialHomography(h transform.Homography) {
	ta.homography = h
}

func (ta *templateAligner) LastDelta() []float64 {
	out := make([]float64, len(ta.lastDelta))
	copy(out, ta.lastDelta)
	return out
}

func (ta *templateAligner) Stats() Stats {
	return ta.stats
}

func (ta *templateAligner) SamplingImage() *image.Gray {
	if ta.sampling == nil {
		return nil
	}
	return ta.sampling.ToGray()
}

func (ta *templateAligner) TemplateSize() image.Point {
	return image.Point{ta.cfg.Width, ta.cfg.Height}
}

// TemplateImage returns a copy of the attached template.
func (ta *templateAligner) TemplateImage() *rimage.FloatImage {
	if ta.template == nil {
		return nil
	}
	return ta.template.Clone()
}

// snapshotTemplate caches template intensities and gradients at every sample point.
func (ta *templateAligner) snapshotTemplate() {
	step := ta.cfg.GradientStep
	for k, pt := range ta.points {
		x, y := int(pt.X), int(pt.Y)
		ta.templateVals[k] = ta.template.GetXY(x, y)
		ta.gradients[k] = ta.template.Gradient(x, y, step)
	}
	if rimage.ComputeGradientField(ta.template, step).MeanSquaredMagnitude() < 1e-9 {
		ta.logger.Warnw("template has no texture; the normal equations will be singular")
	}
}

// prepareFrame checks every precondition of an update without touching any state and returns
// the frame as a float raster.
func (ta *templateAligner) prepareFrame(img image.Image) (*rimage.FloatImage, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	if !rimage.IsSingleChannel(img) {
		return nil, errors.Wrapf(ErrChannelDepth, "got %T", img)
	}
	if ta.template == nil {
		return nil, ErrNoBuffer
	}
	if !ta.attached {
		return nil, ErrNoTemplate
	}
	if !ta.initialized {
		return nil, ErrNotInitialized
	}
	frame, err := rimage.ToFloatImage(img)
	if err != nil {
		return nil, err
	}
	if ta.cfg.BlurSigma > 0 {
		frame = rimage.Blur(frame, ta.cfg.BlurSigma)
	}
	return frame, nil
}

// sampleWarped reads the frame at h(pt), returning the out-of-bounds value when the warped
// location misses the frame.
func (ta *templateAligner) sampleWarped(frame *rimage.FloatImage, h transform.Homography, pt r2.Point) (float64, bool) {
	w := h.Apply(pt)
	v, ok := frame.Sample(w.X, w.Y, ta.interp)
	if !ok {
		return ta.cfg.OutOfBoundsValue, false
	}
	return v, true
}

// finishUpdate commits a successful step: the staged samples become the sampling raster and the
// diagnostics are recorded. Failed steps never reach it, so they leave every buffer unchanged.
func (ta *templateAligner) finishUpdate(residuals []float64, outOfBounds, rank int, signal float64) {
	for k, pt := range ta.points {
		ta.sampling.SetXY(int(pt.X), int(pt.Y), ta.samples[k])
	}
	mean, std := stat.MeanStdDev(residuals, nil)
	ta.stats = Stats{
		Updates:      ta.stats.Updates + 1,
		Samples:      len(ta.points),
		OutOfBounds:  outOfBounds,
		ResidualMean: mean,
		ResidualStd:  std,
		Rank:         rank,
		AnchorDrift:  math.Abs(ta.homography[transform.AnchorIndex] - 1),
	}
	ta.logger.Debugw("update", "signal", signal, "out_of_bounds", outOfBounds, "residual_mean", mean, "rank", rank)
	if 2*outOfBounds > len(ta.points) {
		ta.logger.Warnw("most template samples fall outside the frame",
			"out_of_bounds", outOfBounds, "samples", len(ta.points))
	}
}

func (ta *templateAligner) refuse(op string, err error) {
	if ta.logger == nil {
		return
	}
	ta.logger.Warnw("refused", "op", op, "error", err)
}
