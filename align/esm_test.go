package align

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"

	"go.viam.com/imagealign/logging"
	"go.viam.com/imagealign/rimage/transform"
)

func TestESMUpdateScale(t *testing.T) {
	template := makeTemplate()
	frame := makeShiftedFrame(96, 96, 1, 0)

	deltaAt := func(scale float64) []float64 {
		cfg := testConfig()
		cfg.UpdateScale = scale
		e, err := NewESM(cfg, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, e.AttachTemplate(template), test.ShouldBeNil)
		test.That(t, e.Initialize(), test.ShouldBeNil)
		_, err = e.UpdateHomography(frame)
		test.That(t, err, test.ShouldBeNil)
		return e.LastDelta()
	}

	half := deltaAt(-1)
	full := deltaAt(-2)
	for i := range half {
		test.That(t, full[i], test.ShouldAlmostEqual, 2*half[i], 1e-12)
	}
}

func TestESMAdditiveUpdate(t *testing.T) {
	template := makeTemplate()
	frame := makeShiftedFrame(96, 96, 1, 2)
	start := transform.Translation(0.5, 0.5)

	e, err := NewESM(testConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	e.SetInitialHomography(start)
	test.That(t, e.AttachTemplate(template), test.ShouldBeNil)
	test.That(t, e.Initialize(), test.ShouldBeNil)

	signal, err := e.UpdateHomography(frame)
	test.That(t, err, test.ShouldBeNil)

	delta := e.LastDelta()
	sum := 0.0
	h := e.Homography()
	for i, d := range delta {
		test.That(t, h[i], test.ShouldEqual, start[i]+d)
		if d < 0 {
			d = -d
		}
		sum += d
	}
	test.That(t, signal, test.ShouldAlmostEqual, sum, 1e-12)
	test.That(t, h[transform.AnchorIndex], test.ShouldEqual, 1.0)
}

func TestESMFixedJacobian(t *testing.T) {
	template := makeTemplate()
	frame := makeShiftedFrame(96, 96, 3, 3)

	deltaAfterMove := func(refresh bool) []float64 {
		cfg := testConfig()
		cfg.RefreshJacobian = refresh
		e, err := NewESM(cfg, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, e.AttachTemplate(template), test.ShouldBeNil)
		test.That(t, e.Initialize(), test.ShouldBeNil)
		// moving the estimate after Initialize leaves the cached Jacobian at the identity
		e.SetInitialHomography(transform.Translation(2.5, 2.5))
		_, err = e.UpdateHomography(frame)
		test.That(t, err, test.ShouldBeNil)
		return e.LastDelta()
	}

	fixed := deltaAfterMove(false)
	refreshed := deltaAfterMove(true)
	test.That(t, cmp.Equal(fixed, refreshed), test.ShouldBeFalse)
}

func TestESMBlurAndStride(t *testing.T) {
	cfg := testConfig()
	cfg.BlurSigma = 1.2
	cfg.SamplingStep = 2
	e, err := NewESM(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.Stats().Samples, test.ShouldEqual, 31*31)

	template := makeTemplate()
	test.That(t, e.AttachTemplate(template), test.ShouldBeNil)
	test.That(t, e.Initialize(), test.ShouldBeNil)
	// the owned template holds the blurred copy; the caller's raster is untouched
	test.That(t, e.TemplateImage().GetXY(30, 30), test.ShouldNotEqual, template.GetXY(30, 30))

	signal, err := e.UpdateHomography(template)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, signal, test.ShouldAlmostEqual, 0, 1e-9)
}
