package align

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/imagealign/logging"
	"go.viam.com/imagealign/rimage"
)

const templateSize = 64

// texture is a smooth, well-textured intensity pattern on the 8-bit scale.
func texture(x, y float64) float64 {
	return 128 + 50*math.Sin(x/6)*math.Cos(y/7) + 30*math.Cos((x+2*y)/11)
}

func makeTemplate() *rimage.FloatImage {
	return rimage.NewFloatImageFromFunc(templateSize, templateSize, func(x, y int) float64 {
		return texture(float64(x), float64(y))
	})
}

// makeShiftedFrame renders the template pattern moved by (dx, dy) into a larger frame, so that
// frame(u, v) = template(u-dx, v-dy).
func makeShiftedFrame(width, height int, dx, dy float64) *rimage.FloatImage {
	return rimage.NewFloatImageFromFunc(width, height, func(u, v int) float64 {
		return texture(float64(u)-dx, float64(v)-dy)
	})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = templateSize
	cfg.Height = templateSize
	return cfg
}

func newInitialized(t *testing.T, kind Kind, cfg Config, template *rimage.FloatImage) Aligner {
	t.Helper()
	a, err := New(kind, cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.AttachTemplate(template), test.ShouldBeNil)
	test.That(t, a.Initialize(), test.ShouldBeNil)
	return a
}

var allKinds = []Kind{KindInverseCompositional, KindESM}
