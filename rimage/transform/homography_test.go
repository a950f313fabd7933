package transform

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.viam.com/test"
)

func TestNewHomography(t *testing.T) {
	h, err := NewHomography([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.At(1, 2), test.ShouldEqual, 6.0)
	test.That(t, h.At(2, 2), test.ShouldEqual, h[AnchorIndex])
	test.That(t, h.Params(6), test.ShouldResemble, []float64{1, 2, 3, 4, 5, 6})

	_, err = NewHomography([]float64{1, 2, 3})
	test.That(t, err, test.ShouldBeError, "input to NewHomography must have length of 9. Has length of 3")
}

func TestHomographyApply(t *testing.T) {
	pt := r2.Point{X: 3, Y: -2}
	test.That(t, Identity().Apply(pt), test.ShouldResemble, pt)
	test.That(t, Translation(1.5, 4).Apply(pt), test.ShouldResemble, r2.Point{X: 4.5, Y: 2})

	// the homogeneous division applies even when the anchor is not 1
	h := Homography{2, 0, 0, 0, 2, 0, 0, 0, 2}
	test.That(t, h.Apply(pt), test.ShouldResemble, pt)

	proj := Homography{1, 0, 0, 0, 1, 0, 0.5, 0, 1}
	got := proj.Apply(r2.Point{X: 2, Y: 4})
	test.That(t, got.X, test.ShouldAlmostEqual, 1.0)
	test.That(t, got.Y, test.ShouldAlmostEqual, 2.0)
}

func TestHomographyComposition(t *testing.T) {
	a := Homography{1.1, 0.05, 3, -0.02, 0.95, -1, 1e-4, -2e-4, 1}
	b := Translation(2, 5)
	pt := r2.Point{X: 10, Y: 7}

	ab := a.Mul(b)
	want := a.Apply(b.Apply(pt))
	got := ab.Apply(pt)
	test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-9)
	test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-9)

	inv, err := a.Inverse()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmp.Diff(Identity(), a.Mul(inv), cmpopts.EquateApprox(0, 1e-12)), test.ShouldBeEmpty)

	_, err = Homography{}.Inverse()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHomographyHelpers(t *testing.T) {
	h := Homography{2, 0, 4, 0, 2, 6, 0, 0, 2}
	test.That(t, h.Translation(), test.ShouldResemble, r2.Point{X: 2, Y: 3})

	n, err := h.Normalize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldResemble, Homography{1, 0, 2, 0, 1, 3, 0, 0, 1})
	_, err = Homography{1, 0, 0, 0, 1, 0, 0, 0, 0}.Normalize()
	test.That(t, err, test.ShouldNotBeNil)

	moved := Identity().AddParams([]float64{0.5, 0, 1})
	test.That(t, moved, test.ShouldResemble, Homography{1.5, 0, 1, 0, 1, 0, 0, 0, 1})
	// the receiver is a value; the original is unchanged
	test.That(t, Identity()[0], test.ShouldEqual, 1.0)

	test.That(t, h.Dense().At(1, 2), test.ShouldEqual, 6.0)
	test.That(t, h.IsFinite(), test.ShouldBeTrue)
	h[7] = math.Inf(1)
	test.That(t, h.IsFinite(), test.ShouldBeFalse)
	test.That(t, Identity().String(), test.ShouldEqual, "[1 0 0; 0 1 0; 0 0 1]")
}
