package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestFloatImage(t *testing.T) {
	f := NewFloatImageFromFunc(4, 3, func(x, y int) float64 { return float64(10*y + x) })
	test.That(t, f.Width(), test.ShouldEqual, 4)
	test.That(t, f.Height(), test.ShouldEqual, 3)
	test.That(t, f.Size(), test.ShouldResemble, image.Point{4, 3})
	test.That(t, f.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))
	test.That(t, f.GetXY(3, 2), test.ShouldEqual, 23.0)
	test.That(t, f.In(3, 2), test.ShouldBeTrue)
	test.That(t, f.In(4, 2), test.ShouldBeFalse)
	test.That(t, f.In(-1, 0), test.ShouldBeFalse)

	c := f.Clone()
	c.SetXY(0, 0, 99)
	test.That(t, f.GetXY(0, 0), test.ShouldEqual, 0.0)
	test.That(t, f.CopyFrom(c), test.ShouldBeTrue)
	test.That(t, f.GetXY(0, 0), test.ShouldEqual, 99.0)
	test.That(t, f.CopyFrom(NewFloatImage(3, 3)), test.ShouldBeFalse)

	f.Fill(7)
	test.That(t, f.GetXY(2, 1), test.ShouldEqual, 7.0)
}

func TestFloatImageConversions(t *testing.T) {
	f := NewFloatImage(3, 1)
	f.SetXY(0, 0, -5)
	f.SetXY(1, 0, 100.6)
	f.SetXY(2, 0, 300)

	gray := f.ToGray()
	test.That(t, gray.Pix, test.ShouldResemble, []uint8{0, 101, 255})

	test.That(t, f.ColorModel(), test.ShouldEqual, color.Gray16Model)
	test.That(t, f.At(0, 0), test.ShouldResemble, color.Gray16{0})
	test.That(t, f.At(2, 0), test.ShouldResemble, color.Gray16{65535})
	test.That(t, f.At(5, 0), test.ShouldResemble, color.Gray16{})
}
