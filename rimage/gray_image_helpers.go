package rimage

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// ErrNotSingleChannel is returned when a raster with more than one channel is supplied where a
// single intensity channel is required.
var ErrNotSingleChannel = errors.New("image is not single-channel")

// IsSingleChannel reports whether img carries exactly one intensity channel.
func IsSingleChannel(img image.Image) bool {
	switch img.(type) {
	case *FloatImage, *image.Gray, *image.Gray16:
		return true
	default:
		return false
	}
}

// ToFloatImage converts a single-channel image into a FloatImage. A *FloatImage is returned as is
// and must be treated as read-only by the caller. 16-bit rasters are rescaled to the 8-bit range.
func ToFloatImage(img image.Image) (*FloatImage, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	switch src := img.(type) {
	case *FloatImage:
		return src, nil
	case *image.Gray:
		b := src.Bounds()
		f := NewFloatImage(b.Dx(), b.Dy())
		for y := 0; y < f.height; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < f.width; x++ {
				f.data[f.kxy(x, y)] = float64(row[x])
			}
		}
		return f, nil
	case *image.Gray16:
		b := src.Bounds()
		f := NewFloatImage(b.Dx(), b.Dy())
		for y := 0; y < f.height; y++ {
			for x := 0; x < f.width; x++ {
				f.data[f.kxy(x, y)] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y) / 257
			}
		}
		return f, nil
	default:
		return nil, errors.Wrapf(ErrNotSingleChannel, "got %T", img)
	}
}

// MakeGray converts any image to an 8-bit gray image using the standard luminance weights.
// Callers use it to prepare templates and frames from color sources.
func MakeGray(img image.Image) *image.Gray {
	result := image.NewGray(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(result, result.Bounds(), img, img.Bounds().Min, draw.Src)
	return result
}

// Resize scales img to width x height with bilinear filtering and returns a gray raster. It is
// used to bring a cropped template region to the configured template size.
func Resize(img image.Image, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Blur applies a Gaussian blur with the given sigma. The raster passes through an 8-bit
// representation, so intensities are rounded and clamped to 0-255.
func Blur(f *FloatImage, sigma float64) *FloatImage {
	if sigma <= 0 {
		return f.Clone()
	}
	blurred := imaging.Blur(f.ToGray(), sigma)
	out := NewFloatImage(f.width, f.height)
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			out.data[out.kxy(x, y)] = float64(color.GrayModel.Convert(blurred.NRGBAAt(x, y)).(color.Gray).Y)
		}
	}
	return out
}
