package main

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeTexture(t *testing.T, path string, width, height int, dx, dy float64) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			u, v := float64(x)-dx, float64(y)-dy
			val := 128 + 60*math.Sin(u/5)*math.Cos(v/6) + 30*math.Cos((u+2*v)/9)
			img.SetGray(x, y, color.Gray{uint8(math.Round(val))})
		}
	}
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, img), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
}

func TestAlignMainArgs(t *testing.T) {
	test.That(t, realMain([]string{}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"only-template.png"}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"-log-level", "loud", "a.png", "b.png"}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"-iterations", "0", "a.png", "b.png"}), test.ShouldNotBeNil)
	test.That(t, realMain([]string{"-kind", "lucas_kanade", "a.png", "b.png"}), test.ShouldBeError,
		`unknown aligner kind "lucas_kanade"`)
	test.That(t, realMain([]string{"missing-template.png", "missing-frame.png"}), test.ShouldNotBeNil)
}

func TestAlignMain(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "template.png")
	framePath := filepath.Join(dir, "frame.png")
	configPath := filepath.Join(dir, "config.json")
	sampledPath := filepath.Join(dir, "sampled.png")

	writeTexture(t, templatePath, 48, 48, 0, 0)
	writeTexture(t, framePath, 80, 80, 1, 1)
	data, err := json.Marshal(map[string]interface{}{"width": 48, "height": 48})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(configPath, data, 0o600), test.ShouldBeNil)

	for _, kind := range []string{"esm", "inverse_compositional"} {
		err := realMain([]string{"-kind", kind, "-config", configPath, "-sampled", sampledPath, templatePath, framePath})
		test.That(t, err, test.ShouldBeNil)

		f, err := os.Open(sampledPath)
		test.That(t, err, test.ShouldBeNil)
		img, err := png.Decode(f)
		test.That(t, f.Close(), test.ShouldBeNil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Size(), test.ShouldResemble, image.Point{48, 48})
	}

	// a template of the wrong size is resized to the configured one
	err = realMain([]string{"-config", configPath, "-iterations", "1", framePath, framePath})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, os.WriteFile(configPath, []byte(`{"width": "wide"}`), 0o600), test.ShouldBeNil)
	test.That(t, realMain([]string{"-config", configPath, templatePath, framePath}), test.ShouldNotBeNil)
}
