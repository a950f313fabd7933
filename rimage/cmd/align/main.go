// Package main is a command that aligns a template image against one or more frames.
package main

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/imagealign/align"
	"go.viam.com/imagealign/logging"
	"go.viam.com/imagealign/rimage"
)

const (
	flagKind       = "kind"
	flagConfig     = "config"
	flagIterations = "iterations"
	flagThreshold  = "threshold"
	flagSampled    = "sampled"
	flagLogLevel   = "log-level"
)

var logger = logging.NewLogger("imagealign")

func main() {
	err := realMain(os.Args[1:])
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func readGray(path string) (*image.Gray, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %s", path)
	}
	return rimage.MakeGray(img), nil
}

func writePNG(path string, img image.Image) error {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		return multierr.Combine(err, f.Close())
	}
	return f.Close()
}

func loadConfig(path string) (*align.Config, error) {
	if path == "" {
		cfg := align.DefaultConfig()
		return &cfg, nil
	}
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var attrs map[string]interface{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s", path)
	}
	return align.ConfigFromAttributes(attrs)
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "imagealign",
		Usage:     "align a template image against one or more frames",
		ArgsUsage: "<template> <frame> [frame...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagKind,
				Value: string(align.KindESM),
				Usage: "aligner: esm or inverse_compositional",
			},
			&cli.StringFlag{
				Name:  flagConfig,
				Usage: "load aligner attributes from JSON `FILE`",
			},
			&cli.IntFlag{
				Name:  flagIterations,
				Value: 50,
				Usage: "maximum updates per frame",
			},
			&cli.Float64Flag{
				Name:  flagThreshold,
				Value: 1e-4,
				Usage: "stop a frame once the signal drops below this",
			},
			&cli.StringFlag{
				Name:  flagSampled,
				Usage: "write the last sampled template to PNG `FILE`",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Value: "info",
				Usage: "debug, info, warn, or error",
			},
		},
		Action: alignAction,
	}
}

func realMain(args []string) error {
	return newApp().Run(append([]string{"imagealign"}, args...))
}

func alignAction(c *cli.Context) error {
	level, err := logging.LevelFromString(c.String(flagLogLevel))
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if c.NArg() < 2 {
		return errors.New("need <template> <frame> [frame...]")
	}
	iterations := c.Int(flagIterations)
	if iterations < 1 {
		return errors.Errorf("iterations must be at least 1, got %d", iterations)
	}
	threshold := c.Float64(flagThreshold)
	kind := c.String(flagKind)

	cfg, err := loadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	aligner, err := align.New(align.Kind(kind), *cfg, logger.Sublogger(kind))
	if err != nil {
		return err
	}

	template, err := readGray(c.Args().Get(0))
	if err != nil {
		return err
	}
	size := aligner.TemplateSize()
	if template.Bounds().Size() != size {
		logger.Infow("resizing template", "from", template.Bounds().Size(), "to", size)
		template = rimage.Resize(template, size.X, size.Y)
	}
	if err := aligner.AttachTemplate(template); err != nil {
		return err
	}
	if err := aligner.Initialize(); err != nil {
		return err
	}

	// frames are tracked in order, each starting from the previous estimate
	for _, path := range c.Args().Slice()[1:] {
		frame, err := readGray(path)
		if err != nil {
			return err
		}
		signal := align.FailedUpdate
		n := 0
		for n < iterations {
			signal, err = aligner.UpdateHomography(frame)
			if err != nil {
				return err
			}
			n++
			if signal < threshold {
				break
			}
		}
		stats := aligner.Stats()
		logger.Infow("aligned", "frame", path, "updates", n, "signal", signal,
			"out_of_bounds", stats.OutOfBounds, "residual_std", stats.ResidualStd)
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", path, aligner.Homography())
	}

	if out := c.String(flagSampled); out != "" {
		return writePNG(out, aligner.SamplingImage())
	}
	return nil
}
