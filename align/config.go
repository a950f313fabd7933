package align

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/imagealign/rimage"
	"go.viam.com/imagealign/rimage/transform"
)

// Config holds the construction-time settings shared by both aligners. Start from DefaultConfig
// and override fields; a zero Config does not validate.
type Config struct {
	// Width and Height are the template dimensions every attached template must match.
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
	// Parameters is the number of leading homography entries optimized: 8 for a projective
	// warp, 6 for an affine one.
	Parameters int `json:"parameters" mapstructure:"parameters"`
	// GradientStep is the pixel offset of the central differences on intensities.
	GradientStep int `json:"gradient_step" mapstructure:"gradient_step"`
	// JacobianStep is the perturbation applied to each homography entry when the warp Jacobian
	// is differentiated numerically.
	JacobianStep float64 `json:"jacobian_step" mapstructure:"jacobian_step"`
	// Amplification multiplies the inverse-compositional increment.
	Amplification float64 `json:"amplification" mapstructure:"amplification"`
	// UpdateScale multiplies the ESM increment before it is added to the homography.
	UpdateScale float64 `json:"update_scale" mapstructure:"update_scale"`
	// SamplingStep is the stride between interior template pixels used in the sums.
	SamplingStep int `json:"sampling_step" mapstructure:"sampling_step"`
	// RefreshJacobian makes ESM re-differentiate the warp at the current homography on every
	// update instead of keeping the one computed by Initialize.
	RefreshJacobian bool `json:"refresh_jacobian" mapstructure:"refresh_jacobian"`
	// OutOfBoundsValue is the intensity recorded for samples falling outside the frame.
	OutOfBoundsValue float64 `json:"out_of_bounds_value" mapstructure:"out_of_bounds_value"`
	// Interpolation is "bilinear" (default) or "nearest".
	Interpolation string `json:"interpolation" mapstructure:"interpolation"`
	// BlurSigma, when positive, smooths the template and every frame with a Gaussian first.
	BlurSigma float64 `json:"blur_sigma" mapstructure:"blur_sigma"`
}

// DefaultConfig returns the configuration for a 150x150 projective template.
func DefaultConfig() Config {
	return Config{
		Width:            150,
		Height:           150,
		Parameters:       transform.MaxParameters,
		GradientStep:     1,
		JacobianStep:     1e-5,
		Amplification:    1,
		UpdateScale:      -2,
		SamplingStep:     1,
		OutOfBoundsValue: -1,
		Interpolation:    string(rimage.Bilinear),
	}
}

// ConfigFromAttributes decodes an attribute map (e.g. parsed JSON) over DefaultConfig and
// validates the result.
func ConfigFromAttributes(attrs map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, errors.Wrap(err, "cannot decode aligner attributes")
	}
	if err := cfg.Validate("align"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Width == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "width")
	}
	if cfg.Height == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "height")
	}

	var errs error
	if cfg.GradientStep < 1 {
		errs = multierr.Append(errs, errors.Errorf("gradient_step must be at least 1, got %d", cfg.GradientStep))
	} else if rimage.InteriorRect(cfg.Width, cfg.Height, cfg.GradientStep).Empty() {
		errs = multierr.Append(errs, errors.Errorf("template %dx%d has no interior pixels for gradient_step %d",
			cfg.Width, cfg.Height, cfg.GradientStep))
	}
	if cfg.Parameters < 1 || cfg.Parameters > transform.MaxParameters {
		errs = multierr.Append(errs, errors.Errorf("parameters must be in [1, %d], got %d",
			transform.MaxParameters, cfg.Parameters))
	}
	if cfg.JacobianStep <= 0 {
		errs = multierr.Append(errs, errors.Errorf("jacobian_step must be positive, got %v", cfg.JacobianStep))
	}
	if cfg.Amplification <= 0 {
		errs = multierr.Append(errs, errors.Errorf("amplification must be positive, got %v", cfg.Amplification))
	}
	if cfg.UpdateScale == 0 {
		errs = multierr.Append(errs, errors.New("update_scale cannot be zero"))
	}
	if cfg.SamplingStep < 1 {
		errs = multierr.Append(errs, errors.Errorf("sampling_step must be at least 1, got %d", cfg.SamplingStep))
	}
	if cfg.BlurSigma < 0 {
		errs = multierr.Append(errs, errors.Errorf("blur_sigma cannot be negative, got %v", cfg.BlurSigma))
	}
	if _, err := rimage.ParseInterpolation(cfg.Interpolation); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return utils.NewConfigValidationError(path, errs)
	}
	return nil
}
