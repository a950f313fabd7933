package align

import (
	"github.com/pkg/errors"

	"go.viam.com/imagealign/rimage"
)

// FailedUpdate is the convergence signal returned alongside an error from UpdateHomography.
const FailedUpdate = -1.0

var (
	// ErrNoBuffer is returned by an aligner that was not built with its constructor.
	ErrNoBuffer = errors.New("aligner has no template buffer")
	// ErrNoTemplate is returned when an operation needs a template that was never attached.
	ErrNoTemplate = errors.New("no template attached")
	// ErrNotInitialized is returned by UpdateHomography before Initialize succeeded.
	ErrNotInitialized = errors.New("aligner not initialized")
	// ErrNilImage is returned when a nil raster is supplied.
	ErrNilImage = errors.New("nil image")
	// ErrChannelDepth is returned when a raster is not single-channel.
	ErrChannelDepth = rimage.ErrNotSingleChannel
	// ErrSizeMismatch is returned when a template does not have the configured dimensions.
	ErrSizeMismatch = errors.New("template size mismatch")
)
