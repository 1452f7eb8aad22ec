// Package source unifies heterogeneous camera backends behind one pull-based
// interface: a webcam device, a video file, or an industrial camera reached
// through a vendor SDK driver. The control loop depends only on this shape;
// backend-specific configuration lives in each constructor.
package source

import (
	"errors"

	"github.com/promptvision/promptcam/pkg/frame"
)

// Sentinel errors for capture conditions.
var (
	// ErrUnavailable is returned when a backend cannot be opened: device
	// busy, path not found, driver or SDK missing. Fatal for the run.
	ErrUnavailable = errors.New("source: unavailable")

	// ErrTimeout is returned when no frame arrived within the backend's
	// timeout. Recoverable; the tick is skipped.
	ErrTimeout = errors.New("source: capture timeout")

	// ErrEndOfStream signals graceful completion of a finite source.
	// It is a control signal, not a failure.
	ErrEndOfStream = errors.New("source: end of stream")
)

// Source is the uniform "next frame" operation over a capture backend.
// Constructors perform the open; Close releases the handle and is safe to
// call on every exit path, including after a Read error.
type Source interface {
	// Read blocks until the next frame is ready or the backend's timeout
	// elapses, never indefinitely beyond that.
	Read() (*frame.RawFrame, error)

	// Format reports the pixel layout this source delivers, known at open
	// time so unsupported layouts fail before the loop starts.
	Format() frame.PixelFormat

	// Close releases the capture handle. Idempotent.
	Close() error
}
