package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/promptvision/promptcam/internal/log"
	"github.com/promptvision/promptcam/pkg/frame"
)

// Driver is the external vendor-SDK collaborator for industrial cameras.
// Implementations wrap the proprietary SDK (device enumeration by
// user-defined name, exclusive open, per-grab timeout). The SDK is expected
// to be configured for packed RGB8 output.
type Driver interface {
	// EnumerateNames lists the user-defined names of connected cameras.
	EnumerateNames() ([]string, error)

	// Open acquires the camera with the given name exclusively.
	Open(name string) (Camera, error)
}

// Camera is one opened SDK camera handle.
type Camera interface {
	// Grab returns the next packed-RGB frame, blocking at most timeout.
	Grab(timeout time.Duration) (data []byte, width, height int, err error)

	// Close releases the handle.
	Close() error
}

// DefaultDriver is the vendor driver linked into this build, if any.
// Builds without an SDK leave it nil and the MVS backend reports
// ErrUnavailable.
var DefaultDriver Driver

// MVSConfig configures the industrial-camera backend.
type MVSConfig struct {
	Name    string        // camera user-defined name (see ListMVS)
	Timeout time.Duration // per-grab timeout, default 1s
}

// MVS captures from an industrial camera through a vendor Driver.
type MVS struct {
	cam     Camera
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// ListMVS enumerates connected industrial cameras by name.
func ListMVS(drv Driver) ([]string, error) {
	if drv == nil {
		return nil, fmt.Errorf("%w: no SDK driver linked", ErrUnavailable)
	}
	names, err := drv.EnumerateNames()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate: %v", ErrUnavailable, err)
	}
	return names, nil
}

// OpenMVS opens an industrial camera by its user-defined name.
func OpenMVS(drv Driver, cfg MVSConfig) (*MVS, error) {
	if drv == nil {
		return nil, fmt.Errorf("%w: no SDK driver linked", ErrUnavailable)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: camera name required", ErrUnavailable)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	cam, err := drv.Open(cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrUnavailable, cfg.Name, err)
	}
	log.Info("industrial camera opened", "name", cfg.Name, "timeout", cfg.Timeout)

	return &MVS{cam: cam, timeout: cfg.Timeout}, nil
}

// Read grabs the next frame within the configured timeout.
func (m *MVS) Read() (*frame.RawFrame, error) {
	data, w, h, err := m.cam.Grab(m.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: grab: %v", ErrTimeout, err)
	}
	if need := w * h * frame.Channels; len(data) < need {
		return nil, fmt.Errorf("%w: grab returned %d bytes, need %d", ErrTimeout, len(data), need)
	}

	return &frame.RawFrame{
		Bytes:     data,
		Format:    frame.FormatRGB24,
		Width:     w,
		Height:    h,
		Timestamp: time.Now(),
	}, nil
}

// Format reports the fixed SDK output layout.
func (m *MVS) Format() frame.PixelFormat { return frame.FormatRGB24 }

// Close releases the SDK handle.
func (m *MVS) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.cam.Close()
	})
	return m.closeErr
}
