package source

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/promptvision/promptcam/internal/log"
	"github.com/promptvision/promptcam/pkg/frame"
)

// DeviceConfig configures a live-device capture backend.
type DeviceConfig struct {
	Index  int // camera index, usually 0
	Width  int // requested width, best-effort; the driver may override
	Height int // requested height, best-effort

	// RawYUYV requests the undecoded YUYV stream from the driver instead
	// of letting OpenCV decode to BGR. Useful to keep conversion in one
	// place and to match V4L2 defaults.
	RawYUYV bool
}

// Device captures from a local camera via OpenCV.
type Device struct {
	cap    *gocv.VideoCapture
	format frame.PixelFormat
	width  int
	height int

	closeOnce sync.Once
	closeErr  error
}

// OpenDevice opens a local camera. Fails with ErrUnavailable if the device
// is missing or busy.
func OpenDevice(cfg DeviceConfig) (*Device, error) {
	cap, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: camera %d: %v", ErrUnavailable, cfg.Index, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: camera %d not opened", ErrUnavailable, cfg.Index)
	}

	if cfg.Width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	format := frame.FormatBGR24
	if cfg.RawYUYV {
		cap.Set(gocv.VideoCaptureFOURCC, cap.ToCodec("YUYV"))
		cap.Set(gocv.VideoCaptureConvertRGB, 0)
		format = frame.FormatYUYV
	}

	w := int(cap.Get(gocv.VideoCaptureFrameWidth))
	h := int(cap.Get(gocv.VideoCaptureFrameHeight))
	log.Info("camera opened", "index", cfg.Index, "width", w, "height", h, "format", format.String())

	return &Device{cap: cap, format: format, width: w, height: h}, nil
}

// Read grabs the next frame. A failed grab on a live device is reported as
// ErrTimeout so the loop can retry within its budget.
func (d *Device) Read() (*frame.RawFrame, error) {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := d.cap.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("%w: device read failed", ErrTimeout)
	}

	// In raw YUYV mode the mat is w x h with 2 bytes per pixel; Cols and
	// Rows are still the image dimensions.
	return &frame.RawFrame{
		Bytes:     mat.ToBytes(),
		Format:    d.format,
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Timestamp: time.Now(),
	}, nil
}

// Format reports the negotiated pixel layout.
func (d *Device) Format() frame.PixelFormat { return d.format }

// Size returns the negotiated capture dimensions.
func (d *Device) Size() (int, int) { return d.width, d.height }

// Close releases the capture handle.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.cap.Close()
	})
	return d.closeErr
}
