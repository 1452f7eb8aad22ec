package source

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/promptvision/promptcam/internal/log"
	"github.com/promptvision/promptcam/pkg/frame"
)

// FileConfig configures a file-backed playback backend.
type FileConfig struct {
	Path string

	// FPS overrides the playback rate probed from the container.
	// Zero keeps the probed value (fallback 30 when the probe fails).
	FPS float64
}

// File plays back a video file, one decoded frame per Read.
// Exhausting the file yields ErrEndOfStream, which is graceful completion.
type File struct {
	cap    *gocv.VideoCapture
	fps    float64
	frames int
	width  int
	height int

	closeOnce sync.Once
	closeErr  error
}

// OpenFile opens a video file for playback.
func OpenFile(cfg FileConfig) (*File, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, cfg.Path, err)
	}
	cap, err := gocv.VideoCaptureFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, cfg.Path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: %s not opened", ErrUnavailable, cfg.Path)
	}

	fps := cfg.FPS
	if fps <= 0 {
		fps = cap.Get(gocv.VideoCaptureFPS)
	}
	if fps <= 0 {
		fps = 30
	}
	frames := int(cap.Get(gocv.VideoCaptureFrameCount))
	width := int(cap.Get(gocv.VideoCaptureFrameWidth))
	height := int(cap.Get(gocv.VideoCaptureFrameHeight))

	log.Info("video opened", "path", cfg.Path,
		"width", width, "height", height, "fps", fps, "frames", frames)

	return &File{cap: cap, fps: fps, frames: frames, width: width, height: height}, nil
}

// Read decodes the next frame, or returns ErrEndOfStream once the file is
// exhausted.
func (f *File) Read() (*frame.RawFrame, error) {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := f.cap.Read(&mat); !ok || mat.Empty() {
		return nil, ErrEndOfStream
	}

	return &frame.RawFrame{
		Bytes:     mat.ToBytes(),
		Format:    frame.FormatBGR24,
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Timestamp: time.Now(),
	}, nil
}

// Format reports the decoded pixel layout.
func (f *File) Format() frame.PixelFormat { return frame.FormatBGR24 }

// FPS returns the playback rate used for display pacing and encoding.
func (f *File) FPS() float64 { return f.fps }

// FrameCount returns the probed frame count, or 0 when unknown.
func (f *File) FrameCount() int { return f.frames }

// Size returns the container frame dimensions.
func (f *File) Size() (int, int) { return f.width, f.height }

// Close releases the decoder handle.
func (f *File) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.cap.Close()
	})
	return f.closeErr
}
