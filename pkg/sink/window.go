package sink

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/promptvision/promptcam/pkg/frame"
)

// Recognized keys, matching the interactive controls:
// ESC/q quit, p update prompts, s save frame.
const (
	keyEscape = 27
	keyQuit   = 'q'
	keyPrompt = 'p'
	keySave   = 's'
)

// Window presents frames in an OpenCV window and polls the keyboard with a
// bounded wait, so the UI never stalls capture beyond one frame interval.
type Window struct {
	win     *gocv.Window
	delayMS int

	closeOnce sync.Once
	closeErr  error
}

// NewWindow opens a display window. delay bounds the per-tick key poll;
// for file playback pass one frame interval to pace display at source rate.
func NewWindow(title string, delay time.Duration) *Window {
	ms := int(delay / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return &Window{
		win:     gocv.NewWindow(title),
		delayMS: ms,
	}
}

// Present shows the frame and maps the polled key to an event.
// Closing the window counts as quit.
func (w *Window) Present(f *frame.Frame) (Event, error) {
	mat, err := matFromFrame(f)
	if err != nil {
		return EventNone, fmt.Errorf("sink: frame to mat: %w", err)
	}
	defer mat.Close()

	if w.win.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
		return EventQuit, nil
	}
	w.win.IMShow(mat)

	switch w.win.WaitKey(w.delayMS) {
	case keyEscape, keyQuit:
		return EventQuit, nil
	case keyPrompt:
		return EventPromptUpdate, nil
	case keySave:
		return EventSaveFrame, nil
	default:
		return EventNone, nil
	}
}

// Interactive reports true: this sink produces key events.
func (w *Window) Interactive() bool { return true }

// Close destroys the window.
func (w *Window) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.win.Close()
	})
	return w.closeErr
}
