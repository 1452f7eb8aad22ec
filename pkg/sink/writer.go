package sink

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/promptvision/promptcam/pkg/frame"
)

// queueDepth bounds the encode queue. A full queue stalls the producing tick
// (backpressure) instead of buffering without limit.
const queueDepth = 8

// Encoder is the external video-encode collaborator: it accepts raw frames
// and produces a file. The gocv implementation is the production one; tests
// substitute a fake to exercise queue semantics.
type Encoder interface {
	Write(f *frame.Frame) error
	Close() error
}

// Writer is the headless sink: frames flow through a bounded queue drained
// by a single encoder goroutine so encoding does not block capture until the
// queue is full.
type Writer struct {
	queue chan *frame.Frame
	done  chan struct{}

	mu     sync.Mutex
	err    error
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewWriter starts the encode goroutine over the given encoder.
func NewWriter(enc Encoder) *Writer {
	w := &Writer{
		queue: make(chan *frame.Frame, queueDepth),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		for f := range w.queue {
			if err := enc.Write(f); err != nil {
				w.mu.Lock()
				if w.err == nil {
					w.err = fmt.Errorf("sink: encode: %w", err)
				}
				w.mu.Unlock()
				// Keep draining so Present never deadlocks; frames
				// after a write failure are dropped.
			}
		}
		if err := enc.Close(); err != nil {
			w.mu.Lock()
			if w.err == nil {
				w.err = fmt.Errorf("sink: close encoder: %w", err)
			}
			w.mu.Unlock()
		}
	}()
	return w
}

// Present enqueues a frame for encoding, blocking when the queue is full.
// A pending encoder error is surfaced here and is fatal for the session:
// headless mode has no fallback output.
func (w *Writer) Present(f *frame.Frame) (Event, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return EventNone, ErrClosed
	}
	if w.err != nil {
		err := w.err
		w.mu.Unlock()
		return EventNone, err
	}
	w.mu.Unlock()

	w.queue <- f.Clone()
	return EventNone, nil
}

// Interactive reports false: the writer produces no input events.
func (w *Writer) Interactive() bool { return false }

// Close drains the queue, finalizes the encoder, and reports any deferred
// encode error.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()

		close(w.queue)
		<-w.done

		w.mu.Lock()
		w.closeErr = w.err
		w.mu.Unlock()
	})
	return w.closeErr
}

// videoEncoder wraps gocv.VideoWriter as the production Encoder.
type videoEncoder struct {
	vw *gocv.VideoWriter
}

// NewVideoWriter opens an encoding sink writing H.264 to path.
func NewVideoWriter(path string, fps float64, width, height int) (*Writer, error) {
	vw, err := gocv.VideoWriterFile(path, "avc1", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("sink: open video writer %s: %w", path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("sink: video writer %s not opened", path)
	}
	return NewWriter(&videoEncoder{vw: vw}), nil
}

func (e *videoEncoder) Write(f *frame.Frame) error {
	mat, err := matFromFrame(f)
	if err != nil {
		return err
	}
	defer mat.Close()
	return e.vw.Write(mat)
}

func (e *videoEncoder) Close() error {
	return e.vw.Close()
}
