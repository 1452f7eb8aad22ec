package sink

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/promptvision/promptcam/pkg/frame"
)

type fakeEncoder struct {
	mu       sync.Mutex
	writes   int
	writeErr error
	closed   bool
}

func (e *fakeEncoder) Write(f *frame.Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.writeErr != nil {
		return e.writeErr
	}
	e.writes++
	return nil
}

func (e *fakeEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEncoder) writeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}

func testFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(4, 4)
	if err != nil {
		t.Fatalf("frame.New() error = %v", err)
	}
	return f
}

func TestWriterDrainsAllFramesOnClose(t *testing.T) {
	enc := &fakeEncoder{}
	w := NewWriter(enc)
	f := testFrame(t)

	for i := 0; i < 20; i++ {
		if _, err := w.Present(f); err != nil {
			t.Fatalf("Present() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := enc.writeCount(); got != 20 {
		t.Errorf("encoder writes = %d, want 20", got)
	}
	if !enc.closed {
		t.Error("encoder not closed")
	}
}

func TestWriterIsNotInteractive(t *testing.T) {
	w := NewWriter(&fakeEncoder{})
	defer w.Close()

	if w.Interactive() {
		t.Error("Interactive() = true, want false")
	}
	ev, err := w.Present(testFrame(t))
	if err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if ev != EventNone {
		t.Errorf("Present() event = %v, want EventNone", ev)
	}
}

func TestWriterSurfacesEncodeError(t *testing.T) {
	enc := &fakeEncoder{writeErr: errors.New("disk full")}
	w := NewWriter(enc)
	f := testFrame(t)

	// First Present enqueues before the failure is observed; a later one
	// must surface it.
	var err error
	for i := 0; i < 50; i++ {
		if _, err = w.Present(f); err != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err == nil {
		err = w.Close()
	}
	if err == nil {
		t.Fatal("encode error never surfaced")
	}
}

func TestWriterPresentAfterClose(t *testing.T) {
	w := NewWriter(&fakeEncoder{})
	w.Close()

	if _, err := w.Present(testFrame(t)); !errors.Is(err, ErrClosed) {
		t.Errorf("Present() after Close error = %v, want ErrClosed", err)
	}
}

func TestWriterCloseIdempotent(t *testing.T) {
	w := NewWriter(&fakeEncoder{})
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWriterClonesFrames(t *testing.T) {
	enc := &fakeEncoder{}
	w := NewWriter(enc)
	f := testFrame(t)

	w.Present(f)
	f.Pix[0] = 99 // mutate after enqueue; the queued copy must be unaffected

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := enc.writeCount(); got != 1 {
		t.Errorf("encoder writes = %d, want 1", got)
	}
}
