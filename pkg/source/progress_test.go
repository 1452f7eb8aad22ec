package source

import (
	"errors"
	"testing"
	"time"

	"github.com/promptvision/promptcam/pkg/frame"
)

// scriptedSource yields n good frames, then end of stream.
type scriptedSource struct {
	n      int
	reads  int
	closed bool
}

func (s *scriptedSource) Read() (*frame.RawFrame, error) {
	if s.reads >= s.n {
		return nil, ErrEndOfStream
	}
	s.reads++
	return &frame.RawFrame{
		Bytes:  make([]byte, 4*2*frame.Channels),
		Format: frame.FormatRGB24,
		Width:  4, Height: 2,
		Timestamp: time.Now(),
	}, nil
}

func (s *scriptedSource) Format() frame.PixelFormat { return frame.FormatRGB24 }
func (s *scriptedSource) Close() error              { s.closed = true; return nil }

func TestProgressCountsSuccessfulReads(t *testing.T) {
	inner := &scriptedSource{n: 5}
	p := NewProgress(inner, 5)

	for i := 0; i < 5; i++ {
		raw, err := p.Read()
		if err != nil {
			t.Fatalf("Read() %d error = %v", i, err)
		}
		if raw.Width != 4 || raw.Height != 2 {
			t.Fatalf("Read() %d = %dx%d, want 4x2", i, raw.Width, raw.Height)
		}
	}
	if p.Frames() != 5 {
		t.Errorf("Frames() = %d, want 5", p.Frames())
	}

	if _, err := p.Read(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Read() after exhaustion error = %v, want ErrEndOfStream", err)
	}
	if p.Frames() != 5 {
		t.Errorf("Frames() = %d after end of stream, want 5 (failed reads not counted)", p.Frames())
	}
}

func TestProgressForwardsCloseAndFormat(t *testing.T) {
	inner := &scriptedSource{n: 1}
	p := NewProgress(inner, 1)

	if p.Format() != frame.FormatRGB24 {
		t.Errorf("Format() = %s, want RGB24", p.Format())
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !inner.closed {
		t.Error("wrapped source not closed")
	}
}
