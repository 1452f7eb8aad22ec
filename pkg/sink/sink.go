// Package sink routes annotated frames to either an interactive display
// window or a headless video writer. The sink is chosen at startup and fixed
// for the session.
package sink

import (
	"errors"

	"github.com/promptvision/promptcam/pkg/frame"
)

// ErrClosed is returned when presenting to a closed sink.
var ErrClosed = errors.New("sink: closed")

// Event is an input event reported by an interactive sink.
// Headless sinks always report EventNone.
type Event int

const (
	// EventNone means no input this tick.
	EventNone Event = iota

	// EventQuit requests session shutdown (q, ESC, or window closed).
	EventQuit

	// EventPromptUpdate requests a prompt-editing pause.
	EventPromptUpdate

	// EventSaveFrame requests saving the last annotated frame.
	EventSaveFrame
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventQuit:
		return "quit"
	case EventPromptUpdate:
		return "prompt-update"
	case EventSaveFrame:
		return "save-frame"
	default:
		return "none"
	}
}

// Sink consumes one annotated frame per tick.
type Sink interface {
	// Present delivers a frame and polls for input with a bounded wait.
	Present(f *frame.Frame) (Event, error)

	// Interactive reports whether this sink produces input events.
	Interactive() bool

	// Close flushes and releases the sink. Idempotent.
	Close() error
}
