package model

import (
	"context"
	"sync"
	"time"

	"github.com/promptvision/promptcam/pkg/frame"
)

// Mock implements Model for testing.
type Mock struct {
	// InferFunc is called when Infer is invoked with a non-empty prompt
	// list. Nil returns no detections.
	InferFunc func(ctx context.Context, f *frame.Frame, prompts []string) ([]Detection, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method  string
	Prompts []string
	Time    time.Time
}

// NewMock creates a mock that returns one fixed detection per prompt.
func NewMock() *Mock {
	return &Mock{
		InferFunc: func(ctx context.Context, f *frame.Frame, prompts []string) ([]Detection, error) {
			dets := make([]Detection, 0, len(prompts))
			for _, p := range prompts {
				dets = append(dets, Detection{
					X: 0.25, Y: 0.25, W: 0.5, H: 0.5,
					Confidence: 0.9,
					Label:      p,
				})
			}
			return dets, nil
		},
	}
}

// Infer calls InferFunc and records the call. The empty-prompt short-circuit
// happens here too, without recording, matching the real client: the
// collaborator is not invoked for an empty set.
func (m *Mock) Infer(ctx context.Context, f *frame.Frame, prompts []string) ([]Detection, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	m.record("Infer", prompts)
	if m.InferFunc != nil {
		return m.InferFunc(ctx, f, prompts)
	}
	return nil, nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close", nil)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// CallCount returns how many times a method was invoked.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *Mock) record(method string, prompts []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(prompts))
	copy(cp, prompts)
	m.calls = append(m.calls, MockCall{Method: method, Prompts: cp, Time: time.Now()})
}
