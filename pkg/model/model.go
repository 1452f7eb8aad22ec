package model

import (
	"context"

	"github.com/promptvision/promptcam/pkg/frame"
)

// Model is the per-frame inference contract. An empty prompt list is valid
// and returns no detections without invoking the collaborator.
type Model interface {
	// Infer runs the current prompts against one frame. The call is
	// synchronous; its duration is the per-tick inference cost.
	Infer(ctx context.Context, f *frame.Frame, prompts []string) ([]Detection, error)

	// Close releases the model handle.
	Close() error
}

// Config holds inference configuration. ModelSpec, DeviceSpec, and DType are
// opaque selectors forwarded to the serving backend unchanged.
type Config struct {
	ServerURL  string  // inference server base URL
	ModelSpec  string  // e.g. "sam3-image", "sam3-tracker"
	DeviceSpec string  // e.g. "cpu:0", "cuda:0"
	DType      string  // e.g. "q4f16", "fp16", "fp32"
	Conf       float64 // confidence threshold applied by the server
	ShowMask   bool    // request segmentation masks

	// InferEvery runs inference every N frames, reusing the previous
	// annotation in between. 0 disables inference entirely.
	InferEvery int
}

// DefaultConfig returns production defaults matching the CLI.
func DefaultConfig() Config {
	return Config{
		ServerURL:  "http://127.0.0.1:9090",
		ModelSpec:  "sam3-image",
		DeviceSpec: "cpu:0",
		DType:      "q4f16",
		Conf:       0.5,
		InferEvery: 3,
	}
}
