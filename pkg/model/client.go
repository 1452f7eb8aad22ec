package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"sync"

	"github.com/promptvision/promptcam/internal/httpc"
	"github.com/promptvision/promptcam/pkg/frame"
)

// Client talks to an inference server over HTTP. The server owns model
// loading, quantization, and execution-provider selection; the client only
// forwards frames, prompts, and the opaque spec strings.
type Client struct {
	cfg  Config
	http *http.Client

	mu     sync.Mutex
	closed bool
}

type inferRequest struct {
	Image   string   `json:"image"` // base64 JPEG
	Prompts []string `json:"prompts"`
	Model   string   `json:"model"`
	Device  string   `json:"device"`
	DType   string   `json:"dtype"`
	Conf    float64  `json:"conf"`
	Masks   bool     `json:"masks"`
}

type wireDetection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Mask       string  `json:"mask,omitempty"` // base64 raw alpha, frame-sized
}

type inferResponse struct {
	Detections []wireDetection `json:"detections"`
}

// NewClient creates a client and verifies the server is reachable.
// A failed health check is ErrUnavailable: surfaced at startup, before the
// loop runs.
func NewClient(cfg Config) (*Client, error) {
	c := &Client{
		cfg: cfg,
		// No overall deadline: inference duration is the per-tick cost.
		http: httpc.NewClient(0),
	}

	resp, err := c.http.Get(cfg.ServerURL + "/healthz")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, cfg.ServerURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: health check returned %d", ErrUnavailable, resp.StatusCode)
	}
	return c, nil
}

// Infer sends one frame and the current prompts to the server.
// An empty prompt list short-circuits without a network call.
func (c *Client) Infer(ctx context.Context, f *frame.Frame, prompts []string) ([]Detection, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, f.ToRGBA(), &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("model: encode frame: %w", err)
	}

	body, err := json.Marshal(inferRequest{
		Image:   base64.StdEncoding.EncodeToString(jpg.Bytes()),
		Prompts: prompts,
		Model:   c.cfg.ModelSpec,
		Device:  c.cfg.DeviceSpec,
		DType:   c.cfg.DType,
		Conf:    c.cfg.Conf,
		Masks:   c.cfg.ShowMask,
	})
	if err != nil {
		return nil, fmt.Errorf("model: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL+"/v1/infer", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("model: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model: infer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("model: decode response: %w", err)
	}

	dets := make([]Detection, 0, len(out.Detections))
	for _, wd := range out.Detections {
		det := Detection{
			X: wd.X, Y: wd.Y, W: wd.W, H: wd.H,
			Label:      wd.Label,
			Confidence: wd.Confidence,
		}
		if wd.Mask != "" {
			mask, err := decodeMask(wd.Mask, f.Width, f.Height)
			if err != nil {
				return nil, fmt.Errorf("model: decode mask: %w", err)
			}
			det.Mask = mask
		}
		dets = append(dets, det)
	}
	return dets, nil
}

// Close marks the client closed. The server keeps its own lifecycle.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func decodeMask(b64 string, width, height int) (*image.Alpha, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	if len(raw) != width*height {
		return nil, fmt.Errorf("mask is %d bytes, want %d", len(raw), width*height)
	}
	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	copy(mask.Pix, raw)
	return mask, nil
}
