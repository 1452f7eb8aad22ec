package model

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/promptvision/promptcam/pkg/frame"
)

func testServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/infer", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(8, 8)
	if err != nil {
		t.Fatalf("frame.New() error = %v", err)
	}
	return f
}

func TestNewClientHealthCheckFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	if _, err := NewClient(cfg); !errors.Is(err, ErrUnavailable) {
		t.Errorf("NewClient() error = %v, want ErrUnavailable", err)
	}
}

func TestInferParsesDetections(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req inferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Prompts) != 1 || req.Prompts[0] != "card" {
			t.Errorf("prompts = %v, want [card]", req.Prompts)
		}
		if req.Model != "sam3-image" {
			t.Errorf("model = %q, want sam3-image", req.Model)
		}
		json.NewEncoder(w).Encode(inferResponse{Detections: []wireDetection{
			{X: 0.1, Y: 0.2, W: 0.3, H: 0.4, Label: "card", Confidence: 0.88},
		}})
	})

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer c.Close()

	dets, err := c.Infer(context.Background(), testFrame(t), []string{"card"})
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("len(dets) = %d, want 1", len(dets))
	}
	if dets[0].Label != "card" || dets[0].Confidence != 0.88 {
		t.Errorf("detection = %+v, want label card conf 0.88", dets[0])
	}
}

func TestInferEmptyPromptsSkipsServer(t *testing.T) {
	called := false
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		json.NewEncoder(w).Encode(inferResponse{})
	})

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer c.Close()

	dets, err := c.Infer(context.Background(), testFrame(t), nil)
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if dets != nil {
		t.Errorf("dets = %v, want nil", dets)
	}
	if called {
		t.Error("server was called for an empty prompt set")
	}
}

func TestInferAPIError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model blew up", http.StatusInternalServerError)
	})

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer c.Close()

	_, err = c.Infer(context.Background(), testFrame(t), []string{"card"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Infer() error = %v, want *APIError", err)
	}
	if !apiErr.IsServerError() {
		t.Errorf("IsServerError() = false, want true")
	}
}

func TestInferDecodesMask(t *testing.T) {
	f := testFrame(t)
	mask := make([]byte, f.Width*f.Height)
	for i := range mask {
		mask[i] = 0xff
	}
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inferResponse{Detections: []wireDetection{
			{W: 1, H: 1, Label: "card", Confidence: 0.9,
				Mask: base64.StdEncoding.EncodeToString(mask)},
		}})
	})

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	cfg.ShowMask = true
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer c.Close()

	dets, err := c.Infer(context.Background(), f, []string{"card"})
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if dets[0].Mask == nil {
		t.Fatal("Mask = nil, want decoded alpha mask")
	}
	if got := dets[0].Mask.Bounds().Dx(); got != f.Width {
		t.Errorf("mask width = %d, want %d", got, f.Width)
	}
}

func TestInferAfterClose(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {})
	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.Close()

	if _, err := c.Infer(context.Background(), testFrame(t), []string{"x"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Infer() after Close error = %v, want ErrClosed", err)
	}
}

func TestMockCountsCalls(t *testing.T) {
	m := NewMock()
	f := testFrame(t)

	m.Infer(context.Background(), f, []string{"card"})
	m.Infer(context.Background(), f, nil) // short-circuit, not recorded
	m.Infer(context.Background(), f, []string{"card"})

	if got := m.CallCount("Infer"); got != 2 {
		t.Errorf("CallCount(Infer) = %d, want 2", got)
	}
}

func TestDetectionRect(t *testing.T) {
	d := Detection{X: 0.5, Y: 0.5, W: 1, H: 1}
	r := d.Rect(100, 100)
	if r.Max.X != 100 || r.Max.Y != 100 {
		t.Errorf("Rect() = %v, want clipped to 100x100", r)
	}
}
