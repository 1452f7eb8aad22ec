package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/promptvision/promptcam/pkg/frame"
	"github.com/promptvision/promptcam/pkg/model"
)

type fakeController struct {
	mu       sync.Mutex
	state    string
	prompts  []string
	replaced [][]string
}

func (c *fakeController) State() string { return c.state }

func (c *fakeController) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompts
}

func (c *fakeController) ReplacePrompts(p []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = p
	c.replaced = append(c.replaced, p)
}

func TestStatusEndpoint(t *testing.T) {
	ctrl := &fakeController{state: "running", prompts: []string{"card"}}
	s := NewServer(ctrl)

	f, _ := frame.New(4, 4)
	s.Publish(7, f, []model.Detection{{Label: "card", Confidence: 0.9}})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != "running" {
		t.Errorf("State = %q, want running", got.State)
	}
	if got.Frames != 7 {
		t.Errorf("Frames = %d, want 7", got.Frames)
	}
	if got.Detections != 1 {
		t.Errorf("Detections = %d, want 1", got.Detections)
	}
}

func TestSetPrompts(t *testing.T) {
	ctrl := &fakeController{}
	s := NewServer(ctrl)

	body, _ := json.Marshal(promptsRequest{Prompts: []string{"dog", "cat"}})
	req := httptest.NewRequest(http.MethodPost, "/api/prompts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(ctrl.replaced) != 1 || !reflect.DeepEqual(ctrl.replaced[0], []string{"dog", "cat"}) {
		t.Errorf("ReplacePrompts got %v, want [[dog cat]]", ctrl.replaced)
	}
}

func TestSetPromptsBadBody(t *testing.T) {
	s := NewServer(&fakeController{})

	req := httptest.NewRequest(http.MethodPost, "/api/prompts", bytes.NewReader([]byte("{nope")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFrameEndpoint(t *testing.T) {
	s := NewServer(&fakeController{})

	// Before any tick: 404.
	req := httptest.NewRequest(http.MethodGet, "/api/frame", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before first frame", resp.StatusCode)
	}

	f, _ := frame.New(8, 8)
	s.Publish(1, f, nil)

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/api/frame", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
}
