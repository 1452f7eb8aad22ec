// Package web provides an optional HTTP surface for a running session:
// live status, prompt replacement over HTTP, the latest annotated frame as
// JPEG, and a websocket feed of detection events.
package web

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/promptvision/promptcam/internal/log"
	"github.com/promptvision/promptcam/pkg/frame"
	"github.com/promptvision/promptcam/pkg/model"
)

// Controller is the slice of the session the web surface needs.
type Controller interface {
	State() string
	Prompts() []string
	ReplacePrompts(prompts []string)
}

// detectionEvent is one broadcast websocket message.
type detectionEvent struct {
	Frame      uint64          `json:"frame"`
	Time       time.Time       `json:"time"`
	Detections []wireDetection `json:"detections"`
}

type wireDetection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type statusResponse struct {
	State      string   `json:"state"`
	Prompts    []string `json:"prompts"`
	Frames     uint64   `json:"frames"`
	Detections int      `json:"detections"`
	Clients    int      `json:"ws_clients"`
}

type promptsRequest struct {
	Prompts []string `json:"prompts"`
}

// Server exposes a running session over HTTP.
type Server struct {
	app  *fiber.App
	ctrl Controller
	hub  *hub

	mu        sync.RWMutex
	lastFrame *frame.Frame
	lastDets  []model.Detection
	frameIdx  uint64
}

// NewServer wires routes over the given controller.
func NewServer(ctrl Controller) *Server {
	s := &Server{
		app:  fiber.New(fiber.Config{DisableStartupMessage: true}),
		ctrl: ctrl,
		hub:  newHub(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/api/status", s.handleStatus)
	s.app.Get("/api/prompts", s.handleGetPrompts)
	s.app.Post("/api/prompts", s.handleSetPrompts)
	s.app.Get("/api/frame", s.handleFrame)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/events", websocket.New(s.handleEvents))
}

// Publish records the latest tick and broadcasts its detections.
// Wired as a session observer; the frame is only JPEG-encoded on request.
func (s *Server) Publish(idx uint64, f *frame.Frame, dets []model.Detection) {
	s.mu.Lock()
	s.lastFrame = f
	s.lastDets = dets
	s.frameIdx = idx
	s.mu.Unlock()

	if s.hub.count() == 0 {
		return
	}
	ev := detectionEvent{Frame: idx, Time: time.Now()}
	for _, d := range dets {
		ev.Detections = append(ev.Detections, wireDetection{
			X: d.X, Y: d.Y, W: d.W, H: d.H,
			Label: d.Label, Confidence: d.Confidence,
		})
	}
	if msg, err := json.Marshal(ev); err == nil {
		s.hub.broadcast(msg)
	}
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	idx := s.frameIdx
	nDets := len(s.lastDets)
	s.mu.RUnlock()

	return c.JSON(statusResponse{
		State:      s.ctrl.State(),
		Prompts:    s.ctrl.Prompts(),
		Frames:     idx,
		Detections: nDets,
		Clients:    s.hub.count(),
	})
}

func (s *Server) handleGetPrompts(c *fiber.Ctx) error {
	return c.JSON(promptsRequest{Prompts: s.ctrl.Prompts()})
}

func (s *Server) handleSetPrompts(c *fiber.Ctx) error {
	var req promptsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	s.ctrl.ReplacePrompts(req.Prompts)
	return c.JSON(fiber.Map{"ok": true, "prompts": req.Prompts})
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	s.mu.RLock()
	f := s.lastFrame
	s.mu.RUnlock()
	if f == nil {
		return fiber.NewError(fiber.StatusNotFound, "no frame yet")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.ToRGBA(), &jpeg.Options{Quality: 85}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(buf.Bytes())
}

func (s *Server) handleEvents(c *websocket.Conn) {
	send := s.hub.add(c)
	defer s.hub.remove(c)

	go func() {
		// Drain reads so close frames are processed.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				s.hub.remove(c)
				return
			}
		}
	}()

	for msg := range send {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Listen serves until the listener fails. Run on its own goroutine.
func (s *Server) Listen(addr string) error {
	log.Info("web server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
