// Package session drives the capture-infer-render control loop. One tick is
// strictly sequential: capture, normalize, infer, annotate, present; input
// events mutate prompts or trigger save/quit between ticks.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/promptvision/promptcam/internal/log"
	"github.com/promptvision/promptcam/pkg/frame"
	"github.com/promptvision/promptcam/pkg/model"
	"github.com/promptvision/promptcam/pkg/overlay"
	"github.com/promptvision/promptcam/pkg/prompt"
	"github.com/promptvision/promptcam/pkg/sink"
	"github.com/promptvision/promptcam/pkg/source"
)

// State is the control-loop lifecycle state.
type State int

const (
	// Starting validates source, model, and sink before the loop runs.
	Starting State = iota

	// Running is the normal tick loop.
	Running

	// AwaitingPromptInput suspends frame processing while the user
	// composes new prompt text. Interactive mode only.
	AwaitingPromptInput

	// Stopping releases resources in reverse acquisition order.
	Stopping

	// Stopped is terminal.
	Stopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case AwaitingPromptInput:
		return "awaiting-prompt-input"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds session tuning. Budgets and backoff were never nailed down
// operationally, so they are configuration with documented defaults rather
// than hidden constants.
type Config struct {
	// SaveDir receives frames saved on demand, one timestamp-named file
	// per save action.
	SaveDir string

	// InferEvery runs inference every N ticks, reusing the previous
	// annotation between. 0 disables inference.
	InferEvery int

	// CaptureRetryBudget is the number of consecutive capture timeouts
	// tolerated before the session stops with an error.
	CaptureRetryBudget int

	// InferFailBudget is the number of consecutive inference failures
	// tolerated before the session stops with an error.
	InferFailBudget int

	// SaveOnQuit saves the last annotated frame on clean shutdown.
	SaveOnQuit bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SaveDir:            "runs",
		InferEvery:         3,
		CaptureRetryBudget: 5,
		InferFailBudget:    5,
	}
}

// Tick is one completed inference cycle, published to observers.
type Tick struct {
	Index      uint64
	Frame      *frame.Frame // annotated
	Detections []model.Detection
	Prompts    []string
}

// Observer receives completed ticks. Called on the loop goroutine; keep it
// cheap or hand off.
type Observer func(Tick)

// PromptReader reads one line of replacement prompt text. The default reads
// stdin; tests inject a canned reader.
type PromptReader func() (string, error)

// Session owns the control loop and its lifecycle state.
type Session struct {
	src   source.Source
	mdl   model.Model
	snk   sink.Sink
	store *prompt.Store
	ann   *overlay.Annotator
	cfg   Config

	clk        clock.Clock
	readPrompt PromptReader
	observers  []Observer

	replaceCh chan []string

	mu            sync.RWMutex
	state         State
	lastAnnotated *frame.Frame
	frameIdx      uint64
}

// Option configures a Session.
type Option func(*Session)

// WithClock substitutes the wall clock, for deterministic save names in
// tests.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clk = c }
}

// WithPromptReader substitutes the prompt-editing input.
func WithPromptReader(r PromptReader) Option {
	return func(s *Session) { s.readPrompt = r }
}

// WithObserver registers a tick observer (web preview, recorder).
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// New wires a session over already-opened collaborators. The session takes
// ownership: Run releases them on every exit path.
func New(src source.Source, mdl model.Model, snk sink.Sink, store *prompt.Store, ann *overlay.Annotator, cfg Config, opts ...Option) *Session {
	s := &Session{
		src:        src,
		mdl:        mdl,
		snk:        snk,
		store:      store,
		ann:        ann,
		cfg:        cfg,
		clk:        clock.New(),
		readPrompt: stdinPromptReader,
		replaceCh:  make(chan []string, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Prompts returns a snapshot of the active prompt set.
func (s *Session) Prompts() []string {
	return s.store.Snapshot()
}

// ReplacePrompts queues a prompt replacement consumed at the next tick
// boundary. Latest submission wins; the inference call never observes a
// partially applied list.
func (s *Session) ReplacePrompts(prompts []string) {
	cp := make([]string, len(prompts))
	copy(cp, prompts)
	for {
		select {
		case s.replaceCh <- cp:
			return
		default:
			select {
			case <-s.replaceCh:
			default:
			}
		}
	}
}

// Run drives the loop until quit, end of stream, context cancellation, or an
// unrecoverable error. A nil return means a clean stop (exit code 0).
func (s *Session) Run(ctx context.Context) (err error) {
	defer func() {
		s.setState(Stopping)
		s.shutdown()
		s.setState(Stopped)
	}()

	// Starting: fail fast on a source format the normalizer cannot handle.
	if f := s.src.Format(); !frame.Supported(f) {
		return fmt.Errorf("session: source delivers %s: %w", f, frame.ErrUnsupportedFormat)
	}
	s.setState(Running)
	log.Info("session running", "infer_every", s.cfg.InferEvery, "prompts", s.store.Len())

	timeouts := 0
	inferFails := 0

	for {
		select {
		case <-ctx.Done():
			log.Info("session interrupted")
			s.maybeSaveOnQuit()
			return nil
		case prompts := <-s.replaceCh:
			s.store.Replace(prompts)
			log.Info("prompts replaced", "prompts", prompts)
		default:
		}

		raw, rerr := s.src.Read()
		switch {
		case errors.Is(rerr, source.ErrEndOfStream):
			log.Info("end of stream", "frames", s.FrameIndex())
			s.maybeSaveOnQuit()
			return nil
		case errors.Is(rerr, source.ErrTimeout):
			timeouts++
			log.Warn("capture timeout", "consecutive", timeouts, "budget", s.cfg.CaptureRetryBudget)
			if timeouts >= s.cfg.CaptureRetryBudget {
				return fmt.Errorf("session: %d consecutive capture timeouts: %w", timeouts, rerr)
			}
			continue
		case rerr != nil:
			return fmt.Errorf("session: capture: %w", rerr)
		}
		timeouts = 0

		f, nerr := frame.NormalizeRaw(raw)
		if nerr != nil {
			// The format was validated at startup; a failure here means
			// the source is delivering malformed buffers.
			return fmt.Errorf("session: normalize: %w", nerr)
		}

		idx := s.bumpFrame()
		if s.cfg.InferEvery > 0 && idx%uint64(s.cfg.InferEvery) == 0 {
			prompts := s.store.Snapshot()
			dets, ierr := s.mdl.Infer(ctx, f, prompts)
			if ierr != nil {
				inferFails++
				log.Warn("inference failed, skipping frame", "err", ierr,
					"consecutive", inferFails, "budget", s.cfg.InferFailBudget)
				if inferFails >= s.cfg.InferFailBudget {
					return fmt.Errorf("session: %d consecutive inference failures: %w", inferFails, ierr)
				}
				continue
			}
			inferFails = 0

			annotated := s.ann.Annotate(f, dets)
			s.setLast(annotated)
			s.publish(Tick{Index: idx, Frame: annotated, Detections: dets, Prompts: prompts})
		}

		display := s.Last()
		if display == nil {
			display = f
		}

		ev, perr := s.snk.Present(display)
		if perr != nil {
			return fmt.Errorf("session: sink: %w", perr)
		}

		switch ev {
		case sink.EventQuit:
			log.Info("quit requested", "frames", s.FrameIndex())
			s.maybeSaveOnQuit()
			return nil
		case sink.EventSaveFrame:
			if serr := s.saveFrame(); serr != nil {
				log.Warn("save frame failed", "err", serr)
			}
		case sink.EventPromptUpdate:
			s.editPrompts()
		}
	}
}

// FrameIndex returns the number of frames processed so far.
func (s *Session) FrameIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameIdx
}

// Last returns the most recent annotated frame, or nil before the first
// inference tick.
func (s *Session) Last() *frame.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAnnotated
}

func (s *Session) bumpFrame() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameIdx++
	return s.frameIdx
}

func (s *Session) setLast(f *frame.Frame) {
	s.mu.Lock()
	s.lastAnnotated = f
	s.mu.Unlock()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) publish(t Tick) {
	for _, o := range s.observers {
		o(t)
	}
}

// editPrompts suspends the loop while the user composes a replacement list.
// An empty line keeps the current prompts.
func (s *Session) editPrompts() {
	s.setState(AwaitingPromptInput)
	defer s.setState(Running)

	line, err := s.readPrompt()
	if err != nil {
		log.Warn("prompt input failed", "err", err)
		return
	}
	parsed := prompt.Parse(line)
	if len(parsed) == 0 {
		return
	}
	s.store.Replace(parsed)
	log.Info("prompts updated", "prompts", parsed)
}

// saveFrame persists the last annotated frame (the displayed variant, not
// the raw capture) under a timestamp-derived name.
func (s *Session) saveFrame() error {
	last := s.Last()
	if last == nil {
		return nil
	}
	if err := os.MkdirAll(s.cfg.SaveDir, 0o755); err != nil {
		return fmt.Errorf("session: create save dir: %w", err)
	}
	path := filepath.Join(s.cfg.SaveDir, fmt.Sprintf("%d.jpg", s.clk.Now().UnixMilli()))
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("session: create %s: %w", path, err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, last.ToRGBA(), &jpeg.Options{Quality: 92}); err != nil {
		return fmt.Errorf("session: encode %s: %w", path, err)
	}
	log.Info("saved frame", "path", path)
	return nil
}

func (s *Session) maybeSaveOnQuit() {
	if !s.cfg.SaveOnQuit {
		return
	}
	if err := s.saveFrame(); err != nil {
		log.Warn("save on quit failed", "err", err)
	}
}

// shutdown releases resources in reverse acquisition order: sink, model,
// source. Runs on every exit path.
func (s *Session) shutdown() {
	if err := s.snk.Close(); err != nil {
		log.Warn("close sink", "err", err)
	}
	if err := s.mdl.Close(); err != nil {
		log.Warn("close model", "err", err)
	}
	if err := s.src.Close(); err != nil {
		log.Warn("close source", "err", err)
	}
}

func stdinPromptReader() (string, error) {
	fmt.Fprint(os.Stderr, "New prompt(s) (split with `|`, empty keeps current): ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return line, nil
}
