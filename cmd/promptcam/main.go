// Command promptcam runs text-prompted object detection over a live camera,
// an industrial SDK camera, or a video file, and shows or records the
// annotated result.
//
// Interactive controls: ESC/q quit, p update prompts, s save frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/promptvision/promptcam/internal/config"
	"github.com/promptvision/promptcam/internal/log"
	"github.com/promptvision/promptcam/pkg/model"
	"github.com/promptvision/promptcam/pkg/overlay"
	"github.com/promptvision/promptcam/pkg/prompt"
	"github.com/promptvision/promptcam/pkg/record"
	"github.com/promptvision/promptcam/pkg/session"
	"github.com/promptvision/promptcam/pkg/sink"
	"github.com/promptvision/promptcam/pkg/source"
	"github.com/promptvision/promptcam/pkg/web"
)

// promptList collects repeatable -prompt flags; each value may itself hold
// several prompts split on `|`.
type promptList []string

func (p *promptList) String() string { return strings.Join(*p, prompt.Delimiter) }

func (p *promptList) Set(v string) error {
	*p = append(*p, prompt.Parse(v)...)
	return nil
}

func main() {
	var prompts promptList

	camera := flag.Int("camera", 0, "camera index")
	video := flag.String("video", "", "video file path (selects file playback)")
	mvsName := flag.String("mvs", "", "industrial camera user-defined name (selects SDK capture)")
	list := flag.Bool("list", false, "list connected industrial cameras and exit")
	width := flag.Int("width", 640, "capture width (best-effort; the driver may override)")
	height := flag.Int("height", 480, "capture height (best-effort)")
	rawYUYV := flag.Bool("raw-yuyv", false, "request undecoded YUYV from the camera driver")
	fps := flag.Float64("fps", 0, "override playback FPS (default: probed from input)")
	timeoutMS := flag.Int("timeout-ms", 1000, "SDK frame grab timeout in ms")

	flag.Var(&prompts, "prompt", "detection prompt (repeatable, or split with `|`)")
	conf := flag.Float64("conf", config.DefaultConf, "confidence threshold")
	showMask := flag.Bool("show-mask", false, "request and draw segmentation masks")
	inferEvery := flag.Int("infer-every", config.DefaultInferEvery, "run inference every N frames (0 disables)")

	server := flag.String("server", config.Env("PROMPTCAM_SERVER", "http://127.0.0.1:9090"), "inference server URL")
	modelSpec := flag.String("model", "sam3-image", "model spec (passed through to the server)")
	deviceSpec := flag.String("device", "cpu:0", "device spec (cpu:0, cuda:0, ...)")
	dtype := flag.String("dtype", "q4f16", "dtype spec (q4f16, fp16, fp32, ...)")

	saveDir := flag.String("save-dir", "", "save directory (default: ./runs/<model-spec>/)")
	saveVideo := flag.String("save-video", "", "write annotated video to path (headless mode, no window)")
	saveOnQuit := flag.Bool("save-on-quit", false, "save the last annotated frame on exit")

	webAddr := flag.String("web", "", "serve status/control API on this address (e.g. :8080)")
	recordPath := flag.String("record", "", "record detections to this SQLite file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*logLevel)

	if *list {
		names, err := source.ListMVS(source.DefaultDriver)
		if err != nil {
			log.Error("list cameras", "err", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	if err := run(runConfig{
		camera: *camera, video: *video, mvsName: *mvsName,
		width: *width, height: *height, rawYUYV: *rawYUYV,
		fps: *fps, timeout: time.Duration(*timeoutMS) * time.Millisecond,
		prompts: prompts, conf: *conf, showMask: *showMask, inferEvery: *inferEvery,
		server: *server, modelSpec: *modelSpec, deviceSpec: *deviceSpec, dtype: *dtype,
		saveDir: *saveDir, saveVideo: *saveVideo, saveOnQuit: *saveOnQuit,
		webAddr: *webAddr, recordPath: *recordPath,
	}); err != nil {
		log.Error("promptcam failed", "err", err)
		os.Exit(1)
	}
}

type runConfig struct {
	camera  int
	video   string
	mvsName string
	width   int
	height  int
	rawYUYV bool
	fps     float64
	timeout time.Duration

	prompts    []string
	conf       float64
	showMask   bool
	inferEvery int

	server     string
	modelSpec  string
	deviceSpec string
	dtype      string

	saveDir    string
	saveVideo  string
	saveOnQuit bool

	webAddr    string
	recordPath string
}

func run(cfg runConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, desc, err := openSource(cfg)
	if err != nil {
		return err
	}
	// The session owns src (and mdl, and the sink) from New onward and
	// closes them on every exit path; explicit closes here cover only the
	// wiring failures before that.

	mdl, err := model.NewClient(model.Config{
		ServerURL:  cfg.server,
		ModelSpec:  cfg.modelSpec,
		DeviceSpec: cfg.deviceSpec,
		DType:      cfg.dtype,
		Conf:       cfg.conf,
		ShowMask:   cfg.showMask,
		InferEvery: cfg.inferEvery,
	})
	if err != nil {
		src.Close()
		return err
	}

	snk, err := openSink(cfg, src)
	if err != nil {
		src.Close()
		mdl.Close()
		return err
	}

	// Headless file runs log periodic progress; there is no window to watch.
	if cfg.saveVideo != "" {
		if f, ok := src.(*source.File); ok {
			src = source.NewProgress(f, f.FrameCount())
		}
	}

	saveDir, err := config.SaveDir(cfg.saveDir, cfg.modelSpec)
	if err != nil {
		src.Close()
		mdl.Close()
		snk.Close()
		return err
	}

	store := prompt.NewStore(cfg.prompts)
	ann := overlay.New()
	ann.DrawMasks = cfg.showMask

	sessCfg := session.DefaultConfig()
	sessCfg.SaveDir = saveDir
	sessCfg.InferEvery = cfg.inferEvery
	sessCfg.SaveOnQuit = cfg.saveOnQuit

	var opts []session.Option

	var rec *record.Recorder
	if cfg.recordPath != "" {
		rec, err = record.Open(cfg.recordPath, desc, cfg.prompts)
		if err != nil {
			src.Close()
			mdl.Close()
			snk.Close()
			return err
		}
		defer rec.Close()
		log.Info("recording detections", "path", cfg.recordPath, "session", rec.SessionID())
		opts = append(opts, session.WithObserver(func(t session.Tick) {
			if rerr := rec.Record(t.Index, t.Detections); rerr != nil {
				log.Warn("record tick", "err", rerr)
			}
		}))
	}

	var ctrl webController
	var srv *web.Server
	if cfg.webAddr != "" {
		srv = web.NewServer(&ctrl)
		opts = append(opts, session.WithObserver(func(t session.Tick) {
			srv.Publish(t.Index, t.Frame, t.Detections)
		}))
	}

	sess := session.New(src, mdl, snk, store, ann, sessCfg, opts...)
	ctrl.sess = sess

	if srv != nil {
		go func() {
			if lerr := srv.Listen(cfg.webAddr); lerr != nil {
				log.Warn("web server stopped", "err", lerr)
			}
		}()
		defer srv.Shutdown()
	}

	if snk.Interactive() {
		log.Info("controls: ESC/q quit, p update prompts, s save frame")
	}
	return sess.Run(ctx)
}

// openSource builds the configured backend and a short description for logs
// and the recorder.
func openSource(cfg runConfig) (source.Source, string, error) {
	switch {
	case cfg.video != "":
		src, err := source.OpenFile(source.FileConfig{Path: cfg.video, FPS: cfg.fps})
		return src, "video:" + cfg.video, err
	case cfg.mvsName != "":
		src, err := source.OpenMVS(source.DefaultDriver, source.MVSConfig{
			Name:    cfg.mvsName,
			Timeout: cfg.timeout,
		})
		return src, "mvs:" + cfg.mvsName, err
	default:
		src, err := source.OpenDevice(source.DeviceConfig{
			Index:   cfg.camera,
			Width:   cfg.width,
			Height:  cfg.height,
			RawYUYV: cfg.rawYUYV,
		})
		return src, fmt.Sprintf("camera:%d", cfg.camera), err
	}
}

// openSink selects headless encoding when an output path is given, otherwise
// an interactive window paced to the source rate.
func openSink(cfg runConfig, src source.Source) (sink.Sink, error) {
	rate := cfg.fps
	var delay time.Duration

	if f, ok := src.(*source.File); ok {
		rate = f.FPS()
		delay = time.Duration(float64(time.Second) / rate)
	}

	if cfg.saveVideo != "" {
		w, h, err := sourceSize(cfg, src)
		if err != nil {
			return nil, err
		}
		if rate <= 0 {
			rate = 30
		}
		log.Info("writing annotated video", "path", cfg.saveVideo, "fps", rate)
		return sink.NewVideoWriter(cfg.saveVideo, rate, w, h)
	}

	return sink.NewWindow("promptcam", delay), nil
}

func sourceSize(cfg runConfig, src source.Source) (int, int, error) {
	type sized interface{ Size() (int, int) }
	if s, ok := src.(sized); ok {
		w, h := s.Size()
		return w, h, nil
	}
	if cfg.width > 0 && cfg.height > 0 {
		return cfg.width, cfg.height, nil
	}
	return 0, 0, fmt.Errorf("output size unknown: pass -width and -height")
}

// webController adapts the session to the web surface.
type webController struct {
	sess *session.Session
}

func (c *webController) State() string             { return c.sess.State().String() }
func (c *webController) Prompts() []string         { return c.sess.Prompts() }
func (c *webController) ReplacePrompts(p []string) { c.sess.ReplacePrompts(p) }
