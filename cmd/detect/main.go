// Command detect runs YOLO person detection on a camera, a video file or recorded frames.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/history"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/yolo"
	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/render"
	"github.com/nvr-ai/go-detect/stream"
	"github.com/nvr-ai/go-detect/util"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain runs the command and returns its exit code, so deferred cleanup runs.
func realMain(args []string) int {
	cfg, err := parseConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log, logFile, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("detect failed")
		return 1
	}
	return 0
}

// parseConfig loads the env configuration and overlays the flags that were set.
func parseConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	var (
		envFile    = fs.String("env", ".env", "Path to an optional .env file")
		model      = fs.String("model", "", "Path to the YOLO ONNX model")
		provider   = fs.String("provider", "", "Execution provider: cpu, coreml or cuda")
		precision  = fs.String("precision", "", "Model output precision: fp32 or fp16")
		device     = fs.String("device", "", "Capture device id or video file path")
		frames     = fs.String("frames", "", "Replay frame-<n> images from a directory")
		confidence = fs.Float64("confidence", 0, "Confidence threshold")
		nms        = fs.Float64("nms", 0, "NMS IoU threshold")
		classes    = fs.String("classes", "", "Comma-separated target class names")
		historyDB  = fs.String("history", "", "SQLite history database path")
		csvPath    = fs.String("csv", "", "Export the history as CSV to this path on exit")
		listen     = fs.String("listen", "", "Serve the websocket detection feed on this address")
		showWindow = fs.Bool("show-window", false, "Show annotated frames in a window")
	)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return config.Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.ModelPath = *model
		case "provider":
			cfg.Provider = *provider
		case "precision":
			cfg.OutputPrecision = *precision
		case "device":
			if id, convErr := strconv.Atoi(*device); convErr == nil {
				cfg.Device = id
				cfg.VideoPath = ""
			} else {
				cfg.VideoPath = *device
			}
		case "frames":
			cfg.FramesDir = *frames
		case "confidence":
			cfg.Confidence = float32(*confidence)
		case "nms":
			cfg.NMS = float32(*nms)
		case "classes":
			cfg.Classes = config.SplitList(*classes)
		case "history":
			cfg.HistoryDB = *historyDB
		case "csv":
			cfg.CSVPath = *csvPath
		case "listen":
			cfg.Listen = *listen
		case "show-window":
			cfg.ShowWindow = *showWindow
		}
	})
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	decoderConfig, err := cfg.Decoder(models.YOLOClasses)
	if err != nil {
		return err
	}
	decoder, err := yolo.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}

	sessionConfig, err := cfg.Session()
	if err != nil {
		return err
	}
	engine, err := inference.NewONNXEngine(sessionConfig)
	if err != nil {
		return err
	}

	prof := profiler.New(profiler.Options{Logger: log})
	prof.Start(ctx)
	defer prof.Stop()

	det, err := detector.New(detector.Options{
		Engine:   engine,
		Decoder:  decoder,
		Classes:  models.YOLOClasses,
		Profiler: prof,
		Logger:   log,
	})
	if err != nil {
		engine.Close()
		return err
	}
	defer det.Close()

	src, closeSource, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	frameLog := history.NewLog()
	var store *history.Store
	if cfg.HistoryDB != "" {
		store, err = history.OpenStore(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	var hub *stream.Hub
	if cfg.Listen != "" {
		hub = stream.NewHub(log)
		go hub.Run(ctx)
		server := serveFeed(cfg.Listen, hub, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	var window *preview
	if cfg.ShowWindow {
		window = newPreview("YOLO Person Detection")
		defer window.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	person, _ := models.YOLOClasses.Index("person")
	sink := func(f detector.Frame) {
		if window != nil && f.Image != nil {
			frame := toRGBA(f.Image)
			render.Detections(frame, f.Detections, models.YOLOClasses.Label)
			quit, err := window.Show(frame)
			if err != nil {
				log.WithError(err).Warn("failed to show frame")
			}
			if quit {
				cancel()
			}
		}
		if f.Err != nil {
			return
		}

		entry := history.Entry{
			Timestamp:   f.Timestamp,
			FrameNumber: f.Number,
			PersonCount: f.Count(person),
		}
		frameLog.Add(entry)
		if store != nil {
			if err := store.Insert(ctx, entry); err != nil {
				log.WithError(err).Warn("failed to persist frame")
			}
		}
		if hub != nil {
			msg := stream.NewMessage(f.Number, f.Timestamp, f.Detections, models.YOLOClasses.Label)
			if err := hub.Publish(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Debug("failed to publish frame")
			}
		}
	}

	log.WithFields(logrus.Fields{
		"model":    cfg.ModelPath,
		"provider": cfg.Provider,
		"classes":  cfg.Classes,
	}).Info("detection started")

	stats, err := det.Run(ctx, src, sink)
	log.WithFields(logrus.Fields{
		"frames":     stats.Frames,
		"failed":     stats.Failed,
		"detections": stats.Detections,
	}).Info("detection stopped")
	prof.Report()
	logRecent(log, frameLog, store)

	if cfg.CSVPath != "" {
		if exportErr := exportCSV(cfg.CSVPath, frameLog); exportErr != nil {
			log.WithError(exportErr).Error("failed to export history")
		} else {
			log.WithFields(logrus.Fields{"path": cfg.CSVPath, "entries": frameLog.Len()}).Info("history exported")
		}
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openSource(cfg config.Config) (detector.Source, func(), error) {
	if cfg.FramesDir != "" {
		src, err := util.NewDirectorySource(cfg.FramesDir, false)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}

	var device interface{} = cfg.Device
	if cfg.VideoPath != "" {
		device = cfg.VideoPath
	}
	camera, err := openCamera(device)
	if err != nil {
		return nil, nil, err
	}
	return camera, func() { camera.Close() }, nil
}

func serveFeed(addr string, hub *stream.Hub, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", addr).Info("detection feed listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("detection feed stopped")
		}
	}()
	return server
}

// logRecent logs the last history.DisplayWindow frames, from the store when there is one.
func logRecent(log logrus.FieldLogger, frameLog *history.Log, store *history.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := history.DisplayEntries(ctx, frameLog, store)
	if err != nil {
		log.WithError(err).Warn("failed to read recent history")
		return
	}
	for _, e := range entries {
		log.WithFields(logrus.Fields{
			"time":    e.FormattedTimestamp(),
			"frame":   e.FrameNumber,
			"persons": e.PersonCount,
		}).Info("recent frame")
	}
}

func exportCSV(path string, frameLog *history.Log) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := frameLog.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
