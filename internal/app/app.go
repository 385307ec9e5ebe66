// Package app assembles the assistant from configuration. Both the HTTP
// server and the CLI build their toolkit here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/visora/internal/api/handlers"
	"github.com/your-org/visora/internal/assistant"
	"github.com/your-org/visora/internal/camera"
	"github.com/your-org/visora/internal/capture"
	"github.com/your-org/visora/internal/config"
	"github.com/your-org/visora/internal/faces"
	"github.com/your-org/visora/internal/integrations"
	"github.com/your-org/visora/internal/models"
	"github.com/your-org/visora/internal/queue"
	"github.com/your-org/visora/internal/storage"
	"github.com/your-org/visora/internal/vision"
)

const framePrefix = "frames"

type App struct {
	Config *config.Config
	Tools  *assistant.Toolkit
	Camera *camera.Channel
	Checks []handlers.Check

	dispatcher *camera.Dispatcher
	closers    []func()
}

// New connects the configured backends. Camera events go to NATS when a URL
// is configured and to local otherwise.
func New(ctx context.Context, cfg *config.Config, local camera.Publisher) (*App, error) {
	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var db *storage.PostgresStore
	if cfg.Database.Host != "" {
		var err error
		db, err = storage.NewPostgresStore(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.Checks = append(a.Checks, handlers.Check{Name: "postgres", Ping: db.Ping})
	}

	var store camera.StateStore
	switch cfg.Camera.Persistence {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("camera persistence %q requires database.host", cfg.Camera.Persistence)
		}
		store = db
	case "memory":
		store = camera.NewMemoryStore()
	case "none":
	default:
		return nil, fmt.Errorf("unknown camera persistence %q", cfg.Camera.Persistence)
	}

	pub := local
	if pub == nil {
		pub = LogPublisher
	}
	if cfg.NATS.URL != "" {
		producer, err := queue.NewProducer(cfg.NATS.URL, cfg.NATS.Channel)
		if err != nil {
			return nil, fmt.Errorf("connect to nats: %w", err)
		}
		a.closers = append(a.closers, producer.Close)
		if err := producer.EnsureStreams(ctx); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}
		a.Checks = append(a.Checks, handlers.Check{Name: "nats", Ping: func(context.Context) error { return producer.Ping() }})
		pub = producer
	}
	a.dispatcher = camera.NewDispatcher(pub, cfg.Camera.DispatchBuffer)
	a.Camera = camera.NewChannel(store, a.dispatcher)

	sink, err := a.frameSink(ctx)
	if err != nil {
		return nil, err
	}

	var detector capture.FaceDetector
	if det := a.loadDetector(); det != nil {
		detector = det
	}
	gate := capture.NewGate(capture.NewFFmpegSource(cfg.Capture), detector, sink, cfg.Capture)

	deps := assistant.Deps{
		Camera:            a.Camera,
		Capturer:          gate,
		Weather:           integrations.NewWeather(cfg.Weather),
		Search:            integrations.NewSearch(cfg.Search),
		Mailer:            integrations.NewMailer(cfg.Email),
		RecognizeFrames:   cfg.Capture.FrameCount,
		RecognizeInterval: cfg.Capture.RecognizeInterval,
		MinFaceSize:       cfg.Capture.MinFaceSize,
	}
	if db != nil {
		deps.Sessions = db
	}
	if client := faces.NewClient(cfg.FaceDB); client.Configured() {
		deps.Enroller = faces.NewEnroller(client, sink, cfg.FaceDB.Collection)
		deps.Recognizer = faces.NewRecognizer(client, sink)
	} else {
		slog.Warn("face database token not set, enrollment and recognition disabled")
	}
	if !cfg.Email.Configured() {
		slog.Info("email credentials not set")
	}
	a.Tools = assistant.New(deps)

	ok = true
	return a, nil
}

// LogPublisher only logs camera events. It stands in for a broadcast channel
// when nothing is listening.
var LogPublisher = camera.PublisherFunc(func(_ context.Context, ev models.CameraEvent) error {
	slog.Info("camera event", "session_id", ev.SessionID, "action", ev.Action,
		"camera_type", ev.CameraType, "enabled", ev.IsEnabled, "event_id", ev.EventID)
	return nil
})

func (a *App) frameSink(ctx context.Context) (capture.FrameSink, error) {
	switch a.Config.Storage.Backend {
	case "minio":
		sink, err := storage.NewMinIOSink(a.Config.MinIO, framePrefix)
		if err != nil {
			return nil, err
		}
		if err := sink.EnsureBucket(ctx); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		a.Checks = append(a.Checks, handlers.Check{Name: "minio", Ping: sink.Ping})
		return sink, nil
	case "file":
		sink, err := storage.NewFileSink(a.Config.Storage.FramesDir)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.Config.Storage.Backend)
	}
}

// loadDetector returns nil when the model or runtime is missing; capture then
// runs without face detection.
func (a *App) loadDetector() *vision.Detector {
	destroy, err := vision.InitRuntime(a.Config.Vision.ONNXLibPath)
	if err != nil {
		slog.Warn("onnx runtime unavailable, face detection disabled", "error", err)
		return nil
	}
	det, err := vision.LoadDetector(a.Config.Vision)
	if err != nil {
		destroy()
		slog.Warn("face detector unavailable, face detection disabled", "error", err)
		return nil
	}
	a.closers = append(a.closers, destroy, det.Close)
	return det
}

// Close flushes pending camera events and releases every backend, newest first.
func (a *App) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
