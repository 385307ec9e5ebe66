package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/visora/internal/config"
	"github.com/your-org/visora/internal/models"
	"github.com/your-org/visora/internal/observability"
)

const (
	MinFrames = 1
	MaxFrames = 5
)

var (
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	ErrDeviceRead        = errors.New("camera read failed")
	ErrNoFace            = errors.New("no face detected")
	ErrNoFrames          = errors.New("no frames captured")
)

// Source opens the camera. Each Open yields an exclusively owned device.
type Source interface {
	Open(ctx context.Context) (Device, error)
}

type Device interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	Close() error
}

// FaceDetector finds faces in a JPEG frame.
type FaceDetector interface {
	Detect(jpeg []byte) ([]models.FaceBox, error)
}

// FrameSink persists captured frames and reads them back by reference.
type FrameSink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Load(ctx context.Context, ref string) ([]byte, error)
}

type Request struct {
	SessionID uuid.UUID
	Count     int           // clamped to [MinFrames, MaxFrames]; 0 uses the configured default
	Interval  time.Duration // pause between frames; 0 uses the configured interval
	FaceGate  bool          // ignored when no detector is configured
}

type Result struct {
	Frames    []models.CapturedFrame
	Requested int
	Partial   bool  // fewer frames than requested
	ReadErr   error // device error that ended the batch early, if any
}

// Gate drives one camera device per capture: optional face probing, then a
// strictly sequential frame loop.
type Gate struct {
	source   Source
	detector FaceDetector // optional
	sink     FrameSink    // optional; frames stay in memory without it
	cfg      config.CaptureConfig

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewGate(source Source, detector FaceDetector, sink FrameSink, cfg config.CaptureConfig) *Gate {
	return &Gate{
		source:   source,
		detector: detector,
		sink:     sink,
		cfg:      cfg,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// FrameCount clamps a requested frame count.
func (g *Gate) FrameCount(n int) int {
	if n == 0 {
		n = g.cfg.FrameCount
	}
	if n < MinFrames {
		return MinFrames
	}
	if n > MaxFrames {
		return MaxFrames
	}
	return n
}

// Start opens the device and, when face gating is requested, probes until a
// face is seen. Without a detector the probe is skipped and frames are taken
// ungated. The returned batch owns the device.
func (g *Gate) Start(ctx context.Context, req Request) (*Batch, error) {
	dev, err := g.source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	switch {
	case req.FaceGate && g.detector == nil:
		slog.Warn("face detector not loaded, capturing without face gate", "session_id", req.SessionID)
	case req.FaceGate:
		if err := g.probe(ctx, dev); err != nil {
			_ = dev.Close()
			return nil, err
		}
	}

	interval := req.Interval
	if interval <= 0 {
		interval = g.cfg.Interval
	}
	return &Batch{
		gate:      g,
		dev:       dev,
		sessionID: req.SessionID,
		count:     g.FrameCount(req.Count),
		interval:  interval,
	}, nil
}

func (g *Gate) probe(ctx context.Context, dev Device) error {
	attempts := g.cfg.ProbeAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		frame, err := dev.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrDeviceRead, err)
		}

		faces, err := g.detector.Detect(frame)
		switch {
		case err != nil:
			observability.ProbeAttempts.WithLabelValues("error").Inc()
			slog.Warn("face probe detection failed", "attempt", attempt, "error", err)
		case len(faces) > 0:
			observability.ProbeAttempts.WithLabelValues("face").Inc()
			slog.Debug("face probe succeeded", "attempt", attempt, "faces", len(faces))
			return nil
		default:
			observability.ProbeAttempts.WithLabelValues("none").Inc()
		}

		if attempt < attempts {
			if err := g.sleep(ctx, g.cfg.ProbeDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrNoFace, attempts)
}

// Capture runs a whole batch. Zero frames is an error; fewer than requested
// is a partial result.
func (g *Gate) Capture(ctx context.Context, req Request) (*Result, error) {
	batch, err := g.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	defer batch.Close()

	var frames []models.CapturedFrame
	for {
		f, err := batch.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, *f)
	}

	if len(frames) == 0 {
		if batch.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoFrames, batch.Err())
		}
		return nil, ErrNoFrames
	}

	return &Result{
		Frames:    frames,
		Requested: batch.count,
		Partial:   len(frames) < batch.count,
		ReadErr:   batch.Err(),
	}, nil
}

// Batch yields captured frames one at a time. It cannot be restarted.
type Batch struct {
	gate      *Gate
	dev       Device
	sessionID uuid.UUID
	count     int
	interval  time.Duration

	taken int
	done  bool
	err   error
	once  sync.Once
}

// Next returns the next frame, or io.EOF when the batch is exhausted or the
// device failed. A device failure is reported by Err.
func (b *Batch) Next(ctx context.Context) (*models.CapturedFrame, error) {
	for {
		if b.done || b.taken >= b.count {
			b.Close()
			return nil, io.EOF
		}

		if b.taken > 0 {
			if err := b.gate.sleep(ctx, b.interval); err != nil {
				b.Close()
				return nil, err
			}
		}

		data, err := b.dev.ReadFrame(ctx)
		b.taken++
		if err != nil {
			if ctx.Err() != nil {
				b.Close()
				return nil, ctx.Err()
			}
			slog.Warn("camera read failed, ending batch", "session_id", b.sessionID, "frame", b.taken, "error", err)
			b.err = fmt.Errorf("%w: %v", ErrDeviceRead, err)
			b.Close()
			return nil, io.EOF
		}

		if f := b.gate.accept(ctx, b.sessionID, b.taken, data); f != nil {
			return f, nil
		}
	}
}

// Err is the device error that ended the batch early, if any.
func (b *Batch) Err() error {
	return b.err
}

// Close releases the device. Safe to call more than once.
func (b *Batch) Close() {
	b.once.Do(func() {
		b.done = true
		if err := b.dev.Close(); err != nil {
			slog.Warn("close camera device", "error", err)
		}
	})
}

// accept runs detection and persistence for one frame. It returns nil when
// the frame could not be saved.
func (g *Gate) accept(ctx context.Context, sessionID uuid.UUID, index int, data []byte) *models.CapturedFrame {
	f := &models.CapturedFrame{
		SessionID:     sessionID,
		SequenceIndex: index,
		Image:         data,
		CapturedAt:    g.now(),
	}

	if g.detector != nil {
		faces, err := g.detector.Detect(data)
		if err != nil {
			slog.Warn("frame detection failed", "session_id", sessionID, "frame", index, "error", err)
		} else {
			f.DetectionRan = true
			f.FaceCount = len(faces)
			if box, ok := largestFace(faces); ok {
				f.FaceDetected = true
				f.FaceBox = &box
			}
		}
	}

	if g.sink != nil {
		ref, err := g.sink.Save(ctx, frameName(sessionID, f.CapturedAt, index), data)
		if err != nil {
			slog.Warn("save frame failed, skipping", "session_id", sessionID, "frame", index, "error", err)
			return nil
		}
		f.Ref = ref
	}

	label := "unknown"
	if f.DetectionRan {
		label = "no"
		if f.FaceDetected {
			label = "yes"
		}
	}
	observability.FramesCaptured.WithLabelValues(label).Inc()
	return f
}

func largestFace(faces []models.FaceBox) (models.FaceBox, bool) {
	if len(faces) == 0 {
		return models.FaceBox{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Area() > best.Area() {
			best = f
		}
	}
	return best, true
}

// frameName is frame_<session8>_<yyyymmdd_hhmmss>_<seq>_<id8>.jpg
func frameName(sessionID uuid.UUID, at time.Time, index int) string {
	return fmt.Sprintf("frame_%s_%s_%d_%s.jpg",
		sessionID.String()[:8], at.Format("20060102_150405"), index, uuid.NewString()[:8])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
