package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/visora/internal/models"
)

const (
	CameraStreamName = "CAMERA"
	cameraTopic      = "camera_states"
)

// CameraSubject is the subject camera events for a session are published on.
func CameraSubject(channel, sessionID string) string {
	return fmt.Sprintf("%s.%s.%s", channel, cameraTopic, sessionID)
}

func cameraWildcard(channel string) string {
	return fmt.Sprintf("%s.%s.>", channel, cameraTopic)
}

type Producer struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	channel string
}

func connect(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}

func NewProducer(natsURL, channel string) (*Producer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Producer{nc: nc, js: js, channel: channel}, nil
}

// EnsureStreams creates the camera event stream if it doesn't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:        CameraStreamName,
		Subjects:    []string{cameraWildcard(p.channel)},
		Retention:   jetstream.InterestPolicy,
		MaxAge:      10 * time.Minute,
		MaxMsgs:     100000,
		Storage:     jetstream.MemoryStorage,
		Discard:     jetstream.DiscardOld,
		Description: "Camera control events for front ends",
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			slog.Info("ensured NATS stream", "name", cfg.Name)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
		}
		slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// PublishCameraEvent publishes one camera event. There is no redelivery on failure.
func (p *Producer) PublishCameraEvent(ctx context.Context, ev models.CameraEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal camera event: %w", err)
	}

	subject := CameraSubject(p.channel, ev.SessionID.String())
	_, err = p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(ev.EventID))
	if err != nil {
		return fmt.Errorf("publish camera event: %w", err)
	}
	return nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
