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

// CameraEventHandler receives decoded camera events.
type CameraEventHandler func(ctx context.Context, ev models.CameraEvent) error

type Consumer struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	channel string
}

func NewConsumer(natsURL, channel string) (*Consumer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js, channel: channel}, nil
}

// ConsumeCameraEvents delivers new camera events to handler until ctx is done.
// Only events published after the consumer starts are delivered.
func (c *Consumer) ConsumeCameraEvents(ctx context.Context, consumerName string, handler CameraEventHandler) error {
	stream, err := c.js.Stream(ctx, CameraStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", CameraStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       10 * time.Second,
		MaxDeliver:    1,
		FilterSubject: cameraWildcard(c.channel),
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := cons.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch camera events error", "error", err)
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				var ev models.CameraEvent
				if err := json.Unmarshal(msg.Data(), &ev); err != nil {
					slog.Error("decode camera event", "error", err, "subject", msg.Subject())
					_ = msg.Term()
					continue
				}
				if err := handler(ctx, ev); err != nil {
					slog.Error("process camera event error", "error", err, "event_id", ev.EventID)
				}
				_ = msg.Ack()
			}
		}
	}()

	slog.Info("camera event consumer started", "consumer", consumerName)
	return nil
}

func (c *Consumer) Close() {
	c.nc.Close()
}
