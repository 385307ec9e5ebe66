package camera

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/your-org/visora/internal/models"
	"github.com/your-org/visora/internal/observability"
)

// Publisher delivers one camera event to front ends.
type Publisher interface {
	PublishCameraEvent(ctx context.Context, ev models.CameraEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev models.CameraEvent) error

func (f PublisherFunc) PublishCameraEvent(ctx context.Context, ev models.CameraEvent) error {
	return f(ctx, ev)
}

const defaultPublishTimeout = 5 * time.Second

// Dispatcher is an unbounded in-process queue drained by a single goroutine.
// Delivery is at-most-once: failed publishes are logged and dropped.
type Dispatcher struct {
	pub     Publisher
	timeout time.Duration

	mu      sync.Mutex
	pending []models.CameraEvent
	closed  bool
	signal  chan struct{}
	done    chan struct{}
}

// NewDispatcher starts the delivery goroutine. capacity only sizes the
// initial queue; negative values are treated as zero.
func NewDispatcher(pub Publisher, capacity int) *Dispatcher {
	if capacity < 0 {
		capacity = 0
	}
	d := &Dispatcher{
		pub:     pub,
		timeout: defaultPublishTimeout,
		pending: make([]models.CameraEvent, 0, capacity),
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Submit enqueues ev and returns immediately. It reports false once the
// dispatcher is closed.
func (d *Dispatcher) Submit(ev models.CameraEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		observability.CameraBroadcasts.WithLabelValues("dropped").Inc()
		return false
	}
	d.pending = append(d.pending, ev)
	observability.BroadcastQueueDepth.Set(float64(len(d.pending)))

	select {
	case d.signal <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting events, delivers what is already queued and waits
// for the worker to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.signal)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for range d.signal {
		d.drain()
	}
	d.drain()
}

func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return
		}
		ev := d.pending[0]
		d.pending[0] = models.CameraEvent{}
		d.pending = d.pending[1:]
		observability.BroadcastQueueDepth.Set(float64(len(d.pending)))
		d.mu.Unlock()

		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev models.CameraEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.pub.PublishCameraEvent(ctx, ev); err != nil {
		observability.CameraBroadcasts.WithLabelValues("failed").Inc()
		slog.Warn("camera broadcast failed",
			"session_id", ev.SessionID, "action", ev.Action, "event_id", ev.EventID, "error", err)
		return
	}
	observability.CameraBroadcasts.WithLabelValues("delivered").Inc()
	slog.Debug("camera broadcast delivered", "session_id", ev.SessionID, "event_id", ev.EventID)
}
