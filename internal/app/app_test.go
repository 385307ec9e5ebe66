package app

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/visora/internal/config"
	"github.com/your-org/visora/internal/models"
	"github.com/your-org/visora/internal/session"
)

type collectingPublisher struct {
	mu     sync.Mutex
	events []models.CameraEvent
}

func (p *collectingPublisher) PublishCameraEvent(_ context.Context, ev models.CameraEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("LUXAND_API_TOKEN", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.FramesDir = t.TempDir()
	cfg.Vision.ModelsDir = t.TempDir()
	cfg.FaceDB.Token = ""
	return cfg
}

func TestNew_LocalBackends(t *testing.T) {
	cfg := localConfig(t)
	pub := &collectingPublisher{}

	a, err := New(context.Background(), cfg, pub)
	require.NoError(t, err)

	ctx := context.Background()
	assert.Contains(t, a.Tools.ControlCamera(ctx, "kitchen", "on", "user"), "is on")

	st, err := a.Camera.State(ctx, session.Resolve("kitchen").UUID())
	require.NoError(t, err)
	require.NotNil(t, st, "memory store keeps the state")
	assert.True(t, st.IsEnabled)

	assert.Equal(t, "Face registration is not available right now.", a.Tools.AddPerson(ctx, "kitchen", "Ana", ""))
	assert.Equal(t, "Session storage is not available right now.", a.Tools.CreateSession(ctx, "kitchen", "u1"))
	assert.Empty(t, a.Checks, "local backends need no readiness checks")

	// Close flushes the dispatcher.
	a.Close()
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.CameraOn, pub.events[0].Action)
}

func TestNew_NilPublisherFallsBackToLog(t *testing.T) {
	a, err := New(context.Background(), localConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	got := a.Tools.ControlCamera(context.Background(), "hall", "switch", "")
	assert.True(t, strings.HasPrefix(got, "Switched to"), "unexpected reply %q", got)
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"postgres persistence without database", func(c *config.Config) { c.Camera.Persistence = "postgres" }, "requires database.host"},
		{"unknown persistence", func(c *config.Config) { c.Camera.Persistence = "redis" }, "unknown camera persistence"},
		{"unknown storage backend", func(c *config.Config) { c.Storage.Backend = "s3" }, "unknown storage backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := localConfig(t)
			tt.mutate(cfg)
			a, err := New(context.Background(), cfg, nil)
			if err == nil {
				a.Close()
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
