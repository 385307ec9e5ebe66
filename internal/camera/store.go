package camera

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/visora/internal/models"
)

// StateStore persists the last known camera state per session.
// Get returns nil, nil when nothing is stored for the session.
type StateStore interface {
	GetCameraState(ctx context.Context, sessionID uuid.UUID) (*models.CameraState, error)
	UpsertCameraState(ctx context.Context, st *models.CameraState) error
}

// MemoryStore is a process-local StateStore.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[uuid.UUID]models.CameraState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[uuid.UUID]models.CameraState)}
}

func (m *MemoryStore) GetCameraState(_ context.Context, sessionID uuid.UUID) (*models.CameraState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[sessionID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MemoryStore) UpsertCameraState(_ context.Context, st *models.CameraState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st.UpdatedAt = time.Now().UTC()
	m.states[st.SessionID] = *st
	return nil
}
