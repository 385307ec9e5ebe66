package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/visora/internal/models"
	"github.com/your-org/visora/internal/session"
	"github.com/your-org/visora/pkg/dto"
)

// CameraStateReader returns the last known camera state, nil if none.
type CameraStateReader interface {
	State(ctx context.Context, sessionID uuid.UUID) (*models.CameraState, error)
}

type CameraHandler struct {
	states CameraStateReader
}

func NewCameraHandler(states CameraStateReader) *CameraHandler {
	return &CameraHandler{states: states}
}

// Get serves GET /sessions/:id/camera.
func (h *CameraHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	h.respond(c, id)
}

// GetByRoom serves GET /rooms/:room/camera, resolving the room to its session.
func (h *CameraHandler) GetByRoom(c *gin.Context) {
	h.respond(c, session.Resolve(c.Param("room")).UUID())
}

func (h *CameraHandler) respond(c *gin.Context, id uuid.UUID) {
	st, err := h.states.State(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera state not found"})
		return
	}

	c.JSON(http.StatusOK, dto.CameraStateResponse{
		SessionID:  st.SessionID,
		IsEnabled:  st.IsEnabled,
		CameraType: string(st.CameraType),
		UpdatedAt:  st.UpdatedAt.Format(time.RFC3339),
	})
}
