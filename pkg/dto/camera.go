package dto

import "github.com/google/uuid"

type CameraStateResponse struct {
	SessionID  uuid.UUID `json:"session_id"`
	IsEnabled  bool      `json:"is_enabled"`
	CameraType string    `json:"camera_type"`
	UpdatedAt  string    `json:"updated_at"`
}

type CameraEvent struct {
	Action        string `json:"action"`
	CameraType    string `json:"camera_type"`
	NewCameraType string `json:"new_camera_type,omitempty"`
	IsEnabled     bool   `json:"is_enabled"`
	Message       string `json:"message"`
	Timestamp     string `json:"timestamp"`
	EventID       string `json:"event_id"`
}

// WSEvent is a WebSocket message for real-time camera updates.
type WSEvent struct {
	Type      string      `json:"type"` // camera_state
	SessionID uuid.UUID   `json:"session_id"`
	Data      CameraEvent `json:"data"`
}
