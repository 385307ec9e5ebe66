package models

import (
	"time"

	"github.com/google/uuid"
)

type CameraType string

const (
	CameraUser        CameraType = "user"        // front-facing
	CameraEnvironment CameraType = "environment" // rear-facing
)

// Opposite returns the other camera type. Switching always toggles between
// exactly these two values.
func (t CameraType) Opposite() CameraType {
	if t == CameraEnvironment {
		return CameraUser
	}
	return CameraEnvironment
}

// Label is the spoken name of the camera.
func (t CameraType) Label() string {
	if t == CameraEnvironment {
		return "rear camera"
	}
	return "front camera"
}

type CameraAction string

const (
	CameraOn     CameraAction = "on"
	CameraOff    CameraAction = "off"
	CameraSwitch CameraAction = "switch"
)

// CameraState is the last known camera state of a session.
type CameraState struct {
	SessionID  uuid.UUID  `json:"session_id" db:"session_id"`
	IsEnabled  bool       `json:"is_enabled" db:"is_enabled"`
	CameraType CameraType `json:"camera_type" db:"camera_type"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// CameraEvent is the payload broadcast to front ends on every camera command.
type CameraEvent struct {
	SessionID     uuid.UUID  `json:"session_id"`
	Action        string     `json:"action"`
	CameraType    CameraType `json:"camera_type"`
	NewCameraType CameraType `json:"new_camera_type,omitempty"`
	IsEnabled     bool       `json:"is_enabled"`
	Message       string     `json:"message"`
	Timestamp     string     `json:"timestamp"` // RFC3339
	EventID       string     `json:"event_id"`  // 8-char token
}

// Session is a row of the sessions table.
type Session struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	SessionToken string    `json:"session_token" db:"session_token"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
