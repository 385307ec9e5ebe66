package models

import (
	"time"

	"github.com/google/uuid"
)

// FaceBox is a detected face in pixel coordinates.
type FaceBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float32 `json:"confidence"`
}

// Area returns the box area in pixels.
func (b FaceBox) Area() int {
	return b.Width * b.Height
}

// CapturedFrame is one frame accepted by the capture gate.
type CapturedFrame struct {
	SessionID     uuid.UUID `json:"session_id"`
	SequenceIndex int       `json:"sequence_index"` // 1-based within the batch
	Image         []byte    `json:"-"`
	Ref           string    `json:"ref"` // storage reference (file path or object key)
	DetectionRan  bool      `json:"detection_ran"`
	FaceDetected  bool      `json:"face_detected"`
	FaceCount     int       `json:"face_count"`
	FaceBox       *FaceBox  `json:"face_bounding_box,omitempty"` // largest face
	CapturedAt    time.Time `json:"captured_at"`
}

// SmallFace reports whether the largest face is under minSize pixels on either side.
func (f *CapturedFrame) SmallFace(minSize int) bool {
	return f.FaceBox != nil && (f.FaceBox.Width < minSize || f.FaceBox.Height < minSize)
}
