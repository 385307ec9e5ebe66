package models

import "time"

// EnrollmentRecord is the outcome of registering a person with the face database.
type EnrollmentRecord struct {
	PersonName string    `json:"person_name"`
	Collection string    `json:"collection"`
	ExternalID string    `json:"external_id"`
	FrameCount int       `json:"frame_count"` // frames offered for enrollment
	ImageRef   string    `json:"image_ref"`   // the frame actually submitted
	CreatedAt  time.Time `json:"created_at"`
}

// RecognitionMatch is one candidate returned for one frame.
type RecognitionMatch struct {
	MatchedName string  `json:"matched_name"`
	Confidence  float64 `json:"confidence"` // 0-100
	ExternalID  string  `json:"external_id"`
}

// FrameRecognition holds the remote lookup outcome for a single frame.
// Err is set when the frame could not be read or its lookup failed; other
// frames are unaffected.
type FrameRecognition struct {
	Index   int                `json:"index"` // capture sequence number, 1-based
	Ref     string             `json:"ref"`
	Matches []RecognitionMatch `json:"matches"`
	Err     error              `json:"-"`
}

// PersonSummary aggregates one person's matches across a batch.
type PersonSummary struct {
	Name          string    `json:"name"`
	Confidences   []float64 `json:"confidences"`
	AvgConfidence float64   `json:"avg_confidence"`
}

// Appearances is the number of frames the person was matched in.
func (p PersonSummary) Appearances() int {
	return len(p.Confidences)
}
