// Package assistant is the tool surface offered to the voice agent. Every tool
// takes plain arguments and answers with text meant to be read aloud; failures
// are turned into apologies or guidance instead of errors.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/visora/internal/capture"
	"github.com/your-org/visora/internal/faces"
	"github.com/your-org/visora/internal/integrations"
	"github.com/your-org/visora/internal/models"
	"github.com/your-org/visora/internal/observability"
	"github.com/your-org/visora/internal/session"
)

type CameraController interface {
	Set(ctx context.Context, sessionID uuid.UUID, action, cameraType string) string
}

type FrameCapturer interface {
	Capture(ctx context.Context, req capture.Request) (*capture.Result, error)
}

type PersonEnroller interface {
	Enroll(ctx context.Context, personName string, frames []models.CapturedFrame, collection string) (*models.EnrollmentRecord, error)
}

type FaceRecognizer interface {
	Recognize(ctx context.Context, frames []models.CapturedFrame) (*faces.Recognition, error)
}

// SessionStore records sessions and their initial camera state. GetSession
// returns nil for an unknown id.
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	UpsertSession(ctx context.Context, sess *models.Session) error
	UpsertCameraState(ctx context.Context, st *models.CameraState) error
}

type WeatherService interface {
	Current(ctx context.Context, city string) (*integrations.Conditions, error)
}

type SearchService interface {
	Query(ctx context.Context, query string) (*integrations.SearchResult, error)
}

type EmailSender interface {
	Send(ctx context.Context, e integrations.Email) error
}

// Deps wires the toolkit. Any dependency may be nil; its tools then report
// that the feature is unavailable.
type Deps struct {
	Camera     CameraController
	Capturer   FrameCapturer
	Enroller   PersonEnroller
	Recognizer FaceRecognizer
	Sessions   SessionStore
	Weather    WeatherService
	Search     SearchService
	Mailer     EmailSender

	// Frame counts for the face tools; 0 uses the capture default.
	EnrollFrames      int
	RecognizeFrames   int
	// RecognizeInterval paces recognition captures; 0 uses the capture interval.
	RecognizeInterval time.Duration
	MinFaceSize       int
}

type Toolkit struct {
	deps Deps
}

func New(deps Deps) *Toolkit {
	if deps.EnrollFrames == 0 {
		deps.EnrollFrames = capture.MaxFrames
	}
	if deps.MinFaceSize == 0 {
		deps.MinFaceSize = 100
	}
	return &Toolkit{deps: deps}
}

// ControlCamera turns the room's camera on or off, or switches between the
// front and rear camera.
func (t *Toolkit) ControlCamera(ctx context.Context, room, action, cameraType string) string {
	if t.deps.Camera == nil {
		return t.unavailable("camera", "Camera control")
	}
	id := session.Resolve(room)
	text := t.deps.Camera.Set(ctx, id.UUID(), action, cameraType)
	observability.ToolCalls.WithLabelValues("camera", "ok").Inc()
	return text
}

// CreateSession registers the room's session for userID and resets its camera
// to the disabled front camera. Re-creating a session for the same user keeps
// its token.
func (t *Toolkit) CreateSession(ctx context.Context, room, userID string) string {
	if t.deps.Sessions == nil {
		return t.unavailable("session", "Session storage")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		observability.ToolCalls.WithLabelValues("session", "rejected").Inc()
		return "Please tell me which user the session is for."
	}

	id := session.Resolve(room)
	prev, err := t.deps.Sessions.GetSession(ctx, id.UUID())
	if err != nil {
		return t.failed("session", "get session", err, "Sorry, I couldn't create the session. Please try again.")
	}
	sess := &models.Session{
		ID:           id.UUID(),
		UserID:       userID,
		SessionToken: uuid.NewString(),
		IsActive:     true,
	}
	if prev != nil && prev.UserID == userID && prev.SessionToken != "" {
		sess.SessionToken = prev.SessionToken
	}
	if err := t.deps.Sessions.UpsertSession(ctx, sess); err != nil {
		return t.failed("session", "create session", err, "Sorry, I couldn't create the session. Please try again.")
	}
	st := &models.CameraState{SessionID: sess.ID, IsEnabled: false, CameraType: models.CameraUser}
	if err := t.deps.Sessions.UpsertCameraState(ctx, st); err != nil {
		return t.failed("session", "initialize camera state", err, "Sorry, I couldn't create the session. Please try again.")
	}

	slog.Info("session created", "session_id", sess.ID, "room", id.RoomName, "user_id", userID, "reused_token", prev != nil && sess.SessionToken == prev.SessionToken)
	observability.ToolCalls.WithLabelValues("session", "ok").Inc()
	return fmt.Sprintf("Session created for user: %s", userID)
}

func (t *Toolkit) unavailable(tool, feature string) string {
	observability.ToolCalls.WithLabelValues(tool, "unavailable").Inc()
	return fmt.Sprintf("%s is not available right now.", feature)
}

func (t *Toolkit) failed(tool, op string, err error, text string) string {
	slog.Error("tool failed", "tool", tool, "op", op, "error", err)
	observability.ToolCalls.WithLabelValues(tool, "error").Inc()
	return text
}
