package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/visora/internal/capture"
	"github.com/your-org/visora/internal/config"
	"github.com/your-org/visora/internal/faces"
	"github.com/your-org/visora/internal/integrations"
	"github.com/your-org/visora/internal/models"
	"github.com/your-org/visora/internal/session"
)

type fakeCamera struct {
	sessionID uuid.UUID
	action    string
}

func (f *fakeCamera) Set(_ context.Context, sessionID uuid.UUID, action, _ string) string {
	f.sessionID, f.action = sessionID, action
	return "The camera is off."
}

type fakeCapturer struct {
	res  *capture.Result
	err  error
	reqs []capture.Request
}

func (f *fakeCapturer) Capture(_ context.Context, req capture.Request) (*capture.Result, error) {
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

type fakeEnroller struct {
	rec   *models.EnrollmentRecord
	err   error
	calls int
}

func (f *fakeEnroller) Enroll(_ context.Context, name string, frames []models.CapturedFrame, collection string) (*models.EnrollmentRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.rec != nil {
		return f.rec, nil
	}
	return &models.EnrollmentRecord{PersonName: name, Collection: collection, ExternalID: "ext-1", FrameCount: len(frames)}, nil
}

type fakeRecognizer struct {
	rec *faces.Recognition
	err error
}

func (f *fakeRecognizer) Recognize(context.Context, []models.CapturedFrame) (*faces.Recognition, error) {
	return f.rec, f.err
}

type fakeSessions struct {
	sessions []*models.Session
	states   []*models.CameraState
	err      error
	getErr   error
}

func (f *fakeSessions) GetSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := len(f.sessions) - 1; i >= 0; i-- {
		if f.sessions[i].ID == id {
			return f.sessions[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSessions) UpsertSession(_ context.Context, s *models.Session) error {
	if f.err != nil {
		return f.err
	}
	f.sessions = append(f.sessions, s)
	return nil
}

func (f *fakeSessions) UpsertCameraState(_ context.Context, st *models.CameraState) error {
	f.states = append(f.states, st)
	return nil
}

func faceFrame(idx, w, h int) models.CapturedFrame {
	return models.CapturedFrame{
		SequenceIndex: idx,
		Ref:           fmt.Sprintf("frames/f%d.jpg", idx),
		DetectionRan:  true,
		FaceDetected:  true,
		FaceCount:     1,
		FaceBox:       &models.FaceBox{Width: w, Height: h},
	}
}

func TestControlCamera_ResolvesRoom(t *testing.T) {
	cam := &fakeCamera{}
	tk := New(Deps{Camera: cam})

	got := tk.ControlCamera(context.Background(), "kitchen", "off", "")
	if got != "The camera is off." {
		t.Errorf("unexpected text %q", got)
	}
	if cam.sessionID != session.Resolve("kitchen").UUID() {
		t.Error("camera command should use the room's session id")
	}
}

func TestUnavailableTools(t *testing.T) {
	tk := New(Deps{})
	ctx := context.Background()

	checks := map[string]string{
		"camera":    tk.ControlCamera(ctx, "r", "on", ""),
		"capture":   tk.CaptureFrames(ctx, "r", 3),
		"enroll":    tk.AddPerson(ctx, "r", "Ana", ""),
		"recognize": tk.RecognizeFace(ctx, "r"),
		"session":   tk.CreateSession(ctx, "r", "u1"),
		"weather":   tk.GetWeather(ctx, "Paris"),
		"search":    tk.SearchWeb(ctx, "go"),
		"email":     tk.SendEmail(ctx, "a@example.com", "s", "m", ""),
	}
	for tool, text := range checks {
		if !strings.Contains(text, "not available") {
			t.Errorf("%s: expected unavailable text, got %q", tool, text)
		}
	}
}

func TestCaptureFrames_Report(t *testing.T) {
	tests := []struct {
		name   string
		frames []models.CapturedFrame
		want   []string
	}{
		{
			name:   "all faces",
			frames: []models.CapturedFrame{faceFrame(1, 150, 160), faceFrame(2, 140, 150)},
			want:   []string{"Successfully captured 2 frames", "main face size 150x160px", "All frames contain detected faces"},
		},
		{
			name:   "some faces",
			frames: []models.CapturedFrame{faceFrame(1, 150, 160), {SequenceIndex: 2, DetectionRan: true}},
			want:   []string{"no face detected in this frame", "1/2 frames contain faces"},
		},
		{
			name:   "no faces",
			frames: []models.CapturedFrame{{SequenceIndex: 1, DetectionRan: true}},
			want:   []string{"No faces detected in any frame"},
		},
		{
			name:   "small face",
			frames: []models.CapturedFrame{faceFrame(1, 80, 160)},
			want:   []string{"face appears small"},
		},
		{
			name:   "no detector",
			frames: []models.CapturedFrame{{SequenceIndex: 1, Ref: "frames/x.jpg"}},
			want:   []string{"Frame 1: frames/x.jpg", "Face detection: not run"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capt := &fakeCapturer{res: &capture.Result{Frames: tt.frames, Requested: len(tt.frames)}}
			text := New(Deps{Capturer: capt}).CaptureFrames(context.Background(), "r", 0)
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("missing %q in:\n%s", w, text)
				}
			}
			if capt.reqs[0].FaceGate {
				t.Error("plain capture should not gate on faces")
			}
		})
	}
}

func TestCaptureFrames_Partial(t *testing.T) {
	capt := &fakeCapturer{res: &capture.Result{Frames: []models.CapturedFrame{faceFrame(1, 200, 200)}, Requested: 3, Partial: true}}
	text := New(Deps{Capturer: capt}).CaptureFrames(context.Background(), "r", 3)
	if !strings.Contains(text, "only 1 of 3 requested frames") {
		t.Errorf("partial result not reported:\n%s", text)
	}
}

func TestCaptureFailures(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: no such device", capture.ErrDeviceUnavailable), "couldn't open the camera"},
		{fmt.Errorf("%w after 10 attempts", capture.ErrNoFace), "couldn't see a face"},
		{capture.ErrNoFrames, "No frames were captured"},
		{context.Canceled, "interrupted"},
		{errors.New("disk on fire"), "something went wrong with the camera"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			tk := New(Deps{Capturer: &fakeCapturer{err: tt.err}})
			if got := tk.CaptureFrames(context.Background(), "r", 1); !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
		})
	}
}

func TestAddPerson(t *testing.T) {
	capt := &fakeCapturer{res: &capture.Result{Frames: []models.CapturedFrame{faceFrame(1, 200, 200), faceFrame(2, 200, 200)}}}
	enr := &fakeEnroller{}
	tk := New(Deps{Capturer: capt, Enroller: enr})

	text := tk.AddPerson(context.Background(), "r", " Ana ", "Family")
	for _, w := range []string{"Successfully registered Ana", "Person ID: ext-1", "Collection: Family", "Images captured: 2"} {
		if !strings.Contains(text, w) {
			t.Errorf("missing %q in:\n%s", w, text)
		}
	}
	req := capt.reqs[0]
	if !req.FaceGate || req.Count != capture.MaxFrames {
		t.Errorf("enrollment capture should gate on faces with %d frames, got %+v", capture.MaxFrames, req)
	}
}

// stillCamera serves the same JPEG bytes on every read.
type stillCamera struct {
	opens int
}

func (c *stillCamera) Open(context.Context) (capture.Device, error) {
	c.opens++
	return c, nil
}

func (c *stillCamera) ReadFrame(context.Context) ([]byte, error) { return []byte("jpeg"), nil }
func (c *stillCamera) Close() error { return nil }

func TestAddPerson_WithoutFaceDetector(t *testing.T) {
	cam := &stillCamera{}
	gate := capture.NewGate(cam, nil, nil, config.CaptureConfig{FrameCount: 3, Interval: time.Millisecond})
	enr := &fakeEnroller{}
	tk := New(Deps{Capturer: gate, Enroller: enr})

	text := tk.AddPerson(context.Background(), "r", "Ana", "")
	if !strings.Contains(text, "Successfully registered Ana") {
		t.Fatalf("expected enrollment to go through without a detector, got:\n%s", text)
	}
	if cam.opens != 1 || enr.calls != 1 {
		t.Errorf("expected one capture and one enrollment, got opens=%d enrolls=%d", cam.opens, enr.calls)
	}
	if !strings.Contains(text, fmt.Sprintf("Images captured: %d", capture.MaxFrames)) {
		t.Errorf("expected %d frames captured ungated:\n%s", capture.MaxFrames, text)
	}
}

func TestAddPerson_Failures(t *testing.T) {
	remoteBody := `{"status":"failure","message":"Can't find faces on the image"}`
	tests := []struct {
		name      string
		person    string
		capErr    error
		enrollErr error
		want      string
	}{
		{"blank name", "  ", nil, nil, "tell me the person's name"},
		{"no face", "Ana", fmt.Errorf("%w after 10 attempts", capture.ErrNoFace), nil, "couldn't see a face"},
		{"remote rejection", "Ana", nil, fmt.Errorf("register Ana: %w", &faces.RemoteError{StatusCode: 400, Body: remoteBody}), "Failed to register Ana: " + remoteBody},
		{"no valid capture", "Ana", nil, faces.ErrNoValidCapture, "No valid image was captured for Ana"},
		{"transient", "Ana", nil, errors.New("connection reset"), "couldn't register Ana right now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capt := &fakeCapturer{res: &capture.Result{Frames: []models.CapturedFrame{faceFrame(1, 200, 200)}}, err: tt.capErr}
			enr := &fakeEnroller{err: tt.enrollErr}
			got := New(Deps{Capturer: capt, Enroller: enr}).AddPerson(context.Background(), "r", tt.person, "")
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
			if tt.capErr != nil && enr.calls != 0 {
				t.Error("enrollment must not run after a capture failure")
			}
		})
	}
}

func TestRecognizeFace(t *testing.T) {
	rec := &faces.Recognition{
		Frames: []models.FrameRecognition{
			{Index: 1, Matches: []models.RecognitionMatch{{MatchedName: "A", Confidence: 80}}},
			{Index: 2, Matches: []models.RecognitionMatch{{MatchedName: "A", Confidence: 90}}},
			{Index: 3, Err: &faces.RemoteError{StatusCode: 500, Body: "upstream timeout"}},
		},
		People: []models.PersonSummary{{Name: "A", Confidences: []float64{80, 90}, AvgConfidence: 85}},
	}
	capt := &fakeCapturer{res: &capture.Result{Frames: []models.CapturedFrame{faceFrame(1, 200, 200)}}}
	tk := New(Deps{Capturer: capt, Recognizer: &fakeRecognizer{rec: rec}, RecognizeFrames: 3, RecognizeInterval: 500 * time.Millisecond})

	text := tk.RecognizeFace(context.Background(), "r")
	for _, w := range []string{
		"(3 frames analyzed)",
		"A (confidence: 80.0%)",
		"Error: upstream timeout",
		"A: 2/3 frames (avg confidence: 85.0%)",
		"Most likely person: A (85.0% confidence)",
	} {
		if !strings.Contains(text, w) {
			t.Errorf("missing %q in:\n%s", w, text)
		}
	}
	if req := capt.reqs[0]; !req.FaceGate || req.Count != 3 || req.Interval != 500*time.Millisecond {
		t.Errorf("unexpected capture request %+v", req)
	}
}

func TestRecognizeFace_NoMatch(t *testing.T) {
	rec := &faces.Recognition{Frames: []models.FrameRecognition{{Index: 1}}}
	capt := &fakeCapturer{res: &capture.Result{Frames: []models.CapturedFrame{faceFrame(1, 200, 200)}}}
	text := New(Deps{Capturer: capt, Recognizer: &fakeRecognizer{rec: rec}}).RecognizeFace(context.Background(), "r")

	if !strings.Contains(text, "No known faces were recognized") || strings.Contains(text, "Most likely") {
		t.Errorf("unexpected text:\n%s", text)
	}
}

func TestCreateSession(t *testing.T) {
	store := &fakeSessions{}
	tk := New(Deps{Sessions: store})

	got := tk.CreateSession(context.Background(), "living-room", "user-42")
	if got != "Session created for user: user-42" {
		t.Errorf("unexpected text %q", got)
	}
	if len(store.sessions) != 1 || len(store.states) != 1 {
		t.Fatalf("expected one session and one camera state, got %d/%d", len(store.sessions), len(store.states))
	}
	sess, st := store.sessions[0], store.states[0]
	if sess.ID != session.Resolve("living-room").UUID() || !sess.IsActive || sess.SessionToken == "" {
		t.Errorf("unexpected session %+v", sess)
	}
	if st.SessionID != sess.ID || st.IsEnabled || st.CameraType != models.CameraUser {
		t.Errorf("unexpected camera state %+v", st)
	}
}

func TestCreateSession_KeepsTokenForSameUser(t *testing.T) {
	store := &fakeSessions{}
	tk := New(Deps{Sessions: store})
	ctx := context.Background()

	tk.CreateSession(ctx, "den", "user-1")
	tk.CreateSession(ctx, "den", "user-1")
	tk.CreateSession(ctx, "den", "user-2")

	if len(store.sessions) != 3 {
		t.Fatalf("expected three upserts, got %d", len(store.sessions))
	}
	first, again, other := store.sessions[0], store.sessions[1], store.sessions[2]
	if again.SessionToken != first.SessionToken {
		t.Errorf("same user should keep token %q, got %q", first.SessionToken, again.SessionToken)
	}
	if other.SessionToken == first.SessionToken {
		t.Error("a different user should get a fresh token")
	}
}

func TestCreateSession_Failures(t *testing.T) {
	store := &fakeSessions{err: errors.New("db down")}
	tk := New(Deps{Sessions: store})

	if got := tk.CreateSession(context.Background(), "r", ""); !strings.Contains(got, "which user") {
		t.Errorf("unexpected text for blank user %q", got)
	}
	if got := tk.CreateSession(context.Background(), "r", "u"); !strings.Contains(got, "couldn't create the session") {
		t.Errorf("unexpected text for store failure %q", got)
	}
	if len(store.states) != 0 {
		t.Error("camera state must not be written when the session upsert fails")
	}

	lookup := &fakeSessions{getErr: errors.New("db down")}
	tk = New(Deps{Sessions: lookup})
	if got := tk.CreateSession(context.Background(), "r", "u"); !strings.Contains(got, "couldn't create the session") {
		t.Errorf("unexpected text for lookup failure %q", got)
	}
	if len(lookup.sessions) != 0 {
		t.Error("session must not be written when the lookup fails")
	}
}

type fakeWeather struct {
	c   *integrations.Conditions
	err error
}

func (f fakeWeather) Current(context.Context, string) (*integrations.Conditions, error) {
	return f.c, f.err
}

type fakeSearch struct {
	res *integrations.SearchResult
	err error
}

func (f fakeSearch) Query(context.Context, string) (*integrations.SearchResult, error) {
	return f.res, f.err
}

type fakeMailer struct {
	err  error
	sent []integrations.Email
}

func (f *fakeMailer) Send(_ context.Context, e integrations.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

func TestGetWeather(t *testing.T) {
	ok := New(Deps{Weather: fakeWeather{c: &integrations.Conditions{City: "Oslo", TempC: "3"}}})
	if got := ok.GetWeather(context.Background(), "Oslo"); !strings.Contains(got, "Current weather in Oslo") {
		t.Errorf("unexpected text %q", got)
	}

	notFound := New(Deps{Weather: fakeWeather{err: &integrations.StatusError{Service: "weather", StatusCode: 404}}})
	if got := notFound.GetWeather(context.Background(), "Atlantis"); got != "I couldn't get weather information for Atlantis." {
		t.Errorf("unexpected text %q", got)
	}

	broken := New(Deps{Weather: fakeWeather{err: errors.New("dial tcp: timeout")}})
	if got := broken.GetWeather(context.Background(), "Oslo"); !strings.Contains(got, "Something went wrong") {
		t.Errorf("unexpected text %q", got)
	}
}

func TestSearchWeb(t *testing.T) {
	tk := New(Deps{Search: fakeSearch{res: &integrations.SearchResult{Query: "go", Abstract: "Go is a language."}}})
	if got := tk.SearchWeb(context.Background(), "go"); !strings.Contains(got, "Go is a language.") {
		t.Errorf("unexpected text %q", got)
	}

	failing := New(Deps{Search: fakeSearch{err: errors.New("boom")}})
	if got := failing.SearchWeb(context.Background(), "go"); !strings.Contains(got, "Please try again") {
		t.Errorf("unexpected text %q", got)
	}
}

func TestSendEmail(t *testing.T) {
	m := &fakeMailer{}
	tk := New(Deps{Mailer: m})
	if got := tk.SendEmail(context.Background(), "a@example.com", "Hi", "Body", "b@example.com"); got != "Email sent successfully to a@example.com" {
		t.Errorf("unexpected text %q", got)
	}
	if len(m.sent) != 1 || m.sent[0].CC != "b@example.com" {
		t.Errorf("unexpected sent mail %+v", m.sent)
	}

	unconfigured := New(Deps{Mailer: &fakeMailer{err: integrations.ErrNotConfigured}})
	if got := unconfigured.SendEmail(context.Background(), "a@example.com", "", "", ""); got != "Email sending failed: Gmail credentials not configured." {
		t.Errorf("unexpected text %q", got)
	}
}
