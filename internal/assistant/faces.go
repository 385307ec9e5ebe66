package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/your-org/visora/internal/capture"
	"github.com/your-org/visora/internal/faces"
	"github.com/your-org/visora/internal/models"
	"github.com/your-org/visora/internal/observability"
	"github.com/your-org/visora/internal/session"
)

// CaptureFrames grabs up to count frames and describes what the face
// detector saw in each of them.
func (t *Toolkit) CaptureFrames(ctx context.Context, room string, count int) string {
	if t.deps.Capturer == nil {
		return t.unavailable("capture", "The camera")
	}
	id := session.Resolve(room)

	res, err := t.deps.Capturer.Capture(ctx, capture.Request{SessionID: id.UUID(), Count: count})
	if err != nil {
		return t.captureFailed("capture", err)
	}
	observability.ToolCalls.WithLabelValues("capture", "ok").Inc()
	return t.captureReport(res)
}

// AddPerson captures frames of a face and registers it under personName.
func (t *Toolkit) AddPerson(ctx context.Context, room, personName, collection string) string {
	if t.deps.Capturer == nil || t.deps.Enroller == nil {
		return t.unavailable("enroll", "Face registration")
	}
	name := strings.TrimSpace(personName)
	if name == "" {
		observability.ToolCalls.WithLabelValues("enroll", "rejected").Inc()
		return "Please tell me the person's name first."
	}
	id := session.Resolve(room)

	res, err := t.deps.Capturer.Capture(ctx, capture.Request{SessionID: id.UUID(), Count: t.deps.EnrollFrames, FaceGate: true})
	if err != nil {
		return t.captureFailed("enroll", err)
	}

	rec, err := t.deps.Enroller.Enroll(ctx, name, res.Frames, collection)
	if err != nil {
		var remote *faces.RemoteError
		switch {
		case errors.As(err, &remote):
			slog.Error("face database rejected enrollment", "person", name, "status", remote.StatusCode)
			observability.ToolCalls.WithLabelValues("enroll", "rejected").Inc()
			return fmt.Sprintf("Failed to register %s: %s", name, remote.Error())
		case errors.Is(err, faces.ErrNoValidCapture):
			observability.ToolCalls.WithLabelValues("enroll", "rejected").Inc()
			return fmt.Sprintf("No valid image was captured for %s. Please try again.", name)
		case errors.Is(err, faces.ErrInvalidName):
			observability.ToolCalls.WithLabelValues("enroll", "rejected").Inc()
			return "Please tell me the person's name first."
		default:
			return t.failed("enroll", "enroll person", err, fmt.Sprintf("Sorry, I couldn't register %s right now. Please try again.", name))
		}
	}

	observability.ToolCalls.WithLabelValues("enroll", "ok").Inc()
	var b strings.Builder
	fmt.Fprintf(&b, "Successfully registered %s in the face database.\n", rec.PersonName)
	fmt.Fprintf(&b, "Person ID: %s\n", rec.ExternalID)
	fmt.Fprintf(&b, "Collection: %s\n", rec.Collection)
	fmt.Fprintf(&b, "Images captured: %d", rec.FrameCount)
	if rec.ImageRef != "" {
		fmt.Fprintf(&b, "\nRegistration image: %s", rec.ImageRef)
	}
	return b.String()
}

// RecognizeFace captures frames of whoever is in front of the camera and
// reports the most likely known person.
func (t *Toolkit) RecognizeFace(ctx context.Context, room string) string {
	if t.deps.Capturer == nil || t.deps.Recognizer == nil {
		return t.unavailable("recognize", "Face recognition")
	}
	id := session.Resolve(room)

	res, err := t.deps.Capturer.Capture(ctx, capture.Request{
		SessionID: id.UUID(),
		Count:     t.deps.RecognizeFrames,
		Interval:  t.deps.RecognizeInterval,
		FaceGate:  true,
	})
	if err != nil {
		return t.captureFailed("recognize", err)
	}

	rec, err := t.deps.Recognizer.Recognize(ctx, res.Frames)
	if err != nil {
		if errors.Is(err, faces.ErrNoValidCapture) {
			observability.ToolCalls.WithLabelValues("recognize", "rejected").Inc()
			return "No valid image was captured for recognition. Please try again."
		}
		return t.failed("recognize", "recognize", err, "Sorry, face recognition failed. Please try again.")
	}

	observability.ToolCalls.WithLabelValues("recognize", "ok").Inc()
	return recognitionReport(rec)
}

func (t *Toolkit) captureFailed(tool string, err error) string {
	text, known := captureFailureText(err)
	if !known {
		return t.failed(tool, "capture", err, "Sorry, something went wrong with the camera. Please try again.")
	}
	slog.Warn("capture failed", "tool", tool, "error", err)
	observability.ToolCalls.WithLabelValues(tool, "rejected").Inc()
	return text
}

func captureFailureText(err error) (string, bool) {
	switch {
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return "I couldn't open the camera. Please check that it is connected and not used by another app.", true
	case errors.Is(err, capture.ErrNoFace):
		return "I couldn't see a face. Please look straight at the camera and try again.", true
	case errors.Is(err, capture.ErrNoFrames):
		return "No frames were captured. Please try again.", true
	case errors.Is(err, capture.ErrDeviceRead):
		return "The camera stopped responding. Please try again.", true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The capture was interrupted. Please try again.", true
	}
	return "", false
}

func (t *Toolkit) captureReport(res *capture.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Successfully captured %d frames:\n", len(res.Frames))
	if res.Partial {
		fmt.Fprintf(&b, "(only %d of %d requested frames)\n", len(res.Frames), res.Requested)
	}

	detected, checked := 0, 0
	for i := range res.Frames {
		f := &res.Frames[i]
		b.WriteString("\n")
		if f.Ref != "" {
			fmt.Fprintf(&b, "Frame %d: %s\n", f.SequenceIndex, f.Ref)
		} else {
			fmt.Fprintf(&b, "Frame %d\n", f.SequenceIndex)
		}
		fmt.Fprintf(&b, "  Face detection: %s\n", t.faceInfo(f))
		if f.DetectionRan {
			checked++
			if f.FaceDetected {
				detected++
			}
		}
	}

	if checked > 0 {
		b.WriteString("\n")
		switch {
		case detected == len(res.Frames):
			b.WriteString("All frames contain detected faces. Good for face recognition!")
		case detected > 0:
			fmt.Fprintf(&b, "%d/%d frames contain faces. Consider recapturing for better results.", detected, len(res.Frames))
		default:
			b.WriteString("No faces detected in any frame. Please make sure you're looking at the camera.")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (t *Toolkit) faceInfo(f *models.CapturedFrame) string {
	if !f.DetectionRan {
		return "not run"
	}
	if !f.FaceDetected {
		return "no face detected in this frame"
	}
	info := fmt.Sprintf("detected %d face(s), main face size %dx%dpx", f.FaceCount, f.FaceBox.Width, f.FaceBox.Height)
	if f.SmallFace(t.deps.MinFaceSize) {
		info += " (face appears small, move closer to the camera)"
	}
	return info
}

func recognitionReport(rec *faces.Recognition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Face recognition results (%d frames analyzed):\n", len(rec.Frames))

	for _, f := range rec.Frames {
		fmt.Fprintf(&b, "\nFrame %d:\n", f.Index)
		switch {
		case f.Err != nil:
			fmt.Fprintf(&b, "  Error: %s\n", f.Err.Error())
		case len(f.Matches) == 0:
			b.WriteString("  No known faces detected\n")
		default:
			for _, m := range f.Matches {
				fmt.Fprintf(&b, "  %s (confidence: %.1f%%)\n", m.MatchedName, m.Confidence)
			}
		}
	}

	best, ok := rec.Best()
	if !ok {
		b.WriteString("\nNo known faces were recognized in any frame.\n")
		b.WriteString("Try adding this person first.")
		return b.String()
	}

	b.WriteString("\nRecognition summary:\n")
	for _, p := range rec.People {
		fmt.Fprintf(&b, "  - %s: %d/%d frames (avg confidence: %.1f%%)\n", p.Name, p.Appearances(), len(rec.Frames), p.AvgConfidence)
	}
	fmt.Fprintf(&b, "\nMost likely person: %s (%.1f%% confidence)", best.Name, best.AvgConfidence)
	return b.String()
}
