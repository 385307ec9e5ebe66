package faces

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/your-org/visora/internal/models"
)

var (
	ErrInvalidName     = errors.New("person name is required")
	ErrNoValidCapture  = errors.New("no valid captured frame")
	ErrFrameUnreadable = errors.New("frame image could not be read")
)

// DefaultCollection is used when enrollment names no collection.
const DefaultCollection = "VisoraAgent"

type Registrar interface {
	RegisterPerson(ctx context.Context, name, collection string, image []byte) (*RegisterResponse, error)
}

// FrameLoader reads a persisted frame back by reference.
type FrameLoader interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}

// Enroller registers people with the remote face database.
type Enroller struct {
	registrar  Registrar
	loader     FrameLoader // optional
	collection string
}

func NewEnroller(registrar Registrar, loader FrameLoader, collection string) *Enroller {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Enroller{registrar: registrar, loader: loader, collection: collection}
}

// Enroll submits the first readable frame under personName. Remote rejections
// are returned as *RemoteError.
func (e *Enroller) Enroll(ctx context.Context, personName string, frames []models.CapturedFrame, collection string) (*models.EnrollmentRecord, error) {
	name := strings.TrimSpace(personName)
	if name == "" {
		return nil, ErrInvalidName
	}
	if collection == "" {
		collection = e.collection
	}

	idx, image := firstReadable(ctx, e.loader, frames)
	if image == nil {
		return nil, ErrNoValidCapture
	}
	frame := frames[idx]

	resp, err := e.registrar.RegisterPerson(ctx, name, collection, image)
	if err != nil {
		slog.Error("register person failed", "person", name, "collection", collection, "error", err)
		return nil, fmt.Errorf("register %s: %w", name, err)
	}

	slog.Info("person registered", "person", name, "collection", collection, "uuid", resp.UUID, "frame", frame.SequenceIndex)
	return &models.EnrollmentRecord{
		PersonName: name,
		Collection: collection,
		ExternalID: resp.UUID,
		FrameCount: len(frames),
		ImageRef:   frame.Ref,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// firstReadable returns the index and bytes of the first frame with image
// data, either in memory or through loader. It returns -1, nil if none.
func firstReadable(ctx context.Context, loader FrameLoader, frames []models.CapturedFrame) (int, []byte) {
	for i := range frames {
		if data := readFrame(ctx, loader, frames[i]); data != nil {
			return i, data
		}
	}
	return -1, nil
}

func readFrame(ctx context.Context, loader FrameLoader, f models.CapturedFrame) []byte {
	if len(f.Image) > 0 {
		return f.Image
	}
	if f.Ref == "" || loader == nil {
		return nil
	}
	data, err := loader.Load(ctx, f.Ref)
	if err != nil {
		slog.Warn("frame unreadable", "ref", f.Ref, "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	return data
}
