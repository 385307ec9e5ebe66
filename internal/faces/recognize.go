package faces

import (
	"context"
	"log/slog"
	"sort"

	"github.com/your-org/visora/internal/models"
)

type Searcher interface {
	SearchPhoto(ctx context.Context, image []byte) ([]Candidate, error)
}

// Recognition is the per-frame outcome plus the ranked summary.
type Recognition struct {
	Frames []models.FrameRecognition
	People []models.PersonSummary // ranked, best first
}

// Best returns the most likely person.
func (r *Recognition) Best() (models.PersonSummary, bool) {
	if len(r.People) == 0 {
		return models.PersonSummary{}, false
	}
	return r.People[0], true
}

// NoMatch reports that no frame matched anyone.
func (r *Recognition) NoMatch() bool {
	return len(r.People) == 0
}

// Failed is the number of frames whose lookup failed.
func (r *Recognition) Failed() int {
	n := 0
	for _, f := range r.Frames {
		if f.Err != nil {
			n++
		}
	}
	return n
}

type Recognizer struct {
	searcher Searcher
	loader   FrameLoader // optional
}

func NewRecognizer(searcher Searcher, loader FrameLoader) *Recognizer {
	return &Recognizer{searcher: searcher, loader: loader}
}

// Recognize looks up every frame in order. A failed lookup is recorded on
// that frame only, and so is a frame whose image cannot be read. Frames keep
// their capture sequence numbers.
func (r *Recognizer) Recognize(ctx context.Context, frames []models.CapturedFrame) (*Recognition, error) {
	images := make([][]byte, len(frames))
	readable := 0
	for i, f := range frames {
		if images[i] = readFrame(ctx, r.loader, f); images[i] != nil {
			readable++
		}
	}
	if readable == 0 {
		return nil, ErrNoValidCapture
	}

	res := &Recognition{Frames: make([]models.FrameRecognition, 0, len(frames))}
	for i, f := range frames {
		fr := models.FrameRecognition{Index: f.SequenceIndex, Ref: f.Ref}
		if fr.Index == 0 {
			fr.Index = i + 1
		}
		if images[i] == nil {
			fr.Err = ErrFrameUnreadable
			res.Frames = append(res.Frames, fr)
			continue
		}

		candidates, err := r.searcher.SearchPhoto(ctx, images[i])
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("recognition failed for frame", "frame", fr.Index, "error", err)
			fr.Err = err
		}
		for _, c := range candidates {
			fr.Matches = append(fr.Matches, models.RecognitionMatch{
				MatchedName: c.Name,
				Confidence:  c.Probability * 100,
				ExternalID:  c.UUID,
			})
		}
		res.Frames = append(res.Frames, fr)
	}

	res.People = rank(res.Frames)
	slog.Info("recognition completed", "frames", len(res.Frames), "people", len(res.People), "failed", res.Failed())
	return res, nil
}

// rank groups matches by name and orders by mean confidence, then by number
// of appearances, then by first appearance.
func rank(frames []models.FrameRecognition) []models.PersonSummary {
	index := make(map[string]int)
	var people []models.PersonSummary

	for _, f := range frames {
		for _, m := range f.Matches {
			i, ok := index[m.MatchedName]
			if !ok {
				i = len(people)
				index[m.MatchedName] = i
				people = append(people, models.PersonSummary{Name: m.MatchedName})
			}
			people[i].Confidences = append(people[i].Confidences, m.Confidence)
		}
	}

	for i := range people {
		var sum float64
		for _, c := range people[i].Confidences {
			sum += c
		}
		people[i].AvgConfidence = sum / float64(len(people[i].Confidences))
	}

	// stable sort keeps first-seen order for full ties
	sort.SliceStable(people, func(a, b int) bool {
		if people[a].AvgConfidence != people[b].AvgConfidence {
			return people[a].AvgConfidence > people[b].AvgConfidence
		}
		return people[a].Appearances() > people[b].Appearances()
	})
	return people
}
