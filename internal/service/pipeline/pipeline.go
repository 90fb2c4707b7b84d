package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"pantryscan/internal/logger"
	"pantryscan/internal/model"
)

// ErrInferenceFailure wraps a classifier error for a single frame.
var ErrInferenceFailure = errors.New("inference failure")

// Classifier runs the model on one frame. Implementations must honour ctx
// cancellation where the underlying engine allows it and may be called from
// several pipelines over time, but never concurrently by one pipeline.
type Classifier interface {
	Classify(ctx context.Context, frame model.Frame) ([]model.Classification, error)
}

// Candidate is the top-1 result of one classified frame, tagged with the
// session run that produced it.
type Candidate struct {
	SessionID  string
	Seq        uint64
	Label      string
	Confidence float64
}

// Stats counts frames as they move through the pipeline.
type Stats struct {
	Offered    uint64 `json:"offered"`
	Dropped    uint64 `json:"dropped"`
	Classified uint64 `json:"classified"`
	Failed     uint64 `json:"failed"`
	Empty      uint64 `json:"empty"`
}

// Pipeline hands frames from the capture callback to a single classification
// worker. While the worker is busy, offered frames are dropped, never queued.
type Pipeline struct {
	sessionID  string
	classifier Classifier
	logger     *logger.Logger

	frames chan model.Frame
	busy   atomic.Bool

	offered    atomic.Uint64
	dropped    atomic.Uint64
	classified atomic.Uint64
	failed     atomic.Uint64
	empty      atomic.Uint64
}

// New creates a pipeline whose candidates are tagged with sessionID.
func New(sessionID string, classifier Classifier, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		sessionID:  sessionID,
		classifier: classifier,
		logger:     logger,
		frames:     make(chan model.Frame, 1),
	}
}

// Offer schedules frame for classification unless a frame is already being
// handled, in which case frame is dropped. It never blocks and is meant to be
// called from the frame source callback.
func (p *Pipeline) Offer(frame model.Frame) bool {
	p.offered.Add(1)

	if !p.busy.CompareAndSwap(false, true) {
		p.dropped.Add(1)
		return false
	}

	select {
	case p.frames <- frame:
		return true
	default:
		// The slot is only filled while busy is set, so this is a lost race
		// with a concurrent Offer; treat it like any other busy drop.
		p.busy.Store(false)
		p.dropped.Add(1)
		return false
	}
}

// Run classifies offered frames until ctx is cancelled, sending one Candidate
// per frame that produced a label. Classification errors are logged and the
// loop moves on to the next frame.
func (p *Pipeline) Run(ctx context.Context, out chan<- Candidate) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-p.frames:
			p.process(ctx, frame, out)
			p.busy.Store(false)
		}
	}
}

func (p *Pipeline) process(ctx context.Context, frame model.Frame, out chan<- Candidate) {
	results, err := p.classifier.Classify(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.failed.Add(1)
		p.logger.Error("Session %s frame %d: %v", p.sessionID, frame.Seq, fmt.Errorf("%w: %v", ErrInferenceFailure, err))
		return
	}
	p.classified.Add(1)

	top, ok := TopCandidate(results)
	if !ok {
		p.empty.Add(1)
		return
	}

	select {
	case out <- Candidate{SessionID: p.sessionID, Seq: frame.Seq, Label: top.Label, Confidence: top.Confidence}:
	case <-ctx.Done():
	}
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Offered:    p.offered.Load(),
		Dropped:    p.dropped.Load(),
		Classified: p.classified.Load(),
		Failed:     p.failed.Load(),
		Empty:      p.empty.Load(),
	}
}

// TopCandidate picks the highest-confidence classification. Ties go to the
// earliest entry in model order. Entries without a label or with a NaN
// confidence are ignored.
func TopCandidate(results []model.Classification) (model.Classification, bool) {
	var (
		top   model.Classification
		found bool
	)
	for _, r := range results {
		if r.Label == "" || math.IsNaN(r.Confidence) {
			continue
		}
		if !found || r.Confidence > top.Confidence {
			top = r
			found = true
		}
	}
	return top, found
}
