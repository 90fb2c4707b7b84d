package capture

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"pantryscan/internal/logger"
	"pantryscan/internal/model"
	"pantryscan/internal/service/pipeline"
)

// fakeSource hands frames to the registered handler on demand.
type fakeSource struct {
	mu           sync.Mutex
	handler      FrameHandler
	configureErr error
	releaseErr   error
	configured   int
	released     int
	seq          uint64
}

func (f *fakeSource) Configure(ctx context.Context, handler FrameHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.configureErr != nil {
		return f.configureErr
	}
	f.handler = handler
	f.configured++
	return nil
}

func (f *fakeSource) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = nil
	f.released++
	return f.releaseErr
}

// emit delivers a frame whose payload is "label:confidence".
func (f *fakeSource) emit(payload string) {
	f.mu.Lock()
	handler := f.handler
	f.seq++
	frame := model.Frame{Seq: f.seq, Data: []byte(payload)}
	f.mu.Unlock()

	if handler != nil {
		handler(frame)
	}
}

func (f *fakeSource) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured, f.released
}

// payloadClassifier decodes the "label:confidence" payload written by emit.
// A payload of "error" fails the frame.
type payloadClassifier struct{}

func (payloadClassifier) Classify(ctx context.Context, frame model.Frame) ([]model.Classification, error) {
	payload := string(frame.Data)
	if payload == "error" {
		return nil, errors.New("model crashed")
	}
	label, conf, _ := strings.Cut(payload, ":")
	confidence, err := strconv.ParseFloat(conf, 64)
	if err != nil {
		return nil, err
	}
	return []model.Classification{{Label: label, Confidence: confidence}}, nil
}

// blockingClassifier answers only when released, ignoring ctx, to model an
// inference that is still running when the session stops.
type blockingClassifier struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingClassifier) Classify(ctx context.Context, frame model.Frame) ([]model.Classification, error) {
	b.started <- struct{}{}
	<-b.release
	return []model.Classification{{Label: "tomato", Confidence: 1}}, nil
}

func newTestController(t *testing.T, source FrameSource, classifier pipeline.Classifier, threshold float64) *Controller {
	t.Helper()
	c := NewController(source, classifier, Config{Threshold: threshold}, logger.Discard())
	t.Cleanup(func() { c.Close() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// feed emits payload until the pipeline accepts it instead of dropping it.
func feed(t *testing.T, c *Controller, src *fakeSource, payload string) {
	t.Helper()
	waitFor(t, "frame "+payload+" to be scheduled", func() bool {
		before := c.Stats()
		src.emit(payload)
		after := c.Stats()
		return after.Offered-after.Dropped > before.Offered-before.Dropped
	})
}

// handled is the number of candidates the controller has finished with.
func handled(s Stats) uint64 {
	return s.BelowThreshold + s.Accepted + s.Duplicates + s.Stale
}

func TestController_ThresholdIsInclusive(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.9)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	feed(t, c, src, "onion:0.85")
	waitFor(t, "below-threshold frame", func() bool { return handled(c.Stats()) == 1 })
	feed(t, c, src, "tomato:0.95")
	waitFor(t, "accepted frame", func() bool { return handled(c.Stats()) == 2 })
	feed(t, c, src, "egg:0.9")
	waitFor(t, "boundary frame", func() bool { return handled(c.Stats()) == 3 })

	if got := c.Snapshot().Items; !reflect.DeepEqual(got, []string{"tomato", "egg"}) {
		t.Errorf("Items = %v, expected [tomato egg]", got)
	}
	if below := c.Stats().BelowThreshold; below != 1 {
		t.Errorf("Expected 1 below-threshold result, got %d", below)
	}
}

func TestController_DedupsNormalizedLabelsInOrder(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i, payload := range []string{"Tomato:0.9", "onion:0.9", "TOMATO:0.99", "egg:0.7", "onion:0.6"} {
		feed(t, c, src, payload)
		want := uint64(i + 1)
		waitFor(t, "candidate "+payload, func() bool { return handled(c.Stats()) == want })
	}

	if got := c.Snapshot().Items; !reflect.DeepEqual(got, []string{"tomato", "onion", "egg"}) {
		t.Errorf("Items = %v, expected [tomato onion egg]", got)
	}
	if dup := c.Stats().Duplicates; dup != 2 {
		t.Errorf("Expected 2 duplicates, got %d", dup)
	}
}

func TestController_InferenceFailureKeepsSessionRunning(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	feed(t, c, src, "error")
	waitFor(t, "failed frame", func() bool { return c.Stats().Failed == 1 })
	feed(t, c, src, "carrot:0.8")
	waitFor(t, "next frame", func() bool { return c.Stats().Accepted == 1 })

	if c.State() != Running {
		t.Errorf("Expected Running, got %s", c.State())
	}
	if got := c.Snapshot().Items; !reflect.DeepEqual(got, []string{"carrot"}) {
		t.Errorf("Items = %v, expected [carrot]", got)
	}
}

func TestController_StartIsIdempotent(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)

	for i := 0; i < 3; i++ {
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
	}
	if configured, _ := src.counts(); configured != 1 {
		t.Errorf("Expected source configured once, got %d", configured)
	}
}

func TestController_StartFailureLeavesIdle(t *testing.T) {
	src := &fakeSource{configureErr: errors.New("no camera found")}
	c := newTestController(t, src, payloadClassifier{}, 0.5)

	err := c.Start(context.Background())
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("Expected ErrCaptureUnavailable, got %v", err)
	}
	if c.State() != Idle {
		t.Errorf("Expected Idle, got %s", c.State())
	}
}

func TestController_StartFailureFromStoppedLeavesIdle(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	src.mu.Lock()
	src.configureErr = errors.New("device busy")
	src.mu.Unlock()

	if err := c.Start(context.Background()); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("Expected ErrCaptureUnavailable, got %v", err)
	}
	if c.State() != Idle {
		t.Errorf("Expected Idle, got %s", c.State())
	}
}

func TestController_StopClearsAndReleases(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	feed(t, c, src, "tomato:0.9")
	waitFor(t, "tomato", func() bool { return len(c.Snapshot().Items) == 1 })

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	snap := c.Snapshot()
	if snap.State != Stopped || len(snap.Items) != 0 || snap.SessionID != "" {
		t.Errorf("Unexpected snapshot after stop: %+v", snap)
	}
	if _, released := src.counts(); released != 1 {
		t.Errorf("Expected one release, got %d", released)
	}

	// Stopping again is a no-op.
	if err := c.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
	if _, released := src.counts(); released != 1 {
		t.Errorf("Expected still one release, got %d", released)
	}
}

func TestController_StopReportsReleaseError(t *testing.T) {
	src := &fakeSource{releaseErr: errors.New("device wedged")}
	c := newTestController(t, src, payloadClassifier{}, 0.5)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := c.Stop(); err == nil {
		t.Error("Expected release error to be reported")
	}
	if c.State() != Stopped {
		t.Errorf("Expected Stopped even when release fails, got %s", c.State())
	}
}

func TestController_ResultsInFlightAtStopAreDiscarded(t *testing.T) {
	src := &fakeSource{}
	classifier := &blockingClassifier{started: make(chan struct{}, 1), release: make(chan struct{})}
	c := newTestController(t, src, classifier, 0.5)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	src.emit("frame")
	<-classifier.started

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	close(classifier.release)

	// Give the stale result every chance to land.
	time.Sleep(20 * time.Millisecond)
	if items := c.Snapshot().Items; len(items) != 0 {
		t.Errorf("Stale result leaked into stopped session: %v", items)
	}
}

func TestController_AcceptRejectsOtherSessions(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	first := c.Snapshot().SessionID

	if err := c.Restart(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if c.Snapshot().SessionID == first {
		t.Fatal("Restart should begin a new session run")
	}

	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	c.accept(r, pipeline.Candidate{SessionID: first, Label: "tomato", Confidence: 1})

	if items := c.Snapshot().Items; len(items) != 0 {
		t.Errorf("Result from previous run was appended: %v", items)
	}
	if stale := c.Stats().Stale; stale != 1 {
		t.Errorf("Expected 1 stale result, got %d", stale)
	}
}

func TestController_RestartAfterStopIsRunningAndEmpty(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	feed(t, c, src, "tomato:0.9")
	waitFor(t, "tomato", func() bool { return len(c.Snapshot().Items) == 1 })
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := c.Restart(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	snap := c.Snapshot()
	if snap.State != Running || len(snap.Items) != 0 {
		t.Errorf("Expected running empty session, got %+v", snap)
	}
	if configured, released := src.counts(); configured != 2 || released != 1 {
		t.Errorf("Expected 2 configures and 1 release, got %d and %d", configured, released)
	}
}

func TestController_RestartWhileRunningReplacesSession(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	feed(t, c, src, "tomato:0.9")
	waitFor(t, "tomato", func() bool { return len(c.Snapshot().Items) == 1 })

	if err := c.Restart(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if snap := c.Snapshot(); snap.State != Running || len(snap.Items) != 0 {
		t.Errorf("Expected running empty session, got %+v", snap)
	}
	if _, released := src.counts(); released != 1 {
		t.Errorf("Expected the old source to be released once, got %d", released)
	}
}

func TestController_ResetKeepsSourceAndState(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	feed(t, c, src, "tomato:0.9")
	waitFor(t, "tomato", func() bool { return len(c.Snapshot().Items) == 1 })

	c.Reset()

	snap := c.Snapshot()
	if snap.State != Running || len(snap.Items) != 0 {
		t.Errorf("Expected running empty session, got %+v", snap)
	}
	if configured, released := src.counts(); configured != 1 || released != 0 {
		t.Errorf("Reset touched the frame source: %d configures, %d releases", configured, released)
	}

	feed(t, c, src, "tomato:0.9")
	waitFor(t, "tomato again", func() bool { return len(c.Snapshot().Items) == 1 })
}

func TestController_ResetWhileIdle(t *testing.T) {
	c := newTestController(t, &fakeSource{}, payloadClassifier{}, 0.5)
	c.Reset()
	if snap := c.Snapshot(); snap.State != Idle || len(snap.Items) != 0 || snap.Version != 0 {
		t.Errorf("Reset on idle controller changed it: %+v", snap)
	}
}

func TestController_SubscribePublishesChanges(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src, payloadClassifier{}, 0.5)

	updates, cancel := c.Subscribe(16)
	defer cancel()

	initial := <-updates
	if initial.State != Idle {
		t.Fatalf("Expected initial Idle update, got %+v", initial)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	feed(t, c, src, "tomato:0.9")
	waitFor(t, "tomato", func() bool { return c.Stats().Accepted == 1 })
	feed(t, c, src, "tomato:0.9")
	waitFor(t, "duplicate", func() bool { return c.Stats().Duplicates == 1 })
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	var got []Update
	for len(got) < 3 {
		select {
		case u := <-updates:
			got = append(got, u)
		case <-time.After(2 * time.Second):
			t.Fatalf("Expected 3 updates, got %+v", got)
		}
	}

	if got[0].State != Running || len(got[0].Items) != 0 {
		t.Errorf("Update 0 = %+v, expected running with no items", got[0])
	}
	if got[1].State != Running || !reflect.DeepEqual(got[1].Items, []string{"tomato"}) {
		t.Errorf("Update 1 = %+v, expected running with tomato", got[1])
	}
	if got[2].State != Stopped || len(got[2].Items) != 0 {
		t.Errorf("Update 2 = %+v, expected stopped and cleared", got[2])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Version <= got[i-1].Version {
			t.Errorf("Versions out of order: %d then %d", got[i-1].Version, got[i].Version)
		}
	}

	// The duplicate produced no update.
	select {
	case u := <-updates:
		t.Errorf("Unexpected extra update %+v", u)
	default:
	}
}

func TestController_SlowSubscriberKeepsLatest(t *testing.T) {
	c := newTestController(t, &fakeSource{}, payloadClassifier{}, 0.5)
	updates, cancel := c.Subscribe(1)

	for i := 0; i < 5; i++ {
		if err := c.Restart(context.Background()); err != nil {
			t.Fatalf("Restart failed: %v", err)
		}
	}

	latest := <-updates
	if latest.Version != c.Snapshot().Version {
		t.Errorf("Expected latest version %d, got %d", c.Snapshot().Version, latest.Version)
	}

	cancel()
	cancel()
	if _, ok := <-updates; ok {
		t.Error("Expected channel to be closed after cancel")
	}
}

func TestState_MarshalText(t *testing.T) {
	for state, want := range map[State]string{Idle: "idle", Running: "running", Stopped: "stopped"} {
		text, err := state.MarshalText()
		if err != nil || string(text) != want {
			t.Errorf("MarshalText(%d) = %q, %v; expected %q", state, text, err, want)
		}
	}
}

func TestState_UnmarshalText(t *testing.T) {
	var s State
	if err := s.UnmarshalText([]byte("running")); err != nil || s != Running {
		t.Errorf("UnmarshalText(running) = %s, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("paused")); err == nil {
		t.Error("Expected error for unknown state")
	}
}
