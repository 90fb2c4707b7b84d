package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"pantryscan/internal/logger"
	"pantryscan/internal/model"
	"pantryscan/internal/normalize"
	"pantryscan/internal/service/aggregator"
	"pantryscan/internal/service/pipeline"
)

// Config holds the tunables of a Controller.
type Config struct {
	// Threshold is the minimum confidence, inclusive, for a detection to be
	// accepted into the session.
	Threshold float64
}

// DefaultConfig returns the configuration used by the bundled detector model.
func DefaultConfig() Config {
	return Config{Threshold: 0.8}
}

// Update is the observable state of the session. A new Update is published
// whenever the state or the detected items change.
type Update struct {
	SessionID string   `json:"session_id,omitempty"`
	State     State    `json:"state"`
	Items     []string `json:"items"`
	Version   uint64   `json:"version"`
}

// Stats combines the pipeline counters with what happened to each candidate.
type Stats struct {
	pipeline.Stats
	BelowThreshold uint64 `json:"below_threshold"`
	Accepted       uint64 `json:"accepted"`
	Duplicates     uint64 `json:"duplicates"`
	Stale          uint64 `json:"stale"`
}

// run is one Running period, from start to stop.
type run struct {
	id       string
	pipeline *pipeline.Pipeline
	cancel   context.CancelFunc
	done     chan struct{}

	belowThreshold atomic.Uint64
	accepted       atomic.Uint64
	duplicates     atomic.Uint64
	stale          atomic.Uint64
}

func (r *run) stats() Stats {
	return Stats{
		Stats:          r.pipeline.Stats(),
		BelowThreshold: r.belowThreshold.Load(),
		Accepted:       r.accepted.Load(),
		Duplicates:     r.duplicates.Load(),
		Stale:          r.stale.Load(),
	}
}

// Controller owns the frame source and the detection set of one scanning
// session and exposes the start/stop/reset/restart commands.
type Controller struct {
	source     FrameSource
	classifier pipeline.Classifier
	threshold  float64
	logger     *logger.Logger
	items      *aggregator.Aggregator

	// opMu serializes commands that acquire or release the frame source.
	opMu sync.Mutex

	// mu guards everything below. Appends check state under mu, so nothing
	// reaches items once stop has switched the state.
	mu          sync.Mutex
	state       State
	sessionID   string
	version     uint64
	run         *run
	subscribers map[int]chan Update
	nextSubID   int
}

// NewController creates an Idle controller.
func NewController(source FrameSource, classifier pipeline.Classifier, cfg Config, logger *logger.Logger) *Controller {
	return &Controller{
		source:      source,
		classifier:  classifier,
		threshold:   cfg.Threshold,
		logger:      logger,
		items:       aggregator.New(),
		state:       Idle,
		subscribers: make(map[int]chan Update),
	}
}

// Start acquires the frame source and begins classifying frames. It is a
// no-op while Running. On failure the controller is left Idle and the error
// wraps ErrCaptureUnavailable.
//
// ctx bounds source acquisition only; the session runs until Stop.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.start(ctx)
}

func (c *Controller) start(ctx context.Context) error {
	if c.State() == Running {
		return nil
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:       id,
		pipeline: pipeline.New(id, c.classifier, c.logger),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	candidates := make(chan pipeline.Candidate, 1)
	go r.pipeline.Run(runCtx, candidates)

	err := c.source.Configure(ctx, func(frame model.Frame) {
		r.pipeline.Offer(frame)
	})
	if err != nil {
		cancel()
		c.mu.Lock()
		if c.state != Idle {
			c.state = Idle
			c.publishLocked()
		}
		c.mu.Unlock()
		c.logger.Error("Failed to acquire frame source: %v", err)
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	c.mu.Lock()
	c.state = Running
	c.sessionID = id
	c.run = r
	c.publishLocked()
	c.mu.Unlock()

	go c.consume(runCtx, r, candidates)

	c.logger.Info("Session %s started (threshold %.2f)", id, c.threshold)
	return nil
}

// Stop releases the frame source and clears the detected items. Results of
// classifications still in flight are discarded. It is a no-op unless Running.
func (c *Controller) Stop() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.stop()
}

func (c *Controller) stop() error {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return nil
	}
	r := c.run
	c.state = Stopped
	c.sessionID = ""
	c.items.Clear()
	c.publishLocked()
	c.mu.Unlock()

	r.cancel()
	err := c.source.Release()
	<-r.done

	if err != nil {
		c.logger.Error("Session %s: failed to release frame source: %v", r.id, err)
		return fmt.Errorf("release frame source: %w", err)
	}

	c.logger.Info("Session %s stopped", r.id)
	return nil
}

// Reset forgets every detected item without touching the frame source.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items.Len() == 0 {
		return
	}
	c.items.Clear()
	c.publishLocked()
	c.logger.Info("Session %s reset", c.sessionID)
}

// Restart stops the session if it is Running and starts a fresh one with an
// empty detection set.
func (c *Controller) Restart(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.stop(); err != nil {
		c.logger.Warning("Restart continues after stop error: %v", err)
	}
	return c.start(ctx)
}

// Close stops the session and closes every subscription.
func (c *Controller) Close() error {
	err := c.Stop()

	c.mu.Lock()
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
	c.mu.Unlock()

	return err
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current state and items.
func (c *Controller) Snapshot() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked()
}

// Stats returns the counters of the current, or most recent, session run.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()

	if r == nil {
		return Stats{}
	}
	return r.stats()
}

// Subscribe returns a channel receiving an Update on every change, starting
// with the current one. At most buffer updates are kept pending; when the
// subscriber falls behind, the oldest pending update is replaced. The
// returned func cancels the subscription and closes the channel.
func (c *Controller) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	deliver(ch, c.updateLocked())
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(ch)
			}
		})
	}
}

func (c *Controller) consume(ctx context.Context, r *run, candidates <-chan pipeline.Candidate) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case candidate := <-candidates:
			c.accept(r, candidate)
		}
	}
}

// accept applies one candidate: threshold first, then normalization, then
// the session check and dedup under mu.
func (c *Controller) accept(r *run, candidate pipeline.Candidate) {
	if candidate.Confidence < c.threshold {
		r.belowThreshold.Add(1)
		return
	}

	item := normalize.Name(candidate.Label)
	if item == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Running || c.sessionID != candidate.SessionID {
		r.stale.Add(1)
		return
	}
	if !c.items.Add(item) {
		r.duplicates.Add(1)
		return
	}
	r.accepted.Add(1)
	c.publishLocked()
}

func (c *Controller) updateLocked() Update {
	return Update{
		SessionID: c.sessionID,
		State:     c.state,
		Items:     c.items.Snapshot(),
		Version:   c.version,
	}
}

// publishLocked bumps the version and hands the new Update to subscribers.
// Holding mu while publishing keeps updates in version order.
func (c *Controller) publishLocked() {
	c.version++
	update := c.updateLocked()
	for _, ch := range c.subscribers {
		deliver(ch, update)
	}
}

// deliver sends without blocking, evicting the oldest pending update when
// the channel is full. Only publishers holding mu send on ch.
func deliver(ch chan Update, update Update) {
	for {
		select {
		case ch <- update:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
