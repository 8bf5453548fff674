// Package wizard drives linear, forward-only step sequences: the transaction
// confirmation flow and the onboarding tour.
//
// A Controller holds an active step index in [0, len(steps)-1] and a Draft.
// Advance moves forward by exactly one step once the current step validates.
// Advancing onto a step marked Processing suspends the controller while the
// configured ProcessFunc runs; on success it moves on to the following step,
// on failure it returns to the entry step with the error surfaced in State.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/defistate/lending-console-go/metrics"
)

var (
	// ErrSuspended is returned by every mutating call while a step is processing.
	ErrSuspended = errors.New("wizard: step is processing")

	// ErrAborted is returned by an Advance whose processing was abandoned by
	// Close or Start.
	ErrAborted = errors.New("wizard: processing aborted")
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Step is one named stage of a flow.
type Step struct {
	Name string
	// Validate gates leaving this step; nil accepts any draft.
	Validate func(Draft) error
	// Processing marks a step that is left automatically once Process returns.
	Processing bool
}

// Receipt is the result of a successful process.
type Receipt struct {
	Hash        string
	CompletedAt time.Time
}

// ProcessFunc performs the work of a processing step. It must honour ctx.
type ProcessFunc func(ctx context.Context, d Draft) (Receipt, error)

// Config holds the configuration for a Controller.
type Config struct {
	Flow  string
	Steps []Step
	// Process defaults to SimulatedProcess(ProcessingDelay).
	Process ProcessFunc
	// BackFromLast lets Back leave the last step, for flows whose last step
	// is a page rather than a result.
	BackFromLast bool
	// OnConfirm is called after a successful process, outside the lock.
	// Defaults to logging the submission.
	OnConfirm func(Draft, Receipt)
	Logger    Logger
	Metrics   *metrics.Metrics // optional
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Flow == "" {
		return errors.New("config: Flow is required")
	}
	if len(c.Steps) == 0 {
		return errors.New("config: at least one Step is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	last := len(c.Steps) - 1
	for i, s := range c.Steps {
		if s.Name == "" {
			return fmt.Errorf("config: step %d has no name", i)
		}
		if s.Processing && (i == 0 || i == last) {
			return fmt.Errorf("config: processing step %q cannot be the first or last step", s.Name)
		}
	}
	return nil
}

// State is a point-in-time copy of a controller.
type State struct {
	Flow      string
	Steps     []string
	Index     int
	Draft     Draft
	Suspended bool
	// Validation is the message of the last rejected Advance, cleared on edit.
	Validation string
	// Failure is set when processing failed and the flow returned to its entry step.
	Failure error
	Receipt *Receipt
}

// Step returns the name of the active step.
func (s State) Step() string {
	return s.Steps[s.Index]
}

// Terminal reports whether the active step is the last one.
func (s State) Terminal() bool {
	return s.Index == len(s.Steps)-1
}

// Controller is safe for concurrent use.
type Controller struct {
	flow      string
	steps     []Step
	process   ProcessFunc
	onConfirm func(Draft, Receipt)
	backLast  bool
	logger    Logger
	metrics   *metrics.Metrics

	mu         sync.Mutex
	index      int
	draft      Draft
	suspended  bool
	validation string
	failure    error
	receipt    *Receipt
	epoch      uint64
	abort      context.CancelFunc
}

// New creates a Controller positioned on the first step.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		flow:      cfg.Flow,
		steps:     append([]Step(nil), cfg.Steps...),
		process:   cfg.Process,
		onConfirm: cfg.OnConfirm,
		backLast:  cfg.BackFromLast,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if c.process == nil {
		c.process = SimulatedProcess(ProcessingDelay)
	}
	if c.onConfirm == nil {
		c.onConfirm = func(d Draft, r Receipt) {
			c.logger.Info("Transaction submitted", "flow", c.flow, "kind", d.Kind, "amount", d.Amount, "hash", r.Hash)
		}
	}
	return c, nil
}

// Start resets the controller for a new draft of kind, abandoning any
// in-flight processing.
func (c *Controller) Start(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
	c.resetLocked()
	c.draft.Kind = kind
}

// SetAmount edits the draft amount and clears any validation message.
func (c *Controller) SetAmount(amount string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		return ErrSuspended
	}
	c.draft.Amount = amount
	c.validation = ""
	return nil
}

// Advance validates the active step and moves forward by one. On the last
// step it is a no-op. When the next step is a processing step, Advance blocks
// until processing finishes, ctx is cancelled or the controller is closed.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	if c.suspended {
		c.mu.Unlock()
		return ErrSuspended
	}
	last := len(c.steps) - 1
	if c.index == last {
		c.mu.Unlock()
		return nil
	}

	step := c.steps[c.index]
	if step.Validate != nil {
		if err := step.Validate(c.draft); err != nil {
			verr := &ValidationError{Step: step.Name, Message: err.Error()}
			var inner *ValidationError
			if errors.As(err, &inner) {
				verr.Message = inner.Message
			}
			c.validation = verr.Message
			c.metrics.WizardValidationFailure(c.flow, step.Name)
			c.logger.Debug("Step validation failed", "flow", c.flow, "step", step.Name, "reason", verr.Message)
			c.mu.Unlock()
			return verr
		}
	}
	c.validation = ""
	c.failure = nil
	c.moveLocked(c.index + 1)

	processing := c.steps[c.index]
	if !processing.Processing {
		c.mu.Unlock()
		return nil
	}

	pctx, cancel := context.WithCancel(ctx)
	c.suspended = true
	c.abort = cancel
	epoch := c.epoch
	draft := c.draft
	c.mu.Unlock()

	c.logger.Debug("Processing step", "flow", c.flow, "step", processing.Name)
	receipt, err := c.process(pctx, draft)
	cancel()

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.logger.Info("Processing abandoned", "flow", c.flow, "step", processing.Name)
		return ErrAborted
	}
	c.suspended = false
	c.abort = nil
	if err != nil {
		c.failure = err
		c.moveLocked(0)
		c.mu.Unlock()
		c.logger.Warn("Processing failed, returned to entry step", "flow", c.flow, "step", processing.Name, "error", err)
		return fmt.Errorf("%s: %w", processing.Name, err)
	}
	if receipt.CompletedAt.IsZero() {
		receipt.CompletedAt = time.Now()
	}
	c.receipt = &receipt
	c.moveLocked(c.index + 1)
	c.mu.Unlock()

	c.onConfirm(draft, receipt)
	return nil
}

// Back moves to the previous step. It is a no-op on the first step, and on
// the last one unless BackFromLast is set. It never lands on a processing step.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		return ErrSuspended
	}
	if c.index == 0 || (c.index == len(c.steps)-1 && !c.backLast) {
		return nil
	}
	to := c.index - 1
	for to > 0 && c.steps[to].Processing {
		to--
	}
	c.validation = ""
	c.moveLocked(to)
	return nil
}

// Cancel returns to the first step and discards the draft.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		return ErrSuspended
	}
	c.resetLocked()
	return nil
}

// Close aborts any in-flight processing and resets the controller. It is
// always allowed and the controller stays usable afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
	c.resetLocked()
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.Name
	}
	var receipt *Receipt
	if c.receipt != nil {
		r := *c.receipt
		receipt = &r
	}
	return State{
		Flow:       c.flow,
		Steps:      names,
		Index:      c.index,
		Draft:      c.draft,
		Suspended:  c.suspended,
		Validation: c.validation,
		Failure:    c.failure,
		Receipt:    receipt,
	}
}

func (c *Controller) moveLocked(to int) {
	to = max(0, min(to, len(c.steps)-1))
	if to == c.index {
		return
	}
	from := c.index
	c.index = to
	c.metrics.WizardTransition(c.flow, c.steps[from].Name, c.steps[to].Name)
	c.logger.Debug("Step transition", "flow", c.flow, "from", c.steps[from].Name, "to", c.steps[to].Name)
}

func (c *Controller) resetLocked() {
	c.moveLocked(0)
	c.draft = Draft{}
	c.validation = ""
	c.failure = nil
	c.receipt = nil
}

// abortLocked invalidates the in-flight process, if any.
func (c *Controller) abortLocked() {
	c.epoch++
	if c.abort != nil {
		c.abort()
		c.abort = nil
	}
	c.suspended = false
}
