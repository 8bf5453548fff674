// Package poolfeed keeps one pool's snapshot fresh by polling a loader on an
// interval and publishing every result on a channel.
package poolfeed

import (
	"context"
	"errors"
	"time"

	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
)

// Constants for retry logic
const (
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 30 * time.Second

	defaultInterval = 30 * time.Second
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Loader resolves a pool snapshot. *source.Loader satisfies it.
type Loader interface {
	Load(ctx context.Context, id blend.PoolID) (source.Snapshot, error)
}

// Config holds the configuration for a Feed.
type Config struct {
	Loader     Loader
	PoolID     blend.PoolID
	Logger     Logger
	BufferSize uint
	Interval   time.Duration // defaults to 30s

	// Retry delays after a failed load; default 1s doubling up to 30s.
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Loader == nil {
		return errors.New("config: Loader is required")
	}
	if c.PoolID == "" {
		return errors.New("config: PoolID is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.BufferSize < 1 {
		return errors.New("config: BufferSize must be greater than 0")
	}
	if c.Interval < 0 || c.InitialRetryDelay < 0 || c.MaxRetryDelay < 0 {
		return errors.New("config: durations must not be negative")
	}
	return nil
}

// Feed polls a single pool.
type Feed struct {
	loader    Loader
	poolID    blend.PoolID
	interval  time.Duration
	minDelay  time.Duration
	maxDelay  time.Duration
	snapCh    chan source.Snapshot
	errCh     chan error
	refreshCh chan struct{}
	logger    Logger
}

// NewFeed creates a Feed and starts polling until ctx is cancelled.
func NewFeed(ctx context.Context, cfg Config) (*Feed, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.InitialRetryDelay == 0 {
		cfg.InitialRetryDelay = initialRetryDelay
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = maxRetryDelay
	}

	f := &Feed{
		loader:    cfg.Loader,
		poolID:    cfg.PoolID,
		interval:  cfg.Interval,
		minDelay:  cfg.InitialRetryDelay,
		maxDelay:  cfg.MaxRetryDelay,
		snapCh:    make(chan source.Snapshot, cfg.BufferSize),
		errCh:     make(chan error, 1),
		refreshCh: make(chan struct{}, 1),
		logger:    cfg.Logger,
	}

	go f.run(ctx)
	return f, nil
}

// Snapshots returns a read-only channel of snapshots, partial ones included.
// It is closed when the feed stops.
func (f *Feed) Snapshots() <-chan source.Snapshot {
	return f.snapCh
}

// Err returns a read-only channel for receiving fatal (unrecoverable) errors.
func (f *Feed) Err() <-chan error {
	return f.errCh
}

// Refresh asks for an immediate reload. It never blocks; refreshes requested
// while one is already pending are coalesced.
func (f *Feed) Refresh() {
	select {
	case f.refreshCh <- struct{}{}:
	default:
	}
}

// run handles the entire lifecycle of the feed, including retries.
func (f *Feed) run(ctx context.Context) {
	defer close(f.snapCh)
	defer close(f.errCh)
	retryDelay := f.minDelay

	for {
		if ctx.Err() != nil {
			f.logger.Info("Feed context canceled, shutting down.", "pool", f.poolID)
			return
		}

		snap, err := f.loader.Load(ctx, f.poolID)
		if ctx.Err() != nil {
			f.logger.Info("Feed context canceled during load, shutting down.", "pool", f.poolID)
			return
		}
		if errors.Is(err, source.ErrNotFound) {
			f.logger.Error("Pool not found, stopping feed.", "pool", f.poolID, "error", err)
			f.errCh <- err
			return
		}

		select {
		case f.snapCh <- snap:
		case <-ctx.Done():
			return
		}

		wait := f.interval
		if err != nil {
			f.logger.Warn("Pool load failed, will retry...", "pool", f.poolID, "error", err, "delay", retryDelay)
			wait = retryDelay
			retryDelay = min(retryDelay*2, f.maxDelay)
		} else {
			retryDelay = f.minDelay // Reset delay on success
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			f.logger.Info("Feed context canceled, shutting down.", "pool", f.poolID)
			return
		case <-f.refreshCh:
			timer.Stop()
			f.logger.Debug("Refresh requested", "pool", f.poolID)
		case <-timer.C:
		}
	}
}
