package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/defistate/lending-console-go/metrics"
	"github.com/defistate/lending-console-go/protocols/blend"
)

// LoaderConfig holds the configuration for a Loader.
type LoaderConfig struct {
	Source  Source
	Logger  Logger
	Metrics *metrics.Metrics // optional
}

func (c *LoaderConfig) validate() error {
	if c.Source == nil {
		return errors.New("config: Source is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Loader resolves a full Snapshot for a pool id.
type Loader struct {
	src     Source
	logger  Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Loader{
		src:     cfg.Source,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     time.Now,
	}, nil
}

// Load resolves every query for id.
//
// The metadata is fetched first; the pool, backstop and backstop pool are then
// fetched concurrently, and the oracle once the pool is known. On error the
// partially resolved snapshot is returned along with the first error, so
// callers can keep showing what is already known.
func (l *Loader) Load(ctx context.Context, id blend.PoolID) (Snapshot, error) {
	snap := Snapshot{PoolID: id}

	meta, err := observe(l, QueryPoolMeta, func() (blend.PoolMeta, error) {
		return l.src.PoolMeta(ctx, id)
	})
	if err != nil {
		return snap, fmt.Errorf("%s: %w", QueryPoolMeta, err)
	}
	snap.Meta = &meta

	// each goroutine writes its own field; mu guards the snapshot as a whole
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pool, err := observe(l, QueryPool, func() (blend.Pool, error) {
			return l.src.Pool(gctx, meta)
		})
		if err != nil {
			return fmt.Errorf("%s: %w", QueryPool, err)
		}
		mu.Lock()
		snap.Pool = &pool
		mu.Unlock()

		oracle, err := observe(l, QueryOracle, func() (blend.Oracle, error) {
			return l.src.Oracle(gctx, pool)
		})
		if err != nil {
			return fmt.Errorf("%s: %w", QueryOracle, err)
		}
		mu.Lock()
		snap.Oracle = &oracle
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		backstop, err := observe(l, QueryBackstop, func() (blend.Backstop, error) {
			return l.src.Backstop(gctx, meta.Version)
		})
		if err != nil {
			return fmt.Errorf("%s: %w", QueryBackstop, err)
		}
		mu.Lock()
		snap.Backstop = &backstop
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		bp, err := observe(l, QueryBackstopPool, func() (blend.BackstopPool, error) {
			return l.src.BackstopPool(gctx, meta)
		})
		if err != nil {
			return fmt.Errorf("%s: %w", QueryBackstopPool, err)
		}
		mu.Lock()
		snap.BackstopPool = &bp
		mu.Unlock()
		return nil
	})

	err = g.Wait()
	snap.FetchedAt = l.now()
	if err != nil {
		l.logger.Warn("Pool snapshot incomplete", "pool", id, "pending", snap.Pending(), "error", err)
		return snap, err
	}

	l.logger.Debug("Pool snapshot loaded", "pool", id, "reserves", len(snap.Pool.Reserves))
	return snap, nil
}

// observe times fn and records it against query.
func observe[T any](l *Loader, query string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	l.metrics.ObserveFetch(query, time.Since(start), err)
	return v, err
}
