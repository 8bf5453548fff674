// Package mock is an in-memory source.Source serving fixed mainnet-shaped
// fixtures. It backs the console when no RPC endpoint is configured and is
// the default collaborator in tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
)

// Option configures a Source.
type Option func(*Source)

// WithLatency delays every query by d, honouring context cancellation.
func WithLatency(d time.Duration) Option {
	return func(s *Source) {
		s.latency = d
	}
}

// WithFailure makes every call of query fail with err.
func WithFailure(query string, err error) Option {
	return func(s *Source) {
		s.failures[query] = err
	}
}

// WithClock overrides the timestamp stamped on oracle quotes.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
	}
}

// Source serves the mock fixtures.
type Source struct {
	latency   time.Duration
	now       func() time.Time
	pools     map[blend.PoolID]fixture
	backstops map[blend.Version]blend.Backstop

	mu       sync.Mutex
	failures map[string]error
	calls    map[string]int
}

var _ source.Source = (*Source)(nil)

// New returns a Source loaded with the mainnet fixtures.
func New(opts ...Option) *Source {
	s := &Source{
		now:       time.Now,
		pools:     fixtures(),
		backstops: backstops(),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFailure changes the injected failure for query; a nil err clears it.
func (s *Source) SetFailure(query string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, query)
		return
	}
	s.failures[query] = err
}

// Calls returns how many times query was called.
func (s *Source) Calls(query string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[query]
}

// begin records the call, waits out the latency and returns any injected failure.
func (s *Source) begin(ctx context.Context, query string) error {
	s.mu.Lock()
	s.calls[query]++
	failure := s.failures[query]
	s.mu.Unlock()

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return failure
}

func (s *Source) PoolMeta(ctx context.Context, id blend.PoolID) (blend.PoolMeta, error) {
	if err := s.begin(ctx, source.QueryPoolMeta); err != nil {
		return blend.PoolMeta{}, err
	}
	f, ok := s.pools[id]
	if !ok {
		return blend.PoolMeta{}, fmt.Errorf("%w: pool %s", source.ErrNotFound, id)
	}
	meta := f.meta
	meta.Reserves = append([]string(nil), f.meta.Reserves...)
	return meta, nil
}

func (s *Source) Pool(ctx context.Context, meta blend.PoolMeta) (blend.Pool, error) {
	if err := s.begin(ctx, source.QueryPool); err != nil {
		return blend.Pool{}, err
	}
	f, ok := s.pools[meta.ID]
	if !ok {
		return blend.Pool{}, fmt.Errorf("%w: pool %s", source.ErrNotFound, meta.ID)
	}
	reserves := make([]blend.Reserve, len(f.reserves))
	copy(reserves, f.reserves)
	return blend.Pool{Meta: meta, Reserves: reserves}, nil
}

func (s *Source) Oracle(ctx context.Context, pool blend.Pool) (blend.Oracle, error) {
	if err := s.begin(ctx, source.QueryOracle); err != nil {
		return blend.Oracle{}, err
	}
	if pool.Meta.Oracle == "" {
		return blend.Oracle{}, fmt.Errorf("%w: pool %s has no oracle", source.ErrNotFound, pool.Meta.ID)
	}
	return oracleFor(pool.Meta.Oracle, s.now().Unix()), nil
}

func (s *Source) Backstop(ctx context.Context, version blend.Version) (blend.Backstop, error) {
	if err := s.begin(ctx, source.QueryBackstop); err != nil {
		return blend.Backstop{}, err
	}
	b, ok := s.backstops[version]
	if !ok {
		return blend.Backstop{}, fmt.Errorf("%w: backstop %s", source.ErrNotFound, version)
	}
	return b, nil
}

func (s *Source) BackstopPool(ctx context.Context, meta blend.PoolMeta) (blend.BackstopPool, error) {
	if err := s.begin(ctx, source.QueryBackstopPool); err != nil {
		return blend.BackstopPool{}, err
	}
	f, ok := s.pools[meta.ID]
	if !ok {
		return blend.BackstopPool{}, fmt.Errorf("%w: backstop pool %s", source.ErrNotFound, meta.ID)
	}
	return f.backstopPool, nil
}
