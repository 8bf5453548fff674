package poolfeed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
)

// TrackerConfig holds the configuration for a Tracker.
type TrackerConfig struct {
	Loader   Loader
	Logger   Logger
	Interval time.Duration // per feed; defaults to 30s
	// MaxPools caps the number of pools followed at once; 0 means 64.
	MaxPools int
	// FailureTTL is how long the fatal error of a stopped feed is remembered;
	// 0 means one minute. Failed pools do not count towards MaxPools.
	FailureTTL time.Duration
}

func (c *TrackerConfig) validate() error {
	if c.Loader == nil {
		return errors.New("config: Loader is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Interval < 0 || c.MaxPools < 0 || c.FailureTTL < 0 {
		return errors.New("config: Interval, MaxPools and FailureTTL must not be negative")
	}
	return nil
}

// ErrTooManyPools is returned when a new pool would exceed MaxPools.
var ErrTooManyPools = errors.New("poolfeed: too many pools tracked")

type tracked struct {
	snap source.Snapshot
	have bool
}

// Tracker follows many pools, starting a Feed for each on first request and
// keeping the latest snapshot of every one.
type Tracker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      TrackerConfig
	wg       sync.WaitGroup
	mu       sync.RWMutex
	pools    map[blend.PoolID]*tracked
	maxPools int

	// failed holds the fatal error of pools whose feed stopped.
	failed *cache.Cache
}

// NewTracker creates a Tracker whose feeds run until ctx is cancelled or
// Close is called.
func NewTracker(ctx context.Context, cfg TrackerConfig) (*Tracker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	t := &Tracker{
		cfg:      cfg,
		pools:    make(map[blend.PoolID]*tracked),
		maxPools: cfg.MaxPools,
	}
	if t.maxPools == 0 {
		t.maxPools = 64
	}
	ttl := cfg.FailureTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	// No janitor goroutine; expired entries are swept on insert.
	t.failed = cache.New(ttl, 0)
	t.ctx, t.cancel = context.WithCancel(ctx)
	return t, nil
}

// Latest returns the most recent snapshot of id, starting its feed when id
// is new. Until the first load finishes the snapshot is empty apart from
// PoolID. The error is the fatal error of a feed that stopped within the
// last FailureTTL, such as source.ErrNotFound.
func (t *Tracker) Latest(id blend.PoolID) (source.Snapshot, error) {
	if snap, ok, err := t.Peek(id); ok {
		return snap, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.pools[id]; ok {
		return p.current(id), nil
	}
	if err := t.failure(id); err != nil {
		return source.Snapshot{PoolID: id}, err
	}
	if len(t.pools) >= t.maxPools {
		return source.Snapshot{PoolID: id}, ErrTooManyPools
	}
	if err := t.ctx.Err(); err != nil {
		return source.Snapshot{PoolID: id}, err
	}

	feed, err := NewFeed(t.ctx, Config{
		Loader:     t.cfg.Loader,
		PoolID:     id,
		Logger:     t.cfg.Logger,
		BufferSize: 1,
		Interval:   t.cfg.Interval,
	})
	if err != nil {
		return source.Snapshot{PoolID: id}, err
	}
	t.pools[id] = &tracked{}
	t.wg.Add(1)
	go t.follow(id, feed)

	t.cfg.Logger.Info("Tracking pool", "pool", id)
	return source.Snapshot{PoolID: id}, nil
}

// Peek returns what is known about id without starting a feed. ok is false
// when id is not tracked.
func (t *Tracker) Peek(id blend.PoolID) (source.Snapshot, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.pools[id]
	if !ok {
		if err := t.failure(id); err != nil {
			return source.Snapshot{PoolID: id}, true, err
		}
		return source.Snapshot{}, false, nil
	}
	return p.current(id), true, nil
}

// failure returns the remembered fatal error of id, or nil.
func (t *Tracker) failure(id blend.PoolID) error {
	if v, ok := t.failed.Get(id.String()); ok {
		return v.(error)
	}
	return nil
}

// Close stops every feed and waits for them to exit.
func (t *Tracker) Close() {
	t.cancel()
	t.wg.Wait()
}

func (t *Tracker) follow(id blend.PoolID, feed *Feed) {
	defer t.wg.Done()
	for snap := range feed.Snapshots() {
		t.mu.Lock()
		p := t.pools[id]
		p.snap, p.have = snap, true
		t.mu.Unlock()
	}
	err, ok := <-feed.Err()
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pools, id)
	if ok && err != nil {
		t.failed.DeleteExpired()
		t.failed.SetDefault(id.String(), err)
		t.cfg.Logger.Info("Stopped tracking pool", "pool", id, "error", err)
	}
}

func (p *tracked) current(id blend.PoolID) source.Snapshot {
	if !p.have {
		return source.Snapshot{PoolID: id}
	}
	return p.snap
}
