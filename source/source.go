// Package source is the data-fetch boundary of the console. A Source resolves
// the five read-only queries a pool page depends on; a Loader chains them in
// dependency order into a Snapshot.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/defistate/lending-console-go/protocols/blend"
)

// ErrNotFound is returned when the queried pool (or its backstop entry) does
// not exist upstream.
var ErrNotFound = errors.New("not found")

// Query names, used for logging, metrics and cache keys.
const (
	QueryPoolMeta     = "pool_meta"
	QueryPool         = "pool"
	QueryOracle       = "oracle"
	QueryBackstop     = "backstop"
	QueryBackstopPool = "backstop_pool"
)

// Source is the external collaborator that owns pool data. Every method is a
// read; none of them mutate upstream state.
//
// The queries depend on each other the same way the protocol does:
// meta -> pool -> oracle, meta.Version -> backstop, meta -> backstop pool.
type Source interface {
	PoolMeta(ctx context.Context, id blend.PoolID) (blend.PoolMeta, error)
	Pool(ctx context.Context, meta blend.PoolMeta) (blend.Pool, error)
	Oracle(ctx context.Context, pool blend.Pool) (blend.Oracle, error)
	Backstop(ctx context.Context, version blend.Version) (blend.Backstop, error)
	BackstopPool(ctx context.Context, meta blend.PoolMeta) (blend.BackstopPool, error)
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Snapshot is everything known about one pool at a point in time.
// A nil field means that query is still pending or its data is absent.
type Snapshot struct {
	PoolID       blend.PoolID
	Meta         *blend.PoolMeta
	Pool         *blend.Pool
	Oracle       *blend.Oracle
	Backstop     *blend.Backstop
	BackstopPool *blend.BackstopPool
	FetchedAt    time.Time
}

// Ready reports whether every query resolved.
func (s Snapshot) Ready() bool {
	return s.Meta != nil && s.Pool != nil && s.Oracle != nil && s.Backstop != nil && s.BackstopPool != nil
}

// Pending lists the queries that have not resolved yet.
func (s Snapshot) Pending() []string {
	var pending []string
	if s.Meta == nil {
		pending = append(pending, QueryPoolMeta)
	}
	if s.Pool == nil {
		pending = append(pending, QueryPool)
	}
	if s.Oracle == nil {
		pending = append(pending, QueryOracle)
	}
	if s.Backstop == nil {
		pending = append(pending, QueryBackstop)
	}
	if s.BackstopPool == nil {
		pending = append(pending, QueryBackstopPool)
	}
	return pending
}
