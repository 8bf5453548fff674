package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/lending-console-go/estimate"
	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
)

func TestFixtures_MatchNetwork(t *testing.T) {
	fx := fixtures()
	require.Len(t, fx, len(stellar.Mainnet.Pools))

	for _, known := range stellar.Mainnet.Pools {
		f, ok := fx[known.ID]
		require.True(t, ok, known.Name)
		assert.Equal(t, known.Name, f.meta.Name)
		assert.Equal(t, known.Version, f.meta.Version)
		assert.Len(t, f.meta.Reserves, len(f.reserves))
		assert.Equal(t, known.ID, f.backstopPool.PoolID)
	}
}

func TestSource_PricesEveryReserve(t *testing.T) {
	ctx := context.Background()
	src := New(WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))

	for _, known := range stellar.Mainnet.Pools {
		meta, err := src.PoolMeta(ctx, known.ID)
		require.NoError(t, err)
		pool, err := src.Pool(ctx, meta)
		require.NoError(t, err)
		oracle, err := src.Oracle(ctx, pool)
		require.NoError(t, err)

		for _, r := range pool.Reserves {
			pd, ok := oracle.Prices[r.AssetID]
			require.True(t, ok, "%s/%s", known.Name, r.Symbol)
			assert.Equal(t, int64(1_700_000_000), pd.Timestamp)
		}

		s := estimate.Build(pool, oracle)
		assert.Equal(t, len(pool.Reserves), s.Reserves)
		assert.Greater(t, s.TotalSupply, s.TotalBorrowed)
	}
}

func TestSource_CoreTVL(t *testing.T) {
	ctx := context.Background()
	src := New()

	meta, err := src.PoolMeta(ctx, stellar.CorePoolID)
	require.NoError(t, err)
	pool, err := src.Pool(ctx, meta)
	require.NoError(t, err)
	oracle, err := src.Oracle(ctx, pool)
	require.NoError(t, err)

	s := estimate.Build(pool, oracle)
	assert.InDelta(t, 12_500_000, s.TotalSupply, 1e-3)
}

func TestSource_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	src := New()

	meta, err := src.PoolMeta(ctx, stellar.CorePoolID)
	require.NoError(t, err)
	meta.Reserves[0] = "mutated"

	again, err := src.PoolMeta(ctx, stellar.CorePoolID)
	require.NoError(t, err)
	assert.Equal(t, stellar.AssetUSDC, again.Reserves[0])
}

func TestSource_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownPool", func(t *testing.T) {
		_, err := New().PoolMeta(ctx, blend.PoolID("CNOPE"))
		assert.ErrorIs(t, err, source.ErrNotFound)
	})

	t.Run("UnknownBackstopVersion", func(t *testing.T) {
		_, err := New().Backstop(ctx, blend.Version("v9"))
		assert.ErrorIs(t, err, source.ErrNotFound)
	})

	t.Run("InjectedFailure", func(t *testing.T) {
		boom := errors.New("boom")
		src := New(WithFailure(source.QueryPool, boom))
		_, err := src.Pool(ctx, blend.PoolMeta{ID: stellar.CorePoolID})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, src.Calls(source.QueryPool))
	})

	t.Run("LatencyHonoursContext", func(t *testing.T) {
		src := New(WithLatency(time.Hour))
		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := src.PoolMeta(cctx, stellar.CorePoolID)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
