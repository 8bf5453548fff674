package stellar

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
)

func TestLookup(t *testing.T) {
	n, err := Lookup(" MainNet ")
	require.NoError(t, err)
	assert.Equal(t, "mainnet", n.Name)
	assert.Equal(t, CorePoolID, n.DefaultPool())

	_, err = Lookup("futurenet")
	assert.ErrorIs(t, err, ErrUnknownNetwork)
}

func TestNetwork_Pool(t *testing.T) {
	p, ok := Mainnet.Pool(StablePoolID)
	require.True(t, ok)
	assert.Equal(t, "Stable Pool", p.Name)
	assert.Equal(t, blend.V1, p.Version)

	_, ok = Testnet.Pool(StablePoolID)
	assert.False(t, ok)
	assert.Equal(t, BetaPoolID, Testnet.DefaultPool())
	assert.Equal(t, blend.PoolID(""), Network{}.DefaultPool())
}

func TestDecodeResultJSON(t *testing.T) {
	t.Run("Pool", func(t *testing.T) {
		raw := json.RawMessage(`{
			"metadata": {"id": "` + CorePoolID.String() + `", "name": "Stellar Core Pool", "version": "v2", "backstopRate": 1000000},
			"reserves": [{"assetId": "` + AssetUSDC + `", "symbol": "USDC", "decimals": 7, "supplied": "60000000000000", "borrowed": "0x1"}]
		}`)

		v, err := DecodeResultJSON(source.QueryPool, raw)
		require.NoError(t, err)
		pool, ok := v.(blend.Pool)
		require.True(t, ok)
		assert.Equal(t, CorePoolID, pool.Meta.ID)
		require.Len(t, pool.Reserves, 1)
		assert.Equal(t, uint256.NewInt(60_000_000_000_000), pool.Reserves[0].Supplied)
		assert.Equal(t, uint256.NewInt(1), pool.Reserves[0].Borrowed)
	})

	t.Run("BackstopPoolRejectsBadID", func(t *testing.T) {
		_, err := DecodeResultJSON(source.QueryBackstopPool, json.RawMessage(`{"poolId": "CBAD"}`))
		assert.ErrorIs(t, err, blend.ErrInvalidPoolID)
	})

	t.Run("UnknownQuery", func(t *testing.T) {
		_, err := DecodeResultJSON("positions", json.RawMessage(`{}`))
		assert.ErrorContains(t, err, "unknown query")
	})
}
