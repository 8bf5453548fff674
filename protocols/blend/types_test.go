package blend

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolMeta_BackstopRateFraction(t *testing.T) {
	m := PoolMeta{BackstopRate: 2_000_000}
	assert.InDelta(t, 0.2, m.BackstopRateFraction(), 1e-12)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("2")
	require.NoError(t, err)
	assert.Equal(t, V2, v)

	_, err = ParseVersion("v9")
	assert.Error(t, err)
}

func TestOracle_Price(t *testing.T) {
	o := Oracle{
		Decimals: 7,
		Prices: map[string]PriceData{
			"usdc": {Price: uint256.NewInt(10_000_000)},
		},
	}

	p, err := o.Price("usdc")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p, 1e-12)

	_, err = o.Price("xlm")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestBackstopPool_Q4WPercent(t *testing.T) {
	bp := BackstopPool{
		Shares: uint256.NewInt(1_000_000_000),
		Tokens: uint256.NewInt(2_000_000_000),
		Q4W:    uint256.NewInt(250_000_000),
	}
	assert.InDelta(t, 0.25, bp.Q4WPercent(), 1e-12)
	assert.InDelta(t, 200.0, bp.TokensFloat(), 1e-9)

	assert.Equal(t, 0.0, BackstopPool{}.Q4WPercent(), "zero shares must not divide")
}

func TestReserve_JSONAmounts(t *testing.T) {
	in := Reserve{AssetID: "usdc", Symbol: "USDC", Decimals: 7, Supplied: uint256.NewInt(42), Borrowed: uint256.NewInt(7)}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out Reserve
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, uint64(42), out.Supplied.Uint64())
	assert.Equal(t, uint64(7), out.Borrowed.Uint64())
}

func TestIndexableReserves(t *testing.T) {
	reserves := []Reserve{
		{AssetID: "a-usdc", Symbol: "USDC"},
		{AssetID: "a-xlm", Symbol: "XLM"},
		{AssetID: "a-usdc-2", Symbol: "usdc"},
	}
	idx := NewIndexer().Index(reserves)

	r, ok := idx.GetByAsset("a-xlm")
	require.True(t, ok)
	assert.Equal(t, "XLM", r.Symbol)

	r, ok = idx.GetBySymbol("Usdc")
	require.True(t, ok)
	assert.Equal(t, "a-usdc", r.AssetID, "first reserve wins on duplicate symbols")

	_, ok = idx.GetByAsset("missing")
	assert.False(t, ok)

	all := idx.All()
	require.Len(t, all, 3)
	all[0].Symbol = "MUTATED"
	again, _ := idx.GetByAsset("a-usdc")
	assert.Equal(t, "USDC", again.Symbol, "All must return a defensive copy")
	assert.Equal(t, 3, idx.Len())
}
