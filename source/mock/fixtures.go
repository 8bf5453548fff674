package mock

import (
	"github.com/holiman/uint256"

	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/protocols/blend"
)

// fixture is everything the mock knows about one pool.
type fixture struct {
	meta         blend.PoolMeta
	reserves     []blend.Reserve
	backstopPool blend.BackstopPool
}

// amount returns whole token units at the 7 decimals every Stellar asset uses.
func amount(whole uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), uint256.NewInt(10_000_000))
}

// price returns a 7-decimal oracle quote from a value given in 1e-4 USD.
func price(bps uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(bps), uint256.NewInt(1_000))
}

func reserve(asset, symbol string, supplied, borrowed uint64, supplyApy, borrowApy, cFactor float64) blend.Reserve {
	return blend.Reserve{
		AssetID:          asset,
		Symbol:           symbol,
		Decimals:         7,
		Supplied:         amount(supplied),
		Borrowed:         amount(borrowed),
		SupplyApy:        supplyApy,
		BorrowApy:        borrowApy,
		CollateralFactor: cFactor,
		LiabilityFactor:  1 / cFactor,
	}
}

// quotes are shared by every mainnet oracle.
var quotes = map[string]uint64{
	stellar.AssetUSDC: 10_000,
	stellar.AssetUSDT: 10_000,
	stellar.AssetEURC: 10_800,
	stellar.AssetXLM:  1_000,
	stellar.AssetBLND: 500,
	stellar.AssetAQUA: 10,
	stellar.AssetBTC:  600_000_000,
	stellar.AssetETH:  30_000_000,
}

func oracleFor(id string, timestamp int64) blend.Oracle {
	prices := make(map[string]blend.PriceData, len(quotes))
	for asset, q := range quotes {
		prices[asset] = blend.PriceData{Price: price(q), Timestamp: timestamp}
	}
	return blend.Oracle{ID: id, Decimals: 7, Prices: prices}
}

func backstops() map[blend.Version]blend.Backstop {
	return map[blend.Version]blend.Backstop{
		blend.V1: {
			ID:      stellar.Mainnet.Backstops[blend.V1],
			Version: blend.V1,
			Token:   blend.BackstopToken{ID: "comet-v1", Blnd: 41_000_000, Usdc: 520_000, Shares: 5_800_000, LpTokenPrice: 0.45},
		},
		blend.V2: {
			ID:      stellar.Mainnet.Backstops[blend.V2],
			Version: blend.V2,
			Token:   blend.BackstopToken{ID: "comet-v2", Blnd: 62_000_000, Usdc: 780_000, Shares: 7_900_000, LpTokenPrice: 0.5},
		},
	}
}

func fixtures() map[blend.PoolID]fixture {
	meta := func(p stellar.KnownPool, status blend.PoolStatus, rate uint32, reserves []blend.Reserve) blend.PoolMeta {
		ids := make([]string, len(reserves))
		for i, r := range reserves {
			ids[i] = r.AssetID
		}
		return blend.PoolMeta{
			ID:           p.ID,
			Name:         p.Name,
			Version:      p.Version,
			Status:       status,
			Oracle:       p.Oracle,
			BackstopRate: rate,
			Reserves:     ids,
		}
	}
	bp := func(id blend.PoolID, tokens, q4w uint64) blend.BackstopPool {
		return blend.BackstopPool{PoolID: id, Shares: amount(tokens), Tokens: amount(tokens), Q4W: amount(q4w)}
	}

	core := []blend.Reserve{
		reserve(stellar.AssetUSDC, "USDC", 6_000_000, 4_200_000, 0.045, 0.068, 0.95),
		reserve(stellar.AssetXLM, "XLM", 50_000_000, 15_000_000, 0.021, 0.052, 0.75),
		reserve(stellar.AssetBTC, "BTC", 25, 5, 0.004, 0.021, 0.8),
	}
	highYield := []blend.Reserve{
		reserve(stellar.AssetUSDC, "USDC", 4_000_000, 3_400_000, 0.112, 0.141, 0.9),
		reserve(stellar.AssetXLM, "XLM", 40_000_000, 28_000_000, 0.083, 0.124, 0.7),
		reserve(stellar.AssetAQUA, "AQUA", 900_000_000, 450_000_000, 0.151, 0.198, 0.5),
	}
	stable := []blend.Reserve{
		reserve(stellar.AssetUSDC, "USDC", 15_000_000, 9_000_000, 0.038, 0.055, 0.95),
		reserve(stellar.AssetUSDT, "USDT", 7_900_000, 4_000_000, 0.035, 0.052, 0.95),
		reserve(stellar.AssetEURC, "EURC", 2_500_000, 1_000_000, 0.029, 0.047, 0.9),
	}
	beta := []blend.Reserve{
		reserve(stellar.AssetXLM, "XLM", 20_000_000, 8_000_000, 0.092, 0.156, 0.65),
		reserve(stellar.AssetETH, "ETH", 400, 100, 0.061, 0.118, 0.7),
	}

	pools := stellar.Mainnet.Pools
	return map[blend.PoolID]fixture{
		stellar.CorePoolID: {
			meta:         meta(pools[0], blend.StatusActive, 1_000_000, core),
			reserves:     core,
			backstopPool: bp(stellar.CorePoolID, 2_000_000, 100_000),
		},
		stellar.HighYieldPoolID: {
			meta:         meta(pools[1], blend.StatusActive, 2_000_000, highYield),
			reserves:     highYield,
			backstopPool: bp(stellar.HighYieldPoolID, 1_500_000, 300_000),
		},
		stellar.StablePoolID: {
			meta:         meta(pools[2], blend.StatusActive, 500_000, stable),
			reserves:     stable,
			backstopPool: bp(stellar.StablePoolID, 3_000_000, 60_000),
		},
		stellar.BetaPoolID: {
			meta:         meta(pools[3], blend.StatusOnIce, 1_500_000, beta),
			reserves:     beta,
			backstopPool: bp(stellar.BetaPoolID, 400_000, 120_000),
		},
	}
}
