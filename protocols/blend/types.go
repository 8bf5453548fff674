// Package blend holds the read-only views of a lending pool as returned by
// the data-fetch boundary: pool metadata, reserves, oracle prices and
// backstop state. Nothing in this package talks to the network.
package blend

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/defistate/lending-console-go/format"
)

// RateDecimals is the fixed-point scale of rates stored on chain (7 decimals).
const RateDecimals = 7

const rateScalar = 1e7

// Version is the protocol version a pool was deployed with.
type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
)

// ParseVersion parses "v1"/"v2" (also accepts "1"/"2").
func ParseVersion(s string) (Version, error) {
	switch s {
	case "v1", "1":
		return V1, nil
	case "v2", "2":
		return V2, nil
	default:
		return "", fmt.Errorf("unknown pool version %q", s)
	}
}

// PoolStatus mirrors the on-chain pool status codes.
type PoolStatus uint8

const (
	StatusActive PoolStatus = iota
	StatusOnIce
	StatusFrozen
	StatusSetup
)

func (s PoolStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusOnIce:
		return "on-ice"
	case StatusFrozen:
		return "frozen"
	case StatusSetup:
		return "setup"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// PoolMeta is the static configuration of a pool.
type PoolMeta struct {
	ID      PoolID     `json:"id"`
	Name    string     `json:"name"`
	Version Version    `json:"version"`
	Status  PoolStatus `json:"status"`
	Oracle  string     `json:"oracle"`
	// BackstopRate is the share of interest paid to the backstop, 7-decimal fixed point.
	BackstopRate uint32   `json:"backstopRate"`
	Reserves     []string `json:"reserves"` // asset ids in reserve index order
}

// BackstopRateFraction returns BackstopRate as a fraction (0.1 for 10%).
func (m PoolMeta) BackstopRateFraction() float64 {
	return float64(m.BackstopRate) / rateScalar
}

// Reserve is the lending state of one asset inside a pool.
type Reserve struct {
	AssetID  string `json:"assetId"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`

	// Supplied and Borrowed are raw token amounts scaled by Decimals.
	Supplied *uint256.Int `json:"supplied"`
	Borrowed *uint256.Int `json:"borrowed"`

	SupplyApy        float64 `json:"supplyApy"`
	BorrowApy        float64 `json:"borrowApy"`
	CollateralFactor float64 `json:"collateralFactor"`
	LiabilityFactor  float64 `json:"liabilityFactor"`
}

// Pool is the live state of a pool: its metadata and every reserve.
type Pool struct {
	Meta     PoolMeta  `json:"metadata"`
	Reserves []Reserve `json:"reserves"`
}

// PriceData is a single oracle quote.
type PriceData struct {
	Price     *uint256.Int `json:"price"`
	Timestamp int64        `json:"timestamp"`
}

// Oracle is the price set used to value a pool's reserves.
type Oracle struct {
	ID       string               `json:"id"`
	Decimals int                  `json:"decimals"`
	Prices   map[string]PriceData `json:"prices"` // keyed by asset id
}

// ErrNoPrice is returned when the oracle has no quote for an asset.
var ErrNoPrice = errors.New("no oracle price for asset")

// Price returns the quote for asset as a float.
func (o Oracle) Price(asset string) (float64, error) {
	pd, ok := o.Prices[asset]
	if !ok || pd.Price == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoPrice, asset)
	}
	return format.ToFloat(pd.Price, o.Decimals), nil
}

// BackstopToken describes the LP token deposited into the backstop.
type BackstopToken struct {
	ID           string  `json:"id"`
	Blnd         float64 `json:"blnd"`
	Usdc         float64 `json:"usdc"`
	Shares       float64 `json:"shares"`
	LpTokenPrice float64 `json:"lpTokenPrice"` // USD value of one LP token
}

// Backstop is the protocol-wide backstop contract state for one version.
type Backstop struct {
	ID      string        `json:"id"`
	Version Version       `json:"version"`
	Token   BackstopToken `json:"backstopToken"`
}

// BackstopPool is a single pool's balance inside the backstop.
type BackstopPool struct {
	PoolID PoolID `json:"poolId"`
	// Shares, Tokens and Q4W (queued for withdrawal) are 7-decimal raw amounts.
	Shares *uint256.Int `json:"shares"`
	Tokens *uint256.Int `json:"tokens"`
	Q4W    *uint256.Int `json:"q4w"`
}

// TokensFloat returns Tokens in whole LP tokens.
func (b BackstopPool) TokensFloat() float64 {
	return format.ToFloat(b.Tokens, RateDecimals)
}

// Q4WPercent returns the fraction of shares queued for withdrawal.
func (b BackstopPool) Q4WPercent() float64 {
	shares := format.ToFloat(b.Shares, RateDecimals)
	if shares == 0 {
		return 0
	}
	return format.ToFloat(b.Q4W, RateDecimals) / shares
}
