// Package estimate derives the dashboard figures of a pool from its raw
// reserves, oracle prices and backstop balance.
//
// Every value here is recomputed from its inputs on each call. Nothing is
// cached, so a new snapshot from the data layer is reflected immediately.
package estimate

import (
	"github.com/defistate/lending-console-go/format"
	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
)

// PoolSummary is the read-only projection of a pool shown on the dashboard.
// Monetary values are in the oracle's quote currency (USD).
type PoolSummary struct {
	Name          string  `json:"name"`
	TotalSupply   float64 `json:"totalSupply"`
	TotalBorrowed float64 `json:"totalBorrowed"`
	AvgSupplyApy  float64 `json:"avgSupplyApy"`
	AvgBorrowApy  float64 `json:"avgBorrowApy"`
	// Reserves counts the reserves that could be priced.
	Reserves int `json:"reserves"`
}

// Utilization returns borrowed/supplied. ok is false when nothing is
// supplied, in which case the ratio is undefined.
func (s PoolSummary) Utilization() (ratio float64, ok bool) {
	if s.TotalSupply <= 0 {
		return 0, false
	}
	return s.TotalBorrowed / s.TotalSupply, true
}

// UtilizationOrZero is Utilization with the undefined case reported as 0.
func (s PoolSummary) UtilizationOrZero() float64 {
	u, _ := s.Utilization()
	return u
}

// Build values every reserve of pool with oracle and aggregates the totals.
// Average APYs are weighted by the supplied and borrowed value respectively.
// Reserves without an oracle price are left out.
func Build(pool blend.Pool, oracle blend.Oracle) PoolSummary {
	s := PoolSummary{Name: pool.Meta.Name}

	var supplyWeighted, borrowWeighted float64
	for _, r := range pool.Reserves {
		price, err := oracle.Price(r.AssetID)
		if err != nil {
			continue
		}
		supplied := format.ToFloat(r.Supplied, r.Decimals) * price
		borrowed := format.ToFloat(r.Borrowed, r.Decimals) * price

		s.TotalSupply += supplied
		s.TotalBorrowed += borrowed
		supplyWeighted += supplied * r.SupplyApy
		borrowWeighted += borrowed * r.BorrowApy
		s.Reserves++
	}

	if s.TotalSupply > 0 {
		s.AvgSupplyApy = supplyWeighted / s.TotalSupply
	}
	if s.TotalBorrowed > 0 {
		s.AvgBorrowApy = borrowWeighted / s.TotalBorrowed
	}
	return s
}

// BackstopEstimate is the valuation of a pool's backstop deposit.
type BackstopEstimate struct {
	TotalSpotValue float64 `json:"totalSpotValue"`
	Tokens         float64 `json:"tokens"`
	Q4WPercent     float64 `json:"q4wPercent"`
}

// BuildBackstop values a pool's backstop balance at the LP token spot price.
func BuildBackstop(backstop blend.Backstop, pool blend.BackstopPool) BackstopEstimate {
	tokens := pool.TokensFloat()
	return BackstopEstimate{
		TotalSpotValue: tokens * backstop.Token.LpTokenPrice,
		Tokens:         tokens,
		Q4WPercent:     pool.Q4WPercent(),
	}
}

// BackstopAPR estimates the annual rate earned by backstop depositors:
//
//	rate * avgBorrowApy * totalBorrowed / spotValue
//
// rate is the pool's backstop take rate as a fraction. The result is 0 when
// spotValue is 0.
func BackstopAPR(rate, avgBorrowApy, totalBorrowed, spotValue float64) float64 {
	if spotValue <= 0 {
		return 0
	}
	return rate * avgBorrowApy * totalBorrowed / spotValue
}

// Dashboard bundles every figure of the pool detail page.
type Dashboard struct {
	Summary     PoolSummary      `json:"summary"`
	Backstop    BackstopEstimate `json:"backstop"`
	BackstopAPR float64          `json:"backstopApr"`
	Utilization *float64         `json:"utilization"` // nil when undefined
}

// BuildDashboard derives the full pool detail projection.
func BuildDashboard(pool blend.Pool, oracle blend.Oracle, backstop blend.Backstop, backstopPool blend.BackstopPool) Dashboard {
	summary := Build(pool, oracle)
	bs := BuildBackstop(backstop, backstopPool)

	d := Dashboard{
		Summary:  summary,
		Backstop: bs,
		BackstopAPR: BackstopAPR(
			pool.Meta.BackstopRateFraction(),
			summary.AvgBorrowApy,
			summary.TotalBorrowed,
			bs.TotalSpotValue,
		),
	}
	if u, ok := summary.Utilization(); ok {
		d.Utilization = &u
	}
	return d
}

// FromSnapshot builds the dashboard of snap. ok is false until every query
// of the snapshot has resolved.
func FromSnapshot(snap source.Snapshot) (d Dashboard, ok bool) {
	if !snap.Ready() {
		return Dashboard{}, false
	}
	return BuildDashboard(*snap.Pool, *snap.Oracle, *snap.Backstop, *snap.BackstopPool), true
}
