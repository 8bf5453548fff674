// Package markets holds the market list view model: the catalogue of known
// lending markets, their ordering and totals, and the compare selection.
package markets

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/defistate/lending-console-go/estimate"
	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/protocols/blend"
)

// Market is one row of the market list. Rates and utilization are fractions.
type Market struct {
	ID            blend.PoolID `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	TVL           float64      `json:"tvl"`
	TotalBorrowed float64      `json:"totalBorrowed"`
	Utilization   float64      `json:"utilization"`
	AvgSupplyApy  float64      `json:"avgSupplyApy"`
	AvgBorrowApy  float64      `json:"avgBorrowApy"`
	BackstopApr   float64      `json:"backstopApr"`
	Assets        int          `json:"assets"`
	RiskScore     int          `json:"riskScore"`
	Active        bool         `json:"active"`
	Volume24h     float64      `json:"volume24h"`
	Users         int          `json:"users"`
}

// Risk returns the band of the market's risk score.
func (m Market) Risk() Risk {
	return RiskBand(m.RiskScore)
}

// WithDashboard overlays the live figures of d on m. Figures that are not
// on chain (risk, volume, users) are kept.
func (m Market) WithDashboard(d estimate.Dashboard) Market {
	m.TVL = d.Summary.TotalSupply
	m.TotalBorrowed = d.Summary.TotalBorrowed
	m.AvgSupplyApy = d.Summary.AvgSupplyApy
	m.AvgBorrowApy = d.Summary.AvgBorrowApy
	m.BackstopApr = d.BackstopAPR
	m.Assets = d.Summary.Reserves
	m.Utilization = d.Summary.UtilizationOrZero()
	return m
}

// Catalogue returns the markets shown before any live data arrives.
// A fresh slice is returned on every call.
func Catalogue() []Market {
	return []Market{
		{
			ID:            stellar.CorePoolID,
			Name:          "Stellar Core Pool",
			Description:   "Primary lending pool for major assets",
			TVL:           12_500_000,
			TotalBorrowed: 8_750_000,
			Utilization:   0.70,
			AvgSupplyApy:  0.052,
			AvgBorrowApy:  0.085,
			BackstopApr:   0.123,
			Assets:        8,
			RiskScore:     85,
			Active:        true,
			Volume24h:     2_400_000,
			Users:         1250,
		},
		{
			ID:            stellar.HighYieldPoolID,
			Name:          "High Yield Pool",
			Description:   "Higher risk, higher reward lending pool",
			TVL:           8_900_000,
			TotalBorrowed: 6_200_000,
			Utilization:   0.697,
			AvgSupplyApy:  0.078,
			AvgBorrowApy:  0.112,
			BackstopApr:   0.156,
			Assets:        6,
			RiskScore:     78,
			Active:        true,
			Volume24h:     1_800_000,
			Users:         890,
		},
		{
			ID:            stellar.StablePoolID,
			Name:          "Stable Pool",
			Description:   "Conservative pool focused on stablecoins",
			TVL:           25_600_000,
			TotalBorrowed: 18_400_000,
			Utilization:   0.719,
			AvgSupplyApy:  0.034,
			AvgBorrowApy:  0.058,
			BackstopApr:   0.087,
			Assets:        4,
			RiskScore:     92,
			Active:        true,
			Volume24h:     3_200_000,
			Users:         2100,
		},
		{
			ID:            stellar.BetaPoolID,
			Name:          "Beta Pool",
			Description:   "Experimental pool with higher risk and rewards",
			TVL:           3_200_000,
			TotalBorrowed: 1_800_000,
			Utilization:   0.563,
			AvgSupplyApy:  0.125,
			AvgBorrowApy:  0.187,
			BackstopApr:   0.221,
			Assets:        12,
			RiskScore:     65,
			Active:        false,
			Volume24h:     850_000,
			Users:         320,
		},
	}
}

// --- Ordering ---

// SortKey selects the column the market list is ordered by.
type SortKey string

const (
	SortTVL         SortKey = "tvl"
	SortAPY         SortKey = "apy"
	SortUtilization SortKey = "utilization"
)

// SortKeys lists every key in display order.
var SortKeys = []SortKey{SortTVL, SortAPY, SortUtilization}

var ErrUnknownSortKey = errors.New("markets: unknown sort key")

// ParseSortKey parses s, defaulting to SortTVL when s is empty.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortTVL, nil
	case SortTVL, SortAPY, SortUtilization:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
}

func (k SortKey) value(m Market) float64 {
	switch k {
	case SortAPY:
		return m.AvgSupplyApy
	case SortUtilization:
		return m.Utilization
	default:
		return m.TVL
	}
}

// Sort returns a copy of markets ordered by key, highest first. Ties keep
// their input order.
func Sort(markets []Market, key SortKey) []Market {
	out := slices.Clone(markets)
	slices.SortStableFunc(out, func(a, b Market) int {
		return cmp.Compare(key.value(b), key.value(a))
	})
	return out
}

// --- Totals ---

// Totals are the header figures of the market list.
type Totals struct {
	TVL            float64 `json:"tvl"`
	Borrowed       float64 `json:"borrowed"`
	AvgUtilization float64 `json:"avgUtilization"`
}

// Summarize adds up markets. AvgUtilization is the plain mean, 0 for none.
func Summarize(markets []Market) Totals {
	var t Totals
	if len(markets) == 0 {
		return t
	}
	var util float64
	for _, m := range markets {
		t.TVL += m.TVL
		t.Borrowed += m.TotalBorrowed
		util += m.Utilization
	}
	t.AvgUtilization = util / float64(len(markets))
	return t
}

// --- Risk ---

// Risk is a coarse band over the 0-100 risk score; higher scores are safer.
type Risk int

const (
	RiskHigh Risk = iota
	RiskMedium
	RiskLow
)

func (r Risk) String() string {
	switch r {
	case RiskLow:
		return "Low Risk"
	case RiskMedium:
		return "Medium Risk"
	default:
		return "High Risk"
	}
}

// RiskBand maps a score to its band.
func RiskBand(score int) Risk {
	switch {
	case score >= 85:
		return RiskLow
	case score >= 70:
		return RiskMedium
	default:
		return RiskHigh
	}
}
