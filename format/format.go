// Package format turns raw protocol amounts and rates into the strings shown
// on the dashboard. Every function is pure.
package format

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/holiman/uint256"
)

// Placeholder is rendered wherever a value is not available yet.
const Placeholder = "--"

// ToFloat converts a fixed-point on-chain amount into a float.
//
// Input:
//   - raw: the integer amount as stored by the protocol (nil is treated as 0)
//   - decimals: number of fractional digits encoded in raw
func ToFloat(raw *uint256.Int, decimals int) float64 {
	if raw == nil || raw.IsZero() {
		return 0
	}
	if raw.IsUint64() && decimals <= 15 {
		return float64(raw.Uint64()) / math.Pow10(decimals)
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(raw.ToBig()),
		new(big.Float).SetFloat64(math.Pow10(decimals)),
	).Float64()
	return f
}

var compactUnits = []struct {
	threshold float64
	suffix    string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "k"},
}

const roundsToOne = 0.999995

// ToBalance renders v in compact notation (1.23k, 4.50M, 1.20B).
// Values below one keep enough decimals to show two significant digits.
func ToBalance(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	if v == 0 {
		return "0"
	}

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	// Compare against the smallest value that rounds up to 1.00 of a unit,
	// so 999999 renders as 1.00M rather than 1000.00k.
	for _, u := range compactUnits {
		if v >= u.threshold*roundsToOne {
			return fmt.Sprintf("%s%.2f%s", sign, v/u.threshold, u.suffix)
		}
	}
	if v >= roundsToOne {
		return fmt.Sprintf("%s%.2f", sign, v)
	}

	// small values: leading zeros + 2 significant digits, capped at 7 (stroop precision)
	digits := int(math.Ceil(-math.Log10(v))) + 1
	if digits > 7 {
		digits = 7
	}
	return fmt.Sprintf("%s%.*f", sign, digits, v)
}

// ToUSD renders v as a dollar amount with thousands separators.
func ToUSD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	s := humanize.CommafWithDigits(math.Abs(v), 2)
	// CommafWithDigits trims trailing zeros; pad back to cents.
	if i := strings.IndexByte(s, '.'); i < 0 {
		s += ".00"
	} else if len(s)-i == 2 {
		s += "0"
	}
	if v < 0 {
		return "-$" + s
	}
	return "$" + s
}

// ToPercentage renders a rate expressed as a fraction (0.1234) as "12.34%".
func ToPercentage(rate float64) string {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Placeholder
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}

// ToMillions renders v in millions with two decimals, without a suffix.
func ToMillions(v float64) string {
	return fmt.Sprintf("%.2f", v/1e6)
}

// ToCompactAddress shortens a long account or contract address to its first
// and last four characters.
func ToCompactAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
