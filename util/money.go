package util

import "math"

// CentsFromUSD converts a dollar amount to whole cents, rounding up. Any
// positive amount costs at least one cent.
func CentsFromUSD(usd float64) int {
	if usd <= 0 {
		return 0
	}
	// tolerate float noise such as 0.06*100 = 6.000000000000001
	cents := int(math.Ceil(usd*100 - 1e-9))
	return max(cents, 1)
}
