package variation

import "math"

// regime is the discrete behavior selected by a continuous parameter: a value
// in (k-1, k] selects regime k. Regime 0 means the operation does nothing.
type regime int

// resolveRegime splits a continuous parameter x into its regime among n
// regimes and a blend weight in (0, 1], the offset of x from the lower bound
// of the regime. Values <= 0, above n or NaN resolve to regime 0.
func resolveRegime(x float64, n int) (regime, float64) {
	if !(x > 0) || x > float64(n) {
		return 0, 0
	}
	k := math.Ceil(x)
	return regime(k), x - (k - 1)
}
