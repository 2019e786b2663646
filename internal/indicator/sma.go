package indicator

import "math"

// windowStats returns the mean and the sample standard deviation (n-1
// denominator) of xs. Sums are taken relative to xs[0], so a window of equal
// values yields exactly that value and a deviation of exactly zero.
// xs must not be empty.
func windowStats(xs []float64) (mean, stdDev float64) {
	n := float64(len(xs))
	shift := xs[0]

	var sum, sumSq float64
	for _, x := range xs {
		d := x - shift
		sum += d
		sumSq += d * d
	}
	mean = shift + sum/n

	if len(xs) < 2 {
		return mean, 0
	}
	variance := (sumSq - sum*sum/n) / (n - 1)
	if variance < 0 {
		// rounding on nearly flat windows
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
