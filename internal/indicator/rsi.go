package indicator

import "github.com/moznion/go-optional"

// ComputeRSI calculates the Relative Strength Index of closes.
//
// delta[i] = close[i] - close[i-1] is split into gains and losses, which are
// averaged over the trailing window (simple mean, or Wilder smoothing seeded
// by the simple mean). RSI = 100 - 100/(1 + avgGain/avgLoss), and 100 when
// avgLoss is zero. The first value appears at index window, since window
// deltas need window+1 closes; everything before is None.
func ComputeRSI(closes []float64, window int, smoothing Smoothing) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(closes))
	if window <= 0 || len(closes) < window+1 {
		return out
	}

	// gains[i], losses[i] describe the move into bar i; index 0 is unused.
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	w := float64(window)

	if smoothing == SmoothingWilder {
		var avgGain, avgLoss float64
		for i := 1; i <= window; i++ {
			avgGain += gains[i]
			avgLoss += losses[i]
		}
		avgGain /= w
		avgLoss /= w
		out[window] = optional.Some(rsiFromAverages(avgGain, avgLoss))

		for i := window + 1; i < len(closes); i++ {
			avgGain = (avgGain*(w-1) + gains[i]) / w
			avgLoss = (avgLoss*(w-1) + losses[i]) / w
			out[i] = optional.Some(rsiFromAverages(avgGain, avgLoss))
		}
		return out
	}

	for i := window; i < len(closes); i++ {
		var sumGain, sumLoss float64
		for j := i - window + 1; j <= i; j++ {
			sumGain += gains[j]
			sumLoss += losses[j]
		}
		out[i] = optional.Some(rsiFromAverages(sumGain/w, sumLoss/w))
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
