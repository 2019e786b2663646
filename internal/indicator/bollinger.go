package indicator

import "github.com/moznion/go-optional"

// Bollinger is one entry of a Bollinger Band series.
type Bollinger struct {
	SMA    optional.Option[float64]
	StdDev optional.Option[float64]
	Upper  optional.Option[float64]
	Lower  optional.Option[float64]
}

// ComputeBollinger computes SMA, sample standard deviation and the bands
// sma ± k*sd over a trailing window of closes. All four values are None for
// indices below window-1, and for every index when len(closes) < window.
func ComputeBollinger(closes []float64, window int, k float64) []Bollinger {
	out := make([]Bollinger, len(closes))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(closes); i++ {
		mean, sd := windowStats(closes[i-window+1 : i+1])
		out[i] = Bollinger{
			SMA:    optional.Some(mean),
			StdDev: optional.Some(sd),
			Upper:  optional.Some(mean + k*sd),
			Lower:  optional.Some(mean - k*sd),
		}
	}
	return out
}
