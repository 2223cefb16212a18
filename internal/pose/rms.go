package pose

import (
	"math"
	"time"

	"github.com/kestrelworks/spatial-core/internal/signal"
)

// RMS applies exponential (half-life parameterized) moving-average
// smoothing to the squared input magnitude and emits the square root:
// a time-constant RMS suitable for "shake strength" metrics.
//
// The first sample seeds the average. The half-life is the elapsed time
// over which an old contribution decays to half weight; a non-positive
// half-life passes values through unsmoothed.
func RMS(s signal.Signal[Scalar], halfLife time.Duration) signal.Signal[Scalar] {
	if halfLife <= 0 {
		return s
	}
	hl := halfLife.Seconds()
	return signal.Func[Scalar](func(o signal.Observer[Scalar]) signal.Teardown {
		var meanSq float64
		var lastTime time.Time
		seen := false
		return s.Subscribe(func(v Scalar) {
			sq := v.Value * v.Value
			if !seen {
				meanSq = sq
				seen = true
			} else {
				dt := v.Tick.Time.Sub(lastTime).Seconds()
				if dt < 0 {
					dt = 0
				}
				// Weight of the old average after dt: 0.5^(dt/halfLife).
				alpha := 1 - math.Pow(0.5, dt/hl)
				meanSq += alpha * (sq - meanSq)
			}
			lastTime = v.Tick.Time
			o(Scalar{Tick: v.Tick, Value: math.Sqrt(meanSq)})
		})
	})
}
