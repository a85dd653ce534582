// Package stats derives summary metrics from per-trial measurement samples.
package stats

// NotApplicable marks a figure that was not measured: upload metrics when
// upload testing is disabled, or jitter over fewer than two samples. It is
// distinct from zero so "not measured" never reads as "zero latency".
const NotApplicable = -1.0

// Mean returns the arithmetic mean of samples. The slice must be non-empty;
// aggregates are only computed for directions that produced trials.
func Mean(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// Jitter returns the mean absolute difference between consecutive latency
// samples. Fewer than two samples have no measurable variation and report
// NotApplicable.
func Jitter(latencies []float64) float64 {
	if len(latencies) < 2 {
		return NotApplicable
	}
	var sum float64
	for i := 1; i < len(latencies); i++ {
		d := latencies[i] - latencies[i-1]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum / float64(len(latencies)-1)
}
