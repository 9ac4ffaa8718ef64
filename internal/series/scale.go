package series

// PercentMax is the fixed upper bound for percentage streams.
const PercentMax = 100.0

// headroom leaves space above the highest throughput sample.
const headroom = 1.2

// Scale returns the upper bound a chart should use for values. Percentage
// streams use a fixed bound of 100; throughput streams use the largest value
// plus 20%, or 1 when every value is zero or the slice is empty.
func Scale(values []float64, percent bool) float64 {
	if percent {
		return PercentMax
	}

	var peak float64
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return 1
	}
	return peak * headroom
}
