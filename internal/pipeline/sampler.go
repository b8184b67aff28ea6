package pipeline

import (
	"fmt"
	"math"
	"strconv"
)

// TimeRange is a span of the video in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

// Timestamps samples r every interval seconds.
func (r TimeRange) Timestamps(interval float64) ([]float64, error) {
	return SampleTimestamps(r.Start, r.End, interval)
}

// SampleTimestamps returns start, start+interval, ... up to and including end,
// each rounded to two decimals. The running value itself is not rounded.
// A start after end yields no timestamps.
func SampleTimestamps(start, end, interval float64) ([]float64, error) {
	if !(interval > 0) || math.IsInf(interval, 0) {
		return nil, fmt.Errorf("%w: sample interval must be positive, got %v", ErrInvalidParameter, interval)
	}
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return nil, fmt.Errorf("%w: time range must be finite", ErrInvalidParameter)
	}
	if start > end {
		return nil, nil
	}

	var timestamps []float64
	for current := start; current <= end; {
		timestamps = append(timestamps, roundTo(current, 2))
		next := current + interval
		if next == current {
			// interval below float resolution at this magnitude
			break
		}
		current = next
	}
	return timestamps, nil
}

// roundTo rounds to the nearest decimal value of the exact binary float,
// exact ties going to the even digit.
func roundTo(v float64, decimals int) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	return r
}
