package swath

import (
	"fmt"
	"math"
	"time"
)

// ResolveTime returns the observation time of the cell whose lowest scanline
// is row. times holds each scanline's offset in seconds from the granule's
// first scanline and base is the granule's start time. The cell is stamped
// with the midpoint of its two scanlines.
func ResolveTime(times []float64, base time.Time, row int) (time.Time, error) {
	if row < 0 || row+1 >= len(times) {
		return time.Time{}, fmt.Errorf("%w: row %d with %d scanline times", ErrRowOutOfRange, row, len(times))
	}
	offset := (times[row]+times[row+1])*0.5 - times[0]
	return base.Add(secondsToDuration(offset)), nil
}

// DayOffset returns the fractional days elapsed from start to ts.
func DayOffset(ts, start time.Time) float64 {
	return ts.Sub(start).Seconds() / 86400
}

// secondsToDuration rounds to the nearest nanosecond.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
