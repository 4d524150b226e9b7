// internal/create/estimate.go
package create

import (
	"fmt"
	"math"
)

// EstimateSeconds computes the advisory processing-time range for a
// file, from size alone: ceil(5 + MB*2) seconds, widened to ±20%. The
// lower bound never drops under 5 seconds.
func EstimateSeconds(sizeBytes int64) (min, max int) {
	mb := float64(sizeBytes) / (1 << 20)
	est := math.Ceil(5 + mb*2)
	min = int(math.Floor(est * 0.8))
	if min < 5 {
		min = 5
	}
	max = int(math.Ceil(est * 1.2))
	return min, max
}

// EstimateLabel renders the range for display: seconds below a minute,
// whole minutes above (lower bound floored, upper ceiled), collapsed
// when the bounds coincide.
func EstimateLabel(sizeBytes int64) string {
	min, max := EstimateSeconds(sizeBytes)
	if max < 60 {
		return fmt.Sprintf("%d-%d seconds", min, max)
	}
	minMin := min / 60
	maxMin := int(math.Ceil(float64(max) / 60))
	if minMin == maxMin {
		if minMin == 1 {
			return "~1 minute"
		}
		return fmt.Sprintf("~%d minutes", minMin)
	}
	return fmt.Sprintf("%d-%d minutes", minMin, maxMin)
}
