package spotfind

import (
	"math"

	"spotfinder/internal/models"
)

// FilterClose walks spots in their given order and drops any spot that
// sits within the threshold box of an already-accepted one: a spot is
// rejected when both |dx| and |dy| to some accepted spot are strictly
// below the threshold. Input order is preserved in the output.
//
// The threshold is the configured fitbox size, so two detections whose
// fit windows substantially overlap collapse into the first one. This
// is quadratic in the number of spots, which stays small.
func FilterClose(spots []models.Spot, threshold float64) []models.Spot {
	accepted := make([]models.Spot, 0, len(spots))
	for _, s := range spots {
		tooClose := false
		for _, a := range accepted {
			if math.Abs(s.X-a.X) < threshold && math.Abs(s.Y-a.Y) < threshold {
				tooClose = true
				break
			}
		}
		if !tooClose {
			accepted = append(accepted, s)
		}
	}
	return accepted
}
