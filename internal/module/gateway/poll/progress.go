package poll

import "math"

// CalculateProgress maps an attempt count to a heuristic percentage.
// Within the expected budget it eases out towards 95; past it, it creeps towards 99.
func CalculateProgress(current, expected int) int {
	if expected <= 0 {
		expected = 1
	}
	if current < 0 {
		current = 0
	}
	if current <= expected {
		ratio := float64(current) / float64(expected)
		ease := 1 - (1-ratio)*(1-ratio)
		return int(math.Floor(ease * 95))
	}
	extra := float64(current - expected)
	decay := float64(expected) * 0.5
	extraProgress := 4 * (1 - math.Exp(-extra/decay))
	return min(99, 95+int(math.Floor(extraProgress)))
}
