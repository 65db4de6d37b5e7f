// Package mapping provides the pure input-shaping functions between
// normalized joystick readings and gimbal commands.
package mapping

// Deadzone suppresses stick readings near center: inside the band
// [-width/2, width/2] the output is 0, outside it the travel is shifted
// by the band edge and rescaled by 1/(1-width). Continuous at the band
// edges and odd-symmetric; full deflection yields slightly more than
// unit output, which downstream gains account for.
//
// v is a normalized reading in [-1, 1]; width is the full width of the
// dead band, in (0, 1).
func Deadzone(v, width float64) float64 {
	half := width / 2
	switch {
	case v > half:
		return (v - half) / (1.0 - width)
	case v < -half:
		return (v + half) / (1.0 - width)
	default:
		return 0
	}
}

// Cube returns v³. Preserves sign; gives fine control near center and
// aggressive response at the extremes.
func Cube(v float64) float64 {
	return v * v * v
}

// Clamp bounds v into [lo, hi] inclusive.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize maps a raw axis reading in [min, max] onto [-1, 1].
func Normalize(raw, min, max int32) float64 {
	return float64(raw-min)/float64(max-min)*2.0 - 1.0
}
