package sim

import "math"

// Angle is a bearing in radians, normalized into (-Pi, Pi].
// 0 points along the sensor's boresight (+Y), positive angles turn to +X.
type Angle float64

// AngleFromDegrees creates Angle from degrees.
func AngleFromDegrees(d float64) Angle {
	return Angle(normalizeRadians(d * math.Pi / 180.0))
}

// BearingOf returns the bearing of a point in the sensor plane.
func BearingOf(x, y float64) Angle {
	return Angle(math.Atan2(x, y))
}

// AddDegrees adds degrees to current angle.
func (a Angle) AddDegrees(d float64) Angle {
	return Angle(normalizeRadians(float64(a) + d*math.Pi/180.0))
}

// Degrees gets angle in degrees.
func (a Angle) Degrees() float64 {
	return float64(a) * 180 / math.Pi
}

// Project projects a range along the bearing into X and Y.
func (a Angle) Project(dist float64) (x, y float64) {
	return dist * math.Sin(float64(a)), dist * math.Cos(float64(a))
}

func normalizeRadians(r float64) float64 {
	if r >= 2*math.Pi || r <= -2*math.Pi {
		r = math.Remainder(r, 2*math.Pi)
	}
	if r > math.Pi {
		r -= 2 * math.Pi
	} else if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return r
}
