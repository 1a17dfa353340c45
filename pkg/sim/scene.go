package sim

import (
	"math"
	"time"

	"github.com/robotalks/rd03d/pkg/rd03d"
)

// Walker is a target pacing back and forth in front of the sensor.
type Walker struct {
	Range  float64 // mm, center of the walk
	Swing  float64 // mm, how far it walks towards and away from the sensor
	Sweep  Angle   // bearing amplitude
	Period time.Duration
	Phase  float64
}

// At returns where the walker is after elapsed.
func (w Walker) At(elapsed time.Duration) rd03d.Target {
	period := w.Period.Seconds()
	if period <= 0 {
		period = 1
	}
	omega := 2 * math.Pi / period
	t := omega*elapsed.Seconds() + w.Phase
	r := w.Range + w.Swing*math.Sin(t)
	x, y := Angle(float64(w.Sweep) * math.Cos(t)).Project(r)
	return rd03d.Target{
		X:        int16(math.Round(x)),
		Y:        int16(math.Round(y)),
		Speed:    int16(math.Round(w.Swing * omega * math.Cos(t) / 10)),
		Distance: uint16(math.Round(r)),
	}
}

// Scene is a set of walkers, at most one per target slot.
type Scene []Walker

// DefaultScene has two people walking at different distances.
var DefaultScene = Scene{
	{Range: 1500, Swing: 800, Sweep: AngleFromDegrees(40), Period: 8 * time.Second},
	{Range: 3000, Swing: 500, Sweep: AngleFromDegrees(20), Period: 13 * time.Second, Phase: 1},
}

// Targets returns the targets after elapsed.
func (s Scene) Targets(elapsed time.Duration) (targets rd03d.Targets) {
	for k, w := range s {
		if k >= rd03d.MaxTargets {
			break
		}
		t := w.At(elapsed)
		if t.X == 0 && t.Y == 0 {
			continue
		}
		targets[k] = &t
	}
	return
}
