package metrics

import "time"

// Window accumulates timing stats across multiple optimization steps.
type Window struct {
	forward  time.Duration
	backward time.Duration
	steps    int
	lastLoss float64
}

// Record adds a new measurement to the window.
func (w *Window) Record(forwardTime, backwardTime time.Duration, loss float64) {
	w.forward += forwardTime
	w.backward += backwardTime
	w.steps++
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{}
	total := w.forward + w.backward
	if total > 0 {
		snap.StepsPerSec = float64(w.steps) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgForwardMS = (w.forward.Seconds() * 1000) / float64(w.steps)
		snap.AvgBackwardMS = (w.backward.Seconds() * 1000) / float64(w.steps)
	}
	snap.LastLoss = w.lastLoss

	w.forward = 0
	w.backward = 0
	w.steps = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	StepsPerSec   float64
	AvgForwardMS  float64
	AvgBackwardMS float64
	LastLoss      float64
}
