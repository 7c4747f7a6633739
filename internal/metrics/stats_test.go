package metrics

import (
	"math"
	"testing"
	"time"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(20*time.Millisecond, 10*time.Millisecond, 1.2)
	w.Record(10*time.Millisecond, 20*time.Millisecond, 0.8)
	snap := w.Snapshot()
	if math.Abs(snap.StepsPerSec-33.3333) > 0.1 {
		t.Fatalf("unexpected throughput %.2f", snap.StepsPerSec)
	}
	if math.Abs(snap.AvgForwardMS-15) > 0.01 {
		t.Fatalf("unexpected forward time %.2f", snap.AvgForwardMS)
	}
	if w.steps != 0 || w.forward != 0 {
		t.Fatalf("window was not reset")
	}
	if snap.LastLoss != 0.8 {
		t.Fatalf("expected last loss 0.8, got %.2f", snap.LastLoss)
	}
}
