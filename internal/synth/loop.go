// Package synth drives gradient descent on the synthesized image's pixels.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"styleforge/internal/metrics"
	"styleforge/internal/net"
	"styleforge/internal/optimizer"
	"styleforge/internal/tensor"
)

// RunConfig captures the knobs required by the optimization loop.
type RunConfig struct {
	Steps          int
	ReportInterval int
	ContentWeight  float64
	StyleWeight    float64
	LearningRate   float64
}

// Run optimizes img in place for a fixed number of steps. Each iteration
// clamps the pixels to [0,1], forwards them through the extractor (which
// refreshes every probe's loss), sums the weighted probe losses, propagates
// the gradient back to the pixels and applies one Adam step. The image is
// clamped once more after the loop; there is no convergence check.
func Run(
	ctx context.Context,
	cfg RunConfig,
	nw *net.Network,
	contentProbes []*net.ContentProbe,
	styleProbes []*net.StyleProbe,
	img *tensor.Tensor,
) error {
	if cfg.Steps <= 0 {
		return errors.New("synth: steps must be > 0")
	}
	if cfg.LearningRate <= 0 {
		return errors.New("synth: learning rate must be > 0")
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = 1000
	}

	adam := optimizer.NewAdam(cfg.LearningRate)
	var window metrics.Window

	for step := 1; step <= cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		img.Clamp(0, 1)

		startForward := time.Now()
		nw.Forward(img)
		forwardTime := time.Since(startForward)

		var contentLoss, styleLoss float64
		for _, p := range contentProbes {
			contentLoss += p.Loss
		}
		for _, p := range styleProbes {
			styleLoss += p.Loss
		}
		loss := cfg.ContentWeight*contentLoss + cfg.StyleWeight*styleLoss

		if !isFinite(loss) {
			return fmt.Errorf("synth: non-finite loss %v at step %d", loss, step)
		}

		startBackward := time.Now()
		grad := nw.Backward(cfg.ContentWeight, cfg.StyleWeight)
		backwardTime := time.Since(startBackward)

		adam.Step(img.Data, grad.Data)
		window.Record(forwardTime, backwardTime, loss)

		if step%cfg.ReportInterval == 0 {
			snap := window.Snapshot()
			slog.Info("synth progress",
				"step", step,
				"loss", snap.LastLoss,
				"content_loss", contentLoss,
				"style_loss", styleLoss,
				"steps_per_sec", snap.StepsPerSec,
				"forward_ms", snap.AvgForwardMS,
				"backward_ms", snap.AvgBackwardMS,
			)
		}
	}

	img.Clamp(0, 1)
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
