package synth

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"styleforge/internal/net"
	"styleforge/internal/tensor"
	"styleforge/internal/vgg"
)

func randomConv(rng *rand.Rand, in, out int) vgg.Layer {
	spec := vgg.Layer{
		Kind:        vgg.Conv,
		InChannels:  in,
		OutChannels: out,
		KernelSize:  3,
		Stride:      1,
		Padding:     1,
		Weight:      make([]float64, out*in*3*3),
		Bias:        make([]float64, out),
	}
	for i := range spec.Weight {
		spec.Weight[i] = rng.NormFloat64() * 0.3
	}
	for i := range spec.Bias {
		spec.Bias[i] = rng.NormFloat64() * 0.1
	}
	return spec
}

func solid(r, g, b float64, size int) *tensor.Tensor {
	t := tensor.New(1, 3, size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t.Set(0, 0, y, x, r)
			t.Set(0, 1, y, x, g)
			t.Set(0, 2, y, x, b)
		}
	}
	return t
}

func buildTinyExtractor(t *testing.T, rng *rand.Rand, content, style *tensor.Tensor) (*net.Network, []*net.ContentProbe, []*net.StyleProbe) {
	t.Helper()
	layers := []vgg.Layer{
		randomConv(rng, 3, 4),
		{Kind: vgg.ReLU},
		randomConv(rng, 4, 4),
		{Kind: vgg.ReLU},
	}
	norm := net.NewNormalization(net.DefaultMean, net.DefaultStd)
	nw, cps, sps, err := net.Assemble(layers, norm, content, style, net.AssembleConfig{
		ContentLayers: []string{"conv_2"},
		StyleLayers:   []string{"conv_1", "conv_2"},
		Workers:       1,
	})
	require.NoError(t, err)
	return nw, cps, sps
}

func combined(cfg RunConfig, nw *net.Network, cps []*net.ContentProbe, sps []*net.StyleProbe, img *tensor.Tensor) float64 {
	nw.Forward(img)
	var c, s float64
	for _, p := range cps {
		c += p.Loss
	}
	for _, p := range sps {
		s += p.Loss
	}
	return cfg.ContentWeight*c + cfg.StyleWeight*s
}

func TestRunBlendsTowardBothReferences(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	content := solid(0.9, 0.1, 0.1, 8)
	style := solid(0.1, 0.1, 0.9, 8)
	nw, cps, sps := buildTinyExtractor(t, rng, content, style)

	cfg := RunConfig{
		Steps:          80,
		ReportInterval: 40,
		ContentWeight:  1,
		StyleWeight:    3,
		LearningRate:   0.01,
	}

	img := tensor.Randn(rng, 1, 3, 8, 8)
	img.Clamp(0, 1)
	initial := combined(cfg, nw, cps, sps, img.Clone())

	require.NoError(t, Run(context.Background(), cfg, nw, cps, sps, img))

	for _, v := range img.Data {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}

	final := combined(cfg, nw, cps, sps, img.Clone())
	require.Less(t, final, initial, "optimization should reduce the combined loss")

	// The result is a blend, identical to neither pure reference.
	var mean [3]float64
	plane := img.H * img.W
	for c := 0; c < 3; c++ {
		for i := 0; i < plane; i++ {
			mean[c] += img.Data[c*plane+i]
		}
		mean[c] /= float64(plane)
	}
	require.Greater(t, mean[0]+mean[1]+mean[2], 0.01)
	require.Greater(t, math.Abs(mean[0]-0.9), 1e-6, "output matches the pure content image")
	require.Greater(t, math.Abs(mean[2]-0.9), 1e-6, "output matches the pure style image")
}

func TestRunRejectsBadConfig(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	content := solid(1, 0, 0, 4)
	style := solid(0, 0, 1, 4)
	nw, cps, sps := buildTinyExtractor(t, rng, content, style)
	img := tensor.Randn(rng, 1, 3, 4, 4)

	err := Run(context.Background(), RunConfig{Steps: 0, LearningRate: 0.01}, nw, cps, sps, img)
	require.Error(t, err)

	err = Run(context.Background(), RunConfig{Steps: 10, LearningRate: 0}, nw, cps, sps, img)
	require.Error(t, err)
}

func TestRunHonorsCancellation(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	content := solid(1, 0, 0, 4)
	style := solid(0, 0, 1, 4)
	nw, cps, sps := buildTinyExtractor(t, rng, content, style)
	img := tensor.Randn(rng, 1, 3, 4, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, RunConfig{Steps: 100000, ReportInterval: 10, ContentWeight: 1, StyleWeight: 1, LearningRate: 0.01}, nw, cps, sps, img)
	require.ErrorIs(t, err, context.Canceled)
}
