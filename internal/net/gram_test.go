package net

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"styleforge/internal/tensor"
)

func TestGramSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	x := tensor.Randn(rng, 1, 4, 3, 3)
	g := Gram(x)

	r, c := g.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 4, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.InDelta(t, g.At(i, j), g.At(j, i), 1e-12)
		}
	}
}

func TestGramKnownValue(t *testing.T) {
	// Two channels of a 1x2 map: F = [[1,2],[3,4]], N = 1*2*1*2 = 4.
	x := tensor.New(1, 2, 1, 2)
	copy(x.Data, []float64{1, 2, 3, 4})
	g := Gram(x)

	require.InDelta(t, (1*1+2*2)/4.0, g.At(0, 0), 1e-12)
	require.InDelta(t, (1*3+2*4)/4.0, g.At(0, 1), 1e-12)
	require.InDelta(t, (3*3+4*4)/4.0, g.At(1, 1), 1e-12)
}

func TestCosineDistanceZeroForIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := make([]float64, 12)
	for i := range a {
		a[i] = rng.NormFloat64()
	}
	b := append([]float64(nil), a...)
	require.InDelta(t, 0, cosineDistance(a, b, 3, 4), 1e-12)
}

func TestCosineDistanceAntiAligned(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{-1, -2, -3}
	require.InDelta(t, 2, cosineDistance(a, b, 1, 3), 1e-12)
}

func TestCosineDistanceGradMatchesFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	const rows, cols = 3, 5
	a := make([]float64, rows*cols)
	b := make([]float64, rows*cols)
	for i := range a {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64()
	}

	grad := cosineDistanceGrad(a, b, rows, cols)
	const eps = 1e-6
	for i := range a {
		orig := a[i]
		a[i] = orig + eps
		plus := cosineDistance(a, b, rows, cols)
		a[i] = orig - eps
		minus := cosineDistance(a, b, rows, cols)
		a[i] = orig

		numeric := (plus - minus) / (2 * eps)
		require.InDelta(t, numeric, grad[i], 1e-7, "component %d", i)
	}
}
