package tensor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexRoundTrip(t *testing.T) {
	ten := New(1, 3, 4, 5)
	ten.Set(0, 2, 3, 4, 7.5)
	require.Equal(t, 7.5, ten.At(0, 2, 3, 4))
	require.Equal(t, ten.NumElements()-1, ten.Index(0, 2, 3, 4))
}

func TestClampLimitsRange(t *testing.T) {
	ten := New(1, 1, 1, 4)
	copy(ten.Data, []float64{-0.5, 0.25, 0.75, 1.5})
	ten.Clamp(0, 1)
	require.Equal(t, []float64{0, 0.25, 0.75, 1}, ten.Data)
}

func TestClampIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ten := New(1, 3, 8, 8)
	for i := range ten.Data {
		ten.Data[i] = rng.Float64()
	}
	before := ten.Clone()
	ten.Clamp(0, 1)
	require.Equal(t, before.Data, ten.Data)
}

func TestCloneIndependent(t *testing.T) {
	ten := New(1, 1, 2, 2)
	ten.Data[0] = 1
	cl := ten.Clone()
	cl.Data[0] = 2
	require.Equal(t, 1.0, ten.Data[0])
}

func TestRandnDeterministic(t *testing.T) {
	a := Randn(rand.New(rand.NewSource(9)), 1, 3, 4, 4)
	b := Randn(rand.New(rand.NewSource(9)), 1, 3, 4, 4)
	require.Equal(t, a.Data, b.Data)
}
