package tensor

import (
	"fmt"
	"math/rand"
)

// Tensor is a dense float64 array in NCHW layout, row-major, no striding.
type Tensor struct {
	Data []float64
	N    int
	C    int
	H    int
	W    int
}

// New returns a zero-filled tensor with the given shape.
func New(n, c, h, w int) *Tensor {
	return &Tensor{
		Data: make([]float64, n*c*h*w),
		N:    n, C: c, H: h, W: w,
	}
}

// Randn returns a tensor filled with standard-normal samples drawn from rng.
func Randn(rng *rand.Rand, n, c, h, w int) *Tensor {
	t := New(n, c, h, w)
	for i := range t.Data {
		t.Data[i] = rng.NormFloat64()
	}
	return t
}

// Index converts NCHW coordinates to a flat offset.
func (t *Tensor) Index(n, c, h, w int) int {
	return ((n*t.C+c)*t.H+h)*t.W + w
}

// At returns the element at the given coordinates.
func (t *Tensor) At(n, c, h, w int) float64 {
	return t.Data[t.Index(n, c, h, w)]
}

// Set writes the element at the given coordinates.
func (t *Tensor) Set(n, c, h, w int, v float64) {
	t.Data[t.Index(n, c, h, w)] = v
}

// NumElements returns the total element count.
func (t *Tensor) NumElements() int {
	return t.N * t.C * t.H * t.W
}

// Clone returns an independent copy of t.
func (t *Tensor) Clone() *Tensor {
	out := New(t.N, t.C, t.H, t.W)
	copy(out.Data, t.Data)
	return out
}

// Clamp limits every element to [lo, hi] in place. Idempotent for tensors
// already inside the range.
func (t *Tensor) Clamp(lo, hi float64) {
	for i, v := range t.Data {
		if v < lo {
			t.Data[i] = lo
		} else if v > hi {
			t.Data[i] = hi
		}
	}
}

// SameShape reports whether t and o share the same NCHW dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	return t.N == o.N && t.C == o.C && t.H == o.H && t.W == o.W
}

// ShapeString renders the shape for error messages.
func (t *Tensor) ShapeString() string {
	return fmt.Sprintf("[%d %d %d %d]", t.N, t.C, t.H, t.W)
}
