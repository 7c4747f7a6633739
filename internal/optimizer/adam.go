// Package optimizer provides the adaptive-moment update rule driving the
// pixel tensor.
package optimizer

import "math"

// Adam holds first/second-moment estimates for a single parameter vector.
type Adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64
	step    int

	m []float64
	v []float64
}

// NewAdam returns an Adam optimizer with the standard moment coefficients.
func NewAdam(lr float64) *Adam {
	return &Adam{
		lr:      lr,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-8,
	}
}

// Step applies one update to param in place using grad. Both slices must
// have the same length across all calls; moment buffers are sized lazily
// on the first one.
func (a *Adam) Step(param, grad []float64) {
	if a.m == nil {
		a.m = make([]float64, len(param))
		a.v = make([]float64, len(param))
	}
	a.step++

	correction1 := 1 - math.Pow(a.beta1, float64(a.step))
	correction2 := 1 - math.Pow(a.beta2, float64(a.step))

	for i := range param {
		g := grad[i]
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g

		mHat := a.m[i] / correction1
		vHat := a.v[i] / correction2
		param[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.epsilon)
	}
}

// Reset clears the moment buffers and the step counter.
func (a *Adam) Reset() {
	a.m = nil
	a.v = nil
	a.step = 0
}
