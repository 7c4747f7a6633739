package net

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"styleforge/internal/tensor"
)

// Gram reduces a feature map [n,c,h,w] to its normalized second-moment
// matrix: reshape to [n*c, h*w], multiply by the transpose, divide by
// n*c*h*w. The result is a symmetric [n*c, n*c] texture descriptor.
func Gram(x *tensor.Tensor) *mat.Dense {
	rows := x.N * x.C
	cols := x.H * x.W
	f := mat.NewDense(rows, cols, x.Data)

	g := mat.NewDense(rows, rows, nil)
	g.Mul(f, f.T())
	g.Scale(1/float64(x.NumElements()), g)
	return g
}

// cosineDistance treats a and b as [rows, cols] matrices and returns
// 1 - mean over rows of the cosine similarity between corresponding rows.
// Zero for identical inputs, up to 2 for anti-aligned ones. Rows with zero
// norm are not guarded; callers must supply non-degenerate features.
func cosineDistance(a, b []float64, rows, cols int) float64 {
	total := 0.0
	for r := 0; r < rows; r++ {
		u := a[r*cols : (r+1)*cols]
		v := b[r*cols : (r+1)*cols]
		var dot, uu, vv float64
		for i := range u {
			dot += u[i] * v[i]
			uu += u[i] * u[i]
			vv += v[i] * v[i]
		}
		total += dot / (math.Sqrt(uu) * math.Sqrt(vv))
	}
	return 1 - total/float64(rows)
}

// cosineDistanceGrad returns the gradient of cosineDistance with respect
// to a, holding b fixed.
func cosineDistanceGrad(a, b []float64, rows, cols int) []float64 {
	grad := make([]float64, len(a))
	for r := 0; r < rows; r++ {
		u := a[r*cols : (r+1)*cols]
		v := b[r*cols : (r+1)*cols]
		var dot, uu, vv float64
		for i := range u {
			dot += u[i] * v[i]
			uu += u[i] * u[i]
			vv += v[i] * v[i]
		}
		nu := math.Sqrt(uu)
		nv := math.Sqrt(vv)
		cos := dot / (nu * nv)
		g := grad[r*cols : (r+1)*cols]
		for i := range u {
			// d/du_i of cos(u,v) = v_i/(|u||v|) - cos * u_i/|u|^2
			g[i] = -(v[i]/(nu*nv) - cos*u[i]/uu) / float64(rows)
		}
	}
	return grad
}
