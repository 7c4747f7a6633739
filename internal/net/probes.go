package net

import (
	"gonum.org/v1/gonum/mat"

	"styleforge/internal/tensor"
)

// ContentProbe passes activations through untouched while capturing the
// per-channel cosine distance between them and a frozen target activation.
type ContentProbe struct {
	Name string
	Loss float64

	target *tensor.Tensor
	input  *tensor.Tensor
}

// NewContentProbe snapshots target as the frozen reference.
func NewContentProbe(name string, target *tensor.Tensor) *ContentProbe {
	return &ContentProbe{Name: name, target: target.Clone()}
}

// Forward refreshes Loss and returns its input unchanged.
func (p *ContentProbe) Forward(x *tensor.Tensor) *tensor.Tensor {
	p.input = x
	p.Loss = cosineDistance(x.Data, p.target.Data, x.C, x.NumElements()/x.C)
	return x
}

// Backward adds weight * dLoss/dinput into grad and returns it.
func (p *ContentProbe) Backward(grad *tensor.Tensor, weight float64) *tensor.Tensor {
	x := p.input
	g := cosineDistanceGrad(x.Data, p.target.Data, x.C, x.NumElements()/x.C)
	for i := range grad.Data {
		grad.Data[i] += weight * g[i]
	}
	return grad
}

// StyleProbe passes activations through untouched while capturing the
// cosine distance between the input's Gram matrix and the frozen Gram
// matrix of the target feature map.
type StyleProbe struct {
	Name string
	Loss float64

	target *mat.Dense
	input  *tensor.Tensor
	gram   *mat.Dense
}

// NewStyleProbe stores the detached Gram matrix of the target features.
func NewStyleProbe(name string, target *tensor.Tensor) *StyleProbe {
	return &StyleProbe{Name: name, target: Gram(target)}
}

// Forward refreshes Loss and returns its input unchanged.
func (p *StyleProbe) Forward(x *tensor.Tensor) *tensor.Tensor {
	p.input = x
	p.gram = Gram(x)
	dim := x.N * x.C
	p.Loss = cosineDistance(p.gram.RawMatrix().Data, p.target.RawMatrix().Data, dim, dim)
	return x
}

// Backward adds weight * dLoss/dinput into grad and returns it. The chain
// runs through the Gram product: with G = F*F^T/N and D = dLoss/dG, the
// feature gradient is (D + D^T)*F/N.
func (p *StyleProbe) Backward(grad *tensor.Tensor, weight float64) *tensor.Tensor {
	x := p.input
	dim := x.N * x.C
	d := cosineDistanceGrad(p.gram.RawMatrix().Data, p.target.RawMatrix().Data, dim, dim)
	dMat := mat.NewDense(dim, dim, d)

	var sym mat.Dense
	sym.Add(dMat, dMat.T())

	f := mat.NewDense(dim, x.H*x.W, x.Data)
	var df mat.Dense
	df.Mul(&sym, f)
	df.Scale(1/float64(x.NumElements()), &df)

	flat := df.RawMatrix().Data
	for i := range grad.Data {
		grad.Data[i] += weight * flat[i]
	}
	return grad
}
