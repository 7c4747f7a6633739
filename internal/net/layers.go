// Package net implements the frozen feature extractor: its layers, the
// loss probes spliced between them, and the assembler that builds the
// truncated probe-carrying sequence from a pretrained layer stack.
package net

import (
	"math"
	"runtime"
	"sync"

	"styleforge/internal/tensor"
	"styleforge/internal/vgg"
)

// Layer is one stage of the extractor. Forward caches whatever Backward
// needs; Backward maps the gradient at the layer output to the gradient at
// its input. Layer parameters are frozen and never receive gradients.
type Layer interface {
	Forward(x *tensor.Tensor) *tensor.Tensor
	Backward(grad *tensor.Tensor) *tensor.Tensor
}

// DefaultMean and DefaultStd are the per-channel statistics of the
// pretrained extractor's training distribution.
var (
	DefaultMean = []float64{0.485, 0.456, 0.406}
	DefaultStd  = []float64{0.229, 0.224, 0.225}
)

// Normalization shifts and scales each channel: (x - mean) / std.
type Normalization struct {
	mean []float64
	std  []float64
}

func NewNormalization(mean, std []float64) *Normalization {
	return &Normalization{mean: mean, std: std}
}

func (l *Normalization) Forward(x *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(x.N, x.C, x.H, x.W)
	plane := x.H * x.W
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			base := (n*x.C + c) * plane
			m, s := l.mean[c], l.std[c]
			for i := 0; i < plane; i++ {
				out.Data[base+i] = (x.Data[base+i] - m) / s
			}
		}
	}
	return out
}

func (l *Normalization) Backward(grad *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(grad.N, grad.C, grad.H, grad.W)
	plane := grad.H * grad.W
	for n := 0; n < grad.N; n++ {
		for c := 0; c < grad.C; c++ {
			base := (n*grad.C + c) * plane
			s := l.std[c]
			for i := 0; i < plane; i++ {
				out.Data[base+i] = grad.Data[base+i] / s
			}
		}
	}
	return out
}

// Conv2D is a frozen convolution. Weights are laid out [out][in][k][k].
type Conv2D struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int
	weight      []float64
	bias        []float64
	workers     int

	inH, inW int
}

// NewConv2D wraps a pretrained conv layer spec. workers bounds the
// parallel fan-out across channels; <= 0 means one goroutine per CPU.
func NewConv2D(spec vgg.Layer, workers int) *Conv2D {
	return &Conv2D{
		inChannels:  spec.InChannels,
		outChannels: spec.OutChannels,
		kernelSize:  spec.KernelSize,
		stride:      spec.Stride,
		padding:     spec.Padding,
		weight:      spec.Weight,
		bias:        spec.Bias,
		workers:     workers,
	}
}

func (l *Conv2D) Forward(x *tensor.Tensor) *tensor.Tensor {
	l.inH, l.inW = x.H, x.W
	outH := (x.H+2*l.padding-l.kernelSize)/l.stride + 1
	outW := (x.W+2*l.padding-l.kernelSize)/l.stride + 1
	out := tensor.New(x.N, l.outChannels, outH, outW)

	k := l.kernelSize
	parallelFor(l.outChannels, l.workers, func(oc int) {
		for n := 0; n < x.N; n++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					sum := l.bias[oc]
					for ic := 0; ic < l.inChannels; ic++ {
						wBase := ((oc*l.inChannels + ic) * k) * k
						for ky := 0; ky < k; ky++ {
							iy := oy*l.stride - l.padding + ky
							if iy < 0 || iy >= x.H {
								continue
							}
							for kx := 0; kx < k; kx++ {
								ix := ox*l.stride - l.padding + kx
								if ix < 0 || ix >= x.W {
									continue
								}
								sum += x.At(n, ic, iy, ix) * l.weight[wBase+ky*k+kx]
							}
						}
					}
					out.Set(n, oc, oy, ox, sum)
				}
			}
		}
	})
	return out
}

// Backward returns the gradient with respect to the layer input. Weight
// gradients are never computed; the kernel is frozen.
func (l *Conv2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(grad.N, l.inChannels, l.inH, l.inW)
	k := l.kernelSize

	parallelFor(l.inChannels, l.workers, func(ic int) {
		for n := 0; n < grad.N; n++ {
			for oc := 0; oc < l.outChannels; oc++ {
				wBase := ((oc*l.inChannels + ic) * k) * k
				for oy := 0; oy < grad.H; oy++ {
					for ox := 0; ox < grad.W; ox++ {
						g := grad.At(n, oc, oy, ox)
						if g == 0 {
							continue
						}
						for ky := 0; ky < k; ky++ {
							iy := oy*l.stride - l.padding + ky
							if iy < 0 || iy >= l.inH {
								continue
							}
							for kx := 0; kx < k; kx++ {
								ix := ox*l.stride - l.padding + kx
								if ix < 0 || ix >= l.inW {
									continue
								}
								out.Data[out.Index(n, ic, iy, ix)] += g * l.weight[wBase+ky*k+kx]
							}
						}
					}
				}
			}
		}
	})
	return out
}

// ReLU is an out-of-place rectifier. Each splice site gets a fresh
// instance; probes read the exact tensor the previous layer produced, so
// activations must never overwrite their input.
type ReLU struct {
	input *tensor.Tensor
}

func NewReLU() *ReLU {
	return &ReLU{}
}

func (l *ReLU) Forward(x *tensor.Tensor) *tensor.Tensor {
	l.input = x
	out := tensor.New(x.N, x.C, x.H, x.W)
	for i, v := range x.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}
	return out
}

func (l *ReLU) Backward(grad *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(grad.N, grad.C, grad.H, grad.W)
	for i, v := range l.input.Data {
		if v > 0 {
			out.Data[i] = grad.Data[i]
		}
	}
	return out
}

// MaxPool is a non-overlapping spatial max pool.
type MaxPool struct {
	size   int
	stride int

	inH, inW int
	argmax   []int
}

func NewMaxPool(size, stride int) *MaxPool {
	return &MaxPool{size: size, stride: stride}
}

func (l *MaxPool) Forward(x *tensor.Tensor) *tensor.Tensor {
	l.inH, l.inW = x.H, x.W
	outH := (x.H-l.size)/l.stride + 1
	outW := (x.W-l.size)/l.stride + 1
	out := tensor.New(x.N, x.C, outH, outW)
	l.argmax = make([]int, out.NumElements())

	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					best := 0
					bestVal := 0.0
					first := true
					for ky := 0; ky < l.size; ky++ {
						iy := oy*l.stride + ky
						if iy >= x.H {
							continue
						}
						for kx := 0; kx < l.size; kx++ {
							ix := ox*l.stride + kx
							if ix >= x.W {
								continue
							}
							idx := x.Index(n, c, iy, ix)
							if first || x.Data[idx] > bestVal {
								best, bestVal = idx, x.Data[idx]
								first = false
							}
						}
					}
					o := out.Index(n, c, oy, ox)
					out.Data[o] = bestVal
					l.argmax[o] = best
				}
			}
		}
	}
	return out
}

func (l *MaxPool) Backward(grad *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(grad.N, grad.C, l.inH, l.inW)
	for o, src := range l.argmax {
		out.Data[src] += grad.Data[o]
	}
	return out
}

// BatchNorm applies frozen running statistics in inference form.
type BatchNorm struct {
	gamma []float64
	beta  []float64
	mean  []float64
	vari  []float64
	eps   float64
}

func NewBatchNorm(spec vgg.Layer) *BatchNorm {
	return &BatchNorm{
		gamma: spec.Gamma,
		beta:  spec.Beta,
		mean:  spec.Mean,
		vari:  spec.Var,
		eps:   1e-5,
	}
}

func (l *BatchNorm) Forward(x *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(x.N, x.C, x.H, x.W)
	plane := x.H * x.W
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			base := (n*x.C + c) * plane
			scale := l.gamma[c] / math.Sqrt(l.vari[c]+l.eps)
			shift := l.beta[c] - l.mean[c]*scale
			for i := 0; i < plane; i++ {
				out.Data[base+i] = x.Data[base+i]*scale + shift
			}
		}
	}
	return out
}

func (l *BatchNorm) Backward(grad *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(grad.N, grad.C, grad.H, grad.W)
	plane := grad.H * grad.W
	for n := 0; n < grad.N; n++ {
		for c := 0; c < grad.C; c++ {
			base := (n*grad.C + c) * plane
			scale := l.gamma[c] / math.Sqrt(l.vari[c]+l.eps)
			for i := 0; i < plane; i++ {
				out.Data[base+i] = grad.Data[base+i] * scale
			}
		}
	}
	return out
}

// parallelFor runs fn over [0,n) across at most workers goroutines.
func parallelFor(n, workers int, fn func(i int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}
