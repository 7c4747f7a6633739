// Package vgg supplies the frozen VGG-19 feature-extractor layer sequence.
//
// Only the convolutional feature stack is modeled (the classifier head is
// never used). Weights come from a safetensors export of the torchvision
// pretrained model, keyed features.<idx>.weight / features.<idx>.bias.
package vgg

import (
	"fmt"
)

// Kind identifies a feature-stack layer type.
type Kind int

const (
	Conv Kind = iota
	ReLU
	MaxPool
	BatchNorm
)

func (k Kind) String() string {
	switch k {
	case Conv:
		return "conv"
	case ReLU:
		return "relu"
	case MaxPool:
		return "maxpool"
	case BatchNorm:
		return "batchnorm"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Layer is one frozen layer of the feature stack. Conv layers carry weights
// laid out [out][in][k][k]; batch-norm layers carry per-channel statistics.
type Layer struct {
	Kind Kind

	// Conv fields.
	InChannels  int
	OutChannels int
	KernelSize  int
	Stride      int
	Padding     int
	Weight      []float64
	Bias        []float64

	// BatchNorm fields.
	Gamma []float64
	Beta  []float64
	Mean  []float64
	Var   []float64
}

// vgg19Blocks lists conv output widths per block; each block ends with a
// max pool.
var vgg19Blocks = [][]int{
	{64, 64},
	{128, 128},
	{256, 256, 256, 256},
	{512, 512, 512, 512},
	{512, 512, 512, 512},
}

// Arch returns the fixed 19-layer VGG feature sequence without weights:
// conv/relu pairs per block, each block closed by a 2x2 max pool. All convs
// are 3x3, stride 1, padding 1.
func Arch() []Layer {
	var layers []Layer
	in := 3
	for _, block := range vgg19Blocks {
		for _, out := range block {
			layers = append(layers, Layer{
				Kind:        Conv,
				InChannels:  in,
				OutChannels: out,
				KernelSize:  3,
				Stride:      1,
				Padding:     1,
			})
			layers = append(layers, Layer{Kind: ReLU})
			in = out
		}
		layers = append(layers, Layer{Kind: MaxPool})
	}
	return layers
}

// Load returns the VGG-19 feature sequence with pretrained weights bound
// from the safetensors file at path.
func Load(path string) ([]Layer, error) {
	tensors, err := loadTensors(path)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}

	layers := Arch()
	seq := 0
	for i := range layers {
		l := &layers[i]
		if l.Kind == Conv {
			wKey := fmt.Sprintf("features.%d.weight", seq)
			bKey := fmt.Sprintf("features.%d.bias", seq)
			w, ok := tensors[wKey]
			if !ok {
				return nil, fmt.Errorf("weights missing tensor %s", wKey)
			}
			b, ok := tensors[bKey]
			if !ok {
				return nil, fmt.Errorf("weights missing tensor %s", bKey)
			}
			wantW := []int{l.OutChannels, l.InChannels, l.KernelSize, l.KernelSize}
			if !shapeEqual(w.shape, wantW) {
				return nil, fmt.Errorf("%s: shape %v, want %v", wKey, w.shape, wantW)
			}
			if !shapeEqual(b.shape, []int{l.OutChannels}) {
				return nil, fmt.Errorf("%s: shape %v, want [%d]", bKey, b.shape, l.OutChannels)
			}
			l.Weight = w.data
			l.Bias = b.data
		}
		seq++
	}
	return layers, nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
