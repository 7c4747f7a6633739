package net

import (
	"errors"
	"fmt"

	"styleforge/internal/tensor"
	"styleforge/internal/vgg"
)

// ErrUnknownLayer reports a pretrained layer type outside the
// conv/relu/pool/bn vocabulary.
var ErrUnknownLayer = errors.New("unrecognized layer type")

// AssembleConfig selects the probe sites and the conv parallelism.
type AssembleConfig struct {
	ContentLayers []string
	StyleLayers   []string
	Workers       int
}

// Assemble walks the pretrained layer stack and builds the probe-carrying
// extractor. Layers get canonical names keyed by a running conv counter
// (conv_i, relu_i, pool_i, bn_i); relu and pool share their conv's index.
// After each named layer whose name is requested, the reference image's
// activation at that point becomes a probe target and the probe is spliced
// in immediately, so downstream layers see the tensor the probe saw.
// Assembly stops the moment the last requested probe is in place; trailing
// layers are never built.
//
// Targets are captured by advancing one activation per reference image as
// layers are appended, which yields the same tensors as re-running the
// frozen prefix from scratch at every splice point.
func Assemble(
	layers []vgg.Layer,
	norm *Normalization,
	contentImg, styleImg *tensor.Tensor,
	cfg AssembleConfig,
) (*Network, []*ContentProbe, []*StyleProbe, error) {
	contentSet := nameSet(cfg.ContentLayers)
	styleSet := nameSet(cfg.StyleLayers)
	want := len(cfg.ContentLayers) + len(cfg.StyleLayers)

	nw := &Network{}
	nw.nodes = append(nw.nodes, node{name: "norm", layer: norm})
	contentRef := norm.Forward(contentImg)
	styleRef := norm.Forward(styleImg)

	var contentProbes []*ContentProbe
	var styleProbes []*StyleProbe
	inserted := 0
	convIdx := 0

	for li, spec := range layers {
		var l Layer
		var name string
		switch spec.Kind {
		case vgg.Conv:
			convIdx++
			name = fmt.Sprintf("conv_%d", convIdx)
			if len(spec.Weight) == 0 || len(spec.Bias) == 0 {
				return nil, nil, nil, fmt.Errorf("layer %s has no weights bound", name)
			}
			l = NewConv2D(spec, cfg.Workers)
		case vgg.ReLU:
			name = fmt.Sprintf("relu_%d", convIdx)
			l = NewReLU()
		case vgg.MaxPool:
			name = fmt.Sprintf("pool_%d", convIdx)
			l = NewMaxPool(2, 2)
		case vgg.BatchNorm:
			name = fmt.Sprintf("bn_%d", convIdx)
			l = NewBatchNorm(spec)
		default:
			return nil, nil, nil, fmt.Errorf("layer %d: %w: %s", li, ErrUnknownLayer, spec.Kind)
		}

		nw.nodes = append(nw.nodes, node{name: name, layer: l})
		contentRef = l.Forward(contentRef)
		styleRef = l.Forward(styleRef)

		if contentSet[name] {
			p := NewContentProbe(fmt.Sprintf("content_loss_%d", convIdx), contentRef)
			nw.nodes = append(nw.nodes, node{name: p.Name, content: p})
			contentProbes = append(contentProbes, p)
			inserted++
		}
		if styleSet[name] {
			p := NewStyleProbe(fmt.Sprintf("style_loss_%d", convIdx), styleRef)
			nw.nodes = append(nw.nodes, node{name: p.Name, style: p})
			styleProbes = append(styleProbes, p)
			inserted++
		}

		if inserted >= want {
			break
		}
	}

	if inserted < want {
		return nil, nil, nil, fmt.Errorf("assembled %d of %d requested probes; check layer names against the extractor", inserted, want)
	}
	return nw, contentProbes, styleProbes, nil
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
