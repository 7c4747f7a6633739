package net

import "styleforge/internal/tensor"

// node is one tagged stage of the assembled sequence: a transform layer,
// a content probe, or a style probe.
type node struct {
	name    string
	layer   Layer
	content *ContentProbe
	style   *StyleProbe
}

// Network is the assembled, truncated feature extractor with loss probes
// spliced in. Immutable after assembly.
type Network struct {
	nodes []node

	outN, outC, outH, outW int
}

// Forward runs x through the sequence, refreshing every probe's Loss as a
// side effect. The returned final activation is rarely of interest.
func (nw *Network) Forward(x *tensor.Tensor) *tensor.Tensor {
	cur := x
	for _, nd := range nw.nodes {
		switch {
		case nd.content != nil:
			cur = nd.content.Forward(cur)
		case nd.style != nil:
			cur = nd.style.Forward(cur)
		default:
			cur = nd.layer.Forward(cur)
		}
	}
	nw.outN, nw.outC, nw.outH, nw.outW = cur.N, cur.C, cur.H, cur.W
	return cur
}

// Backward propagates the weighted sum of all probe losses back to the
// network input and returns dLoss/dpixels. Forward must have run first in
// the same iteration.
func (nw *Network) Backward(contentWeight, styleWeight float64) *tensor.Tensor {
	grad := tensor.New(nw.outN, nw.outC, nw.outH, nw.outW)
	for i := len(nw.nodes) - 1; i >= 0; i-- {
		nd := nw.nodes[i]
		switch {
		case nd.content != nil:
			grad = nd.content.Backward(grad, contentWeight)
		case nd.style != nil:
			grad = nd.style.Backward(grad, styleWeight)
		default:
			grad = nd.layer.Backward(grad)
		}
	}
	return grad
}

// Names returns the node names in forward order.
func (nw *Network) Names() []string {
	names := make([]string, len(nw.nodes))
	for i, nd := range nw.nodes {
		names[i] = nd.name
	}
	return names
}
