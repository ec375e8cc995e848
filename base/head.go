package base

import (
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
)

// EmbeddingSize is the length of every face embedding.
const EmbeddingSize int64 = 512

// DefaultDropout is the head dropout rate, only active in training mode.
const DefaultDropout = 0.4

// EmbeddingHead reduces [N, C, S, S] feature maps to an un-normalized
// [N, embeddingSize] embedding.
type EmbeddingHead struct {
	Bn      *nn.BatchNorm
	Dropout float64
	Linear  *nn.Linear
	Norm    *RunningNorm
	InDim   int64
}

// NewEmbeddingHead creates EmbeddingHead for `channels` feature maps of
// spatial size `spatial` x `spatial`.
// NOTE. sub-paths "0", "3", "4" keep the variable names of pretrained
// checkpoints (bn, dropout, flatten, linear, norm).
func NewEmbeddingHead(p *nn.Path, channels, spatial, embeddingSize int64) *EmbeddingHead {
	inDim := channels * spatial * spatial
	return &EmbeddingHead{
		Bn:      BatchNorm2d(p.Sub("0"), channels),
		Dropout: DefaultDropout,
		Linear:  Linear(p.Sub("3"), inDim, embeddingSize),
		Norm:    NewRunningNorm(p.Sub("4"), embeddingSize),
		InDim:   inDim,
	}
}

// ForwardT implements ts.ModuleT for EmbeddingHead struct.
func (h *EmbeddingHead) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	bn := h.Bn.ForwardT(x, train)
	drop := ts.MustDropout(bn, h.Dropout, train)
	bn.MustDrop()
	flat := drop.MustFlatten(1, -1, true)
	lin := h.Linear.ForwardT(flat, train)
	flat.MustDrop()
	res := h.Norm.ForwardT(lin, train)
	lin.MustDrop()

	return res
}

// GNAPHead is a global norm-aware pooling head. Its output width equals the
// input channel count, so it only yields 512-length embeddings on 512-wide
// feature maps.
// Ref. https://arxiv.org/abs/1808.00435
type GNAPHead struct {
	Bn1 *RunningNorm
	Bn2 *RunningNorm
}

// NewGNAPHead creates GNAPHead over `channels` feature maps.
func NewGNAPHead(p *nn.Path, channels int64) *GNAPHead {
	return &GNAPHead{
		Bn1: NewRunningNorm(p.Sub("bn1"), channels),
		Bn2: NewRunningNorm(p.Sub("bn2"), channels),
	}
}

// ForwardT implements ts.ModuleT for GNAPHead struct.
func (h *GNAPHead) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	bn := h.Bn1.ForwardT(x, train)
	norm := L2Norm(bn, 1)
	normMean := norm.MustMean(norm.DType(), false)
	weight := normMean.MustDiv(norm, true)
	norm.MustDrop()
	weighted := bn.MustMul(weight, true)
	weight.MustDrop()
	pooled := weighted.MustAdaptiveAvgPool2d([]int64{1, 1}, true).MustFlatten(1, -1, true)
	res := h.Bn2.ForwardT(pooled, train)
	pooled.MustDrop()

	return res
}

// GDCHead is a global depthwise convolution head. It expects 7x7 feature maps.
// Ref. https://arxiv.org/abs/1804.07573
type GDCHead struct {
	Dw     *nn.SequentialT
	Linear *nn.Linear
	Norm   *RunningNorm
}

// NewGDCHead creates GDCHead projecting `channels` to `embeddingSize`.
func NewGDCHead(p *nn.Path, channels, embeddingSize int64) *GDCHead {
	dw := nn.SeqT()
	dw.Add(DepthwiseConv2dNoBias(p.Sub("dw").Sub("conv"), channels, 7))
	dw.Add(BatchNorm2d(p.Sub("dw").Sub("bn"), channels))

	config := nn.DefaultLinearConfig()
	config.Bias = false
	config.WsInit = KaimingNormal(embeddingSize)

	return &GDCHead{
		Dw:     dw,
		Linear: nn.NewLinear(p.Sub("linear"), channels, embeddingSize, config),
		Norm:   NewRunningNorm(p.Sub("norm"), embeddingSize),
	}
}

// ForwardT implements ts.ModuleT for GDCHead struct.
func (h *GDCHead) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	dw := h.Dw.ForwardT(x, train)
	flat := dw.MustFlatten(1, -1, true)
	lin := h.Linear.ForwardT(flat, train)
	flat.MustDrop()
	res := h.Norm.ForwardT(lin, train)
	lin.MustDrop()

	return res
}

// L2Norm returns the euclidean norm of x along dim, keeping the dim.
func L2Norm(x *ts.Tensor, dim int64) *ts.Tensor {
	sq := x.MustMul(x, false)
	return sq.MustSumDimIntlist([]int64{dim}, true, x.DType(), true).MustSqrt(true)
}

// L2Normalize divides every row of x by its norm along dim 1.
func L2Normalize(x *ts.Tensor) *ts.Tensor {
	norm := L2Norm(x, 1)
	res := x.MustDiv(norm, false)
	norm.MustDrop()

	return res
}
