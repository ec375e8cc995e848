package encoder

import (
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/faceir/base"
)

// StemWidth is the channel count produced by the stem.
const StemWidth int64 = 64

// Unit is a residual unit: unit(x) = residual(x) + shortcut(x).
type Unit interface {
	ts.ModuleT
	Spec() TransitionSpec
}

// NewUnit creates the residual unit of `family` and `variant` for spec.
func NewUnit(path *nn.Path, family Family, variant Variant, spec TransitionSpec) (Unit, error) {
	switch {
	case family == Basic && variant == Plain:
		return NewBasicBlockIR(path, spec), nil
	case family == Basic && variant == Attention:
		u, err := NewBasicBlockIRSE(path, spec)
		if err != nil {
			return nil, err
		}
		return u, nil
	case family == Bottleneck && variant == Plain:
		return NewBottleneckIR(path, spec), nil
	case family == Bottleneck && variant == Attention:
		u, err := NewBottleneckIRSE(path, spec)
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	return nil, &base.ConfigError{Kind: base.InvalidVariant, Value: variant, Allowed: []Variant{Plain, Attention}}
}

// NewStem creates the input layer: 3x3 conv 3->64, BatchNorm and PReLU.
// It keeps full input resolution.
func NewStem(p *nn.Path) *nn.SequentialT {
	stem := nn.SeqT()
	stem.Add(base.Conv2dNoBias(p.Sub("0"), 3, StemWidth, 3, 1, 1))
	stem.Add(base.BatchNorm2d(p.Sub("1"), StemWidth))
	stem.Add(base.NewPReLU(p.Sub("2"), StemWidth))

	return stem
}

// shortcut is a strided 1x1 max pool when widths match, a projection otherwise.
func shortcut(path *nn.Path, spec TransitionSpec) ts.ModuleT {
	if spec.In == spec.Out {
		return &base.MaxPool{Stride: spec.Stride}
	}
	return base.Conv2dNorm(path, spec.In, spec.Out, 1, 0, spec.Stride)
}

func residualSum(res, sc *ts.Tensor) *ts.Tensor {
	out := res.MustAdd(sc, true)
	sc.MustDrop()

	return out
}

// BasicBlockIR is the plain basic unit:
// BN -> conv3x3 -> BN -> PReLU -> conv3x3(stride) -> BN.
type BasicBlockIR struct {
	ResLayer *nn.SequentialT
	Shortcut ts.ModuleT
	spec     TransitionSpec
}

// NewBasicBlockIR creates BasicBlockIR.
func NewBasicBlockIR(path *nn.Path, spec TransitionSpec) *BasicBlockIR {
	res := path.Sub("res_layer")
	seq := nn.SeqT()
	seq.Add(base.BatchNorm2d(res.Sub("0"), spec.In))
	seq.Add(base.Conv2dNoBias(res.Sub("1"), spec.In, spec.Out, 3, 1, 1))
	seq.Add(base.BatchNorm2d(res.Sub("2"), spec.Out))
	seq.Add(base.NewPReLU(res.Sub("3"), spec.Out))
	seq.Add(base.Conv2dNoBias(res.Sub("4"), spec.Out, spec.Out, 3, 1, spec.Stride))
	seq.Add(base.BatchNorm2d(res.Sub("5"), spec.Out))

	return &BasicBlockIR{
		ResLayer: seq,
		Shortcut: shortcut(path.Sub("shortcut_layer"), spec),
		spec:     spec,
	}
}

// Spec implements Unit.
func (b *BasicBlockIR) Spec() TransitionSpec { return b.spec }

// ForwardT implements ts.ModuleT for BasicBlockIR struct.
func (b *BasicBlockIR) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	res := b.ResLayer.ForwardT(x, train)
	sc := b.Shortcut.ForwardT(x, train)

	return residualSum(res, sc)
}

// BottleneckIR is the plain bottleneck unit, working at Out/4 channels inside:
// BN -> conv1x1 -> BN -> PReLU -> conv3x3 -> BN -> PReLU -> conv1x1(stride) -> BN.
type BottleneckIR struct {
	ResLayer *nn.SequentialT
	Shortcut ts.ModuleT
	spec     TransitionSpec
}

// NewBottleneckIR creates BottleneckIR.
func NewBottleneckIR(path *nn.Path, spec TransitionSpec) *BottleneckIR {
	mid := spec.Out / 4
	res := path.Sub("res_layer")
	seq := nn.SeqT()
	seq.Add(base.BatchNorm2d(res.Sub("0"), spec.In))
	seq.Add(base.Conv2dNoBias(res.Sub("1"), spec.In, mid, 1, 0, 1))
	seq.Add(base.BatchNorm2d(res.Sub("2"), mid))
	seq.Add(base.NewPReLU(res.Sub("3"), mid))
	seq.Add(base.Conv2dNoBias(res.Sub("4"), mid, mid, 3, 1, 1))
	seq.Add(base.BatchNorm2d(res.Sub("5"), mid))
	seq.Add(base.NewPReLU(res.Sub("6"), mid))
	seq.Add(base.Conv2dNoBias(res.Sub("7"), mid, spec.Out, 1, 0, spec.Stride))
	seq.Add(base.BatchNorm2d(res.Sub("8"), spec.Out))

	return &BottleneckIR{
		ResLayer: seq,
		Shortcut: shortcut(path.Sub("shortcut_layer"), spec),
		spec:     spec,
	}
}

// Spec implements Unit.
func (b *BottleneckIR) Spec() TransitionSpec { return b.spec }

// ForwardT implements ts.ModuleT for BottleneckIR struct.
func (b *BottleneckIR) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	res := b.ResLayer.ForwardT(x, train)
	sc := b.Shortcut.ForwardT(x, train)

	return residualSum(res, sc)
}

// BasicBlockIRSE is BasicBlockIR with a squeeze-excite gate closing the
// residual path.
type BasicBlockIRSE struct {
	BasicBlockIR
	SE *base.SEModule
}

// NewBasicBlockIRSE creates BasicBlockIRSE.
func NewBasicBlockIRSE(path *nn.Path, spec TransitionSpec) (*BasicBlockIRSE, error) {
	se, err := base.NewSEModule(path.Sub("res_layer").Sub("se_block"), spec.Out)
	if err != nil {
		return nil, err
	}
	return &BasicBlockIRSE{BasicBlockIR: *NewBasicBlockIR(path, spec), SE: se}, nil
}

// ForwardT implements ts.ModuleT for BasicBlockIRSE struct.
func (b *BasicBlockIRSE) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	res := b.ResLayer.ForwardT(x, train)
	gated := b.SE.ForwardT(res, train)
	res.MustDrop()
	sc := b.Shortcut.ForwardT(x, train)

	return residualSum(gated, sc)
}

// BottleneckIRSE is BottleneckIR with a squeeze-excite gate closing the
// residual path.
type BottleneckIRSE struct {
	BottleneckIR
	SE *base.SEModule
}

// NewBottleneckIRSE creates BottleneckIRSE.
func NewBottleneckIRSE(path *nn.Path, spec TransitionSpec) (*BottleneckIRSE, error) {
	se, err := base.NewSEModule(path.Sub("res_layer").Sub("se_block"), spec.Out)
	if err != nil {
		return nil, err
	}
	return &BottleneckIRSE{BottleneckIR: *NewBottleneckIR(path, spec), SE: se}, nil
}

// ForwardT implements ts.ModuleT for BottleneckIRSE struct.
func (b *BottleneckIRSE) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	res := b.ResLayer.ForwardT(x, train)
	gated := b.SE.ForwardT(res, train)
	res.MustDrop()
	sc := b.Shortcut.ForwardT(x, train)

	return residualSum(gated, sc)
}
