package base

import (
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
)

// DefaultReduction is the channel reduction of the squeeze-excite gate.
const DefaultReduction int64 = 16

// SEModule is a squeeze-and-excitation channel attention gate.
// Ref. https://arxiv.org/abs/1709.01507
type SEModule struct {
	Fc1 *nn.Conv2D
	Fc2 *nn.Conv2D
}

// ForwardT implements ts.ModuleT for SEModule struct.
func (m *SEModule) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	gate := m.Gate(x, train)
	res := x.MustMul(gate, false)
	gate.MustDrop()

	return res
}

// Gate returns the per-channel scale in (0, 1), shape [N, C, 1, 1].
func (m *SEModule) Gate(x *ts.Tensor, train bool) *ts.Tensor {
	pooled := x.MustAdaptiveAvgPool2d([]int64{1, 1}, false)
	sqz := m.Fc1.ForwardT(pooled, train)
	pooled.MustDrop()
	relu := sqz.MustRelu(true)
	exc := m.Fc2.ForwardT(relu, train)
	relu.MustDrop()

	return exc.MustSigmoid(true)
}

// NewSEModule creates new SEModule over `channels` feature maps.
// Reduction defaults to 16.
func NewSEModule(p *nn.Path, channels int64, reductionOpt ...int64) (*SEModule, error) {
	reduction := DefaultReduction
	if len(reductionOpt) > 0 {
		reduction = reductionOpt[0]
	}
	if reduction <= 0 || channels/reduction < 1 {
		return nil, &ChannelCountError{Channels: channels, Reduction: reduction}
	}
	mid := channels / reduction

	return &SEModule{
		Fc1: Conv2dNoBias(p.Sub("fc1"), channels, mid, 1, 0, 1),
		Fc2: Conv2dNoBias(p.Sub("fc2"), mid, channels, 1, 0, 1),
	}, nil
}

// PReLU is a parametric ReLU with one learnable slope per channel.
type PReLU struct {
	Ws       *ts.Tensor
	Channels int64
}

// NewPReLU creates PReLU with slopes initialized to 0.25.
func NewPReLU(p *nn.Path, channels int64) *PReLU {
	ws := p.MustNewVar("weight", []int64{channels}, nn.NewConstInit(0.25))
	return &PReLU{Ws: ws, Channels: channels}
}

// ForwardT implements ts.ModuleT for PReLU struct.
func (m *PReLU) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return x.MustPrelu(m.Ws, false)
}

// RunningNorm is a batch normalization without learnable affine parameters.
// It only tracks running statistics over dim 1.
//
// NOTE. scale and shift are fixed ones and zeros kept out of the VarStore, so
// only "running_mean" and "running_var" are saved and loaded.
type RunningNorm struct {
	RunningMean *ts.Tensor
	RunningVar  *ts.Tensor
	Channels    int64
	Eps         float64
	Momentum    float64

	scale *ts.Tensor
	shift *ts.Tensor
}

// NewRunningNorm creates RunningNorm with eps 1e-5 and momentum 0.1.
func NewRunningNorm(p *nn.Path, channels int64) *RunningNorm {
	rm := p.MustZerosNoTrain("running_mean", []int64{channels})
	rv := p.MustOnesNoTrain("running_var", []int64{channels})
	return &RunningNorm{
		RunningMean: rm,
		RunningVar:  rv,
		Channels:    channels,
		Eps:         1e-5,
		Momentum:    0.1,
		scale:       rv.MustOnesLike(false),
		shift:       rm.MustZerosLike(false),
	}
}

// ForwardT implements ts.ModuleT for RunningNorm struct.
//
// In training mode batch statistics are used and the running ones updated;
// the caller must then hold exclusive access to the module.
func (n *RunningNorm) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return ts.MustBatchNorm(x, n.scale, n.shift, n.RunningMean, n.RunningVar, train, n.Momentum, n.Eps, false)
}

// MaxPool is the identity-like shortcut: a 1x1 max pool that only applies stride.
type MaxPool struct {
	Stride int64
}

// ForwardT implements ts.ModuleT for MaxPool struct.
func (m *MaxPool) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	s := m.Stride
	return x.MustMaxPool2d([]int64{1, 1}, []int64{s, s}, []int64{0, 0}, []int64{1, 1}, false, false)
}

// Conv2dNoBias creates Conv2D with no bias and fan-out Kaiming weights.
func Conv2dNoBias(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}
	config.WsInit = KaimingNormal(cOut * ksize * ksize)

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// DepthwiseConv2dNoBias creates a per-channel Conv2D (groups == channels) with no bias.
func DepthwiseConv2dNoBias(p *nn.Path, channels, ksize int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Groups = channels
	config.Stride = []int64{1, 1}
	config.Padding = []int64{0, 0}
	config.WsInit = KaimingNormal(channels * ksize * ksize)

	return nn.NewConv2D(p, channels, channels, ksize, config)
}

// BatchNorm2d creates BatchNorm over 4D input with scale 1 and shift 0.
func BatchNorm2d(p *nn.Path, channels int64) *nn.BatchNorm {
	config := nn.DefaultBatchNormConfig()
	config.WsInit = Ones()
	config.BsInit = Zeros()

	return nn.BatchNorm2D(p, channels, config)
}

// Linear creates Linear with fan-out Kaiming weights and zero bias.
func Linear(p *nn.Path, inDim, outDim int64) *nn.Linear {
	config := nn.DefaultLinearConfig()
	config.WsInit = KaimingNormal(outDim)
	config.BsInit = Zeros()

	return nn.NewLinear(p, inDim, outDim, config)
}

// Conv2dNorm creates a SequentialT composing of Conv2D no bias and a BatchNorm.
func Conv2dNorm(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(Conv2dNoBias(p.Sub("0"), cIn, cOut, ksize, padding, stride))
	seq.Add(BatchNorm2d(p.Sub("1"), cOut))

	return seq
}
