// Package backbone assembles IR and IR-SE face embedding networks.
package backbone

import (
	"strconv"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"
	"k8s.io/klog/v2"

	"github.com/sugarme/faceir/base"
	"github.com/sugarme/faceir/encoder"
)

// SupportedResolutions lists the accepted square input sizes.
var SupportedResolutions = []int64{112, 224}

// InputChannels is the channel count of input images.
const InputChannels int64 = 3

// Config selects the network topology.
type Config struct {
	Resolution int64
	Depth      encoder.Depth
	Variant    encoder.Variant
}

// DefaultConfig is IR-50 at 112x112.
func DefaultConfig() Config {
	return Config{Resolution: 112, Depth: 50, Variant: encoder.Plain}
}

// Validate returns a *base.ConfigError for any out-of-set field.
func (c Config) Validate() error {
	validRes := false
	for _, r := range SupportedResolutions {
		if c.Resolution == r {
			validRes = true
		}
	}
	if !validRes {
		return &base.ConfigError{Kind: base.InvalidResolution, Value: c.Resolution, Allowed: SupportedResolutions}
	}
	if !c.Depth.Valid() {
		return &base.ConfigError{Kind: base.UnsupportedDepth, Value: int(c.Depth), Allowed: encoder.SupportedDepths}
	}
	if !c.Variant.Valid() {
		return &base.ConfigError{Kind: base.InvalidVariant, Value: c.Variant, Allowed: []encoder.Variant{encoder.Plain, encoder.Attention}}
	}
	return nil
}

// Spatial is the feature map size after the four stride-2 stages.
func (c Config) Spatial() int64 {
	return c.Resolution / 16
}

// Backbone is the stem, a flat sequence of residual units and the embedding
// head. Every output row has unit L2 norm.
//
// Topology is fixed after New. Inference (train == false) does not mutate
// the network, so a Backbone may be shared by concurrent callers.
type Backbone struct {
	Stem *nn.SequentialT
	Body []encoder.Unit
	Head *base.EmbeddingHead

	config Config
	index  map[string]int
	stages [4]int // index of the last unit of each stage in Body
}

// New builds the network described by cfg on p. Variables are created under
// "input_layer", "body.<i>" and "output_layer".
func New(p *nn.Path, cfg Config) (*Backbone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stages, err := encoder.Stages(cfg.Depth)
	if err != nil {
		return nil, err
	}

	family := cfg.Depth.Family()
	bodyPath := p.Sub("body")
	var (
		body  []encoder.Unit
		ends  [4]int
		index int
	)
	for s, stage := range stages {
		for _, spec := range stage {
			unit, err := encoder.NewUnit(bodyPath.Sub(strconv.Itoa(index)), family, cfg.Variant, spec)
			if err != nil {
				return nil, err
			}
			body = append(body, unit)
			index++
		}
		ends[s] = index - 1
	}

	width := cfg.Depth.OutputWidth()
	b := &Backbone{
		Stem:   encoder.NewStem(p.Sub("input_layer")),
		Body:   body,
		Head:   base.NewEmbeddingHead(p.Sub("output_layer"), width, cfg.Spatial(), base.EmbeddingSize),
		config: cfg,
		stages: ends,
	}
	b.buildIndex()

	klog.V(1).Infof("backbone %v-%d (%v) at %dx%d: %d units, head %d -> %d",
		cfg.Variant, cfg.Depth, family, cfg.Resolution, cfg.Resolution, len(body), b.Head.InDim, base.EmbeddingSize)

	return b, nil
}

// Config returns the configuration the backbone was built with.
func (b *Backbone) Config() Config { return b.config }

// NumUnits returns the number of residual units.
func (b *Backbone) NumUnits() int { return len(b.Body) }

// InputShape is the expected batch shape; -1 marks the batch dim.
func (b *Backbone) InputShape() []int64 {
	r := b.config.Resolution
	return []int64{-1, InputChannels, r, r}
}

// ForwardT implements ts.ModuleT for Backbone struct. The input shape is not
// checked; use Forward for validated inference.
func (b *Backbone) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	feat := b.forwardFeatures(x, train)
	emb := b.Head.ForwardT(feat, train)
	feat.MustDrop()
	out := base.L2Normalize(emb)
	emb.MustDrop()

	return out
}

// Forward validates x against the configured resolution and returns its
// [N, 512] unit-norm embeddings in inference mode.
func (b *Backbone) Forward(x *ts.Tensor) (*ts.Tensor, error) {
	if err := b.checkInput(x); err != nil {
		return nil, err
	}
	return b.ForwardT(x, false), nil
}

// Embeddings runs Forward and copies every row out.
func (b *Backbone) Embeddings(x *ts.Tensor) ([][]float32, error) {
	out, err := b.Forward(x)
	if err != nil {
		return nil, err
	}
	defer out.MustDrop()

	return Rows(out), nil
}

// Rows copies a 2D tensor into Go slices.
func Rows(x *ts.Tensor) [][]float32 {
	size := x.MustSize()
	d := x.MustTotype(gotch.Double, false)
	vals := d.Float64Values()
	d.MustDrop()
	rows := make([][]float32, size[0])
	for i := range rows {
		row := make([]float32, size[1])
		for j := range row {
			row[j] = float32(vals[int64(i)*size[1]+int64(j)])
		}
		rows[i] = row
	}
	return rows
}

func (b *Backbone) checkInput(x *ts.Tensor) error {
	size := x.MustSize()
	if err := base.CheckShape(size, b.InputShape()); err != nil {
		return err
	}
	if size[0] < 1 {
		return &base.ShapeError{Got: size, Want: b.InputShape()}
	}
	return nil
}

// forwardFeatures runs the stem and every unit in order.
func (b *Backbone) forwardFeatures(x *ts.Tensor, train bool) *ts.Tensor {
	out := b.Stem.ForwardT(x, train)
	for _, unit := range b.Body {
		next := unit.ForwardT(out, train)
		out.MustDrop()
		out = next
	}
	return out
}
