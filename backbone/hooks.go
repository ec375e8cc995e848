package backbone

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/faceir/encoder"
)

// ErrUnknownLayer is returned for a layer name the backbone does not have.
var ErrUnknownLayer = errors.New("unknown layer")

// Layer names. Body units are "body.<i>"; "layer1".."layer4" alias the last
// unit of each stage.
const (
	InputLayer  = "input_layer"
	OutputLayer = "output_layer"
)

var _ encoder.Encoder = (*Backbone)(nil)

// Positions in the forward order: 0 is the stem, 1..len(Body) the units and
// len(Body)+1 the head.
func (b *Backbone) buildIndex() {
	b.index = make(map[string]int, len(b.Body)+6)
	b.index[InputLayer] = 0
	for i := range b.Body {
		b.index[fmt.Sprintf("body.%d", i)] = i + 1
	}
	for s, end := range b.stages {
		b.index[fmt.Sprintf("layer%d", s+1)] = end + 1
	}
	b.index[OutputLayer] = len(b.Body) + 1
}

// Names lists every addressable layer in forward order. Stage aliases come
// right after the unit they point to.
func (b *Backbone) Names() []string {
	names := make([]string, 0, len(b.index))
	for n := range b.index {
		names = append(names, n)
	}
	sort.SliceStable(names, func(i, j int) bool {
		pi, pj := b.index[names[i]], b.index[names[j]]
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	return names
}

func (b *Backbone) position(name string) (int, error) {
	pos, ok := b.index[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownLayer, "%q", name)
	}
	return pos, nil
}

// Layer returns the module registered under name.
func (b *Backbone) Layer(name string) (ts.ModuleT, error) {
	pos, err := b.position(name)
	if err != nil {
		return nil, err
	}
	switch pos {
	case 0:
		return b.Stem, nil
	case len(b.Body) + 1:
		return b.Head, nil
	default:
		return b.Body[pos-1], nil
	}
}

// ForwardUntil runs x through the network up to and including the named
// layer and returns that layer's activation. For OutputLayer this is the
// head output before L2 normalization.
func (b *Backbone) ForwardUntil(x *ts.Tensor, name string, train bool) (*ts.Tensor, error) {
	pos, err := b.position(name)
	if err != nil {
		return nil, err
	}
	if err := b.checkInput(x); err != nil {
		return nil, err
	}

	out := b.Stem.ForwardT(x, train)
	for i := 0; i < pos && i < len(b.Body); i++ {
		next := b.Body[i].ForwardT(out, train)
		out.MustDrop()
		out = next
	}
	if pos == len(b.Body)+1 {
		emb := b.Head.ForwardT(out, train)
		out.MustDrop()
		out = emb
	}
	return out, nil
}

// ForwardAll implements encoder.Encoder for Backbone struct. It returns the
// stem output followed by the output of each of the four stages.
func (b *Backbone) ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor {
	feats := make([]*ts.Tensor, 0, 5)
	out := b.Stem.ForwardT(x, train)
	feats = append(feats, out)

	stage := 0
	for i, unit := range b.Body {
		next := unit.ForwardT(out, train)
		if out != feats[len(feats)-1] {
			out.MustDrop()
		}
		out = next
		if i == b.stages[stage] {
			feats = append(feats, out)
			stage++
		}
	}
	return feats
}
