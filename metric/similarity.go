package metric

import (
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/ts"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"

	"github.com/sugarme/faceir/base"
)

// Eps bounds the norm product of cosine similarity away from zero.
const Eps = 1e-8

// Embedder turns an image batch into a batch of embeddings.
// *backbone.Backbone implements it.
type Embedder interface {
	Forward(x *ts.Tensor) (*ts.Tensor, error)
}

// Similarity is the (1 - cos, cos) pair of two embeddings.
type Similarity struct {
	Dissimilarity float64
	Cosine        float64
}

// NewSimilarity builds Similarity from a cosine value.
func NewSimilarity(cos float64) Similarity {
	return Similarity{Dissimilarity: 1 - cos, Cosine: cos}
}

// CosineSimilarity computes row-wise cosine similarity of two [N, D]
// tensors, returning shape [N]. The norm product is clamped to Eps.
func CosineSimilarity(a, b *ts.Tensor) *ts.Tensor {
	return ts.MustCosineSimilarity(a, b, 1, Eps)
}

// Cosine computes cosine similarity of two equal-length vectors.
func Cosine(a, b []float32) float64 {
	x := make([]float64, len(a))
	y := make([]float64, len(b))
	for i := range a {
		x[i] = float64(a[i])
	}
	for i := range b {
		y[i] = float64(b[i])
	}
	denom := floats.Norm(x, 2) * floats.Norm(y, 2)
	if denom < Eps {
		denom = Eps
	}
	return floats.Dot(x, y) / denom
}

// PairScorer compares the first example of a batch (probe) with the last
// one (reference).
type PairScorer struct {
	net Embedder
}

// NewPairScorer creates PairScorer over net.
func NewPairScorer(net Embedder) *PairScorer {
	return &PairScorer{net: net}
}

// Score returns a [1, 2] tensor holding (1 - cos, cos).
//
// A batch of one example is accepted: probe and reference are then the same
// image and cos is ~1. An empty batch returns *base.DegenerateBatchError.
func (s *PairScorer) Score(x *ts.Tensor) (*ts.Tensor, error) {
	size := x.MustSize()
	if len(size) == 0 || size[0] == 0 {
		var n int64
		if len(size) > 0 {
			n = size[0]
		}
		return nil, &base.DegenerateBatchError{Size: n}
	}
	n := size[0]
	if n == 1 {
		klog.Warning("pair batch holds a single example; probe and reference are the same image")
	}

	probe := x.MustNarrow(0, 0, 1, false)
	defer probe.MustDrop()
	ref := x.MustNarrow(0, n-1, 1, false)
	defer ref.MustDrop()

	// The reference only needs values, not gradients.
	var (
		refEmb *ts.Tensor
		refErr error
	)
	ts.NoGrad(func() {
		refEmb, refErr = s.net.Forward(ref)
	})
	if refErr != nil {
		return nil, refErr
	}
	defer refEmb.MustDrop()

	probeEmb, err := s.net.Forward(probe)
	if err != nil {
		return nil, err
	}
	defer probeEmb.MustDrop()

	cos := CosineSimilarity(probeEmb, refEmb)
	dis := cos.MustNeg(false).MustAddScalar(ts.FloatScalar(1.0), true)
	out := ts.MustCat([]*ts.Tensor{dis, cos}, 0).MustUnsqueeze(0, true)
	dis.MustDrop()
	cos.MustDrop()

	return out, nil
}

// ScorePair is Score returning Go values.
func (s *PairScorer) ScorePair(x *ts.Tensor) (Similarity, error) {
	out, err := s.Score(x)
	if err != nil {
		return Similarity{}, err
	}
	d := out.MustTotype(gotch.Double, true)
	vals := d.Float64Values()
	d.MustDrop()

	return Similarity{Dissimilarity: vals[0], Cosine: vals[1]}, nil
}
