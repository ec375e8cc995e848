package backbone_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/ts"

	"github.com/sugarme/faceir/backbone"
	"github.com/sugarme/faceir/encoder"
)

func TestNames(t *testing.T) {
	net := newNet(t, backbone.Config{Resolution: 112, Depth: 18, Variant: encoder.Plain})
	names := net.Names()

	// stem + 8 units + 4 stage aliases + head
	require.Len(t, names, 14)
	assert.Equal(t, backbone.InputLayer, names[0])
	assert.Equal(t, backbone.OutputLayer, names[len(names)-1])
	assert.Equal(t, []string{"body.0", "body.1", "layer1", "body.2"}, names[1:5])

	l4, err := net.Layer("layer4")
	require.NoError(t, err)
	assert.Same(t, net.Body[7], l4)

	stem, err := net.Layer(backbone.InputLayer)
	require.NoError(t, err)
	assert.Same(t, net.Stem, stem)

	_, err = net.Layer("layer5")
	assert.True(t, errors.Is(err, backbone.ErrUnknownLayer))
}

func TestForwardUntil(t *testing.T) {
	net := newNet(t, backbone.Config{Resolution: 112, Depth: 18, Variant: encoder.Plain})
	x := ts.MustRandn([]int64{2, 3, 112, 112}, gotch.Float, gotch.CPU)

	tests := map[string][]int64{
		backbone.InputLayer:  {2, 64, 112, 112},
		"body.0":             {2, 64, 56, 56},
		"layer2":             {2, 128, 28, 28},
		"layer4":             {2, 512, 7, 7},
		backbone.OutputLayer: {2, 512},
	}
	for name, want := range tests {
		out, err := net.ForwardUntil(x, name, false)
		require.NoError(t, err, name)
		assert.Equal(t, want, out.MustSize(), name)
		out.MustDrop()
	}

	_, err := net.ForwardUntil(x, "nope", false)
	assert.Error(t, err)
}

func TestForwardAll(t *testing.T) {
	net := newNet(t, backbone.Config{Resolution: 112, Depth: 18, Variant: encoder.Attention})
	x := ts.MustRandn([]int64{1, 3, 112, 112}, gotch.Float, gotch.CPU)

	feats := net.ForwardAll(x, false)
	require.Len(t, feats, 5)
	want := [][]int64{
		{1, 64, 112, 112},
		{1, 64, 56, 56},
		{1, 128, 28, 28},
		{1, 256, 14, 14},
		{1, 512, 7, 7},
	}
	for i, f := range feats {
		assert.Equal(t, want[i], f.MustSize())
	}
}
