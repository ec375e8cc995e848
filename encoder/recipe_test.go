package encoder_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/faceir/base"
	"github.com/sugarme/faceir/encoder"
)

func TestStages(t *testing.T) {
	tests := []struct {
		depth  encoder.Depth
		widths [5]int64
		units  [4]int
	}{
		{18, [5]int64{64, 64, 128, 256, 512}, [4]int{2, 2, 2, 2}},
		{34, [5]int64{64, 64, 128, 256, 512}, [4]int{3, 4, 6, 3}},
		{50, [5]int64{64, 64, 128, 256, 512}, [4]int{3, 4, 14, 3}},
		{100, [5]int64{64, 64, 128, 256, 512}, [4]int{3, 13, 30, 3}},
		{152, [5]int64{64, 256, 512, 1024, 2048}, [4]int{3, 8, 36, 3}},
		{200, [5]int64{64, 256, 512, 1024, 2048}, [4]int{3, 24, 36, 3}},
	}

	for _, tt := range tests {
		stages, err := encoder.Stages(tt.depth)
		require.NoError(t, err, "depth %d", tt.depth)
		require.Len(t, stages, 4)

		total := 0
		for s, stage := range stages {
			require.Len(t, stage, tt.units[s], "depth %d stage %d", tt.depth, s)
			assert.Equal(t, encoder.TransitionSpec{In: tt.widths[s], Out: tt.widths[s+1], Stride: 2}, stage[0])
			for _, spec := range stage[1:] {
				assert.Equal(t, encoder.TransitionSpec{In: tt.widths[s+1], Out: tt.widths[s+1], Stride: 1}, spec)
			}
			total += len(stage)
		}

		n, err := encoder.UnitCount(tt.depth)
		require.NoError(t, err)
		assert.Equal(t, total, n)
	}
}

func TestStagesUnsupportedDepth(t *testing.T) {
	for _, d := range []encoder.Depth{0, 10, 101, 151, -50} {
		stages, err := encoder.Stages(d)
		assert.Nil(t, stages)
		assert.True(t, errors.Is(err, base.ErrConfiguration), "depth %d", d)

		var cfgErr *base.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, base.UnsupportedDepth, cfgErr.Kind)

		_, err = encoder.UnitCount(d)
		assert.Error(t, err)
	}
}

func TestDepthFamily(t *testing.T) {
	for _, d := range encoder.SupportedDepths {
		if d <= 100 {
			assert.Equal(t, encoder.Basic, d.Family())
			assert.Equal(t, int64(512), d.OutputWidth())
		} else {
			assert.Equal(t, encoder.Bottleneck, d.Family())
			assert.Equal(t, int64(2048), d.OutputWidth())
		}
	}
}

func TestParseVariant(t *testing.T) {
	for s, want := range map[string]encoder.Variant{
		"ir": encoder.Plain, "plain": encoder.Plain,
		"ir_se": encoder.Attention, "IR_SE": encoder.Attention, "attention": encoder.Attention,
	} {
		got, err := encoder.ParseVariant(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := encoder.ParseVariant("dense")
	assert.True(t, errors.Is(err, base.ErrConfiguration))
	assert.False(t, encoder.Variant(7).Valid())
}
