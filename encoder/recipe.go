package encoder

import (
	"fmt"
	"strings"

	"github.com/sugarme/faceir/base"
)

// Depth is the nominal number of layers of an IR backbone.
type Depth int

// SupportedDepths lists every depth with a stage recipe.
var SupportedDepths = []Depth{18, 34, 50, 100, 152, 200}

// Family is the residual unit shape.
type Family int

const (
	Basic Family = iota
	Bottleneck
)

func (f Family) String() string {
	if f == Bottleneck {
		return "bottleneck"
	}
	return "basic"
}

// Variant selects whether residual units carry a channel-attention gate.
type Variant int

const (
	Plain     Variant = iota // "ir"
	Attention                // "ir_se"
)

func (v Variant) String() string {
	switch v {
	case Plain:
		return "ir"
	case Attention:
		return "ir_se"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Valid reports whether v is Plain or Attention.
func (v Variant) Valid() bool {
	return v == Plain || v == Attention
}

// ParseVariant accepts "ir"/"plain" and "ir_se"/"attention".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "ir", "plain":
		return Plain, nil
	case "ir_se", "irse", "attention", "se":
		return Attention, nil
	}
	return 0, &base.ConfigError{Kind: base.InvalidVariant, Value: s, Allowed: []string{"ir", "ir_se"}}
}

// TransitionSpec describes one residual unit: widths in and out and the
// stride of its first strided convolution.
type TransitionSpec struct {
	In     int64
	Out    int64
	Stride int64
}

type stageLayout struct {
	widths [5]int64
	units  [4]int
}

var (
	basicWidths      = [5]int64{64, 64, 128, 256, 512}
	bottleneckWidths = [5]int64{64, 256, 512, 1024, 2048}
)

// NOTE. depth 50 uses 14 units in stage 3 and depth 100 uses 13/30; these are
// the IR recipe, not the classic ResNet one.
var layouts = map[Depth]stageLayout{
	18:  {basicWidths, [4]int{2, 2, 2, 2}},
	34:  {basicWidths, [4]int{3, 4, 6, 3}},
	50:  {basicWidths, [4]int{3, 4, 14, 3}},
	100: {basicWidths, [4]int{3, 13, 30, 3}},
	152: {bottleneckWidths, [4]int{3, 8, 36, 3}},
	200: {bottleneckWidths, [4]int{3, 24, 36, 3}},
}

// Valid reports whether d has a stage recipe.
func (d Depth) Valid() bool {
	_, ok := layouts[d]
	return ok
}

// Family returns Basic for depth <= 100, Bottleneck otherwise.
func (d Depth) Family() Family {
	if d <= 100 {
		return Basic
	}
	return Bottleneck
}

// OutputWidth is the channel count of the last stage.
func (d Depth) OutputWidth() int64 {
	if d.Family() == Bottleneck {
		return bottleneckWidths[4]
	}
	return basicWidths[4]
}

func unsupportedDepth(d Depth) error {
	return &base.ConfigError{Kind: base.UnsupportedDepth, Value: int(d), Allowed: SupportedDepths}
}

// Stage builds the unit specs of one stage: the first carries the entry
// width change and stride, the rest keep cOut with stride 1.
func Stage(cIn, cOut int64, units int, stride int64) []TransitionSpec {
	specs := []TransitionSpec{{In: cIn, Out: cOut, Stride: stride}}
	for i := 1; i < units; i++ {
		specs = append(specs, TransitionSpec{In: cOut, Out: cOut, Stride: 1})
	}
	return specs
}

// Stages returns the 4 stages of unit specs for depth.
func Stages(depth Depth) ([][]TransitionSpec, error) {
	l, ok := layouts[depth]
	if !ok {
		return nil, unsupportedDepth(depth)
	}

	stages := make([][]TransitionSpec, 0, 4)
	for i, n := range l.units {
		stages = append(stages, Stage(l.widths[i], l.widths[i+1], n, 2))
	}
	return stages, nil
}

// UnitCount returns the total number of residual units for depth.
func UnitCount(depth Depth) (int, error) {
	l, ok := layouts[depth]
	if !ok {
		return 0, unsupportedDepth(depth)
	}
	n := 0
	for _, u := range l.units {
		n += u
	}
	return n, nil
}
