package base

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors. Typed errors below match them with errors.Is.
var (
	ErrConfiguration   = errors.New("invalid configuration")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrDegenerateBatch = errors.New("degenerate batch")
)

// ConfigKind tells which construction parameter was rejected.
type ConfigKind int

const (
	InvalidResolution ConfigKind = iota
	UnsupportedDepth
	InvalidVariant
)

func (k ConfigKind) String() string {
	switch k {
	case InvalidResolution:
		return "invalid resolution"
	case UnsupportedDepth:
		return "unsupported depth"
	case InvalidVariant:
		return "invalid variant"
	default:
		return fmt.Sprintf("ConfigKind(%d)", int(k))
	}
}

// ConfigError reports an out-of-set resolution, depth or variant.
type ConfigError struct {
	Kind    ConfigKind
	Value   interface{}
	Allowed interface{}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: got %v, want one of %v", e.Kind, e.Value, e.Allowed)
}

// Is implements errors.Is.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// ChannelCountError is returned when a channel-attention unit cannot reduce
// its channels to a positive intermediate width.
type ChannelCountError struct {
	Channels  int64
	Reduction int64
}

func (e *ChannelCountError) Error() string {
	return fmt.Sprintf("invalid channel count: %d channels with reduction %d leaves no intermediate width", e.Channels, e.Reduction)
}

// Is implements errors.Is.
func (e *ChannelCountError) Is(target error) bool {
	return target == ErrConfiguration
}

// ShapeError reports an input tensor whose shape does not fit the network.
// A negative entry in Want accepts any size in that dimension.
type ShapeError struct {
	Got  []int64
	Want []int64
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: got %v, want %v", e.Got, e.Want)
}

// Is implements errors.Is.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// CheckShape returns a *ShapeError when got does not match want.
func CheckShape(got, want []int64) error {
	if len(got) != len(want) {
		return &ShapeError{Got: got, Want: want}
	}
	for i := range want {
		if want[i] >= 0 && got[i] != want[i] {
			return &ShapeError{Got: got, Want: want}
		}
	}
	return nil
}

// DegenerateBatchError is returned when a pair comparison gets no examples.
type DegenerateBatchError struct {
	Size int64
}

func (e *DegenerateBatchError) Error() string {
	return fmt.Sprintf("degenerate batch: %d examples, need at least 1", e.Size)
}

// Is implements errors.Is.
func (e *DegenerateBatchError) Is(target error) bool {
	return target == ErrDegenerateBatch
}
