package encoder

import (
	"github.com/sugarme/gotch/ts"
)

// Encoder is implemented by networks that expose intermediate feature maps,
// e.g. for hooking activations from an external evaluation harness.
type Encoder interface {
	ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor
}
