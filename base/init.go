package base

import (
	"math"

	"github.com/sugarme/gotch/nn"
)

// KaimingNormal returns a zero-mean normal init scaled by fan-out for layers
// followed by rectifying activations: std = sqrt(2 / fanOut).
//
// For a conv layer fanOut = cOut * ksize * ksize, for a linear layer it is
// the output dimension.
func KaimingNormal(fanOut int64) nn.Init {
	std := math.Sqrt(2.0 / float64(fanOut))
	return nn.NewRandnInit(0.0, std)
}

// Ones and Zeros are the normalization scale and shift initializers.
func Ones() nn.Init  { return nn.NewConstInit(1.0) }
func Zeros() nn.Init { return nn.NewConstInit(0.0) }
