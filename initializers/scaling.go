package initializers

import (
	"math"
	"math/rand"
)

// FanMode selects which dimension a VarianceScaling initializer divides by.
type FanMode int8

const (
	FanAvg FanMode = iota
	FanIn
	FanOut
)

type varianceScaling struct {
	mode   FanMode
	factor float64
}

// VarianceScaling draws from a normal distribution truncated at two standard deviations, with
// variance factor/fan. The default factor can be set with SetDefault("varscl-factor").
func VarianceScaling(mode FanMode) *varianceScaling {
	return &varianceScaling{mode, defaultValue["varscl-factor"]}
}

// Factor sets the numerator of the variance.
func (v *varianceScaling) Factor(f float64) *varianceScaling {
	v.factor = f
	return v
}

func (v *varianceScaling) Set(rng *rand.Rand, fanIn, fanOut int, ws []float64) {
	fan := float64(fanIn+fanOut) / 2
	switch v.mode {
	case FanIn:
		fan = float64(fanIn)
	case FanOut:
		fan = float64(fanOut)
	}

	gen := TruncNormal().SD(math.Sqrt(v.factor / fan))
	for i := range ws {
		ws[i] = gen.Gen(rng)
	}
}

// Xavier (Glorot) scaling averages both fans.
func Xavier() *varianceScaling { return VarianceScaling(FanAvg) }

// He scaling doubles the variance of LeCun scaling, for rectified layers.
func He() *varianceScaling { return VarianceScaling(FanIn).Factor(2) }

func LeCun() *varianceScaling { return VarianceScaling(FanIn) }
