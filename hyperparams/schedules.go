package hyperparams

import "math"

type constant float64

// Constant returns a HyperParameter with the same value at every epoch.
func Constant(value float64) constant {
	return constant(value)
}

func (constant) TypeString() string { return "constant" }

func (c constant) Value(int) float64 { return float64(c) }

type decay struct {
	base, rate float64
}

// Decay returns an exponentially decaying HyperParameter, base·rate^epoch. The learning rate of a
// model decays this way by default.
func Decay(base, rate float64) decay {
	return decay{base, rate}
}

func (decay) TypeString() string { return "decay" }

func (d decay) Value(epoch int) float64 {
	return d.base * math.Pow(d.rate, float64(epoch))
}
