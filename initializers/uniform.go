package initializers

import (
	"math"
	"math/rand"
)

type uniform struct {
	lower, upper float64
}

// Uniform returns an Initializer that draws from a uniform random sample within a range, which can
// be set by Range. The defaults ("uniform-lower" and "uniform-upper") can be set by SetDefault.
func Uniform() *uniform {
	return &uniform{defaultValue["uniform-lower"], defaultValue["uniform-upper"]}
}

// Range sets the Range of a Uniform Initializer, returning the same Initializer
func (u *uniform) Range(lower, upper float64) *uniform {
	u.lower = lower
	u.upper = upper
	return u
}

func (u *uniform) Set(rng *rand.Rand, fanIn, fanOut int, ws []float64) {
	lower, upper := u.lower, u.upper
	if lower > upper {
		lower, upper = upper, lower
	}

	for i := range ws {
		ws[i] = rng.Float64()*(upper-lower) + lower
	}
}

type fanScaled int8

// FanScaled returns an Initializer drawing uniformly from ±1/sqrt(fanIn).
func FanScaled() fanScaled {
	return fanScaled(0)
}

func (fanScaled) Set(rng *rand.Rand, fanIn, fanOut int, ws []float64) {
	bound := 1 / math.Sqrt(float64(fanIn))
	Uniform().Range(-bound, bound).Set(rng, fanIn, fanOut, ws)
}
