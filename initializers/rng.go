package initializers

import "math/rand"

// RNG generates single values from a distribution, using the given source.
type RNG interface {
	Gen(rng *rand.Rand) float64
}

type normal struct {
	µ, σ float64
}

// Normal returns an RNG over a normal distribution, by default centered on "normal-mean" with a
// standard deviation of "normal-sd".
func Normal() *normal {
	return &normal{defaultValue["normal-mean"], defaultValue["normal-sd"]}
}

// SD sets the standard deviation.
func (n *normal) SD(sd float64) *normal {
	n.σ = sd
	return n
}

// Mean sets the center.
func (n *normal) Mean(mean float64) *normal {
	n.µ = mean
	return n
}

func (n *normal) Gen(rng *rand.Rand) float64 {
	return rng.NormFloat64()*n.σ + n.µ
}

// truncation, in standard deviations
const truncAt float64 = 2.0

type truncNormal struct {
	*normal
}

// TruncNormal is Normal with every draw redone until it lies within two standard deviations of
// the mean.
func TruncNormal() truncNormal {
	return truncNormal{Normal()}
}

func (t truncNormal) SD(sd float64) truncNormal {
	t.normal.SD(sd)
	return t
}

func (t truncNormal) Gen(rng *rand.Rand) float64 {
	v := rng.NormFloat64()
	for v < -truncAt || v > truncAt {
		v = rng.NormFloat64()
	}
	return v*t.σ + t.µ
}

type random struct {
	RNG
}

// Random returns an Initializer that draws every weight from g, ignoring the fans.
func Random(g RNG) random {
	return random{g}
}

func (r random) Set(rng *rand.Rand, fanIn, fanOut int, ws []float64) {
	for i := range ws {
		ws[i] = r.Gen(rng)
	}
}
