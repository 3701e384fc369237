// Package initializers sets the starting values of parameters. Every Initializer draws from a
// caller-supplied *rand.Rand so that model construction is reproducible from a seed.
package initializers

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Initializer fills ws, the values of a fanIn x fanOut parameter.
type Initializer interface {
	Set(rng *rand.Rand, fanIn, fanOut int, ws []float64)
}

// default values, because 'default' is a keyword
var defaultValue = map[string]float64{
	"uniform-lower": -1,
	"uniform-upper": 1,
	"normal-mean":   0,
	"normal-sd":     1,
	"varscl-factor": 1,
}

// SetDefault changes one of the default values used by the constructors in this package. The
// names are "uniform-lower", "uniform-upper", "normal-mean", "normal-sd" and "varscl-factor".
func SetDefault(name string, value float64) error {
	if _, ok := defaultValue[name]; !ok {
		return errors.Errorf("Value with name %q does not exist", name)
	} else if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.Errorf("Value is invalid (%v)", value)
	}

	defaultValue[name] = value
	return nil
}

// SetDefault_Lazy simply calls SetDefault, but panics instead of returning an error
func SetDefault_Lazy(name string, value float64) {
	if err := SetDefault(name, value); err != nil {
		panic(err)
	}
}

// Default returns the Initializer used when none is given: uniform in ±1/sqrt(fanIn).
func Default() Initializer {
	return FanScaled()
}

// ByName returns the named Initializer. Recognized names are "default", "uniform", "xavier",
// "he" and "lecun".
func ByName(name string) (Initializer, error) {
	switch name {
	case "", "default":
		return Default(), nil
	case "uniform":
		return Uniform(), nil
	case "xavier", "glorot":
		return Xavier(), nil
	case "he":
		return He(), nil
	case "lecun":
		return LeCun(), nil
	default:
		return nil, errors.Errorf("Unknown initializer %q", name)
	}
}
