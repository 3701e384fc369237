// Package hyperparams provides learning-rate schedules, indexed by epoch.
package hyperparams

import (
	"github.com/pkg/errors"
)

// HyperParameter is a value that may change over the course of training.
type HyperParameter interface {
	TypeString() string

	// Value returns the value for the given (zero-based) epoch.
	Value(epoch int) float64
}

// Schedule builds the named schedule. "decay" multiplies base by rate after every epoch, "step"
// multiplies it by rate once every 'every' epochs, and "constant" ignores both.
func Schedule(name string, base, rate float64, every int) (HyperParameter, error) {
	switch name {
	case Constant(0).TypeString():
		return Constant(base), nil
	case "", Decay(0, 0).TypeString(), Step(0).TypeString():
	default:
		return nil, errors.Errorf("Unknown learning-rate schedule %q", name)
	}

	if rate <= 0 || rate > 1 {
		return nil, errors.Errorf("Decay rate must be in (0, 1], got %v", rate)
	}

	if name == Step(0).TypeString() {
		if every < 1 {
			return nil, errors.Errorf("Step schedule needs a positive period, got %d", every)
		}
		return Step(base).Repeat(every, rate), nil
	}
	return Decay(base, rate), nil
}
