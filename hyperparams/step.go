package hyperparams

import "math"

type step struct {
	Epoch int
	Val   float64
}

type stepper struct {
	steps []step

	// after the last step, the value is multiplied by rate every 'every' epochs
	every int
	rate  float64
}

// Step returns a piecewise-constant HyperParameter that starts at base. Further steps are added
// with Add, in increasing order of epoch, and a periodic decay after the last step with Repeat.
func Step(base float64) *stepper {
	return &stepper{steps: []step{{0, base}}}
}

// Add makes the value change to 'value' from the given epoch onwards.
func (s *stepper) Add(epoch int, value float64) *stepper {
	s.steps = append(s.steps, step{epoch, value})
	return s
}

// Repeat multiplies the value of the last step by rate every 'every' epochs after it.
func (s *stepper) Repeat(every int, rate float64) *stepper {
	s.every, s.rate = every, rate
	return s
}

func (s *stepper) TypeString() string {
	return "step"
}

func (s *stepper) Value(epoch int) float64 {
	i := len(s.steps) - 1
	for i > 0 && s.steps[i].Epoch > epoch {
		i--
	}

	v := s.steps[i].Val
	if i == len(s.steps)-1 && s.every > 0 && epoch > s.steps[i].Epoch {
		v *= math.Pow(s.rate, float64((epoch-s.steps[i].Epoch)/s.every))
	}
	return v
}
