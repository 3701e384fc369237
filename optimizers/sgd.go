package optimizers

import (
	"runtime"

	"github.com/pkg/errors"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/utils"
)

type sgd struct {
	steps int
}

// SGD returns plain stochastic gradient descent: w -= lr * grad.
func SGD() *sgd {
	return &sgd{}
}

func (o *sgd) TypeString() string {
	return "SGD"
}

func (o *sgd) Step(params []ag.Param, learningRate float64) {
	for _, p := range params {
		f := func(i int) {
			p.W[i] -= learningRate * p.Dw[i]
		}

		utils.MultiThread(0, len(p.W), f, opsPerThread(len(p.W)), 1)
	}

	o.steps++
}

func (o *sgd) Steps() int {
	return o.steps
}

func (o *sgd) State() []Slot {
	return nil
}

func (o *sgd) SetState(steps int, slots []Slot) error {
	if len(slots) != 0 {
		return errors.Errorf("SGD has no state, got %d slots", len(slots))
	}

	o.steps = steps
	return nil
}

// opsPerThread splits n updates into a few chunks per CPU.
func opsPerThread(n int) int {
	per := n / (runtime.NumCPU() * 4)
	if per < 1024 {
		per = 1024
	}
	return per
}
