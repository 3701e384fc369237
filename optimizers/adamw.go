package optimizers

import (
	"math"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/utils"
)

type adamW struct {
	beta1, beta2, eps, weightDecay float64

	steps int
	state slots
}

// AdamW returns Adam with decoupled weight decay. Defaults are β1 = 0.9, β2 = 0.999, ε = 1e-8 and
// a weight decay of 0.01.
func AdamW() *adamW {
	return &adamW{beta1: 0.9, beta2: 0.999, eps: 1e-8, weightDecay: 0.01, state: make(slots)}
}

// WeightDecay sets the decoupled decay factor, applied as w -= lr * wd * w.
func (o *adamW) WeightDecay(wd float64) *adamW {
	o.weightDecay = wd
	return o
}

func (o *adamW) TypeString() string {
	return "AdamW"
}

func (o *adamW) Step(params []ag.Param, learningRate float64) {
	o.steps++
	t := float64(o.steps)
	lrT := learningRate * math.Sqrt(1-math.Pow(o.beta2, t)) / (1 - math.Pow(o.beta1, t))

	for _, p := range params {
		m, v := o.state.get(p, "exp_avg"), o.state.get(p, "exp_avg_sq")

		f := func(i int) {
			g := p.Dw[i]
			if math.IsNaN(g) || math.IsInf(g, 0) {
				g = 0
			}

			m[i] = o.beta1*m[i] + (1-o.beta1)*g
			v[i] = o.beta2*v[i] + (1-o.beta2)*g*g

			p.W[i] -= lrT * m[i] / (math.Sqrt(v[i]) + o.eps)
			p.W[i] -= learningRate * o.weightDecay * p.W[i]
		}

		utils.MultiThread(0, len(p.W), f, opsPerThread(len(p.W)), 1)
	}
}

func (o *adamW) Steps() int {
	return o.steps
}

func (o *adamW) State() []Slot {
	return o.state.export()
}

func (o *adamW) SetState(steps int, in []Slot) error {
	s, err := restore([]string{"exp_avg", "exp_avg_sq"}, in)
	if err != nil {
		return err
	}

	o.steps, o.state = steps, s
	return nil
}
