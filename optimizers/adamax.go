package optimizers

import (
	"math"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/utils"
)

type adamax struct {
	beta1, beta2, eps float64

	steps int
	state slots
}

// Adamax returns the infinity-norm variant of Adam, with β1 = 0.9, β2 = 0.999 and ε = 1e-8. The
// values can be changed with Betas and Eps.
func Adamax() *adamax {
	return &adamax{beta1: 0.9, beta2: 0.999, eps: 1e-8, state: make(slots)}
}

// Betas sets the decay rates of the first moment and of the infinity norm.
func (o *adamax) Betas(beta1, beta2 float64) *adamax {
	o.beta1, o.beta2 = beta1, beta2
	return o
}

// Eps sets the term added to the gradient magnitude before taking the norm.
func (o *adamax) Eps(eps float64) *adamax {
	o.eps = eps
	return o
}

func (o *adamax) TypeString() string {
	return "Adamax"
}

func (o *adamax) Step(params []ag.Param, learningRate float64) {
	o.steps++
	stepSize := learningRate / (1 - math.Pow(o.beta1, float64(o.steps)))

	for _, p := range params {
		m, u := o.state.get(p, "exp_avg"), o.state.get(p, "exp_inf")

		f := func(i int) {
			g := p.Dw[i]
			m[i] = o.beta1*m[i] + (1-o.beta1)*g
			u[i] = math.Max(o.beta2*u[i], math.Abs(g)+o.eps)
			p.W[i] -= stepSize * m[i] / u[i]
		}

		utils.MultiThread(0, len(p.W), f, opsPerThread(len(p.W)), 1)
	}
}

func (o *adamax) Steps() int {
	return o.steps
}

func (o *adamax) State() []Slot {
	return o.state.export()
}

func (o *adamax) SetState(steps int, in []Slot) error {
	s, err := restore([]string{"exp_avg", "exp_inf"}, in)
	if err != nil {
		return err
	}

	o.steps, o.state = steps, s
	return nil
}
