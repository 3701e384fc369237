// Package penalties adds weight regularization terms to parameter gradients before an optimizer
// step.
package penalties

import (
	"github.com/pkg/errors"

	"github.com/shaleenx/q-net/ag"
)

// Penalty returns the penalized gradient of a single weight.
type Penalty interface {
	TypeString() string
	Penalize(w, grad float64) float64
}

// New builds the named Penalty. An empty name or "none" gives a nil Penalty, which Apply accepts.
func New(name string, λ, α float64) (Penalty, error) {
	if λ < 0 {
		return nil, errors.Errorf("Penalty strength must be non-negative, got %v", λ)
	}

	switch name {
	case "", "none":
		return nil, nil
	case L1(0).TypeString():
		return L1(λ), nil
	case L2(0).TypeString():
		return L2(λ), nil
	case ElasticNet(0, 0).TypeString():
		if α < 0 || α > 1 {
			return nil, errors.Errorf("Elastic-net ratio must be in [0, 1], got %v", α)
		}
		return ElasticNet(α, λ), nil
	default:
		return nil, errors.Errorf("Unknown penalty %q", name)
	}
}

// Apply replaces the gradients of every parameter by their penalized values. A nil Penalty does
// nothing.
func Apply(p Penalty, params []ag.Param) {
	if p == nil {
		return
	}

	for _, param := range params {
		for i, w := range param.W {
			param.Dw[i] = p.Penalize(w, param.Dw[i])
		}
	}
}
