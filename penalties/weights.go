package penalties

import "math"

// weightPenalty is λ·((1-α)·w² + α·|w|). L1 and L2 are the two ends of α.
type weightPenalty struct {
	name string
	λ, α float64
}

// L1 penalizes the absolute value of every weight. λ is a small positive strength.
func L1(λ float64) *weightPenalty {
	return &weightPenalty{"l1", λ, 1}
}

// L2 penalizes the square of every weight. λ is a small positive strength.
func L2(λ float64) *weightPenalty {
	return &weightPenalty{"l2", λ, 0}
}

// ElasticNet mixes L1 and L2: α = 1 is L1 and α = 0 is L2, with 0 ≤ α ≤ 1.
func ElasticNet(α, λ float64) *weightPenalty {
	return &weightPenalty{"elastic-net", λ, α}
}

func (p *weightPenalty) TypeString() string {
	return p.name
}

// Penalize adds the derivative of the penalty to grad. The subgradient of |w| at 0 is taken as 0.
func (p *weightPenalty) Penalize(w, grad float64) float64 {
	var sign float64
	if w != 0 {
		sign = math.Copysign(1, w)
	}
	return grad + p.λ*(2*(1-p.α)*w+p.α*sign)
}
