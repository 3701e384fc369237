package qnet

import (
	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/operators"
)

// pointerNet is one boundary pointer sub-network. The forward and backward directions have their
// own input projections and share everything else.
type pointerNet struct {
	question      *operators.Linear // H -> A, with bias
	questionScore *operators.Linear // A -> 1, with bias
	input         *operators.Linear // H -> A, with bias
	inputB        *operators.Linear // H -> A, with bias
	answer        *operators.Linear // H/2 -> A
	score         *operators.Linear // A -> 1, with bias
	cell          *operators.LSTMCell // with an output gate
}

func (p pointerNet) params() []ag.Param {
	var ps []ag.Param
	for _, lin := range []*operators.Linear{p.question, p.questionScore, p.input, p.inputB, p.answer, p.score} {
		ps = append(ps, lin.Params()...)
	}
	return append(ps, p.cell.Params()...)
}

// run produces the three distributions of each direction over the passage.
func (p pointerNet) run(g *ag.Graph, hr, hq []*ag.Mat, pLens, qLens []int) *Distributions {
	// question summary, shared by every step of both directions
	energies := make([]*ag.Mat, len(hq))
	for t, h := range hq {
		energies[t] = p.question.Forward(g, h)
	}
	alpha := g.SoftmaxRows(operators.Scores(g, p.questionScore, energies), qLens)
	summary := g.WeightedSum(alpha, hq)

	winF, winB := make([]*ag.Mat, len(hr)), make([]*ag.Mat, len(hr))
	for t, h := range hr {
		winF[t] = p.input.Forward(g, h)
		winB[t] = p.inputB.Forward(g, h)
	}

	return &Distributions{
		Forward:  p.decode(g, winF, hr, summary, pLens),
		Backward: p.decode(g, winB, hr, summary, pLens),
	}
}

// decode runs the pointer cell for NumPointerSteps steps from a zero state, recording the
// attention over the passage at each.
func (p pointerNet) decode(g *ag.Graph, win, hr []*ag.Mat, summary *ag.Mat, lens []int) (dists [NumPointerSteps]*ag.Mat) {
	batch := hr[0].Rows
	h, c := p.cell.Zero(batch)

	ones := make([]float64, batch)
	for i := range ones {
		ones[i] = 1
	}

	for k := 0; k < NumPointerSteps; k++ {
		wa := p.answer.Forward(g, h)

		energies := make([]*ag.Mat, len(win))
		for t := range win {
			energies[t] = g.Add(win[t], wa)
		}

		beta := g.SoftmaxRows(operators.Scores(g, p.score, energies), lens)
		dists[k] = beta

		if k < NumPointerSteps-1 {
			a := g.ConcatCols(g.WeightedSum(beta, hr), summary)
			h, c = p.cell.Step(g, a, h, c, ones)
		}
	}

	return dists
}
