package qnet

import (
	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/operators"
)

// matchLayer builds a question-aware passage representation. At every passage position, in both
// directions, it attends over the question using the passage state and its own running state,
// then feeds [passage state ; attended question] to a cell shared by both directions.
type matchLayer struct {
	question *operators.Linear // H -> A
	passage  *operators.Linear // H -> A, with bias
	hidden   *operators.Linear // H/2 -> A
	score    *operators.Linear // A -> 1, with bias
	cell     *operators.LSTMCell
}

func (l matchLayer) params() []ag.Param {
	var ps []ag.Param
	for _, lin := range []*operators.Linear{l.question, l.passage, l.hidden, l.score} {
		ps = append(ps, lin.Params()...)
	}
	return append(ps, l.cell.Params()...)
}

// run computes Hr from Hp and Hq. The forward step at i and the backward step at T-1-i are
// taken in the same iteration.
func (l matchLayer) run(g *ag.Graph, hp, hq []*ag.Mat, pLens, qLens []int) states {
	T, batch := len(hp), hp[0].Rows

	wq := make([]*ag.Mat, len(hq))
	for t, h := range hq {
		wq[t] = l.question.Forward(g, h)
	}

	fwdH, fwdC := make([]*ag.Mat, T), make([]*ag.Mat, T)
	bwdH, bwdC := make([]*ag.Mat, T), make([]*ag.Mat, T)

	hf, cf := l.cell.Zero(batch)
	hb, cb := l.cell.Zero(batch)
	for i := 0; i < T; i++ {
		j := T - 1 - i

		zf := l.attend(g, hp[i], hf, wq, hq, qLens)
		hf, cf = l.cell.Step(g, zf, hf, cf, operators.Mask(pLens, i))
		fwdH[i], fwdC[i] = hf, cf

		zb := l.attend(g, hp[j], hb, wq, hq, qLens)
		hb, cb = l.cell.Step(g, zb, hb, cb, operators.Mask(pLens, j))
		bwdH[j], bwdC[j] = hb, cb
	}

	out := states{H: make([]*ag.Mat, T), C: make([]*ag.Mat, T)}
	for t := 0; t < T; t++ {
		out.H[t] = g.ConcatCols(fwdH[t], bwdH[t])
		out.C[t] = g.ConcatCols(fwdC[t], bwdC[t])
	}

	return out
}

// attend returns [hpi ; Σ_t α_t hq_t], with α a softmax over each example's question tokens.
func (l matchLayer) attend(g *ag.Graph, hpi, h *ag.Mat, wq, hq []*ag.Mat, qLens []int) *ag.Mat {
	base := g.Add(l.passage.Forward(g, hpi), l.hidden.Forward(g, h))

	energies := make([]*ag.Mat, len(wq))
	for t := range wq {
		energies[t] = g.Add(wq[t], base)
	}

	alpha := g.SoftmaxRows(operators.Scores(g, l.score, energies), qLens)
	return g.ConcatCols(hpi, g.WeightedSum(alpha, hq))
}

// match runs every match layer, with dropout after each.
func (m *Model) match(g *ag.Graph, hp, hq []*ag.Mat, pLens, qLens []int) []*ag.Mat {
	hr := hp
	for _, l := range m.matchers {
		hr = m.dropout(g, l.run(g, hr, hq, pLens, qLens).H)
	}
	return hr
}
