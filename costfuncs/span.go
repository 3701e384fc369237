package costfuncs

import (
	"github.com/shaleenx/q-net/ag"
)

// Boundaries are the four boundary distributions of one pointer sub-network, each batch x T.
type Boundaries struct {
	ForwardStart, ForwardEnd   *ag.Mat
	BackwardEnd, BackwardStart *ag.Mat
}

// MLE returns the batch x 1 negative log likelihood of the gold boundaries:
//
//	−log P_fs[start] − log P_fe[end] − log P_be[end] − log P_bs[start]
func MLE(g *ag.Graph, d Boundaries, starts, ends []int) *ag.Mat {
	terms := []*ag.Mat{
		g.Pick(d.ForwardStart, starts),
		g.Pick(d.ForwardEnd, ends),
		g.Pick(d.BackwardEnd, ends),
		g.Pick(d.BackwardStart, starts),
	}

	total := g.Log(terms[0], Epsilon)
	for _, t := range terms[1:] {
		total = g.Add(total, g.Log(t, Epsilon))
	}

	return g.Scale(total, -1)
}

// ExpectedF1 returns the batch x 1 values −log Σ_{s,e} P_start[s]·P_end[e]·reward[s][e].
func ExpectedF1(g *ag.Graph, start, end *ag.Mat, reward [][][]float64) *ag.Mat {
	return g.Scale(g.Log(g.Bilinear(start, end, reward), Epsilon), -1)
}
