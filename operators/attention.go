package operators

import (
	"github.com/shaleenx/q-net/ag"
)

// Scores turns a sequence of additive-attention energies, each batch x A, into a batch x T matrix
// of unnormalized scores: score[b][t] = v(tanh(energies[t][b])).
func Scores(g *ag.Graph, v *Linear, energies []*ag.Mat) *ag.Mat {
	cols := make([]*ag.Mat, len(energies))
	for t, e := range energies {
		cols[t] = v.Forward(g, g.Tanh(e))
	}

	return g.ConcatCols(cols...)
}

// Mask builds the padding mask of time step t: 1 for rows whose length exceeds t, else 0.
func Mask(lens []int, t int) []float64 {
	m := make([]float64, len(lens))
	for b, l := range lens {
		if t < l {
			m[b] = 1
		}
	}
	return m
}
