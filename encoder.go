package qnet

import (
	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/operators"
)

// states are the per-time-step outputs of a bidirectional recurrent layer. H[t] and C[t] are the
// forward and backward states at t, concatenated along features.
type states struct {
	H, C []*ag.Mat
}

// encoderLayer is one bidirectional preprocessing layer. A single cell serves both directions,
// and both passage and question.
type encoderLayer struct {
	cell *operators.LSTMCell
}

func (l encoderLayer) params() []ag.Param {
	return l.cell.Params()
}

// run encodes xs, which is indexed by time. States beyond each example's length are zero.
func (l encoderLayer) run(g *ag.Graph, xs []*ag.Mat, lens []int) states {
	T, batch := len(xs), xs[0].Rows

	fwdH, fwdC := make([]*ag.Mat, T), make([]*ag.Mat, T)
	h, c := l.cell.Zero(batch)
	for t := 0; t < T; t++ {
		h, c = l.cell.Step(g, xs[t], h, c, operators.Mask(lens, t))
		fwdH[t], fwdC[t] = h, c
	}

	// the backward pass starts from zero state at the padded end; masking keeps it at zero until
	// each example's last real token
	bwdH, bwdC := make([]*ag.Mat, T), make([]*ag.Mat, T)
	h, c = l.cell.Zero(batch)
	for t := T - 1; t >= 0; t-- {
		h, c = l.cell.Step(g, xs[t], h, c, operators.Mask(lens, t))
		bwdH[t], bwdC[t] = h, c
	}

	out := states{H: make([]*ag.Mat, T), C: make([]*ag.Mat, T)}
	for t := 0; t < T; t++ {
		out.H[t] = g.ConcatCols(fwdH[t], bwdH[t])
		out.C[t] = g.ConcatCols(fwdC[t], bwdC[t])
	}

	return out
}

// encode runs every preprocessing layer, with dropout before each.
func (m *Model) encode(g *ag.Graph, xs []*ag.Mat, lens []int) []*ag.Mat {
	for _, l := range m.encoders {
		xs = l.run(g, m.dropout(g, xs), lens).H
	}
	return xs
}
