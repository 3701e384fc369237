package operators

import (
	"math/rand"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/initializers"
)

// LSTMCell is a recurrent cell with input, forget and candidate gates. Without an output gate the
// hidden state is tanh of the cell state; a gated cell scales that by a fourth, output gate. A
// padding mask is applied to the new cell state, so masked rows of both the cell and hidden state
// are exactly zero.
type LSTMCell struct {
	Input  *Linear // in -> gates*size, with bias
	Hidden *Linear // size -> gates*size

	size  int
	gated bool
}

// NewLSTMCell creates a cell without an output gate, mapping 'in' input features to a state of
// 'size' features. Weights are drawn from the given Initializer (or the default) with a fan-in of
// size.
func NewLSTMCell(name string, in, size int, ini initializers.Initializer, rng *rand.Rand) *LSTMCell {
	return newLSTMCell(name, in, size, false, ini, rng)
}

// NewGatedLSTMCell creates a standard cell with an output gate, h = o ⊙ tanh(c).
func NewGatedLSTMCell(name string, in, size int, ini initializers.Initializer, rng *rand.Rand) *LSTMCell {
	return newLSTMCell(name, in, size, true, ini, rng)
}

func newLSTMCell(name string, in, size int, gated bool, ini initializers.Initializer, rng *rand.Rand) *LSTMCell {
	if ini == nil {
		ini = initializers.Default()
	}

	gates := 3
	if gated {
		gates = 4
	}

	c := &LSTMCell{
		Input:  &Linear{Name: name + ".input", W: ag.NewMat(in, gates*size), B: ag.NewMat(1, gates*size)},
		Hidden: &Linear{Name: name + ".hidden", W: ag.NewMat(size, gates*size)},
		size:   size,
		gated:  gated,
	}

	ini.Set(rng, size, gates*size, c.Input.W.W)
	ini.Set(rng, size, gates*size, c.Input.B.W)
	ini.Set(rng, size, gates*size, c.Hidden.W.W)

	if fb := defaultValue["lstm-forget-bias"]; fb != 0 {
		for i := size; i < 2*size; i++ {
			c.Input.B.W[i] += fb
		}
	}

	return c
}

// Size returns the number of features in the hidden and cell states.
func (c *LSTMCell) Size() int {
	return c.size
}

// Gated reports whether the cell has an output gate.
func (c *LSTMCell) Gated() bool {
	return c.gated
}

// Zero returns an all-zero hidden and cell state for a batch.
func (c *LSTMCell) Zero(batch int) (h, cell *ag.Mat) {
	return ag.NewMat(batch, c.size), ag.NewMat(batch, c.size)
}

// Step advances the state by one time step. mask has one value per row of x; rows with a zero
// mask come out as zero.
func (c *LSTMCell) Step(g *ag.Graph, x, h, cell *ag.Mat, mask []float64) (hNext, cellNext *ag.Mat) {
	gates := g.Add(c.Input.Forward(g, x), c.Hidden.Forward(g, h))

	in := g.Sigmoid(g.SliceCols(gates, 0, c.size))
	forget := g.Sigmoid(g.SliceCols(gates, c.size, 2*c.size))
	candidate := g.Tanh(g.SliceCols(gates, 2*c.size, 3*c.size))

	cellNext = g.Add(g.Eltmul(forget, cell), g.Eltmul(in, candidate))
	cellNext = g.MaskRows(cellNext, mask)
	hNext = g.Tanh(cellNext)

	if c.gated {
		out := g.Sigmoid(g.SliceCols(gates, 3*c.size, 4*c.size))
		hNext = g.Eltmul(out, hNext)
	}

	return hNext, cellNext
}

// Params returns the input projection's parameters, then the hidden projection's.
func (c *LSTMCell) Params() []ag.Param {
	return append(c.Input.Params(), c.Hidden.Params()...)
}
