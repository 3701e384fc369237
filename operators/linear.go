package operators

import (
	"math/rand"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/initializers"
)

// Linear is an affine projection x·W (+ b) from In() to Out() features.
type Linear struct {
	Name string
	W    *ag.Mat // In x Out
	B    *ag.Mat // 1 x Out, nil if the projection has no bias
}

// NewLinear creates a Linear with weights drawn from the given Initializer, or from
// initializers.Default() if it is nil.
func NewLinear(name string, in, out int, bias bool, ini initializers.Initializer, rng *rand.Rand) *Linear {
	if ini == nil {
		ini = initializers.Default()
	}

	l := &Linear{Name: name, W: ag.NewMat(in, out)}
	ini.Set(rng, in, out, l.W.W)

	if bias {
		l.B = ag.NewMat(1, out)
		ini.Set(rng, in, out, l.B.W)
	}

	return l
}

func (l *Linear) In() int  { return l.W.Rows }
func (l *Linear) Out() int { return l.W.Cols }

// Forward projects every row of x.
func (l *Linear) Forward(g *ag.Graph, x *ag.Mat) *ag.Mat {
	out := g.Mul(x, l.W)
	if l.B != nil {
		out = g.AddRow(out, l.B)
	}
	return out
}

// Params returns the weights, then the bias if there is one.
func (l *Linear) Params() []ag.Param {
	ps := []ag.Param{{Name: l.Name + ".weight", Mat: l.W}}
	if l.B != nil {
		ps = append(ps, ag.Param{Name: l.Name + ".bias", Mat: l.B})
	}
	return ps
}
