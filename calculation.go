package qnet

import (
	"github.com/pkg/errors"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/costfuncs"
)

// Forward runs the model over a batch and returns the distributions of the selected sub-networks
// along with their summed loss. With no networks given, both are run.
//
// The span network is trained against b.Answers and the sentence network against b.Sentences;
// both use b.F1 for the expected-F1 term. To train, call g.Backward(out.Loss) on a Graph that
// needs backpropagation.
func (m *Model) Forward(g *ag.Graph, b *Batch, networks ...int) (*Output, error) {
	if g == nil {
		return nil, NilArgError{"Graph"}
	} else if b == nil {
		return nil, NilArgError{"Batch"}
	}

	if len(networks) == 0 {
		networks = []int{SentenceNetwork, SpanNetwork}
	}
	for _, n := range networks {
		if n < 0 || n >= NumSubNetworks {
			return nil, errors.Wrapf(ErrUnknownNetwork, "Can't run network %d\n", n)
		}
	}

	pLens, qLens := b.Passage.Lens, b.Question.Lens

	hp := m.encode(g, m.embed(g, b.Passage), pLens)
	hq := m.encode(g, m.embed(g, b.Question), qLens)
	hr := m.match(g, hp, hq, pLens, qLens)

	out := new(Output)
	for _, n := range networks {
		if out.Dists[n] != nil {
			continue
		}

		d := m.pointers[n].run(g, hr, hq, pLens, qLens)
		out.Dists[n] = d

		gold := b.Answers
		if n == SentenceNetwork {
			gold = b.Sentences
		}

		starts, ends := make([]int, len(gold)), make([]int, len(gold))
		for i, s := range gold {
			starts[i], ends[i] = s.Start, s.End
		}

		loss := m.cost.Loss(g, boundaries(d), starts, ends, b.F1)
		if out.Loss == nil {
			out.Loss = loss
		} else {
			out.Loss = g.Add(out.Loss, loss)
		}
	}

	return out, nil
}

func boundaries(d *Distributions) costfuncs.Boundaries {
	return costfuncs.Boundaries{
		ForwardStart:  d.ForwardStart(),
		ForwardEnd:    d.ForwardEnd(),
		BackwardEnd:   d.BackwardEnd(),
		BackwardStart: d.BackwardStart(),
	}
}
