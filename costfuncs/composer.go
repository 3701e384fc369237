// Package costfuncs holds the training objectives of the boundary pointer: a maximum-likelihood
// loss over the gold boundaries and an expected-F1 loss against a per-example reward matrix,
// mixed by a ratio.
package costfuncs

import (
	"github.com/pkg/errors"

	"github.com/shaleenx/q-net/ag"
)

// Epsilon is the floor applied to every probability before taking its logarithm.
const Epsilon float64 = 1e-12

// NewComposer returns a Composer with the given F1 mixing ratio, which must be in [0, 1].
func NewComposer(ratio float64) (Composer, error) {
	if !(ratio >= 0 && ratio <= 1) {
		return Composer{}, errors.Errorf("F1 loss ratio must be in [0, 1], got %v", ratio)
	}

	return Composer{Ratio: ratio}, nil
}

// Composer mixes the two objectives:
//
//	loss = (Ratio·(F1_forward + F1_backward) + (1 − Ratio)·MLE) / batch
//
// With Ratio = 0 the expected-F1 terms are not computed at all.
type Composer struct {
	Ratio float64
}

// Loss returns the 1x1 composed loss for one sub-network. The backward joint distribution is
// indexed (start, end), with the start taken from the backward pointer's second distribution.
func (c Composer) Loss(g *ag.Graph, d Boundaries, starts, ends []int, reward [][][]float64) *ag.Mat {
	batch := float64(d.ForwardStart.Rows)

	loss := g.Scale(g.Sum(MLE(g, d, starts, ends)), (1-c.Ratio)/batch)
	if c.Ratio == 0 {
		return loss
	}

	f1 := g.Add(
		ExpectedF1(g, d.ForwardStart, d.ForwardEnd, reward),
		ExpectedF1(g, d.BackwardStart, d.BackwardEnd, reward),
	)

	return g.Add(loss, g.Scale(g.Sum(f1), c.Ratio/batch))
}
