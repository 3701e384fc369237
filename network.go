package qnet

import (
	"math/rand"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/costfuncs"
)

// Model is the Match-LSTM reader: stacked bidirectional encoders over passage and question, stacked
// match layers attending from the passage to the question, and two boundary pointer sub-networks.
//
// A Model is not safe for concurrent use. Forward may be called any number of times, but a
// forward pass, its backward pass and the following optimizer step must not overlap with another.
type Model struct {
	cfg Config

	embedding *ag.Mat // VocabSize x EmbedSize
	encoders  []encoderLayer
	matchers  []matchLayer
	pointers  [NumSubNetworks]pointerNet

	cost costfuncs.Composer

	// rng is used for initialization, then for dropout
	rng      *rand.Rand
	training bool
}

// Config returns the configuration the Model was built with.
func (m *Model) Config() Config {
	return m.cfg
}

// SetTraining switches dropout on or off. New models start in evaluation mode.
func (m *Model) SetTraining(training bool) {
	m.training = training
}

// Training returns whether or not dropout is active.
func (m *Model) Training() bool {
	return m.training
}

// Embeddings returns the embedding table. It is included in Params unless it is frozen.
func (m *Model) Embeddings() *ag.Mat {
	return m.embedding
}

// Params returns every trainable parameter, in a fixed order: the embedding table (if learned),
// then the encoder, match and pointer layers.
func (m *Model) Params() []ag.Param {
	var ps []ag.Param
	if !m.cfg.FrozenEmbeddings {
		ps = append(ps, ag.Param{Name: "embedding", Mat: m.embedding})
	}

	for _, l := range m.encoders {
		ps = append(ps, l.params()...)
	}
	for _, l := range m.matchers {
		ps = append(ps, l.params()...)
	}
	for _, p := range m.pointers {
		ps = append(ps, p.params()...)
	}

	return ps
}

// ZeroGrads clears the gradients of every parameter.
func (m *Model) ZeroGrads() {
	for _, p := range m.Params() {
		p.ZeroGrads()
	}
}

func (m *Model) dropout(g *ag.Graph, xs []*ag.Mat) []*ag.Mat {
	if !m.training || m.cfg.Dropout == 0 {
		return xs
	}

	out := make([]*ag.Mat, len(xs))
	for t, x := range xs {
		out[t] = g.Dropout(x, m.cfg.Dropout, m.rng)
	}
	return out
}
