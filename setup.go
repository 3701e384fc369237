package qnet

import (
	"fmt"
	"math/rand"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/costfuncs"
	"github.com/shaleenx/q-net/initializers"
	"github.com/shaleenx/q-net/operators"
)

// New builds a Model from cfg. Every parameter is drawn from an RNG seeded with cfg.Seed.
//
// pretrained is an optional VocabSize x EmbedSize table. With cfg.FrozenEmbeddings it is required
// and is never trained; otherwise it only provides the starting values of the learned table. The
// padding row of a learned table is always zero.
//
// A malformed configuration is reported as a *ConfigError.
func New(cfg Config, pretrained *ag.Mat) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if pretrained == nil && cfg.FrozenEmbeddings {
		return nil, ErrNoEmbeddings
	} else if pretrained != nil && (pretrained.Rows != cfg.VocabSize || pretrained.Cols != cfg.EmbedSize) {
		return nil, &ConfigError{
			Field: "EmbedSize",
			Reason: fmt.Sprintf("vocabulary x embedding is %dx%d, but the pretrained table is %dx%d",
				cfg.VocabSize, cfg.EmbedSize, pretrained.Rows, pretrained.Cols),
		}
	}

	ini, err := initializers.ByName(cfg.Initializer)
	if err != nil {
		return nil, &ConfigError{Field: "Initializer", Reason: err.Error()}
	}

	cost, err := costfuncs.NewComposer(cfg.F1LossRatio)
	if err != nil {
		return nil, &ConfigError{Field: "F1LossRatio", Reason: err.Error()}
	}

	m := &Model{
		cfg:  cfg,
		cost: cost,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}

	if pretrained != nil {
		m.embedding = pretrained.Clone()
	} else {
		m.embedding = ag.NewMat(cfg.VocabSize, cfg.EmbedSize)
		initializers.Random(initializers.Normal()).Set(m.rng, cfg.VocabSize, cfg.EmbedSize, m.embedding.W)
	}
	if !cfg.FrozenEmbeddings {
		pad := m.embedding.Row(cfg.PadIndex)
		for i := range pad {
			pad[i] = 0
		}
	}

	H, A := cfg.HiddenSize, cfg.AttentionSize
	half := H / 2

	linear := func(name string, in, out int, bias bool) *operators.Linear {
		return operators.NewLinear(name, in, out, bias, ini, m.rng)
	}
	cell := func(name string, in int) *operators.LSTMCell {
		return operators.NewLSTMCell(name, in, half, ini, m.rng)
	}

	m.encoders = make([]encoderLayer, cfg.PreprocessingLayers)
	for i := range m.encoders {
		in := H
		if i == 0 {
			in = cfg.EmbedSize + cfg.NumTags
		}
		m.encoders[i] = encoderLayer{cell: cell(fmt.Sprintf("encoder.%d.cell", i), in)}
	}

	m.matchers = make([]matchLayer, cfg.MatchLayers)
	for i := range m.matchers {
		prefix := fmt.Sprintf("match.%d.", i)
		m.matchers[i] = matchLayer{
			question: linear(prefix+"question", H, A, false),
			passage:  linear(prefix+"passage", H, A, true),
			hidden:   linear(prefix+"hidden", half, A, false),
			score:    linear(prefix+"score", A, 1, true),
			cell:     cell(prefix+"cell", 2*H),
		}
	}

	for n := range m.pointers {
		prefix := fmt.Sprintf("pointer.%d.", n)
		m.pointers[n] = pointerNet{
			question:      linear(prefix+"question", H, A, true),
			questionScore: linear(prefix+"question_score", A, 1, true),
			input:         linear(prefix+"input", H, A, true),
			inputB:        linear(prefix+"input_backward", H, A, true),
			answer:        linear(prefix+"answer", half, A, false),
			score:         linear(prefix+"score", A, 1, true),
			cell:          operators.NewGatedLSTMCell(prefix+"cell", 2*H, half, ini, m.rng),
		}
	}

	return m, nil
}
