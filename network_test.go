package qnet

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/costfuncs"
)

func TestNewRejectsMalformedConfig(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"odd hidden size", func(c *Config) { c.HiddenSize = 5 }, "HiddenSize"},
		{"no vocabulary", func(c *Config) { c.VocabSize = 0 }, "VocabSize"},
		{"pad outside vocabulary", func(c *Config) { c.PadIndex = 12 }, "PadIndex"},
		{"unknown optimizer", func(c *Config) { c.Optimizer = "Adagrad" }, "Optimizer"},
		{"unknown initializer", func(c *Config) { c.Initializer = "orthogonal" }, "Initializer"},
		{"ratio above one", func(c *Config) { c.F1LossRatio = 1.5 }, "F1LossRatio"},
		{"zero span limit", func(c *Config) { c.MaxAnswerSpan = 0 }, "MaxAnswerSpan"},
		{"dropout of one", func(c *Config) { c.Dropout = 1 }, "Dropout"},
		{"no match layers", func(c *Config) { c.MatchLayers = 0 }, "MatchLayers"},
		{"bad decay", func(c *Config) { c.DecayRate = 0 }, "DecayRate"},
		{"unknown schedule", func(c *Config) { c.Schedule = "cosine" }, "Schedule"},
		{"zero step period", func(c *Config) { c.Schedule, c.DecayEvery = "step", 0 }, "DecayEvery"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := tinyConfig()
			c.modify(&cfg)

			_, err := New(cfg, nil)
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, c.field, cerr.Field)
		})
	}
}

func TestNewEmbeddingMismatch(t *testing.T) {
	cfg := tinyConfig()

	_, err := New(cfg, ag.NewMat(cfg.VocabSize, cfg.EmbedSize+1))
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "EmbedSize", cerr.Field)

	cfg.FrozenEmbeddings = true
	_, err = New(cfg, nil)
	assert.Equal(t, ErrNoEmbeddings, err)
}

func TestNewIsReproducible(t *testing.T) {
	a, b := tinyModel(t, tinyConfig()), tinyModel(t, tinyConfig())

	pa, pb := a.Params(), b.Params()
	require.Equal(t, len(pa), len(pb))
	for i := range pa {
		assert.Equal(t, pa[i].Name, pb[i].Name)
		assert.Equal(t, pa[i].W, pb[i].W)
	}

	assert.Equal(t, make([]float64, 4), a.Embeddings().Row(0), "padding row")
}

func TestParamNamesAreUnique(t *testing.T) {
	cfg := tinyConfig()
	cfg.PreprocessingLayers, cfg.MatchLayers = 2, 2
	m := tinyModel(t, cfg)

	seen := map[string]bool{}
	for _, p := range m.Params() {
		assert.False(t, seen[p.Name], "duplicate %q", p.Name)
		seen[p.Name] = true
	}

	assert.True(t, seen["embedding"])
	assert.True(t, seen["encoder.1.cell.input.weight"])
	assert.True(t, seen["match.1.score.bias"])
	assert.True(t, seen["pointer.1.input_backward.weight"])
}

func TestOnlyPointerCellsHaveOutputGates(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	half := m.cfg.HiddenSize / 2

	for _, l := range m.encoders {
		assert.False(t, l.cell.Gated())
		assert.Equal(t, 3*half, l.cell.Input.Out())
	}
	for _, l := range m.matchers {
		assert.False(t, l.cell.Gated())
		assert.Equal(t, 3*half, l.cell.Input.Out())
	}

	for n, p := range m.pointers {
		require.True(t, p.cell.Gated(), "pointer %d", n)
		assert.Equal(t, 4*half, p.cell.Input.Out())
		assert.Equal(t, 4*half, p.cell.Hidden.Out())

		g := ag.NewGraph(false)
		x := ag.NewMat(1, p.cell.Input.In())
		for i := range x.W {
			x.W[i] = 0.1 * float64(i+1)
		}
		h, c := p.cell.Zero(1)
		h, c = p.cell.Step(g, x, h, c, []float64{1})

		differs := false
		for i, v := range h.Row(0) {
			if math.Abs(v-math.Tanh(c.Row(0)[i])) > 1e-9 {
				differs = true
			}
		}
		assert.True(t, differs, "pointer %d hidden state is tanh of its cell state", n)
	}
}

func TestFrozenEmbeddingsAreNotParams(t *testing.T) {
	cfg := tinyConfig()
	cfg.FrozenEmbeddings = true
	pre := ag.NewMat(cfg.VocabSize, cfg.EmbedSize)
	pre.Set(3, 1, 0.5)

	m, err := New(cfg, pre)
	require.NoError(t, err)

	for _, p := range m.Params() {
		assert.NotEqual(t, "embedding", p.Name)
	}
	assert.Equal(t, 0.5, m.Embeddings().At(3, 1))
}

func TestPointerDistributionsAreMaskedSimplices(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	b := tinyBatch()

	out, err := m.Forward(ag.NewGraph(false), b)
	require.NoError(t, err)

	for n, d := range out.Dists {
		require.NotNil(t, d, "network %d", n)
		for k := 0; k < NumPointerSteps; k++ {
			for _, dist := range []*ag.Mat{d.Forward[k], d.Backward[k]} {
				require.Equal(t, b.Size(), dist.Rows)
				require.Equal(t, b.Passage.MaxLen(), dist.Cols)

				for e, l := range b.Passage.Lens {
					var sum float64
					for i, p := range dist.Row(e) {
						if i < l {
							sum += p
							assert.Greater(t, p, 0.0)
						} else {
							assert.Equal(t, 0.0, p, "network %d step %d example %d position %d", n, k, e, i)
						}
					}
					assert.InDelta(t, 1, sum, 1e-9)
				}
			}
		}
	}
}

func TestQuestionPaddingDoesNotChangeDistributions(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	b := tinyBatch()
	padded := tinyBatch()
	for e := range padded.Question.IDs {
		padded.Question.IDs[e] = append(padded.Question.IDs[e], 0, 0)
		padded.Question.Tags[e] = append(padded.Question.Tags[e], -1, -1)
	}

	out, err := m.Forward(ag.NewGraph(false), b)
	require.NoError(t, err)
	outPadded, err := m.Forward(ag.NewGraph(false), padded)
	require.NoError(t, err)

	for n, d := range out.Dists {
		dp := outPadded.Dists[n]
		for k := 0; k < NumPointerSteps; k++ {
			assert.InDeltaSlice(t, d.Forward[k].W, dp.Forward[k].W, 1e-12, "network %d step %d", n, k)
			assert.InDeltaSlice(t, d.Backward[k].W, dp.Backward[k].W, 1e-12, "network %d step %d", n, k)
		}
	}
}

func TestEncoderStateIsZeroPastLength(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	b := tinyBatch()
	g := ag.NewGraph(false)

	for _, seq := range []Sequence{b.Passage, b.Question} {
		st := m.encoders[0].run(g, m.embed(g, seq), seq.Lens)

		for e, l := range seq.Lens {
			for ts := range st.H {
				zero := make([]float64, m.cfg.HiddenSize)
				if ts >= l {
					assert.Equal(t, zero, st.H[ts].Row(e), "hidden, example %d, t=%d", e, ts)
					assert.Equal(t, zero, st.C[ts].Row(e), "cell, example %d, t=%d", e, ts)
				} else {
					assert.NotEqual(t, zero, st.H[ts].Row(e))
				}
			}
		}
	}
}

func TestMatcherStateIsZeroPastLength(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	b := tinyBatch()
	g := ag.NewGraph(false)

	hp := m.encode(g, m.embed(g, b.Passage), b.Passage.Lens)
	hq := m.encode(g, m.embed(g, b.Question), b.Question.Lens)
	st := m.matchers[0].run(g, hp, hq, b.Passage.Lens, b.Question.Lens)

	require.Len(t, st.H, b.Passage.MaxLen())
	zero := make([]float64, m.cfg.HiddenSize)
	for ts := 3; ts < 5; ts++ {
		assert.Equal(t, zero, st.H[ts].Row(1))
		assert.Equal(t, zero, st.C[ts].Row(1))
	}
	assert.NotEqual(t, zero, st.H[4].Row(0))
}

func TestLossIsNonNegative(t *testing.T) {
	for _, ratio := range []float64{0, 0.3, 1} {
		cfg := tinyConfig()
		cfg.F1LossRatio = ratio
		m := tinyModel(t, cfg)

		for _, nets := range [][]int{{SentenceNetwork}, {SpanNetwork}, nil} {
			out, err := m.Forward(ag.NewGraph(false), tinyBatch(), nets...)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, out.Loss.W[0], 0.0)
			assert.False(t, math.IsNaN(out.Loss.W[0]))
		}
	}
}

func TestRatioZeroLossIsMLE(t *testing.T) {
	cfg := tinyConfig()
	cfg.F1LossRatio = 0
	m := tinyModel(t, cfg)

	b := tinyBatch()
	out, err := m.Forward(ag.NewGraph(false), b, SpanNetwork)
	require.NoError(t, err)
	require.Nil(t, out.Dists[SentenceNetwork])

	g := ag.NewGraph(false)
	mle := costfuncs.MLE(g, boundaries(out.Dists[SpanNetwork]), []int{1, 0}, []int{2, 1})
	assert.InDelta(t, (mle.W[0]+mle.W[1])/2, out.Loss.W[0], 1e-12)

	// the reward matrix has no effect
	for _, mat := range b.F1 {
		for _, row := range mat {
			for i := range row {
				row[i] = 0
			}
		}
	}
	zeroed, err := m.Forward(ag.NewGraph(false), b, SpanNetwork)
	require.NoError(t, err)
	assert.Equal(t, out.Loss.W[0], zeroed.Loss.W[0])
}

func TestForwardSumsNetworkLosses(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	b := tinyBatch()

	both, err := m.Forward(ag.NewGraph(false), b)
	require.NoError(t, err)
	sent, err := m.Forward(ag.NewGraph(false), b, SentenceNetwork)
	require.NoError(t, err)
	span, err := m.Forward(ag.NewGraph(false), b, SpanNetwork)
	require.NoError(t, err)

	assert.InDelta(t, sent.Loss.W[0]+span.Loss.W[0], both.Loss.W[0], 1e-12)
}

func TestForwardArguments(t *testing.T) {
	m := tinyModel(t, tinyConfig())

	_, err := m.Forward(ag.NewGraph(false), tinyBatch(), 2)
	assert.ErrorIs(t, err, ErrUnknownNetwork)

	_, err = m.Forward(nil, tinyBatch())
	assert.Error(t, err)
	_, err = m.Forward(ag.NewGraph(false), nil)
	assert.True(t, strings.HasSuffix(err.Error(), "is nil"))
}

func TestBackwardReachesEveryLayer(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	g := ag.NewGraph(true)

	out, err := m.Forward(g, tinyBatch())
	require.NoError(t, err)
	g.Backward(out.Loss)

	for _, p := range m.Params() {
		if p.Name == "embedding" {
			assert.Equal(t, make([]float64, m.cfg.EmbedSize), p.GradRow(m.cfg.PadIndex))
			continue
		}
		if strings.HasSuffix(p.Name, "score.bias") {
			// a shift shared by every position does not change a softmax
			continue
		}

		var norm float64
		for _, d := range p.Dw {
			norm += d * d
		}
		assert.Greater(t, norm, 0.0, "no gradient for %s", p.Name)
	}

	m.ZeroGrads()
	for _, p := range m.Params() {
		assert.Equal(t, make([]float64, p.Size()), p.Dw)
	}
}

func TestForwardGradientMatchesFiniteDifferences(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	b := tinyBatch()

	loss := func() float64 {
		out, err := m.Forward(ag.NewGraph(false), b)
		require.NoError(t, err)
		return out.Loss.W[0]
	}

	g := ag.NewGraph(true)
	out, err := m.Forward(g, b)
	require.NoError(t, err)
	g.Backward(out.Loss)

	const h = 1e-6
	for _, p := range m.Params() {
		for _, i := range []int{0, p.Size() / 2, p.Size() - 1} {
			orig := p.W[i]
			p.W[i] = orig + h
			plus := loss()
			p.W[i] = orig - h
			minus := loss()
			p.W[i] = orig

			numeric := (plus - minus) / (2 * h)
			assert.InDeltaf(t, numeric, p.Dw[i], 1e-5*math.Max(1, math.Abs(numeric)), "%s[%d]", p.Name, i)
		}
	}
}

func TestDropoutOnlyWhileTraining(t *testing.T) {
	cfg := tinyConfig()
	cfg.Dropout = 0.5
	m := tinyModel(t, cfg)
	b := tinyBatch()

	first, err := m.Forward(ag.NewGraph(false), b)
	require.NoError(t, err)
	second, err := m.Forward(ag.NewGraph(false), b)
	require.NoError(t, err)
	assert.Equal(t, first.Loss.W[0], second.Loss.W[0])

	m.SetTraining(true)
	assert.True(t, m.Training())
	differs := false
	for i := 0; i < 5 && !differs; i++ {
		out, err := m.Forward(ag.NewGraph(false), b)
		require.NoError(t, err)
		differs = out.Loss.W[0] != first.Loss.W[0]
	}
	assert.True(t, differs)
}
