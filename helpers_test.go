package qnet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tinyConfig() Config {
	cfg := DefaultConfig()
	cfg.VocabSize = 12
	cfg.EmbedSize = 4
	cfg.NumTags = 3
	cfg.HiddenSize = 4
	cfg.AttentionSize = 3
	cfg.PreprocessingLayers = 1
	cfg.MatchLayers = 1
	cfg.Dropout = 0
	cfg.F1LossRatio = 0.5
	cfg.MaxAnswerSpan = 3
	return cfg
}

func tinyModel(t *testing.T, cfg Config) *Model {
	t.Helper()

	m, err := New(cfg, nil)
	require.NoError(t, err)
	return m
}

// spanF1 fills a reward matrix from token overlap with gold, over passage positions < length.
func spanF1(gold Span, length, padded int) [][]float64 {
	mat := make([][]float64, padded)
	for s := range mat {
		mat[s] = make([]float64, padded)
		for e := s; e < length; e++ {
			lo, hi := max(s, gold.Start), min(e, gold.End)
			if hi < lo {
				continue
			}
			overlap := float64(hi - lo + 1)
			p, r := overlap/float64(e-s+1), overlap/float64(gold.Len())
			mat[s][e] = 2 * p * r / (p + r)
		}
	}
	return mat
}

// tinyBatch is two examples: passages of length 5 and 3, questions of length 3 and 2.
func tinyBatch() *Batch {
	b := &Batch{
		QuestionIDs: []string{"q0", "q1"},
		Passage: Sequence{
			IDs:  [][]int{{1, 2, 3, 4, 5}, {6, 7, 8, 0, 0}},
			Lens: []int{5, 3},
			Tags: [][]int{{0, 1, 2, 0, 1}, {2, 2, 0, -1, -1}},
		},
		Question: Sequence{
			IDs:  [][]int{{9, 10, 11}, {9, 3, 0}},
			Lens: []int{3, 2},
			Tags: [][]int{{1, 1, 0}, {0, 2, -1}},
		},
		Answers:   []Span{{1, 2}, {0, 1}},
		Sentences: []Span{{0, 3}, {0, 2}},
	}

	b.F1 = [][][]float64{
		spanF1(b.Answers[0], 5, 5),
		spanF1(b.Answers[1], 3, 5),
	}
	return b
}

type memoryData []*Batch

func (d memoryData) NumBatches() int { return len(d) }

func (d memoryData) Batch(i int) (*Batch, error) { return d[i], nil }

type tokenLookup map[string][]string

func (l tokenLookup) AnswerText(qid string, s Span) string {
	toks := l[qid]
	text := ""
	for i := s.Start; i <= s.End && i < len(toks); i++ {
		if i > s.Start {
			text += " "
		}
		text += toks[i]
	}
	return text
}

type countingScorer struct{ calls int }

func (s *countingScorer) Score(preds map[string]string) (float64, float64) {
	s.calls++
	return 50, 75
}
