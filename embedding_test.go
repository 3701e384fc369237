package qnet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaleenx/q-net/ag"
)

const gloveText = `the 0.1 0.2
cat 1 -2

dog 3 4
cat 9 9
<pad> 5 5
`

func TestLoadGloVe(t *testing.T) {
	vocab := []string{"<pad>", "the", "cat", "zebra"}

	table, oov, err := LoadGloVe(strings.NewReader(gloveText), vocab, 0, 2)
	require.NoError(t, err)

	assert.Equal(t, 4, table.Rows)
	assert.Equal(t, []float64{0, 0}, table.Row(0), "padding is never looked up")
	assert.Equal(t, []float64{0.1, 0.2}, table.Row(1))
	assert.Equal(t, []float64{1, -2}, table.Row(2), "first vector wins")
	assert.Equal(t, OOVReport{Count: 1, Words: []string{"zebra"}}, oov)
}

func TestLoadGloVeErrors(t *testing.T) {
	_, _, err := LoadGloVe(strings.NewReader(gloveText), []string{"<pad>", "the"}, 0, 3)
	assert.Error(t, err)

	_, _, err = LoadGloVe(strings.NewReader("the 0.1 x\n"), []string{"<pad>", "the"}, 0, 2)
	assert.Error(t, err)

	_, _, err = LoadGloVe(strings.NewReader(gloveText), nil, 0, 2)
	assert.Error(t, err)
}

func TestEmbedAppendsOneHotTags(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	b := tinyBatch()
	g := ag.NewGraph(false)

	xs := m.embed(g, b.Question)
	require.Len(t, xs, 3)

	for ts, x := range xs {
		require.Equal(t, m.cfg.EmbedSize+m.cfg.NumTags, x.Cols)
		for e := 0; e < b.Size(); e++ {
			row := x.Row(e)
			assert.Equal(t, m.embedding.Row(b.Question.IDs[e][ts]), row[:m.cfg.EmbedSize])

			tags := row[m.cfg.EmbedSize:]
			want := make([]float64, m.cfg.NumTags)
			if tag := b.Question.Tags[e][ts]; tag >= 0 {
				want[tag] = 1
			}
			assert.Equal(t, want, tags, "example %d, t=%d", e, ts)
		}
	}
}

func TestEmbedWithoutTags(t *testing.T) {
	cfg := tinyConfig()
	cfg.NumTags = 0
	m := tinyModel(t, cfg)

	b := tinyBatch()
	b.Passage.Tags = nil
	xs := m.embed(ag.NewGraph(false), b.Passage)
	assert.Equal(t, cfg.EmbedSize, xs[0].Cols)
}
