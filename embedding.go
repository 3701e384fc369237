package qnet

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/shaleenx/q-net/ag"
)

// OOVReport lists the vocabulary words that a pretrained source had no vector for. Their rows are
// left at zero.
type OOVReport struct {
	Count int
	Words []string
}

// LoadGloVe reads word vectors in the GloVe text format ("word v1 v2 ... vN" per line) and
// returns a len(vocab) x dim table whose row i is the vector of vocab[i]. The word at padIndex
// is never looked up and never reported.
func LoadGloVe(r io.Reader, vocab []string, padIndex, dim int) (*ag.Mat, OOVReport, error) {
	if len(vocab) == 0 {
		return nil, OOVReport{}, errors.New("Vocabulary is empty")
	} else if dim < 1 {
		return nil, OOVReport{}, errors.Errorf("Embedding dimension must be positive, got %d", dim)
	}

	index := make(map[string]int, len(vocab))
	for i, w := range vocab {
		if i != padIndex {
			index[w] = i
		}
	}

	table := ag.NewMat(len(vocab), dim)
	found := make([]bool, len(vocab))

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		i, ok := index[fields[0]]
		if !ok || found[i] {
			continue
		}

		if len(fields)-1 != dim {
			return nil, OOVReport{}, errors.Errorf("Line %d: expected %d values for %q, got %d", line, dim, fields[0], len(fields)-1)
		}

		row := table.Row(i)
		for c, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, OOVReport{}, errors.Wrapf(err, "Line %d: bad value for %q\n", line, fields[0])
			}
			row[c] = v
		}
		found[i] = true
	}
	if err := sc.Err(); err != nil {
		return nil, OOVReport{}, errors.Wrapf(err, "Reading word vectors failed\n")
	}

	var report OOVReport
	for i, w := range vocab {
		if i != padIndex && !found[i] {
			report.Count++
			report.Words = append(report.Words, w)
		}
	}

	return table, report, nil
}

// embed returns the input features of every time step of s: the word embedding, followed by the
// one-hot tag if the model uses tags.
func (m *Model) embed(g *ag.Graph, s Sequence) []*ag.Mat {
	batch, T := s.BatchSize(), s.MaxLen()

	out := make([]*ag.Mat, T)
	ids := make([]int, batch)
	for t := 0; t < T; t++ {
		for b := 0; b < batch; b++ {
			ids[b] = s.IDs[b][t]
		}

		x := g.Lookup(m.embedding, append([]int(nil), ids...), m.cfg.PadIndex, m.cfg.FrozenEmbeddings)
		if m.cfg.NumTags > 0 {
			x = g.ConcatCols(x, oneHotTags(s.Tags, t, batch, m.cfg.NumTags))
		}
		out[t] = x
	}

	return out
}

func oneHotTags(tags [][]int, t, batch, numTags int) *ag.Mat {
	oh := ag.NewMat(batch, numTags)
	if tags == nil {
		return oh
	}

	for b := 0; b < batch; b++ {
		if tag := tags[b][t]; tag >= 0 && tag < numTags {
			oh.Set(b, tag, 1)
		}
	}
	return oh
}
