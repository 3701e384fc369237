package squad

import (
	qnet "github.com/shaleenx/q-net"
	"github.com/shaleenx/q-net/utils"
)

// F1Matrix returns the padded x padded reward matrix of a gold span: entry [s][e] is the token
// overlap F1 of the span (s, e) with gold, for s <= e < length, and zero everywhere else.
func F1Matrix(gold qnet.Span, length, padded int) [][]float64 {
	mat := make([][]float64, padded)
	for s := range mat {
		mat[s] = make([]float64, padded)
		if s >= length {
			continue
		}

		for e := s; e < length; e++ {
			lo, hi := max(s, gold.Start), min(e, gold.End)
			if hi < lo {
				continue
			}

			overlap := float64(hi - lo + 1)
			precision := overlap / float64(e-s+1)
			recall := overlap / float64(gold.Len())
			mat[s][e] = 2 * precision * recall / (precision + recall)
		}
	}

	return mat
}

// F1Matrices builds the reward matrix of every example of a batch, in parallel.
func F1Matrices(gold []qnet.Span, lens []int, padded int) [][][]float64 {
	out := make([][][]float64, len(gold))
	utils.MultiThread(0, len(gold), func(i int) {
		out[i] = F1Matrix(gold[i], lens[i], padded)
	}, 1, 1)
	return out
}
