// Package evaluate grades predicted answers against SQuAD gold answers by exact match and token
// F1, after normalizing both sides.
package evaluate

import (
	"strings"
)

const boundaryChars = " .,:;!?$%()[]-`'\""

var articles = map[string]bool{"the": true, "a": true, "an": true}

// Normalize lowercases an answer, replaces non-breaking spaces, strips whitespace and punctuation
// from both ends (keeping at least one character), and drops a leading article from answers of
// more than one word.
func Normalize(answer string) string {
	answer = strings.ReplaceAll(strings.ToLower(answer), "\u00a0", " ")

	for len(answer) > 1 && strings.IndexByte(boundaryChars, answer[0]) >= 0 {
		answer = answer[1:]
	}
	for len(answer) > 1 && strings.IndexByte(boundaryChars, answer[len(answer)-1]) >= 0 {
		answer = answer[:len(answer)-1]
	}

	words := strings.Fields(answer)
	if len(words) > 1 && articles[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func tokens(answer string) []string {
	answer = Normalize(answer)
	answer = strings.Map(func(r rune) rune {
		if r < 128 && strings.IndexByte(boundaryChars, byte(r)) >= 0 {
			return ' '
		}
		return r
	}, answer)
	return strings.Fields(answer)
}

// ExactMatch is true if the normalized prediction equals any normalized gold answer.
func ExactMatch(prediction string, gold []string) bool {
	p := Normalize(prediction)
	for _, g := range gold {
		if Normalize(g) == p {
			return true
		}
	}
	return false
}

// F1 returns the highest token F1, in [0, 1], of the prediction against any gold answer.
func F1(prediction string, gold []string) float64 {
	pred := tokens(prediction)
	counts := make(map[string]int, len(pred))
	for _, t := range pred {
		counts[t]++
	}

	var best float64
	for _, g := range gold {
		truth := tokens(g)

		remaining := make(map[string]int, len(counts))
		for t, n := range counts {
			remaining[t] = n
		}

		var same int
		for _, t := range truth {
			if remaining[t] > 0 {
				remaining[t]--
				same++
			}
		}
		if same == 0 {
			continue
		}

		precision := float64(same) / float64(len(pred))
		recall := float64(same) / float64(len(truth))
		best = max(best, 2*precision*recall/(precision+recall))
	}

	return best
}

// Scorer grades predictions against fixed gold answers. It implements qnet.Scorer.
type Scorer struct {
	gold map[string][]string
}

// NewScorer returns a Scorer for the gold answers, keyed by question id.
func NewScorer(gold map[string][]string) *Scorer {
	return &Scorer{gold: gold}
}

// Score returns the exact-match and F1 percentages over the questions that have a prediction.
// Predictions for unknown questions are ignored. With no scored questions, both are zero.
func (s *Scorer) Score(predictions map[string]string) (exactMatch, f1 float64) {
	var n int
	for id, gold := range s.gold {
		pred, ok := predictions[id]
		if !ok {
			continue
		}

		n++
		if ExactMatch(pred, gold) {
			exactMatch++
		}
		f1 += F1(pred, gold)
	}

	if n == 0 {
		return 0, 0
	}
	return 100 * exactMatch / float64(n), 100 * f1 / float64(n)
}
