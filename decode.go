package qnet

import (
	"github.com/pkg/errors"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/utils"
)

// Decode picks one span per example by combining the boundary distributions of both
// sub-networks and both directions multiplicatively.
//
// For every start j within the example's length, the end e is chosen from [j, j+maxSpan) (or
// [j, length) if maxSpan is -1), clipped to the length, maximizing the product of the four end
// probabilities at e. That product, times the four start probabilities at j, is the span's score;
// the highest score wins. Ties go to the first span found. Decode is a pure function of its
// inputs.
func Decode(sentence, span *Distributions, lens []int, maxSpan int) ([]Span, error) {
	spans, _, err := DecodeScores(sentence, span, lens, maxSpan)
	return spans, err
}

// DecodeScores is Decode, also returning the score of every chosen span: the product of its eight
// boundary probabilities. An example of length zero gets the span (0, 0) with a score of 0.
func DecodeScores(sentence, span *Distributions, lens []int, maxSpan int) ([]Span, []float64, error) {
	if sentence == nil {
		return nil, nil, NilArgError{"Sentence distributions"}
	} else if span == nil {
		return nil, nil, NilArgError{"Span distributions"}
	} else if maxSpan == 0 || maxSpan < -1 {
		return nil, nil, errors.Errorf("Maximum answer span must be positive or -1, got %d", maxSpan)
	}

	starts := []*ag.Mat{span.ForwardStart(), span.BackwardStart(), sentence.ForwardStart(), sentence.BackwardStart()}
	ends := []*ag.Mat{span.ForwardEnd(), span.BackwardEnd(), sentence.ForwardEnd(), sentence.BackwardEnd()}

	for _, m := range append(starts, ends...) {
		if m.Rows != len(lens) {
			return nil, nil, &SizeMismatchError{What: "distribution rows", Expected: len(lens), Got: m.Rows}
		}
	}

	best := make([]Span, len(lens))
	scores := make([]float64, len(lens))
	decodeOne := func(b int) {
		product := func(ms []*ag.Mat, i int) float64 {
			p := 1.0
			for _, m := range ms {
				p *= m.At(b, i)
			}
			return p
		}

		length := lens[b]
		if length > starts[0].Cols {
			length = starts[0].Cols
		}

		bestScore := -1.0
		for j := 0; j < length; j++ {
			limit := length
			if maxSpan != -1 && j+maxSpan < limit {
				limit = j + maxSpan
			}

			end, endScore := j, product(ends, j)
			for e := j + 1; e < limit; e++ {
				if s := product(ends, e); s > endScore {
					end, endScore = e, s
				}
			}

			if score := endScore * product(starts, j); score > bestScore {
				bestScore = score
				best[b], scores[b] = Span{Start: j, End: end}, score
			}
		}
	}

	utils.MultiThread(0, len(lens), decodeOne, 4, 1)
	return best, scores, nil
}
