package qnet

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Training orders. With OrderCombined each batch trains both sub-networks in one step; with
// OrderAlternate every batch appears once per sub-network, and each step trains only one.
const (
	OrderCombined  string = "combined"
	OrderAlternate string = "alternate"
)

// step is one optimizer step of training: a batch index and the sub-networks to train on it.
type step struct {
	batch    int
	networks []int
}

// trainingOrder lists the steps of one epoch, before shuffling.
func trainingOrder(numBatches int, order string) ([]step, error) {
	var steps []step
	switch order {
	case "", OrderCombined:
		for b := 0; b < numBatches; b++ {
			steps = append(steps, step{b, []int{SentenceNetwork, SpanNetwork}})
		}
	case OrderAlternate:
		for b := 0; b < numBatches; b++ {
			for n := 0; n < NumSubNetworks; n++ {
				steps = append(steps, step{b, []int{n}})
			}
		}
	default:
		return nil, errors.Errorf("Unknown training order %q", order)
	}

	return steps, nil
}

func shuffle(rng *rand.Rand, steps []step) {
	rng.Shuffle(len(steps), func(i, j int) {
		steps[i], steps[j] = steps[j], steps[i]
	})
}

// Every returns a function that is true on every 'frequency'th iteration, starting with the
// first. A frequency below 1 is never true.
func Every(frequency int) func(int) bool {
	return func(iteration int) bool {
		return frequency > 0 && iteration%frequency == 0
	}
}
