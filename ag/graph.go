package ag

import "sync"

// Graph records the backward closures of the operations performed through it. A Graph with
// NeedsBackprop set to false only evaluates, which is what inference uses.
type Graph struct {
	NeedsBackprop bool

	backprop []func()
	mux      sync.Mutex
}

// NewGraph returns an empty Graph.
func NewGraph(needsBackprop bool) *Graph {
	return &Graph{NeedsBackprop: needsBackprop}
}

func (g *Graph) addBackward(f func()) {
	if !g.NeedsBackprop {
		return
	}

	g.mux.Lock()
	g.backprop = append(g.backprop, f)
	g.mux.Unlock()
}

// Len returns the number of recorded backward steps.
func (g *Graph) Len() int {
	return len(g.backprop)
}

// Backward seeds the gradient of root with ones and propagates it through every recorded
// operation, most recent first. root is usually the 1x1 loss. The tape is cleared afterwards,
// so Backward may only be called once per forward pass.
func (g *Graph) Backward(root *Mat) {
	for i := range root.Dw {
		root.Dw[i] = 1
	}

	for i := len(g.backprop) - 1; i >= 0; i-- {
		g.backprop[i]()
	}

	g.backprop = nil
}
