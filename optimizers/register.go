// Package optimizers holds the parameter update rules used in training. Each is looked up by name
// through New, so the choice can come from configuration.
package optimizers

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/shaleenx/q-net/ag"
)

// Optimizer adjusts parameters given their accumulated gradients. Step does not clear the
// gradients; that is left to the caller.
type Optimizer interface {
	// TypeString returns the name that the Optimizer is registered under.
	TypeString() string

	// Step applies one update to every parameter, with the given learning rate.
	Step(params []ag.Param, learningRate float64)

	// Steps returns the number of calls to Step so far, including those restored by SetState.
	Steps() int

	// State returns every per-parameter slot needed to resume the Optimizer. Slots are sorted by
	// parameter name, then slot name.
	State() []Slot

	// SetState restores the Optimizer from the result of a previous call to State.
	SetState(steps int, slots []Slot) error
}

// Slot is one named vector of per-parameter optimizer state, such as a moment estimate.
type Slot struct {
	Param  string
	Name   string
	Values []float64
}

var registry = make(map[string]func() Optimizer)

func init() {
	list := map[string]func() Optimizer{
		"SGD":    func() Optimizer { return SGD() },
		"Adamax": func() Optimizer { return Adamax() },
		"AdamW":  func() Optimizer { return AdamW() },
	}

	for s, f := range list {
		if err := Register(s, f); err != nil {
			panic(err.Error())
		}
	}
}

// Register makes an Optimizer available through New.
func Register(name string, f func() Optimizer) error {
	if f == nil {
		return errors.Errorf("Can't register optimizer %q: constructor is nil", name)
	} else if _, ok := registry[name]; ok {
		return errors.Errorf("Optimizer %q is already registered", name)
	}

	registry[name] = f
	return nil
}

// New returns a fresh Optimizer of the named type.
func New(name string) (Optimizer, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("Unknown optimizer %q (available: %v)", name, Names())
	}

	return f(), nil
}

// Names returns the registered optimizer names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}

	sort.Strings(names)
	return names
}

// slots maintains named per-parameter vectors, created lazily with the size of the parameter.
type slots map[string]map[string][]float64

func (s slots) get(p ag.Param, name string) []float64 {
	byName, ok := s[p.Name]
	if !ok {
		byName = make(map[string][]float64)
		s[p.Name] = byName
	}

	v, ok := byName[name]
	if !ok || len(v) != len(p.W) {
		v = make([]float64, len(p.W))
		byName[name] = v
	}

	return v
}

func (s slots) export() []Slot {
	var out []Slot
	for param, byName := range s {
		for name, v := range byName {
			out = append(out, Slot{Param: param, Name: name, Values: append([]float64(nil), v...)})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Param != out[j].Param {
			return out[i].Param < out[j].Param
		}
		return out[i].Name < out[j].Name
	})

	return out
}

func restore(allowed []string, in []Slot) (slots, error) {
	s := make(slots)
	for _, sl := range in {
		ok := false
		for _, a := range allowed {
			ok = ok || a == sl.Name
		}
		if !ok {
			return nil, errors.Errorf("Unexpected optimizer slot %q for parameter %q", sl.Name, sl.Param)
		}

		if s[sl.Param] == nil {
			s[sl.Param] = make(map[string][]float64)
		}
		s[sl.Param][sl.Name] = append([]float64(nil), sl.Values...)
	}

	return s, nil
}
