// Package operators holds the trainable building blocks of the reader: linear projections, the
// output-gate-free LSTM cell and additive attention scoring. Every block is evaluated on an
// ag.Graph and exposes its parameters through Params.
package operators

import (
	"math"

	"github.com/pkg/errors"
)

var defaultValue = map[string]float64{
	"lstm-forget-bias": 0,
}

// SetDefault sets the default values for certain operators. The only value that can be set is
// "lstm-forget-bias", which is added to the forget-gate bias of every LSTMCell created afterwards.
func SetDefault(name string, value float64) error {
	if _, ok := defaultValue[name]; !ok {
		return errors.Errorf("Value with name %q does not exist", name)
	} else if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.Errorf("Value is invalid (%v)", value)
	}

	defaultValue[name] = value
	return nil
}

// SetDefault_Lazy simply calls SetDefault, but panics instead of returning an error
func SetDefault_Lazy(name string, value float64) {
	if err := SetDefault(name, value); err != nil {
		panic(err)
	}
}
