package penalties

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaleenx/q-net/ag"
)

func TestPenalize(t *testing.T) {
	cases := []struct {
		name    string
		p       Penalty
		w, want float64
	}{
		{"l1 positive", L1(0.1), 2, 0.6},
		{"l1 negative", L1(0.1), -2, 0.4},
		{"l1 zero", L1(0.1), 0, 0.5},
		{"l2", L2(0.1), 2, 0.9},
		{"elastic-net as l1", ElasticNet(1, 0.1), -3, 0.4},
		{"elastic-net as l2", ElasticNet(0, 0.1), 2, 0.9},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.InDelta(t, c.want, c.p.Penalize(c.w, 0.5), 1e-12)
		})
	}
}

func TestNew(t *testing.T) {
	p, err := New("none", 0.1, 0)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = New("l2", 0.1, 0)
	require.NoError(t, err)
	assert.Equal(t, "l2", p.TypeString())

	_, err = New("elastic-net", 0.1, 2)
	assert.Error(t, err)
	_, err = New("l3", 0.1, 0)
	assert.Error(t, err)
	_, err = New("l1", -1, 0)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	m := ag.FromRows([][]float64{{1, -1}})
	m.Dw[0], m.Dw[1] = 0.5, 0.5

	Apply(L2(0.25), []ag.Param{{Name: "w", Mat: m}})
	assert.Equal(t, []float64{1, 0}, m.Dw)

	Apply(nil, []ag.Param{{Name: "w", Mat: m}})
	assert.Equal(t, []float64{1, 0}, m.Dw)
}
