package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"The Eiffel Tower":   "eiffel tower",
		"  (1889).":          "1889",
		"the":                "the",
		"A\u00a0dog":         "dog",
		"\"quoted\"":         "quoted",
		"?":                  "?",
		"an apple, a day":    "apple, a day",
		"Paris":              "paris",
		"rock   and  roll!!": "rock and roll",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "%q", in)
	}
}

func TestExactMatch(t *testing.T) {
	gold := []string{"Denver Broncos", "the Broncos"}
	assert.True(t, ExactMatch("broncos", gold))
	assert.True(t, ExactMatch("Denver Broncos.", gold))
	assert.False(t, ExactMatch("Denver", gold))
	assert.False(t, ExactMatch("anything", nil))
}

func TestF1(t *testing.T) {
	assert.Equal(t, 1.0, F1("the Denver Broncos", []string{"Denver Broncos"}))
	assert.InDelta(t, 2.0/3, F1("Denver", []string{"Denver Broncos"}), 1e-12)
	assert.Equal(t, 0.0, F1("Carolina", []string{"Denver Broncos"}))

	// the best gold answer counts
	assert.Equal(t, 1.0, F1("Broncos", []string{"Denver Broncos", "Broncos"}))

	// repeated tokens only match as often as they appear
	assert.InDelta(t, 0.5, F1("new new", []string{"new york"}), 1e-12)

	// punctuation inside answers separates tokens
	assert.Equal(t, 1.0, F1("well-known", []string{"well known"}))
}

func TestScorer(t *testing.T) {
	s := NewScorer(map[string][]string{
		"a": {"Denver Broncos"},
		"b": {"Santa Clara"},
		"c": {"Levi's Stadium"},
	})

	em, f1 := s.Score(map[string]string{
		"a":     "Denver Broncos",
		"b":     "Clara",
		"extra": "ignored",
	})
	assert.InDelta(t, 50, em, 1e-9)
	assert.InDelta(t, 100*(1+2.0/3)/2, f1, 1e-9)

	em, f1 = s.Score(nil)
	assert.Equal(t, 0.0, em)
	assert.Equal(t, 0.0, f1)
}
