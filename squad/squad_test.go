package squad

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qnet "github.com/shaleenx/q-net"
)

const sampleJSON = `{
  "version": "1.1",
  "data": [{
    "title": "Cats",
    "paragraphs": [{
      "context": "The cat sat on the mat. It was 3.5 feet wide! Dogs don't care.",
      "qas": [
        {"id": "q-wide", "question": "How wide was it?",
         "answers": [{"answer_start": 31, "text": "3.5 feet"}, {"answer_start": 31, "text": "3.5"}]},
        {"id": "q-where", "question": "Where did the cat sit?",
         "answers": [{"answer_start": 15, "text": "the mat"}]},
        {"id": "q-none", "question": "Why?", "answers": [], "is_impossible": true},
        {"id": "q-bad", "question": "What?", "answers": [{"answer_start": 100, "text": "nothing"}]}
      ]
    }, {
      "context": "Café owners sell crème brûlée.",
      "qas": [
        {"id": "q-sell", "question": "What do café owners sell?",
         "answers": [{"answer_start": 17, "text": "crème brûlée"}]}
      ]
    }]
  }]
}`

func sampleFile(t *testing.T) *File {
	t.Helper()

	f, err := Read(strings.NewReader(sampleJSON))
	require.NoError(t, err)
	return f
}

func tokenTexts(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestTokenize(t *testing.T) {
	text := "The cat sat on the mat. It was 3.5 feet wide! Dogs don't care."
	toks := Tokenize(text)

	assert.Equal(t, []string{
		"The", "cat", "sat", "on", "the", "mat", ".", "It", "was", "3.5", "feet", "wide", "!",
		"Dogs", "don't", "care", ".",
	}, tokenTexts(toks))

	for _, tok := range toks {
		assert.Equal(t, tok.Text, text[tok.Start:tok.End])
	}

	assert.Equal(t, []string{"(", "well-known", ")", "1,000", ",", "x", "$", "5"},
		tokenTexts(Tokenize("(well-known) 1,000, x $5")))
	assert.Empty(t, Tokenize("  \n\t "))
}

func TestTag(t *testing.T) {
	cases := map[string]int{
		"cat":    TagWord,
		"London": TagCapitalized,
		"The":    TagFunction,
		"what":   TagFunction,
		"3.5":    TagNumber,
		"1,000":  TagNumber,
		".":      TagPunct,
		"$":      TagPunct,
		"B52":    TagCapitalized,
	}
	for tok, want := range cases {
		assert.Equal(t, want, Tag(tok), tok)
	}
	assert.Equal(t, 5, NumTags)
}

func TestDictionary(t *testing.T) {
	d := NewDictionary()
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, PadWord, d.Word(PadIndex))
	assert.Equal(t, UnkWord, d.Word(UnkIndex))

	assert.Equal(t, 2, d.Add("cat"))
	assert.Equal(t, 2, d.Add("cat"))
	assert.Equal(t, 3, d.Add("dog"))
	assert.Equal(t, UnkIndex, d.Index("zebra"))
	assert.Equal(t, UnkWord, d.Word(99))

	again := DictionaryFrom(d.Words())
	assert.Equal(t, d.Words(), again.Words())
	assert.Equal(t, 3, again.Index("dog"))

	bare := DictionaryFrom([]string{"cat"})
	assert.Equal(t, []string{PadWord, UnkWord, "cat"}, bare.Words())
}

func TestBuild(t *testing.T) {
	dict := NewDictionary()
	d, err := Build(sampleFile(t), BuildArgs{Dictionary: dict, Grow: true})
	require.NoError(t, err)

	require.Len(t, d.Passages, 2)
	require.Len(t, d.Examples, 3)
	assert.Equal(t, 2, d.Skipped)

	byID := map[string]Example{}
	for _, ex := range d.Examples {
		byID[ex.ID] = ex
	}

	wide := byID["q-wide"]
	assert.Equal(t, qnet.Span{Start: 9, End: 10}, wide.Answer)
	assert.Equal(t, qnet.Span{Start: 7, End: 12}, wide.Sentence)
	assert.Equal(t, []string{"3.5 feet", "3.5"}, wide.Answers)
	assert.Equal(t, 0, wide.Passage)

	where := byID["q-where"]
	assert.Equal(t, qnet.Span{Start: 4, End: 5}, where.Answer)
	assert.Equal(t, qnet.Span{Start: 0, End: 6}, where.Sentence)

	// character offsets are not byte offsets
	sell := byID["q-sell"]
	assert.Equal(t, qnet.Span{Start: 3, End: 4}, sell.Answer)
	assert.Equal(t, 1, sell.Passage)

	// words are lowercased, so "The" and "the" share an index
	p := d.Passages[0]
	assert.Equal(t, p.IDs[0], p.IDs[4])
	assert.Equal(t, TagFunction, p.Tags[0])
	assert.Equal(t, TagNumber, p.Tags[9])
	assert.Len(t, wide.QuestionTags, len(wide.Question))

	assert.Equal(t, map[string][]string{
		"q-wide":  {"3.5 feet", "3.5"},
		"q-where": {"the mat"},
		"q-sell":  {"crème brûlée"},
	}, d.GoldAnswers())
	assert.Len(t, sampleFile(t).GoldAnswers(), 5)
}

func TestBuildWithoutGrowing(t *testing.T) {
	dict := NewDictionary()
	dict.Add("cat")

	d, err := Build(sampleFile(t), BuildArgs{Dictionary: dict})
	require.NoError(t, err)
	assert.Equal(t, 3, dict.Len())

	p := d.Passages[0]
	assert.Equal(t, UnkIndex, p.IDs[0])
	assert.Equal(t, 2, p.IDs[1])

	_, err = Build(nil, BuildArgs{Dictionary: dict})
	assert.Error(t, err)
	_, err = Build(sampleFile(t), BuildArgs{})
	assert.Error(t, err)
}

func TestF1Matrix(t *testing.T) {
	m := F1Matrix(qnet.Span{Start: 1, End: 2}, 4, 6)
	require.Len(t, m, 6)

	assert.Equal(t, 1.0, m[1][2])
	assert.InDelta(t, 2.0/3, m[1][1], 1e-12)
	assert.InDelta(t, 0.8, m[0][2], 1e-12)
	assert.Equal(t, 0.0, m[0][0])
	assert.Equal(t, 0.0, m[2][1], "end before start")
	assert.Equal(t, 0.0, m[1][4], "past the passage")
	assert.Equal(t, make([]float64, 6), m[5])

	all := F1Matrices([]qnet.Span{{Start: 0, End: 0}, {Start: 1, End: 2}}, []int{3, 4}, 6)
	require.Len(t, all, 2)
	assert.Equal(t, m, all[1])
	assert.Equal(t, 1.0, all[0][0][0])
}

func sampleDataset() *Dataset {
	passage := func(n int) Passage {
		p := Passage{}
		for i := 0; i < n; i++ {
			word := string(rune('a' + i))
			start := len(p.Context)
			if i > 0 {
				p.Context += " "
				start++
			}
			p.Context += word
			p.Tokens = append(p.Tokens, Token{Text: word, Start: start, End: start + 1})
			p.IDs = append(p.IDs, i+2)
			p.Tags = append(p.Tags, TagWord)
		}
		return p
	}

	return &Dataset{
		Passages: []Passage{passage(3), passage(6)},
		Examples: []Example{
			{ID: "short", Passage: 0, Question: []int{2}, QuestionTags: []int{0}, Answer: qnet.Span{Start: 1, End: 1}, Sentence: qnet.Span{Start: 0, End: 2}},
			{ID: "long", Passage: 1, Question: []int{2, 3, 4}, QuestionTags: []int{0, 1, 2}, Answer: qnet.Span{Start: 2, End: 4}, Sentence: qnet.Span{Start: 0, End: 5}},
			{ID: "middle", Passage: 1, Question: []int{3}, QuestionTags: []int{3}, Answer: qnet.Span{Start: 0, End: 0}, Sentence: qnet.Span{Start: 0, End: 5}},
		},
	}
}

func TestSupplier(t *testing.T) {
	s, err := NewSupplier(sampleDataset(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, s.NumBatches())
	assert.Equal(t, 3, s.NumExamples())

	b, err := s.Batch(0)
	require.NoError(t, err)
	require.NoError(t, b.Validate())

	assert.Equal(t, []string{"long", "middle"}, b.QuestionIDs)
	assert.Equal(t, []int{6, 6}, b.Passage.Lens)
	assert.Equal(t, []int{3, 1}, b.Question.Lens)
	assert.Equal(t, []int{3, PadIndex, PadIndex}, b.Question.IDs[1])
	assert.Equal(t, []int{3, -1, -1}, b.Question.Tags[1])
	assert.Equal(t, 1.0, b.F1[0][2][4])

	last, err := s.Batch(1)
	require.NoError(t, err)
	require.NoError(t, last.Validate())
	assert.Equal(t, []string{"short"}, last.QuestionIDs)

	_, err = s.Batch(2)
	assert.Error(t, err)

	assert.Equal(t, "c d e", s.AnswerText("long", qnet.Span{Start: 2, End: 4}))
	assert.Equal(t, "b c", s.AnswerText("short", qnet.Span{Start: 1, End: 7}))
	assert.Equal(t, "", s.AnswerText("unknown", qnet.Span{}))
}

func TestSupplierLimit(t *testing.T) {
	s, err := NewSupplier(sampleDataset(), 5, 1)
	require.NoError(t, err)
	require.Equal(t, 1, s.NumBatches())

	b, err := s.Batch(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, b.QuestionIDs)

	_, err = NewSupplier(sampleDataset(), 0, 0)
	assert.Error(t, err)
}

func TestPrepare(t *testing.T) {
	dict := NewDictionary()
	cat := dict.Add("cat")

	q, err := Prepare(dict, "A cat sat.", "Who sat?")
	require.NoError(t, err)
	require.NoError(t, q.Batch.Validate())

	assert.Equal(t, []int{UnkIndex, cat, UnkIndex, UnkIndex}, q.Batch.Passage.IDs[0])
	assert.Equal(t, []int{3}, q.Batch.Question.Lens)
	assert.Equal(t, "cat sat", q.Text(qnet.Span{Start: 1, End: 2}))

	_, err = Prepare(dict, " ", "Who?")
	assert.Error(t, err)
	_, err = Prepare(nil, "A cat.", "Who?")
	assert.Error(t, err)
}
