package squad

import (
	"sort"

	"github.com/pkg/errors"

	qnet "github.com/shaleenx/q-net"
)

// Supplier serves the examples of a Dataset as padded batches. It implements qnet.DataSupplier
// and qnet.TextLookup.
type Supplier struct {
	data    *Dataset
	batches [][]int
	byID    map[string]int
}

// NewSupplier groups the examples of data into batches of batchSize, after sorting them by
// decreasing passage plus question length so that each batch holds examples of similar size. If
// limit is positive, only the first limit examples of that order are kept.
func NewSupplier(data *Dataset, batchSize, limit int) (*Supplier, error) {
	if data == nil {
		return nil, errors.New("Dataset is nil")
	} else if batchSize < 1 {
		return nil, errors.Errorf("Batch size must be positive, got %d", batchSize)
	}

	size := func(i int) int {
		ex := data.Examples[i]
		return len(ex.Question) + len(data.Passages[ex.Passage].IDs)
	}

	order := make([]int, len(data.Examples))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return size(order[a]) > size(order[b])
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	s := &Supplier{data: data, byID: make(map[string]int, len(data.Examples))}
	for i, ex := range data.Examples {
		s.byID[ex.ID] = i
	}
	for start := 0; start < len(order); start += batchSize {
		end := min(start+batchSize, len(order))
		s.batches = append(s.batches, order[start:end])
	}

	return s, nil
}

// NumBatches returns the number of batches.
func (s *Supplier) NumBatches() int {
	return len(s.batches)
}

// NumExamples returns the number of examples served.
func (s *Supplier) NumExamples() int {
	var n int
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

// Batch builds batch i.
func (s *Supplier) Batch(i int) (*qnet.Batch, error) {
	if i < 0 || i >= len(s.batches) {
		return nil, errors.Errorf("Batch index %d is out of range [0, %d)", i, len(s.batches))
	}

	var passages, questions [][]int
	var passageTags, questionTags [][]int

	b := new(qnet.Batch)
	for _, e := range s.batches[i] {
		ex := s.data.Examples[e]
		p := s.data.Passages[ex.Passage]

		b.QuestionIDs = append(b.QuestionIDs, ex.ID)
		b.Answers = append(b.Answers, ex.Answer)
		b.Sentences = append(b.Sentences, ex.Sentence)

		passages = append(passages, p.IDs)
		passageTags = append(passageTags, p.Tags)
		questions = append(questions, ex.Question)
		questionTags = append(questionTags, ex.QuestionTags)
	}

	b.Passage = pad(passages, passageTags)
	b.Question = pad(questions, questionTags)
	b.F1 = F1Matrices(b.Answers, b.Passage.Lens, b.Passage.MaxLen())

	return b, nil
}

// AnswerText returns the passage text from the first to the last token of the span. Spans reaching
// past the passage are clipped to it.
func (s *Supplier) AnswerText(questionID string, span qnet.Span) string {
	i, ok := s.byID[questionID]
	if !ok {
		return ""
	}

	return spanText(s.data.Passages[s.data.Examples[i].Passage], span)
}

func spanText(p Passage, span qnet.Span) string {
	last := len(p.Tokens) - 1
	start, end := min(max(span.Start, 0), last), min(span.End, last)
	if end < start {
		return ""
	}
	return p.Context[p.Tokens[start].Start:p.Tokens[end].End]
}

// pad right-pads sequences with PadIndex, and their tags with -1.
func pad(ids, tags [][]int) qnet.Sequence {
	var maxLen int
	for _, s := range ids {
		maxLen = max(maxLen, len(s))
	}

	seq := qnet.Sequence{
		IDs:  make([][]int, len(ids)),
		Lens: make([]int, len(ids)),
		Tags: make([][]int, len(ids)),
	}
	for b := range ids {
		seq.Lens[b] = len(ids[b])
		seq.IDs[b] = make([]int, maxLen)
		seq.Tags[b] = make([]int, maxLen)

		copy(seq.IDs[b], ids[b])
		for t := len(ids[b]); t < maxLen; t++ {
			seq.IDs[b][t] = PadIndex
		}

		copy(seq.Tags[b], tags[b])
		for t := len(tags[b]); t < maxLen; t++ {
			seq.Tags[b][t] = -1
		}
	}

	return seq
}

// Query is a single passage and question, prepared for inference.
type Query struct {
	Batch   *qnet.Batch
	Passage Passage
}

// Prepare tokenizes a passage and question into a batch of one example, for prediction. Words not
// in dict map to UnkIndex. The gold spans of the batch are placeholders.
func Prepare(dict *Dictionary, context, question string) (*Query, error) {
	if dict == nil {
		return nil, errors.New("Dictionary is nil")
	}

	pToks, qToks := Tokenize(context), Tokenize(question)
	if len(pToks) == 0 {
		return nil, errors.New("Passage has no tokens")
	} else if len(qToks) == 0 {
		return nil, errors.New("Question has no tokens")
	}

	p := Passage{Context: context, Tokens: pToks, IDs: dict.lookup(Words(pToks), false), Tags: Tags(pToks)}

	b := &qnet.Batch{
		Passage:   pad([][]int{p.IDs}, [][]int{p.Tags}),
		Question:  pad([][]int{dict.lookup(Words(qToks), false)}, [][]int{Tags(qToks)}),
		Answers:   []qnet.Span{{}},
		Sentences: []qnet.Span{{}},
	}
	b.F1 = F1Matrices(b.Answers, b.Passage.Lens, b.Passage.MaxLen())

	return &Query{Batch: b, Passage: p}, nil
}

// Text returns the passage text covered by span.
func (q *Query) Text(span qnet.Span) string {
	return spanText(q.Passage, span)
}
