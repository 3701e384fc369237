package qnet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchValidate(t *testing.T) {
	require.NoError(t, tinyBatch().Validate())

	cases := []struct {
		name     string
		modify   func(*Batch)
		mismatch bool
	}{
		{"missing answer", func(b *Batch) { b.Answers = b.Answers[:1] }, true},
		{"missing F1 matrix", func(b *Batch) { b.F1 = b.F1[:1] }, true},
		{"short F1 row", func(b *Batch) { b.F1[1][2] = b.F1[1][2][:3] }, true},
		{"ragged passage", func(b *Batch) { b.Passage.IDs[1] = b.Passage.IDs[1][:4] }, true},
		{"ragged tags", func(b *Batch) { b.Question.Tags[0] = nil }, true},
		{"answer past length", func(b *Batch) { b.Answers[1] = Span{1, 3} }, false},
		{"reversed sentence", func(b *Batch) { b.Sentences[0] = Span{2, 1} }, false},
		{"zero length", func(b *Batch) { b.Question.Lens[1] = 0 }, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := tinyBatch()
			c.modify(b)

			err := b.Validate()
			require.Error(t, err)

			var sizeErr *SizeMismatchError
			assert.Equal(t, c.mismatch, errors.As(err, &sizeErr))
		})
	}

	assert.Error(t, new(Batch).Validate())
}

func TestSpanLen(t *testing.T) {
	assert.Equal(t, 1, Span{3, 3}.Len())
	assert.Equal(t, 4, Span{2, 5}.Len())
}
