package qnet

import (
	"github.com/pkg/errors"
)

// Validate checks that every part of the batch agrees on the batch size and padded lengths, and
// that the gold spans lie within their passages. The model itself does not call Validate; it is
// for the code that builds batches.
func (b *Batch) Validate() error {
	n := b.Size()
	if n == 0 {
		return errors.New("Batch is empty")
	}

	counts := []struct {
		what string
		got  int
	}{
		{"question batch size", b.Question.BatchSize()},
		{"passage lengths", len(b.Passage.Lens)},
		{"question lengths", len(b.Question.Lens)},
		{"answers", len(b.Answers)},
		{"sentences", len(b.Sentences)},
		{"F1 matrices", len(b.F1)},
	}
	for _, c := range counts {
		if c.got != n {
			return &SizeMismatchError{What: c.what, Expected: n, Got: c.got}
		}
	}

	if err := b.Passage.validate("passage"); err != nil {
		return err
	}
	if err := b.Question.validate("question"); err != nil {
		return err
	}

	pLen := b.Passage.MaxLen()
	for i := 0; i < n; i++ {
		for _, s := range []Span{b.Answers[i], b.Sentences[i]} {
			if s.Start < 0 || s.End < s.Start || s.End >= b.Passage.Lens[i] {
				return errors.Errorf("Example %d: span (%d, %d) is outside passage of length %d",
					i, s.Start, s.End, b.Passage.Lens[i])
			}
		}

		if len(b.F1[i]) != pLen {
			return &SizeMismatchError{What: "F1 matrix rows", Expected: pLen, Got: len(b.F1[i])}
		}
		for _, row := range b.F1[i] {
			if len(row) != pLen {
				return &SizeMismatchError{What: "F1 matrix columns", Expected: pLen, Got: len(row)}
			}
		}
	}

	return nil
}

func (s Sequence) validate(name string) error {
	max := s.MaxLen()
	if max == 0 {
		return errors.Errorf("%s sequences are empty", name)
	}

	for i, ids := range s.IDs {
		if len(ids) != max {
			return &SizeMismatchError{What: name + " padded length", Expected: max, Got: len(ids)}
		}
		if s.Lens[i] < 1 || s.Lens[i] > max {
			return errors.Errorf("%s %d: length %d is outside [1, %d]", name, i, s.Lens[i], max)
		}
	}

	if s.Tags == nil {
		return nil
	}
	if len(s.Tags) != len(s.IDs) {
		return &SizeMismatchError{What: name + " tags", Expected: len(s.IDs), Got: len(s.Tags)}
	}
	for _, tags := range s.Tags {
		if len(tags) != max {
			return &SizeMismatchError{What: name + " tag length", Expected: max, Got: len(tags)}
		}
	}

	return nil
}
