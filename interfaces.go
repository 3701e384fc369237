package qnet

// DataSupplier is the source of batches for training and testing. Batches are identified by their
// index, so a supplier may load them lazily.
type DataSupplier interface {
	// NumBatches returns the number of batches in the dataset.
	NumBatches() int

	// Batch returns the batch with the given index, in [0, NumBatches()).
	Batch(int) (*Batch, error)
}

// TextLookup turns predicted spans back into answer text.
type TextLookup interface {
	// AnswerText returns the passage text covered by the span, for the example with the given
	// question id.
	AnswerText(questionID string, s Span) string
}

// Scorer grades predicted answers against the gold answers of a dataset.
type Scorer interface {
	// Score returns the exact-match and F1 percentages of the predictions, keyed by question id.
	Score(predictions map[string]string) (exactMatch, f1 float64)
}
