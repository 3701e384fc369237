// Package results writes the outputs of a run: answer predictions in the JSON layout read by the
// SQuAD evaluation script, and pointer attention distributions as Parquet.
package results

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// AttentionRow is the distribution of one pointer step over a passage, truncated to the passage's
// true length.
type AttentionRow struct {
	QuestionID string    `parquet:"question_id"`
	Network    int32     `parquet:"network"`
	Kind       string    `parquet:"kind"` // "start" or "end"
	Probs      []float64 `parquet:"probs"`
}

// WritePredictions writes answer texts keyed by question id as a JSON object.
func WritePredictions(path string, predictions map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "Failed to create directory for %q\n", path)
	}

	data, err := json.MarshalIndent(predictions, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "Failed to encode predictions\n")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write predictions to %q\n", path)
	}
	return nil
}

// ReadPredictions reads a file written by WritePredictions.
func ReadPredictions(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read predictions from %q\n", path)
	}

	var preds map[string]string
	if err := json.Unmarshal(data, &preds); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode predictions in %q\n", path)
	}
	return preds, nil
}

// WriteAttention writes attention rows to a Parquet file.
func WriteAttention(path string, rows []AttentionRow) error {
	if len(rows) == 0 {
		return errors.New("No attention rows to write")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "Failed to create directory for %q\n", path)
	}

	if err := parquet.WriteFile(path, rows); err != nil {
		return errors.Wrapf(err, "Failed to write attention to %q\n", path)
	}
	return nil
}

// ReadAttention reads a file written by WriteAttention.
func ReadAttention(path string) ([]AttentionRow, error) {
	rows, err := parquet.ReadFile[AttentionRow](path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read attention from %q\n", path)
	}
	return rows, nil
}
