// Package squad turns SQuAD-format question answering data into batches for the qnet model: it
// reads the JSON files, tokenizes and tags passages and questions, maps answers onto token spans,
// and builds the F1 reward matrices of the expected-F1 loss. Preprocessed datasets are cached in a
// badger database by Store.
package squad

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// File is the content of a SQuAD JSON file.
type File struct {
	Data    []Article `json:"data"`
	Version string    `json:"version"`
}

// Article is one titled document with its paragraphs.
type Article struct {
	Title      string      `json:"title"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraph is a passage and the questions asked about it.
type Paragraph struct {
	Context string `json:"context"`
	QAs     []QA   `json:"qas"`
}

// QA is a question with its gold answers.
type QA struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Answers      []Answer `json:"answers"`
	IsImpossible bool     `json:"is_impossible,omitempty"`
}

// Answer is a gold answer. AnswerStart counts characters, not bytes, into the paragraph context.
type Answer struct {
	AnswerStart int    `json:"answer_start"`
	Text        string `json:"text"`
}

// Read decodes a SQuAD file.
func Read(r io.Reader) (*File, error) {
	f := new(File)
	if err := json.NewDecoder(r).Decode(f); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode SQuAD data\n")
	}
	return f, nil
}

// ReadFile decodes the SQuAD file at path. If maxArticles is positive, only that many articles
// are kept.
func ReadFile(path string, maxArticles int) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q\n", path)
	}
	defer fd.Close()

	f, err := Read(fd)
	if err != nil {
		return nil, errors.Wrapf(err, "Reading %q failed\n", path)
	}

	if maxArticles > 0 && len(f.Data) > maxArticles {
		f.Data = f.Data[:maxArticles]
	}
	return f, nil
}

// GoldAnswers returns the answer texts of every question, keyed by question id.
func (f *File) GoldAnswers() map[string][]string {
	gold := make(map[string][]string)
	for _, a := range f.Data {
		for _, p := range a.Paragraphs {
			for _, qa := range p.QAs {
				texts := make([]string, len(qa.Answers))
				for i, ans := range qa.Answers {
					texts[i] = ans.Text
				}
				gold[qa.ID] = texts
			}
		}
	}
	return gold
}
