package squad

import (
	"log/slog"

	"github.com/pkg/errors"

	qnet "github.com/shaleenx/q-net"
)

// Passage is a tokenized paragraph context.
type Passage struct {
	Context string
	Tokens  []Token
	IDs     []int
	Tags    []int
}

// Example is one question with its gold labels, ready for batching.
type Example struct {
	ID string

	// Passage is the index of the example's passage in Dataset.Passages.
	Passage int

	Question     []int
	QuestionTags []int

	// Answer is the token span of the first gold answer, Sentence the span of the sentences that
	// contain it.
	Answer   qnet.Span
	Sentence qnet.Span

	// Answers are the texts of every gold answer.
	Answers []string
}

// Dataset is a preprocessed SQuAD file.
type Dataset struct {
	Passages []Passage
	Examples []Example

	// Skipped counts the questions that had no answer that could be mapped onto passage tokens.
	Skipped int
}

// BuildArgs are the arguments to Build.
type BuildArgs struct {
	// Dictionary maps words to indexes. It is required.
	Dictionary *Dictionary

	// Grow adds unseen words to Dictionary. Without it they map to UnkIndex.
	Grow bool

	Logger *slog.Logger
}

// Build tokenizes and tags every passage and question of f and labels every answerable question
// with its answer and answer-sentence spans.
func Build(f *File, args BuildArgs) (*Dataset, error) {
	if f == nil {
		return nil, errors.New("SQuAD file is nil")
	} else if args.Dictionary == nil {
		return nil, errors.New("Dictionary is nil")
	}
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	d := new(Dataset)
	for _, article := range f.Data {
		for _, para := range article.Paragraphs {
			toks := Tokenize(para.Context)
			if len(toks) == 0 {
				d.Skipped += len(para.QAs)
				continue
			}

			p := Passage{
				Context: para.Context,
				Tokens:  toks,
				IDs:     args.Dictionary.lookup(Words(toks), args.Grow),
				Tags:    Tags(toks),
			}

			added := false
			for _, qa := range para.QAs {
				ex, ok := buildExample(qa, p, len(d.Passages), args)
				if !ok {
					d.Skipped++
					args.Logger.Debug("skipping question", "id", qa.ID, "title", article.Title)
					continue
				}

				d.Examples = append(d.Examples, ex)
				added = true
			}

			if added {
				d.Passages = append(d.Passages, p)
			}
		}
	}

	args.Logger.Info("built dataset", "passages", len(d.Passages), "examples", len(d.Examples),
		"skipped", d.Skipped, "vocabulary", args.Dictionary.Len())
	return d, nil
}

func buildExample(qa QA, p Passage, passage int, args BuildArgs) (Example, bool) {
	if qa.IsImpossible || len(qa.Answers) == 0 {
		return Example{}, false
	}

	qToks := Tokenize(qa.Question)
	if len(qToks) == 0 {
		return Example{}, false
	}

	ans := qa.Answers[0]
	span, ok := answerSpan(p.Context, p.Tokens, ans.AnswerStart, ans.Text)
	if !ok {
		return Example{}, false
	}

	texts := make([]string, len(qa.Answers))
	for i, a := range qa.Answers {
		texts[i] = a.Text
	}

	return Example{
		ID:           qa.ID,
		Passage:      passage,
		Question:     args.Dictionary.lookup(Words(qToks), args.Grow),
		QuestionTags: Tags(qToks),
		Answer:       span,
		Sentence:     sentenceSpan(p.Tokens, span),
		Answers:      texts,
	}, true
}

// answerSpan maps an answer, given by its character offset and text, onto the tokens that
// overlap it.
func answerSpan(context string, toks []Token, charStart int, text string) (qnet.Span, bool) {
	start := byteOffset(context, charStart)
	end := start + len(text)
	if text == "" || end > len(context) {
		return qnet.Span{}, false
	}

	s := qnet.Span{Start: -1, End: -1}
	for i, t := range toks {
		if t.End > start && t.Start < end {
			if s.Start < 0 {
				s.Start = i
			}
			s.End = i
		}
	}

	return s, s.Start >= 0
}

func isSentenceEnd(t Token) bool {
	return t.Text == "." || t.Text == "?" || t.Text == "!"
}

// sentenceSpan returns the tokens of every sentence that overlaps answer.
func sentenceSpan(toks []Token, answer qnet.Span) qnet.Span {
	s := qnet.Span{Start: 0, End: len(toks) - 1}

	for i := answer.Start - 1; i >= 0; i-- {
		if isSentenceEnd(toks[i]) {
			s.Start = i + 1
			break
		}
	}
	for i := answer.End; i < len(toks); i++ {
		if isSentenceEnd(toks[i]) {
			s.End = i
			break
		}
	}

	return s
}

// GoldAnswers returns the answer texts of every example, keyed by question id.
func (d *Dataset) GoldAnswers() map[string][]string {
	gold := make(map[string][]string, len(d.Examples))
	for _, ex := range d.Examples {
		gold[ex.ID] = ex.Answers
	}
	return gold
}
