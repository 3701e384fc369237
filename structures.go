package qnet

import (
	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/hyperparams"
	"github.com/shaleenx/q-net/initializers"
	"github.com/shaleenx/q-net/optimizers"
)

// The two pointer sub-networks. Both share the same architecture; the sentence network is trained
// against the boundaries of the sentence containing the answer, the span network against the
// answer itself.
const (
	SentenceNetwork int = 0
	SpanNetwork     int = 1

	NumSubNetworks int = 2
)

// NumPointerSteps is the number of distributions each pointer direction produces. The first is
// discarded for prediction.
const NumPointerSteps int = 3

// Config is the full set of model and optimization settings. It is stored in every checkpoint.
type Config struct {
	VocabSize        int  `yaml:"vocab_size"`
	EmbedSize        int  `yaml:"embed_size"`
	PadIndex         int  `yaml:"pad_index"`
	FrozenEmbeddings bool `yaml:"frozen_embeddings"`
	NumTags          int  `yaml:"num_tags"`

	HiddenSize          int `yaml:"hidden_size"`
	AttentionSize       int `yaml:"attention_size"`
	PreprocessingLayers int `yaml:"preprocessing_layers"`
	MatchLayers         int `yaml:"match_layers"`

	Dropout       float64 `yaml:"dropout"`
	F1LossRatio   float64 `yaml:"f1_loss_ratio"`
	MaxAnswerSpan int     `yaml:"max_answer_span"`

	Optimizer    string  `yaml:"optimizer"`
	LearningRate float64 `yaml:"learning_rate"`

	// Schedule is the learning-rate schedule: "decay" (every epoch), "step" (every DecayEvery
	// epochs) or "constant".
	Schedule    string  `yaml:"schedule"`
	DecayRate   float64 `yaml:"decay_rate"`
	DecayEvery  int     `yaml:"decay_every"`
	Initializer string  `yaml:"initializer"`
	Seed        int64   `yaml:"seed"`
}

// DefaultConfig returns the standard settings. VocabSize and NumTags depend on the dataset and are
// left at zero.
func DefaultConfig() Config {
	return Config{
		EmbedSize:           300,
		HiddenSize:          300,
		AttentionSize:       150,
		PreprocessingLayers: 2,
		MatchLayers:         1,
		Dropout:             0.4,
		F1LossRatio:         0,
		MaxAnswerSpan:       15,
		Optimizer:           "Adamax",
		LearningRate:        0.01,
		Schedule:            "decay",
		DecayRate:           0.9,
		DecayEvery:          1,
		Initializer:         "default",
		Seed:                1,
	}
}

// Validate returns a *ConfigError describing the first malformed field, if any.
func (c Config) Validate() error {
	fail := func(field, reason string) error {
		return &ConfigError{Field: field, Reason: reason}
	}

	switch {
	case c.VocabSize < 1:
		return fail("VocabSize", "must be positive")
	case c.EmbedSize < 1:
		return fail("EmbedSize", "must be positive")
	case c.PadIndex < 0 || c.PadIndex >= c.VocabSize:
		return fail("PadIndex", "must be a vocabulary index")
	case c.NumTags < 0:
		return fail("NumTags", "must not be negative")
	case c.HiddenSize < 2 || c.HiddenSize%2 != 0:
		return fail("HiddenSize", "must be positive and even, to split between directions")
	case c.AttentionSize < 1:
		return fail("AttentionSize", "must be positive")
	case c.PreprocessingLayers < 1:
		return fail("PreprocessingLayers", "must be at least 1")
	case c.MatchLayers < 1:
		return fail("MatchLayers", "must be at least 1")
	case !(c.Dropout >= 0 && c.Dropout < 1):
		return fail("Dropout", "must be in [0, 1)")
	case !(c.F1LossRatio >= 0 && c.F1LossRatio <= 1):
		return fail("F1LossRatio", "must be in [0, 1]")
	case c.MaxAnswerSpan == 0 || c.MaxAnswerSpan < -1:
		return fail("MaxAnswerSpan", "must be positive, or -1 for no limit")
	case !(c.LearningRate > 0):
		return fail("LearningRate", "must be positive")
	case c.DecayEvery < 1:
		return fail("DecayEvery", "must be positive")
	}

	if _, err := optimizers.New(c.Optimizer); err != nil {
		return fail("Optimizer", err.Error())
	}
	if _, err := initializers.ByName(c.Initializer); err != nil {
		return fail("Initializer", err.Error())
	}
	if _, err := hyperparams.Schedule(c.Schedule, c.LearningRate, 1, 1); err != nil {
		return fail("Schedule", err.Error())
	}
	if _, err := hyperparams.Schedule(c.Schedule, c.LearningRate, c.DecayRate, c.DecayEvery); err != nil {
		return fail("DecayRate", err.Error())
	}

	return nil
}

// Span is an inclusive range of token indexes.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of tokens in the span.
func (s Span) Len() int {
	return s.End - s.Start + 1
}

// Sequence is a padded batch of token sequences.
type Sequence struct {
	// IDs are vocabulary indexes, indexed [batch][time]. Padding uses the configured PadIndex.
	IDs [][]int

	// Lens are the true lengths of each sequence.
	Lens []int

	// Tags are lexical tag indexes, indexed [batch][time]. -1 marks padding and is expanded to an
	// all-zero one-hot row. Tags may be nil if the model has no tags.
	Tags [][]int
}

// BatchSize returns the number of sequences.
func (s Sequence) BatchSize() int {
	return len(s.IDs)
}

// MaxLen returns the padded length.
func (s Sequence) MaxLen() int {
	if len(s.IDs) == 0 {
		return 0
	}
	return len(s.IDs[0])
}

// Batch is everything the model consumes for one step.
type Batch struct {
	// QuestionIDs identify each example for reporting. They are not used by the model.
	QuestionIDs []string

	Passage, Question Sequence

	// Answers are the gold answer spans, Sentences the spans of the sentences containing them.
	Answers   []Span
	Sentences []Span

	// F1 is the reward matrix of every example, indexed [batch][start][end] over the padded
	// passage length.
	F1 [][][]float64
}

// Size returns the number of examples in the batch.
func (b *Batch) Size() int {
	return b.Passage.BatchSize()
}

// Distributions are the outputs of one pointer sub-network. Each matrix is batch x passage length;
// every row is a distribution over that example's true length and zero beyond it.
type Distributions struct {
	Forward  [NumPointerSteps]*ag.Mat
	Backward [NumPointerSteps]*ag.Mat
}

// The forward pointer emits (start, end) at steps 1 and 2; the backward pointer emits (end, start).
func (d *Distributions) ForwardStart() *ag.Mat  { return d.Forward[1] }
func (d *Distributions) ForwardEnd() *ag.Mat    { return d.Forward[2] }
func (d *Distributions) BackwardEnd() *ag.Mat   { return d.Backward[1] }
func (d *Distributions) BackwardStart() *ag.Mat { return d.Backward[2] }

// Output is the result of Model.Forward.
type Output struct {
	// Dists holds the distributions of each sub-network that was run; the others are nil.
	Dists [NumSubNetworks]*Distributions

	// Loss is the 1x1 sum of the selected sub-networks' losses. Backpropagate from it.
	Loss *ag.Mat
}
