package qnet

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/hyperparams"
	"github.com/shaleenx/q-net/optimizers"
	"github.com/shaleenx/q-net/penalties"
	"github.com/shaleenx/q-net/results"
)

// Result reports the progress of training or testing.
type Result struct {
	// Epoch is the zero-based epoch the result belongs to.
	Epoch int

	// Loss is the mean loss per batch.
	Loss float64

	// ExactMatch and F1 are percentages, only set if a Scorer was given.
	ExactMatch float64
	F1         float64

	// IsDev is true for results of the development pass, false for the training summary.
	IsDev bool
}

// TrainArgs are the arguments to Train. Only TrainData and Epochs are required.
type TrainArgs struct {
	TrainData DataSupplier

	// DevData is evaluated after every epoch. It can be nil.
	DevData DataSupplier

	// Lookup gives the text of predicted dev answers, and Scorer grades them. Either can be nil,
	// in which case no predictions are written or no scores are computed.
	Lookup TextLookup
	Scorer Scorer

	// Epochs is the number of epochs to train for, counted from StartEpoch.
	Epochs     int
	StartEpoch int

	// Order is OrderCombined (the default) or OrderAlternate.
	Order string

	// Optimizer defaults to a fresh optimizer of the configured type.
	Optimizer optimizers.Optimizer

	// LearningRate defaults to the configured schedule.
	LearningRate hyperparams.HyperParameter

	// Penalty is an optional weight penalty added to the gradients before every step.
	Penalty penalties.Penalty

	// CheckpointDir is where a checkpoint is saved after every epoch, as CheckpointDir(dir,
	// epoch). Empty disables checkpoints.
	CheckpointDir string

	// PredictionsDir is where the dev predictions of each epoch are written. Empty disables them.
	PredictionsDir string

	// RunID is stored in every checkpoint. It defaults to a new id.
	RunID string

	// Seed seeds the shuffling of the training order.
	Seed int64

	// LogEvery sets how often, in steps, the batch loss is logged at debug level.
	LogEvery int

	Logger *slog.Logger

	// Update, if not nil, receives a Result after every epoch and every dev pass.
	Update func(Result)
}

// Train runs the training loop: every epoch shuffles the (batch, sub-networks) steps, applies an
// optimizer step for each, evaluates on the dev data, and saves a checkpoint. Train stops early,
// returning ctx.Err(), if ctx is cancelled; the current step is finished first.
func (m *Model) Train(ctx context.Context, args TrainArgs) error {
	// handle error cases and set defaults
	{
		if args.TrainData == nil {
			return NilArgError{"TrainData"}
		} else if args.Epochs < 1 {
			return errors.Errorf("Epochs must be positive, got %d", args.Epochs)
		}

		if args.Logger == nil {
			args.Logger = slog.Default()
		}
		if args.Update == nil {
			args.Update = func(Result) {}
		}
		if args.RunID == "" {
			args.RunID = NewRunID()
		}

		if args.Optimizer == nil {
			opt, err := optimizers.New(m.cfg.Optimizer)
			if err != nil {
				return errors.Wrapf(err, "Can't create optimizer\n")
			}
			args.Optimizer = opt
		}

		if args.LearningRate == nil {
			lr, err := hyperparams.Schedule(m.cfg.Schedule, m.cfg.LearningRate, m.cfg.DecayRate, m.cfg.DecayEvery)
			if err != nil {
				return errors.Wrapf(err, "Can't create learning-rate schedule\n")
			}
			args.LearningRate = lr
		}
	}

	steps, err := trainingOrder(args.TrainData.NumBatches(), args.Order)
	if err != nil {
		return err
	} else if len(steps) == 0 {
		return errors.New("Training data has no batches")
	}

	log := args.Logger.With("run_id", args.RunID)
	rng := rand.New(rand.NewSource(args.Seed))
	params := m.Params()

	defer m.SetTraining(false)

	for epoch := args.StartEpoch; epoch < args.StartEpoch+args.Epochs; epoch++ {
		lr := args.LearningRate.Value(epoch)
		start := time.Now()

		m.SetTraining(true)
		var total float64
		for i, s := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}

			b, err := args.TrainData.Batch(s.batch)
			if err != nil {
				return errors.Wrapf(err, "Failed to get training batch %d on epoch %d\n", s.batch, epoch)
			}

			g := ag.NewGraph(true)
			out, err := m.Forward(g, b, s.networks...)
			if err != nil {
				return errors.Wrapf(err, "Forward pass failed on batch %d of epoch %d\n", s.batch, epoch)
			}

			g.Backward(out.Loss)
			penalties.Apply(args.Penalty, params)
			args.Optimizer.Step(params, lr)
			m.ZeroGrads()

			loss := out.Loss.W[0]
			total += loss

			if Every(args.LogEvery)(i) {
				log.Debug("training step", "epoch", epoch, "step", i, "batch", s.batch,
					"networks", s.networks, "loss", loss)
			}
		}
		m.SetTraining(false)

		r := Result{Epoch: epoch, Loss: total / float64(len(steps))}
		log.Info("epoch finished", "epoch", epoch, "loss", r.Loss, "learning_rate", lr,
			"steps", len(steps), "elapsed", time.Since(start).Round(time.Millisecond))
		args.Update(r)

		if args.DevData != nil {
			eval, err := m.Evaluate(ctx, args.DevData, args.Lookup, false)
			if err != nil {
				return errors.Wrapf(err, "Dev pass on epoch %d failed\n", epoch)
			}

			dev := Result{Epoch: epoch, Loss: eval.Loss, IsDev: true}
			if args.Scorer != nil && eval.Predictions != nil {
				dev.ExactMatch, dev.F1 = args.Scorer.Score(eval.Predictions)
			}

			if args.PredictionsDir != "" && eval.Predictions != nil {
				path := filepath.Join(args.PredictionsDir, fmt.Sprintf("predictions_epoch_%d.json", epoch))
				if err := results.WritePredictions(path, eval.Predictions); err != nil {
					return errors.Wrapf(err, "Failed to save dev predictions of epoch %d\n", epoch)
				}
			}

			log.Info("dev pass", "epoch", epoch, "loss", dev.Loss, "exact_match", dev.ExactMatch, "f1", dev.F1)
			args.Update(dev)
		}

		if args.CheckpointDir != "" {
			dir := CheckpointDir(args.CheckpointDir, epoch)
			if err := m.Save(dir, true, args.Optimizer, args.RunID, epoch); err != nil {
				return errors.Wrapf(err, "Failed to save checkpoint of epoch %d\n", epoch)
			}
			log.Info("saved checkpoint", "epoch", epoch, "path", dir)
		}

		shuffle(rng, steps)
	}

	return nil
}

// Evaluation is the result of running a model over a dataset without training.
type Evaluation struct {
	// Loss is the mean loss per batch of both sub-networks.
	Loss float64

	// Spans are the decoded spans, keyed by question id.
	Spans map[string]Span

	// Predictions are the answer texts, keyed by question id. They are nil without a TextLookup.
	Predictions map[string]string

	// Attention holds the start and end distributions of the sentence network, if requested.
	Attention []results.AttentionRow
}

// Evaluate runs the model in evaluation mode over every batch of data, decoding a span for every
// example.
func (m *Model) Evaluate(ctx context.Context, data DataSupplier, lookup TextLookup, keepAttention bool) (*Evaluation, error) {
	if data == nil {
		return nil, NilArgError{"data"}
	}

	training := m.training
	m.SetTraining(false)
	defer m.SetTraining(training)

	eval := &Evaluation{Spans: make(map[string]Span)}
	if lookup != nil {
		eval.Predictions = make(map[string]string)
	}

	n := data.NumBatches()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b, err := data.Batch(i)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to get batch %d\n", i)
		}

		out, err := m.Forward(ag.NewGraph(false), b)
		if err != nil {
			return nil, errors.Wrapf(err, "Forward pass failed on batch %d\n", i)
		}
		eval.Loss += out.Loss.W[0]

		spans, err := Decode(out.Dists[SentenceNetwork], out.Dists[SpanNetwork], b.Passage.Lens, m.cfg.MaxAnswerSpan)
		if err != nil {
			return nil, errors.Wrapf(err, "Decoding batch %d failed\n", i)
		}

		for e, s := range spans {
			qid := questionID(b, i, e)
			eval.Spans[qid] = s
			if lookup != nil {
				eval.Predictions[qid] = lookup.AnswerText(qid, s)
			}

			if keepAttention {
				d, l := out.Dists[SentenceNetwork], b.Passage.Lens[e]
				eval.Attention = append(eval.Attention,
					results.AttentionRow{QuestionID: qid, Network: int32(SentenceNetwork), Kind: "start",
						Probs: append([]float64(nil), d.ForwardStart().Row(e)[:l]...)},
					results.AttentionRow{QuestionID: qid, Network: int32(SentenceNetwork), Kind: "end",
						Probs: append([]float64(nil), d.ForwardEnd().Row(e)[:l]...)},
				)
			}
		}
	}

	if n > 0 {
		eval.Loss /= float64(n)
	}
	return eval, nil
}

// TestArgs are the arguments to Test. Only Data is required.
type TestArgs struct {
	Data   DataSupplier
	Lookup TextLookup
	Scorer Scorer

	// PredictionsPath and AttentionPath are where predictions and sentence-network attention are
	// written. Either can be empty.
	PredictionsPath string
	AttentionPath   string

	Logger *slog.Logger
}

// Test evaluates the model on a dataset, writing its predictions and attention distributions.
func (m *Model) Test(ctx context.Context, args TestArgs) (Result, *Evaluation, error) {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	eval, err := m.Evaluate(ctx, args.Data, args.Lookup, args.AttentionPath != "")
	if err != nil {
		return Result{}, nil, err
	}

	r := Result{Loss: eval.Loss, IsDev: true}
	if args.Scorer != nil && eval.Predictions != nil {
		r.ExactMatch, r.F1 = args.Scorer.Score(eval.Predictions)
	}

	if args.PredictionsPath != "" && eval.Predictions != nil {
		if err := results.WritePredictions(args.PredictionsPath, eval.Predictions); err != nil {
			return r, eval, err
		}
	}
	if args.AttentionPath != "" && len(eval.Attention) > 0 {
		if err := results.WriteAttention(args.AttentionPath, eval.Attention); err != nil {
			return r, eval, err
		}
	}

	args.Logger.Info("test finished", "loss", r.Loss, "exact_match", r.ExactMatch, "f1", r.F1,
		"examples", len(eval.Spans))
	return r, eval, nil
}

func questionID(b *Batch, batch, example int) string {
	if example < len(b.QuestionIDs) {
		return b.QuestionIDs[example]
	}
	return fmt.Sprintf("batch%d-%d", batch, example)
}
