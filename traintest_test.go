package qnet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaleenx/q-net/hyperparams"
	"github.com/shaleenx/q-net/optimizers"
	"github.com/shaleenx/q-net/results"
)

func tinyLookup() tokenLookup {
	return tokenLookup{
		"q0": {"the", "cat", "sat", "on", "mats"},
		"q1": {"a", "dog", "ran"},
	}
}

func TestTrain(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	before := append([]float64(nil), m.Params()[1].W...)

	dir := t.TempDir()
	ckpt, preds := filepath.Join(dir, "ckpt"), filepath.Join(dir, "preds")
	require.NoError(t, os.MkdirAll(preds, 0755))

	scorer := new(countingScorer)
	var updates []Result

	err := m.Train(context.Background(), TrainArgs{
		TrainData:      memoryData{tinyBatch(), tinyBatch()},
		DevData:        memoryData{tinyBatch()},
		Lookup:         tinyLookup(),
		Scorer:         scorer,
		Epochs:         2,
		CheckpointDir:  ckpt,
		PredictionsDir: preds,
		RunID:          "run-1",
		LogEvery:       1,
		Update:         func(r Result) { updates = append(updates, r) },
	})
	require.NoError(t, err)

	assert.False(t, m.Training())
	assert.NotEqual(t, before, m.Params()[1].W)

	require.Len(t, updates, 4)
	for i, r := range updates {
		assert.Equal(t, i/2, r.Epoch)
		assert.Equal(t, i%2 == 1, r.IsDev)
		assert.Greater(t, r.Loss, 0.0)
		if r.IsDev {
			assert.Equal(t, 50.0, r.ExactMatch)
			assert.Equal(t, 75.0, r.F1)
		}
	}
	assert.Equal(t, 2, scorer.calls)

	for epoch := 0; epoch < 2; epoch++ {
		p, err := results.ReadPredictions(filepath.Join(preds, fmt.Sprintf("predictions_epoch_%d.json", epoch)))
		require.NoError(t, err)
		assert.Len(t, p, 2)
		assert.Contains(t, p, "q0")
	}

	loaded, opt, man, err := Load(CheckpointDir(ckpt, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, "run-1", man.RunID)
	assert.Equal(t, 1, man.Epoch)
	assert.Equal(t, 4, opt.Steps())
	assert.Equal(t, m.Params()[1].W, loaded.Params()[1].W)
}

func TestTrainAlternateOrder(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	opt := optimizers.SGD()

	var updates []Result
	err := m.Train(context.Background(), TrainArgs{
		TrainData:    memoryData{tinyBatch(), tinyBatch(), tinyBatch()},
		Epochs:       1,
		StartEpoch:   4,
		Order:        OrderAlternate,
		Optimizer:    opt,
		LearningRate: hyperparams.Constant(0.1),
		Update:       func(r Result) { updates = append(updates, r) },
	})
	require.NoError(t, err)

	assert.Equal(t, 6, opt.Steps())
	require.Len(t, updates, 1)
	assert.Equal(t, 4, updates[0].Epoch)
}

func TestTrainArguments(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	ctx := context.Background()

	assert.Error(t, m.Train(ctx, TrainArgs{Epochs: 1}))
	assert.Error(t, m.Train(ctx, TrainArgs{TrainData: memoryData{tinyBatch()}}))
	assert.Error(t, m.Train(ctx, TrainArgs{TrainData: memoryData{}, Epochs: 1}))
	assert.Error(t, m.Train(ctx, TrainArgs{TrainData: memoryData{tinyBatch()}, Epochs: 1, Order: "random"}))
}

func TestTrainStopsOnCancel(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt := optimizers.SGD()
	err := m.Train(ctx, TrainArgs{
		TrainData: memoryData{tinyBatch()},
		Epochs:    3,
		Optimizer: opt,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, opt.Steps())
	assert.False(t, m.Training())
}

func TestTrainUsesConfiguredSchedule(t *testing.T) {
	cfg := tinyConfig()
	cfg.Schedule, cfg.DecayEvery = "step", 2
	m := tinyModel(t, cfg)

	require.NoError(t, m.Train(context.Background(), TrainArgs{
		TrainData: memoryData{tinyBatch()},
		Epochs:    1,
	}))

	m.cfg.Schedule = "cosine"
	err := m.Train(context.Background(), TrainArgs{
		TrainData: memoryData{tinyBatch()},
		Epochs:    1,
	})
	assert.ErrorContains(t, err, "learning-rate schedule")
}

type failingData struct {
	memoryData
	failAt int
}

func (d failingData) Batch(i int) (*Batch, error) {
	if i == d.failAt {
		return nil, errors.New("disk on fire")
	}
	return d.memoryData.Batch(i)
}

func TestTrainLeavesTrainingModeOnError(t *testing.T) {
	m := tinyModel(t, tinyConfig())

	err := m.Train(context.Background(), TrainArgs{
		TrainData: failingData{memoryData{tinyBatch(), tinyBatch()}, 1},
		Epochs:    1,
		Optimizer: optimizers.SGD(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.False(t, m.Training())

	err = m.Train(context.Background(), TrainArgs{
		TrainData: memoryData{nil},
		Epochs:    1,
		Optimizer: optimizers.SGD(),
	})
	require.Error(t, err)
	assert.False(t, m.Training())
}

func TestEvaluate(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	m.SetTraining(true)

	eval, err := m.Evaluate(context.Background(), memoryData{tinyBatch()}, tinyLookup(), true)
	require.NoError(t, err)
	assert.True(t, m.Training(), "training mode is restored")

	require.Len(t, eval.Spans, 2)
	for qid, s := range eval.Spans {
		assert.LessOrEqual(t, s.Start, s.End)
		assert.Less(t, s.End-s.Start, m.cfg.MaxAnswerSpan)
		assert.Equal(t, tinyLookup().AnswerText(qid, s), eval.Predictions[qid])
	}

	require.Len(t, eval.Attention, 4)
	assert.Len(t, eval.Attention[0].Probs, 5)
	assert.Len(t, eval.Attention[2].Probs, 3)

	noText, err := m.Evaluate(context.Background(), memoryData{tinyBatch()}, nil, false)
	require.NoError(t, err)
	assert.Nil(t, noText.Predictions)
	assert.Empty(t, noText.Attention)
	assert.Equal(t, eval.Loss, noText.Loss)
}

func TestTest(t *testing.T) {
	m := tinyModel(t, tinyConfig())
	dir := t.TempDir()

	r, eval, err := m.Test(context.Background(), TestArgs{
		Data:            memoryData{tinyBatch()},
		Lookup:          tinyLookup(),
		Scorer:          new(countingScorer),
		PredictionsPath: filepath.Join(dir, "predictions.json"),
		AttentionPath:   filepath.Join(dir, "attention.parquet"),
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, r.ExactMatch)

	preds, err := results.ReadPredictions(filepath.Join(dir, "predictions.json"))
	require.NoError(t, err)
	assert.Equal(t, eval.Predictions, preds)

	rows, err := results.ReadAttention(filepath.Join(dir, "attention.parquet"))
	require.NoError(t, err)
	assert.Equal(t, eval.Attention, rows)

	_, _, err = m.Test(context.Background(), TestArgs{})
	assert.Error(t, err)
}
