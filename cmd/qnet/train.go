package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	qnet "github.com/shaleenx/q-net"
	"github.com/shaleenx/q-net/evaluate"
	"github.com/shaleenx/q-net/optimizers"
	"github.com/shaleenx/q-net/penalties"
	"github.com/shaleenx/q-net/squad"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model on the cached training set",
	Long: `Train builds a model (or resumes one from a checkpoint) and trains it on the cached
training set. After every epoch the development set is decoded and scored, its predictions are
written to the predictions directory, and a checkpoint is saved.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	flags := trainCmd.Flags()
	flags.Int("epochs", 50, "number of epochs")
	flags.Int("batch-size", 32, "training batch size")
	flags.String("order", qnet.OrderAlternate, "training order (alternate, combined)")
	flags.String("checkpoint-dir", "checkpoints", "directory of per-epoch checkpoints")
	flags.String("predictions-dir", "predictions", "directory of per-epoch dev predictions")
	flags.String("resume", "", "checkpoint to resume training from")
	flags.Float64("f1-loss-ratio", 0, "weight of the expected-F1 loss, in [0, 1]")
	flags.String("optimizer", "Adamax", "optimizer (SGD, Adamax, AdamW)")
	flags.Float64("learning-rate", 0.01, "initial learning rate")
	flags.String("schedule", "decay", "learning-rate schedule (decay, step, constant)")
	flags.Int("decay-every", 1, "epochs between learning-rate decays of the step schedule")

	viper.BindPFlag("train.epochs", flags.Lookup("epochs"))
	viper.BindPFlag("data.batch_size", flags.Lookup("batch-size"))
	viper.BindPFlag("train.order", flags.Lookup("order"))
	viper.BindPFlag("train.checkpoint_dir", flags.Lookup("checkpoint-dir"))
	viper.BindPFlag("train.predictions_dir", flags.Lookup("predictions-dir"))
	viper.BindPFlag("train.resume", flags.Lookup("resume"))
	viper.BindPFlag("model.f1_loss_ratio", flags.Lookup("f1-loss-ratio"))
	viper.BindPFlag("model.optimizer", flags.Lookup("optimizer"))
	viper.BindPFlag("model.learning_rate", flags.Lookup("learning-rate"))
	viper.BindPFlag("model.schedule", flags.Lookup("schedule"))
	viper.BindPFlag("model.decay_every", flags.Lookup("decay-every"))
}

func runTrain(cmd *cobra.Command, args []string) error {
	store, dict, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	train, err := loadDataset(store, "train", cfg.Data.BatchSize)
	if err != nil {
		return err
	}
	dev, err := loadDataset(store, "dev", cfg.Data.TestBatchSize)
	if err != nil {
		return err
	}

	trainArgs := qnet.TrainArgs{
		TrainData:      train.supplier,
		DevData:        dev.supplier,
		Lookup:         dev.supplier,
		Scorer:         evaluate.NewScorer(dev.data.GoldAnswers()),
		Epochs:         cfg.Train.Epochs,
		Order:          cfg.Train.Order,
		CheckpointDir:  cfg.Train.CheckpointDir,
		PredictionsDir: cfg.Train.PredictionsDir,
		LogEvery:       cfg.Train.LogEvery,
		Logger:         logger,
	}

	var m *qnet.Model
	if cfg.Train.Resume != "" {
		man, err := qnet.ReadManifest(cfg.Train.Resume)
		if err != nil {
			return err
		}

		pretrained, err := loadEmbeddings(dict, man.Config.EmbedSize)
		if err != nil {
			return err
		}

		var opt optimizers.Optimizer
		if m, opt, man, err = qnet.Load(cfg.Train.Resume, pretrained); err != nil {
			return err
		}

		trainArgs.Optimizer = opt
		trainArgs.StartEpoch = man.Epoch + 1
		trainArgs.RunID = man.RunID
		trainArgs.Seed = man.Config.Seed + int64(trainArgs.StartEpoch)
		logger.Info("resuming training", "checkpoint", cfg.Train.Resume, "epoch", trainArgs.StartEpoch)
	} else {
		modelCfg := cfg.QNet(dict.Len(), squad.NumTags)
		pretrained, err := loadEmbeddings(dict, modelCfg.EmbedSize)
		if err != nil {
			return err
		}

		if m, err = qnet.New(modelCfg, pretrained); err != nil {
			return err
		}
		trainArgs.Seed = modelCfg.Seed
	}

	if trainArgs.Penalty, err = penalties.New(cfg.Train.Penalty, cfg.Train.PenaltyLambda, cfg.Train.PenaltyAlpha); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Train.PredictionsDir, 0755); err != nil {
		return errors.Wrapf(err, "Failed to create predictions directory\n")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = m.Train(ctx, trainArgs)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		logger.Warn("training interrupted")
		return nil
	}
	return err
}
