package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	qnet "github.com/shaleenx/q-net"
	"github.com/shaleenx/q-net/evaluate"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Evaluate a checkpoint on the cached development set",
	Long: `Test loads a checkpoint, decodes every question of the development set, and reports
the loss, exact match and F1. Predictions are written as JSON and, if requested, the sentence
network's start and end distributions as Parquet.`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)

	flags := testCmd.Flags()
	flags.String("checkpoint", "", "checkpoint directory to evaluate")
	flags.String("predictions", "predictions.json", "where to write the predictions")
	flags.String("attention", "", "where to write the attention distributions (Parquet)")

	viper.BindPFlag("test.checkpoint", flags.Lookup("checkpoint"))
	viper.BindPFlag("test.predictions_path", flags.Lookup("predictions"))
	viper.BindPFlag("test.attention_path", flags.Lookup("attention"))
}

func runTest(cmd *cobra.Command, args []string) error {
	if cfg.Test.Checkpoint == "" {
		return errors.New("--checkpoint is required")
	}

	store, dict, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	m, man, err := loadCheckpoint(cfg.Test.Checkpoint, dict)
	if err != nil {
		return err
	}

	dev, err := loadDataset(store, "dev", cfg.Data.TestBatchSize)
	if err != nil {
		return err
	}

	r, _, err := m.Test(cmd.Context(), qnet.TestArgs{
		Data:            dev.supplier,
		Lookup:          dev.supplier,
		Scorer:          evaluate.NewScorer(dev.data.GoldAnswers()),
		PredictionsPath: cfg.Test.PredictionsPath,
		AttentionPath:   cfg.Test.AttentionPath,
		Logger:          logger.With("run_id", man.RunID, "epoch", man.Epoch),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "loss %.4f  exact match %.2f  F1 %.2f\n", r.Loss, r.ExactMatch, r.F1)
	return nil
}
