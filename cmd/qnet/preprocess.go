package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shaleenx/q-net/squad"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Tokenize SQuAD files into the dataset cache",
	Long: `Preprocess reads the training and development SQuAD files, builds the dictionary over
both, labels every question with its answer and answer-sentence spans, and stores the results in
the dataset cache used by train, test and serve.`,
	RunE: runPreprocess,
}

func init() {
	rootCmd.AddCommand(preprocessCmd)

	flags := preprocessCmd.Flags()
	flags.String("train-json", "", "SQuAD training file")
	flags.String("dev-json", "", "SQuAD development file")
	flags.Int("max-train-articles", 0, "keep only this many training articles (0 for all)")
	flags.Int("max-dev-articles", 0, "keep only this many development articles (0 for all)")

	viper.BindPFlag("data.train_json", flags.Lookup("train-json"))
	viper.BindPFlag("data.dev_json", flags.Lookup("dev-json"))
	viper.BindPFlag("data.max_train_articles", flags.Lookup("max-train-articles"))
	viper.BindPFlag("data.max_dev_articles", flags.Lookup("max-dev-articles"))
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	if cfg.Data.TrainJSON == "" || cfg.Data.DevJSON == "" {
		return errors.New("Both --train-json and --dev-json are required")
	}

	store, err := squad.OpenStore(cfg.Data.CacheDir)
	if err != nil {
		return err
	}
	defer store.Close()

	dict := squad.NewDictionary()
	sources := []struct {
		name, path  string
		maxArticles int
	}{
		{"train", cfg.Data.TrainJSON, cfg.Data.MaxTrainArticles},
		{"dev", cfg.Data.DevJSON, cfg.Data.MaxDevArticles},
	}

	for _, src := range sources {
		f, err := squad.ReadFile(src.path, src.maxArticles)
		if err != nil {
			return err
		}

		d, err := squad.Build(f, squad.BuildArgs{Dictionary: dict, Grow: true, Logger: logger.With("dataset", src.name)})
		if err != nil {
			return errors.Wrapf(err, "Failed to preprocess %q\n", src.path)
		}

		if err := store.PutDataset(src.name, d); err != nil {
			return err
		}
	}

	if err := store.PutDictionary(dict); err != nil {
		return err
	}

	logger.Info("preprocessing finished", "cache", cfg.Data.CacheDir, "vocabulary", dict.Len())
	return nil
}
