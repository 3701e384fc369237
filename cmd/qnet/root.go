package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shaleenx/q-net/config"
)

var (
	cfgFile string
	envFile string

	cfg    *config.Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "qnet",
		Short: "Match-LSTM reading comprehension on SQuAD",
		Long: `qnet trains a Match-LSTM model with a boundary pointer on SQuAD-format data.

Settings come from defaults, an optional YAML config file, QNET_ environment variables
(nested keys joined by underscores, e.g. QNET_TRAIN_EPOCHS) and command-line flags.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML)")
	flags.StringVar(&envFile, "env-file", ".env", "file of environment variables to load, if it exists")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("cache-dir", "cache", "directory of the preprocessed dataset cache")
	flags.String("glove", "", "GloVe word vectors, used as frozen embeddings")
	flags.Int("test-batch-size", 32, "batch size of evaluation passes")
	flags.Bool("debug", false, "use only a small prefix of every dataset")

	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))
	viper.BindPFlag("data.cache_dir", flags.Lookup("cache-dir"))
	viper.BindPFlag("data.glove_path", flags.Lookup("glove"))
	viper.BindPFlag("data.test_batch_size", flags.Lookup("test-batch-size"))
	viper.BindPFlag("data.debug", flags.Lookup("debug"))
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "Failed to load %q\n", envFile)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	var err error
	if cfg, err = config.Load(viper.GetViper()); err != nil {
		return err
	}

	if logger, err = config.NewLogger(cfg.Log, os.Stderr); err != nil {
		return err
	}
	slog.SetDefault(logger)

	if cfgFile != "" {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	}
	return nil
}
