// Package config loads the settings of the qnet command from defaults, an optional YAML file and
// QNET_ environment variables, through viper.
package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	qnet "github.com/shaleenx/q-net"
)

// EnvPrefix is the prefix of every environment variable read by Load. Nested keys are joined with
// underscores, so "train.epochs" is QNET_TRAIN_EPOCHS.
const EnvPrefix string = "QNET"

// Config holds all configuration for the application.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Data   DataConfig   `mapstructure:"data"`
	Model  ModelConfig  `mapstructure:"model"`
	Train  TrainConfig  `mapstructure:"train"`
	Test   TestConfig   `mapstructure:"test"`
	Server ServerConfig `mapstructure:"server"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DataConfig says where datasets come from and how they are batched.
type DataConfig struct {
	TrainJSON string `mapstructure:"train_json"`
	DevJSON   string `mapstructure:"dev_json"`

	// CacheDir is the badger directory holding preprocessed datasets.
	CacheDir string `mapstructure:"cache_dir"`

	// GlovePath, if set, points to GloVe vectors used as frozen embeddings.
	GlovePath string `mapstructure:"glove_path"`

	MaxTrainArticles int `mapstructure:"max_train_articles"`
	MaxDevArticles   int `mapstructure:"max_dev_articles"`

	BatchSize     int `mapstructure:"batch_size"`
	TestBatchSize int `mapstructure:"test_batch_size"`

	// Debug keeps only the first DebugExamples examples of every dataset.
	Debug         bool `mapstructure:"debug"`
	DebugExamples int  `mapstructure:"debug_examples"`
}

// ModelConfig mirrors the dataset-independent fields of qnet.Config.
type ModelConfig struct {
	EmbedSize           int     `mapstructure:"embed_size"`
	HiddenSize          int     `mapstructure:"hidden_size"`
	AttentionSize       int     `mapstructure:"attention_size"`
	PreprocessingLayers int     `mapstructure:"preprocessing_layers"`
	MatchLayers         int     `mapstructure:"match_layers"`
	Dropout             float64 `mapstructure:"dropout"`
	F1LossRatio         float64 `mapstructure:"f1_loss_ratio"`
	MaxAnswerSpan       int     `mapstructure:"max_answer_span"`
	Optimizer           string  `mapstructure:"optimizer"`
	LearningRate        float64 `mapstructure:"learning_rate"`
	Schedule            string  `mapstructure:"schedule"`
	DecayRate           float64 `mapstructure:"decay_rate"`
	DecayEvery          int     `mapstructure:"decay_every"`
	Initializer         string  `mapstructure:"initializer"`
	Seed                int64   `mapstructure:"seed"`
}

// TrainConfig holds the settings of the training loop.
type TrainConfig struct {
	Epochs         int    `mapstructure:"epochs"`
	Order          string `mapstructure:"order"`
	CheckpointDir  string `mapstructure:"checkpoint_dir"`
	PredictionsDir string `mapstructure:"predictions_dir"`
	LogEvery       int    `mapstructure:"log_every"`

	// Resume is a checkpoint directory to continue training from.
	Resume string `mapstructure:"resume"`

	Penalty       string  `mapstructure:"penalty"`
	PenaltyLambda float64 `mapstructure:"penalty_lambda"`
	PenaltyAlpha  float64 `mapstructure:"penalty_alpha"`
}

// TestConfig holds the settings of a test run.
type TestConfig struct {
	Checkpoint      string `mapstructure:"checkpoint"`
	PredictionsPath string `mapstructure:"predictions_path"`
	AttentionPath   string `mapstructure:"attention_path"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Mode       string `mapstructure:"mode"` // gin mode: debug, release, test
	Checkpoint string `mapstructure:"checkpoint"`
}

// Load decodes the configuration held by v, after setting defaults and enabling QNET_ environment
// variables. If v has a config file set, it is read first.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "Failed to read config file %q\n", v.ConfigFileUsed())
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(err, "Unable to decode config\n")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	m := qnet.DefaultConfig()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("data.train_json", "")
	v.SetDefault("data.dev_json", "")
	v.SetDefault("data.cache_dir", "cache")
	v.SetDefault("data.glove_path", "")
	v.SetDefault("data.max_train_articles", 0)
	v.SetDefault("data.max_dev_articles", 0)
	v.SetDefault("data.batch_size", 32)
	v.SetDefault("data.test_batch_size", 32)
	v.SetDefault("data.debug", false)
	v.SetDefault("data.debug_examples", 320)

	v.SetDefault("model.embed_size", m.EmbedSize)
	v.SetDefault("model.hidden_size", m.HiddenSize)
	v.SetDefault("model.attention_size", m.AttentionSize)
	v.SetDefault("model.preprocessing_layers", m.PreprocessingLayers)
	v.SetDefault("model.match_layers", m.MatchLayers)
	v.SetDefault("model.dropout", m.Dropout)
	v.SetDefault("model.f1_loss_ratio", m.F1LossRatio)
	v.SetDefault("model.max_answer_span", m.MaxAnswerSpan)
	v.SetDefault("model.optimizer", m.Optimizer)
	v.SetDefault("model.learning_rate", m.LearningRate)
	v.SetDefault("model.schedule", m.Schedule)
	v.SetDefault("model.decay_rate", m.DecayRate)
	v.SetDefault("model.decay_every", m.DecayEvery)
	v.SetDefault("model.initializer", m.Initializer)
	v.SetDefault("model.seed", m.Seed)

	v.SetDefault("train.epochs", 50)
	v.SetDefault("train.order", qnet.OrderAlternate)
	v.SetDefault("train.checkpoint_dir", "checkpoints")
	v.SetDefault("train.predictions_dir", "predictions")
	v.SetDefault("train.log_every", 100)
	v.SetDefault("train.resume", "")
	v.SetDefault("train.penalty", "")
	v.SetDefault("train.penalty_lambda", 0.0)
	v.SetDefault("train.penalty_alpha", 0.5)

	v.SetDefault("test.checkpoint", "")
	v.SetDefault("test.predictions_path", "predictions.json")
	v.SetDefault("test.attention_path", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.checkpoint", "")
}

func (c *Config) validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("Unknown log format %q, expected text or json", c.Log.Format)
	}

	if c.Data.BatchSize < 1 || c.Data.TestBatchSize < 1 {
		return errors.Errorf("Batch sizes must be positive, got %d and %d", c.Data.BatchSize, c.Data.TestBatchSize)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("Invalid port: %d", c.Server.Port)
	}
	return nil
}

// QNet returns the qnet.Config for a dataset with the given vocabulary size and number of tags.
func (c *Config) QNet(vocabSize, numTags int) qnet.Config {
	m := c.Model
	return qnet.Config{
		VocabSize:           vocabSize,
		EmbedSize:           m.EmbedSize,
		NumTags:             numTags,
		FrozenEmbeddings:    c.Data.GlovePath != "",
		HiddenSize:          m.HiddenSize,
		AttentionSize:       m.AttentionSize,
		PreprocessingLayers: m.PreprocessingLayers,
		MatchLayers:         m.MatchLayers,
		Dropout:             m.Dropout,
		F1LossRatio:         m.F1LossRatio,
		MaxAnswerSpan:       m.MaxAnswerSpan,
		Optimizer:           m.Optimizer,
		LearningRate:        m.LearningRate,
		Schedule:            m.Schedule,
		DecayRate:           m.DecayRate,
		DecayEvery:          m.DecayEvery,
		Initializer:         m.Initializer,
		Seed:                m.Seed,
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.Errorf("Unknown log level %q", s)
	}
	return level, nil
}

// NewLogger builds the logger described by c, writing to w.
func NewLogger(c LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch c.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, errors.Errorf("Unknown log format %q, expected text or json", c.Format)
}
