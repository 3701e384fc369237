package main

import (
	"os"

	"github.com/pkg/errors"

	qnet "github.com/shaleenx/q-net"
	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/squad"
)

// dataset is a cached dataset, batched.
type dataset struct {
	data     *squad.Dataset
	supplier *squad.Supplier
}

func openCache() (*squad.Store, *squad.Dictionary, error) {
	store, err := squad.OpenStore(cfg.Data.CacheDir)
	if err != nil {
		return nil, nil, err
	}

	dict, err := store.Dictionary()
	if err != nil {
		store.Close()
		return nil, nil, errors.Wrapf(err, "Run 'qnet preprocess' first\n")
	}
	return store, dict, nil
}

func loadDataset(store *squad.Store, name string, batchSize int) (*dataset, error) {
	d, err := store.Dataset(name)
	if err != nil {
		return nil, err
	}

	limit := 0
	if cfg.Data.Debug {
		limit = cfg.Data.DebugExamples
	}

	s, err := squad.NewSupplier(d, batchSize, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't batch dataset %q\n", name)
	}

	logger.Info("loaded dataset", "name", name, "examples", s.NumExamples(), "batches", s.NumBatches())
	return &dataset{data: d, supplier: s}, nil
}

// loadEmbeddings reads the configured GloVe vectors, or returns nil if none are configured.
func loadEmbeddings(dict *squad.Dictionary, dim int) (*ag.Mat, error) {
	if cfg.Data.GlovePath == "" {
		return nil, nil
	}

	f, err := os.Open(cfg.Data.GlovePath)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open word vectors\n")
	}
	defer f.Close()

	table, oov, err := qnet.LoadGloVe(f, dict.Words(), squad.PadIndex, dim)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load %q\n", cfg.Data.GlovePath)
	}

	logger.Info("loaded word vectors", "path", cfg.Data.GlovePath, "dim", table.Cols,
		"oov", oov.Count, "oov_sample", oov.Words[:min(10, len(oov.Words))])
	return table, nil
}

// loadCheckpoint loads a model, reading the word vectors first if the checkpoint needs them.
func loadCheckpoint(dir string, dict *squad.Dictionary) (*qnet.Model, *qnet.Manifest, error) {
	man, err := qnet.ReadManifest(dir)
	if err != nil {
		return nil, nil, err
	}

	var pretrained *ag.Mat
	if man.Config.FrozenEmbeddings {
		if pretrained, err = loadEmbeddings(dict, man.Config.EmbedSize); err != nil {
			return nil, nil, err
		}
	}

	m, _, man, err := qnet.Load(dir, pretrained)
	if err != nil {
		return nil, nil, err
	}
	if man.Config.VocabSize != dict.Len() {
		return nil, nil, errors.Errorf("Checkpoint vocabulary has %d words, cached dictionary has %d",
			man.Config.VocabSize, dict.Len())
	}
	return m, man, nil
}
