package squad

import (
	"bytes"
	"encoding/gob"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// ErrNotCached is returned by Store when the requested entry was never stored.
var ErrNotCached = errors.New("Entry is not in the preprocessing cache")

const (
	datasetPrefix string = "dataset/"
	dictionaryKey string = "dictionary"
)

// Store caches preprocessed datasets and the dictionary they were built with, so that training
// runs can skip preprocessing.
type Store struct {
	db *badger.DB
}

// OpenStore opens, or creates, the cache in dir. An empty dir gives a store held in memory.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open preprocessing cache %q\n", dir)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutDataset stores d under name, replacing any dataset of the same name.
func (s *Store) PutDataset(name string, d *Dataset) error {
	return s.put(datasetPrefix+name, d)
}

// Dataset returns the dataset stored under name.
func (s *Store) Dataset(name string) (*Dataset, error) {
	d := new(Dataset)
	if err := s.get(datasetPrefix+name, d); err != nil {
		return nil, errors.Wrapf(err, "Can't load dataset %q\n", name)
	}
	return d, nil
}

// Datasets returns the names of every stored dataset, in key order.
func (s *Store) Datasets() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(datasetPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), datasetPrefix))
		}
		return nil
	})
	return names, err
}

// PutDictionary stores the dictionary.
func (s *Store) PutDictionary(d *Dictionary) error {
	return s.put(dictionaryKey, d.Words())
}

// Dictionary returns the stored dictionary.
func (s *Store) Dictionary() (*Dictionary, error) {
	var words []string
	if err := s.get(dictionaryKey, &words); err != nil {
		return nil, errors.Wrapf(err, "Can't load dictionary\n")
	}
	return DictionaryFrom(words), nil
}

func (s *Store) put(key string, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return errors.Wrapf(err, "Failed to encode %q\n", key)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf.Bytes())
	})
	return errors.Wrapf(err, "Failed to store %q\n", key)
}

func (s *Store) get(key string, v any) error {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotCached
	} else if err != nil {
		return errors.Wrapf(err, "Failed to read %q\n", key)
	}

	return errors.Wrapf(gob.NewDecoder(bytes.NewReader(data)).Decode(v), "Failed to decode %q\n", key)
}
