// Package qnet is a Match-LSTM reading-comprehension model with a boundary pointer, trained on
// SQuAD-style data. Given a passage and a question, it predicts the start and end tokens of the
// answer within the passage.
//
// Architecture
//
// Passage and question tokens are embedded (optionally followed by one-hot lexical tags) and run
// through stacked bidirectional LSTM layers. The cells have no output gate: the hidden state is
// tanh of the cell state, and padding is masked so that state beyond each sequence's length is
// exactly zero.
//
// Match layers then scan the passage in both directions, attending over the question at every
// position to build a question-aware passage representation, Hr.
//
// Two pointer sub-networks read Hr: the sentence network (SentenceNetwork) points at the sentence
// containing the answer, and the span network (SpanNetwork) at the answer itself. Each runs a
// forward and a backward pointer for three steps, producing a distribution over passage positions
// at every step. The forward pointer's second and third distributions are the start and end; the
// backward pointer's are the end and start.
//
// Building and training
//
// A Model is built from a Config:
//
//		cfg := qnet.DefaultConfig()
//		cfg.VocabSize, cfg.NumTags = len(vocab), numTags
//		m, err := qnet.New(cfg, nil)
//
// Malformed configurations fail here with a *ConfigError. Training goes through Train, with a
// DataSupplier of batches:
//
//		err = m.Train(ctx, qnet.TrainArgs{
//			TrainData:     train,
//			DevData:       dev,
//			Epochs:        50,
//			CheckpointDir: "checkpoints",
//		})
//
// Lower-level use goes through Forward, which returns the distributions and the loss as an
// explicit value to backpropagate:
//
//		g := ag.NewGraph(true)
//		out, err := m.Forward(g, batch)
//		g.Backward(out.Loss)
//
// Decode turns the distributions of both sub-networks into one span per example.
//
// Saving and Loading
//
// Save writes a versioned checkpoint directory (a YAML manifest, the parameters as Parquet, and the
// optimizer state); Load rebuilds the model and optimizer from it:
//
//		err := m.Save(dirPath, overwrite, opt, runID, epoch)
//		m, opt, manifest, err := qnet.Load(dirPath, pretrained)
package qnet
