package qnet

import "fmt"

// Error is a wrapper for specific types of errors for which there is no additional information
// necessary. These errors are defined as global variables.
type Error struct{ string }

func (err Error) Error() string {
	return err.string
}

// These are the global errors that may be returned.
var (
	ErrUnknownNetwork = Error{"Sub-network index is not 0 (sentence) or 1 (span)"}
	ErrNoEmbeddings   = Error{"Frozen embeddings requested but no pretrained table given"}
	ErrNotCheckpoint  = Error{"Directory is not a q-net checkpoint"}
)

// NilArgError documents errors resulting from certain arguments provided to a function being nil.
type NilArgError struct{ string }

func (err NilArgError) Error() string {
	return err.string + " is nil"
}

// ConfigError is returned by New and Config.Validate for a malformed configuration. Field is the
// name of the offending Config field.
type ConfigError struct {
	Field  string
	Reason string
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", err.Field, err.Reason)
}

// SizeMismatchError is returned by Batch.Validate when part of a batch does not agree with the
// rest of it.
type SizeMismatchError struct {
	What          string
	Expected, Got int
}

func (err *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", err.What, err.Expected, err.Got)
}
